// This file implements parsing of request bodies and path parameters. Bodies
// may be JSON objects or form-encoded.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads a body once and serves fields from it whether it
// was sent as JSON or as a form.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse decodes the body. A body starting with '{' is JSON, anything else is
// treated as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Has reports whether the field was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a field as a sanitized string.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Money parses a required amount field.
func (p *RequestBodyParser) Money(key string) (core.Money, error) {
	raw := p.Get(key)
	if raw == "" {
		return core.Money{}, fmt.Errorf("%w: %s is required", core.ErrInvalidArgument, key)
	}
	m, err := core.ParseMoney(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

// OptionalMoney parses an amount field, defaulting to zero when absent.
func (p *RequestBodyParser) OptionalMoney(key string) (core.Money, error) {
	if p.Get(key) == "" {
		return core.Money{}, nil
	}
	return p.Money(key)
}

// Type parses a transaction type field.
func (p *RequestBodyParser) Type(key string) (core.TransactionType, error) {
	raw := p.Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", core.ErrInvalidArgument, key)
	}
	return core.ParseTransactionType(raw)
}

// Int64 parses a positive integer id field.
func (p *RequestBodyParser) Int64(key string) (int64, error) {
	return parseID(key, p.Get(key))
}

// Int parses a plain integer field.
func (p *RequestBodyParser) Int(key string) (int, error) {
	raw := p.Get(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", core.ErrInvalidArgument, key, raw)
	}
	return n, nil
}

// stringValue renders a decoded JSON value as the string a form would carry.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// PathID parses a positive integer path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	return parseID(name, r.PathValue(name))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", core.ErrInvalidArgument, name, raw)
	}
	return id, nil
}
