// Package http exposes the ledger over a JSON HTTP API.
//
// This file holds the response builder and the mapping from ledger error
// classes to HTTP status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes only headers and status.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// StatusFor maps an error to its HTTP status by core error class.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidArgument), errors.Is(err, core.ErrConstraintViolation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorResponse builds the JSON error for err. Internal failures are not
// echoed to the client.
func ErrorResponse(err error, requestID string) *ResponseBuilder {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	return NewResponse().
		Status(status).
		JSON(ErrorBody{Error: msg, Code: applog.ErrorType(err), RequestID: requestID})
}

// BadRequestError creates a 400 response for malformed input.
func BadRequestError(message string) *ResponseBuilder {
	return NewResponse().
		Status(http.StatusBadRequest).
		JSON(ErrorBody{Error: message, Code: applog.ErrorTypeValidation})
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *ResponseBuilder {
	return NewResponse().
		Status(http.StatusTooManyRequests).
		JSON(ErrorBody{Error: "rate limit exceeded, try again later", Code: "rate_limited"})
}
