package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledger/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"account_id": 123, "name": " rent\u0007 ", "amount": 42.5, "type": "debit"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if name := parser.Get("name"); name != "rent" {
		t.Errorf("Get('name') = %q, want 'rent'", name)
	}
	if id, err := parser.Int64("account_id"); err != nil || id != 123 {
		t.Errorf("Int64('account_id') = %d, %v", id, err)
	}
	if amount, err := parser.Money("amount"); err != nil || amount.Cents != 4250 {
		t.Errorf("Money('amount') = %v, %v", amount, err)
	}
	if typ, err := parser.Type("type"); err != nil || typ != core.Debit {
		t.Errorf("Type('type') = %v, %v", typ, err)
	}
	if parser.Has("missing") {
		t.Error("Has('missing') = true")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "account_id=456&name=form+test&amount=100&type=1"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
	if typ, err := parser.Type("type"); err != nil || typ != core.Credit {
		t.Errorf("Type('type') = %v, %v", typ, err)
	}
	if amount, err := parser.Money("amount"); err != nil || amount.Cents != 10000 {
		t.Errorf("Money('amount') = %v, %v", amount, err)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("anything"); val != "" {
		t.Errorf("Get('anything') = %q, want empty", val)
	}

	opening, err := parser.OptionalMoney("opening_balance")
	if err != nil || !opening.IsZero() {
		t.Errorf("OptionalMoney = %v, %v", opening, err)
	}
	if _, err := parser.Money("amount"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Money on missing field: %v", err)
	}
}

func TestRequestBodyParser_Invalid(t *testing.T) {
	tests := map[string]string{
		"broken json": `{"name":`,
		"too large":   "name=" + strings.Repeat("a", maxBodyBytes),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
			if err := NewRequestBodyParser(req).Parse(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRequestBodyParser_FieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test",
		strings.NewReader(`{"account_id": -3, "amount": "1.2.3", "type": "refund", "count": "many"}`))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if _, err := parser.Int64("account_id"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Int64: %v", err)
	}
	if _, err := parser.Money("amount"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("Money: %v", err)
	}
	if _, err := parser.Type("type"); !errors.Is(err, core.ErrUnknownType) {
		t.Errorf("Type: %v", err)
	}
	if _, err := parser.Int("count"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Int: %v", err)
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/accounts/x", nil)
			req.SetPathValue("accountID", tt.raw)

			got, err := PathID(req, "accountID")
			if (err != nil) != tt.wantErr {
				t.Fatalf("PathID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PathID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct peer", "203.0.113.7:5000", "", "203.0.113.7"},
		{"untrusted peer ignores header", "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy honours header", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad header", "127.0.0.1:5000", "nonsense", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
