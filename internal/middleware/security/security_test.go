package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeaders(t *testing.T) {
	handler := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for name, value := range want {
		if got := rr.Header().Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}
}

func TestDetector(t *testing.T) {
	d := NewDetector(func(r *http.Request) string { return r.RemoteAddr })

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain read", http.MethodGet, "/accounts/1/budgets/100", "", false},
		{"path traversal", http.MethodGet, "/accounts/../../etc/passwd", "", true},
		{"dotenv scan", http.MethodGet, "/.env", "", true},
		{"scan in query", http.MethodGet, "/users?file=.git/config", "", true},
		{"scanner agent", http.MethodGet, "/users", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"long url", http.MethodGet, "/users?q=" + strings.Repeat("a", 2100), "", true},
	}

	var flagged int64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if got := d.IsSuspicious(req); got != tt.want {
				t.Errorf("IsSuspicious() = %v, want %v", got, tt.want)
			}
			d.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)
			if tt.want {
				flagged++
			}
		})
	}

	if got := d.SuspiciousRequests(); got != flagged {
		t.Errorf("SuspiciousRequests() = %d, want %d", got, flagged)
	}
}
