package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func TestResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/accounts/1").
		JSON(map[string]int{"id": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/accounts/1" {
		t.Errorf("Location = %q", got)
	}
	if got := w.Body.String(); got != "{\"id\":1}\n" {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get account: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrNegativeAmount, http.StatusBadRequest},
		{core.ErrConstraintViolation, http.StatusBadRequest},
		{fmt.Errorf("ping: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: %w", core.ErrStorageFailure, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{core.ErrStorageFailure, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorBody
	}{
		{
			name:       "validation",
			err:        core.ErrEmptyName,
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorBody{Error: core.ErrEmptyName.Error(), Code: applog.ErrorTypeValidation, RequestID: "req_1"},
		},
		{
			name:       "not found",
			err:        fmt.Errorf("get account: %w", core.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorBody{Error: "get account: not found", Code: applog.ErrorTypeNotFound, RequestID: "req_1"},
		},
		{
			name:       "internal details hidden",
			err:        fmt.Errorf("%w: disk I/O error at /var/lib/ledger.db", core.ErrStorageFailure),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorBody{Error: "Internal Server Error", Code: applog.ErrorTypeDatabase, RequestID: "req_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(tt.err, "req_1").Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var got ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if got != tt.wantBody {
				t.Errorf("Body = %+v, want %+v", got, tt.wantBody)
			}
		})
	}
}

func TestTooManyRequestsError(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequestsError().Write(w)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}
