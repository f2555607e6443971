package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})

	logger.InfoContext(context.Background(), "Transaction recorded", FieldAccountID, int64(3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ComponentLedger, entry[FieldComponent])
	assert.Equal(t, float64(3), entry[FieldAccountID])
}

func TestMiddlewareAttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Component: ComponentHTTP, Output: &buf})

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req_1", entry[FieldRequestID])
	assert.Equal(t, ComponentHTTP, entry[FieldComponent])
}

func TestFromContextFallsBack(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, ErrorType(fmt.Errorf("get: %w", core.ErrNotFound)))
	assert.Equal(t, ErrorTypeValidation, ErrorType(core.ErrNegativeAmount))
	assert.Equal(t, ErrorTypeConflict, ErrorType(core.ErrConstraintViolation))
	assert.Equal(t, ErrorTypeDatabase, ErrorType(core.ErrStorageFailure))
	assert.Equal(t, ErrorTypeInternal, ErrorType(fmt.Errorf("boom")))
	assert.Equal(t, ErrorTypeTimeout, ErrorType(fmt.Errorf("%w: %w", core.ErrStorageFailure, context.DeadlineExceeded)))
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Component: ComponentLedger, Output: &buf}))

	sl.LogError(context.Background(), "Create failed", core.ErrEmptyName, OpCreate, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, ErrorTypeValidation, entry[FieldErrorType])
}
