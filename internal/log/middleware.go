package log

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ledger/internal/core"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context, falling back to
// the default logger.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds the request id to the logger in context. It must
// run inside the middleware that assigns the id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ErrorType classifies err by the core error class it wraps.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrInvalidArgument):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrConstraintViolation):
		return ErrorTypeConflict
	case errors.Is(err, core.ErrStorageFailure):
		return ErrorTypeDatabase
	}
	return ErrorTypeInternal
}

// StructuredLogger logs ledger operations with a consistent field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogTransaction logs a committed transaction write.
func (sl *StructuredLogger) LogTransaction(ctx context.Context, op string, tx core.Transaction) {
	fields := NewFields().
		WithTransaction(tx.ID, tx.AccountID, tx.Amount.Cents, tx.Type.String()).
		WithOperation(op)

	sl.logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
}

// LogError logs a failed operation. Client errors are logged at warn level.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	errorType := ErrorType(err)
	all := fields.
		WithError(err).
		WithErrorType(errorType).
		WithOperation(operation)

	if errorType == ErrorTypeDatabase || errorType == ErrorTypeInternal {
		sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
		return
	}
	sl.logger.WarnContext(ctx, msg, all.ToSlice()...)
}
