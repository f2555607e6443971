package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// Ledger is the service surface the HTTP layer drives.
// *services.LedgerService implements it.
type Ledger interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, name, email string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	UserView(ctx context.Context, userID int64) (core.User, []core.Account, error)

	CreateAccount(ctx context.Context, name string, opening core.Money, userID int64) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id int64) (core.Account, error)

	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	AmendTransaction(ctx context.Context, id int64, change storage.Amendment) (core.Transaction, error)
	RemoveTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	AccountTransactions(ctx context.Context, accountID int64) (core.Account, []core.Transaction, error)

	GetWithinBudget(ctx context.Context, accountID int64, budget core.Money) ([]core.Transaction, error)
	GenerateTransactions(ctx context.Context, accountID int64, count int) (services.BatchSummary, error)

	ExportAccount(ctx context.Context, accountID int64) (int, error)
	ReadExport(ctx context.Context, accountID int64) (string, error)
}

// Config tunes the server middleware.
type Config struct {
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

type Server struct {
	http.Server
	ledger   Ledger
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	logger   *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l Ledger, cfg Config, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		ledger:   l,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(extractClientIP),
		detector: security.NewDetector(extractClientIP),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("GET /users/{userID}", s.handleGetUser)

	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("GET /accounts/{accountID}", s.handleGetAccount)
	mux.HandleFunc("DELETE /accounts/{accountID}", s.handleDeleteAccount)
	mux.HandleFunc("GET /accounts/{accountID}/transactions", s.handleAccountTransactions)
	mux.HandleFunc("GET /accounts/{accountID}/budgets/{amount}", s.handleWithinBudget)
	mux.HandleFunc("POST /accounts/{accountID}/transactions/generate", s.handleGenerateTransactions)
	mux.HandleFunc("POST /accounts/{accountID}/exports", s.handleWriteExport)
	mux.HandleFunc("GET /accounts/{accountID}/exports", s.handleReadExport)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("PATCH /transactions/{transactionID}", s.handleAmendTransaction)
	mux.HandleFunc("DELETE /transactions/{transactionID}", s.handleRemoveTransaction)

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	handler = withTimeout(cfg.RequestTimeout)(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// withRateLimit limits mutating requests per client IP. Reads are not limited.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, extractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// withTimeout puts a deadline on every request context. Storage calls that run
// past it fail with context.DeadlineExceeded, which fail reports as a 504.
func withTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ledger.Ping(ctx); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		NewResponse().
			Status(http.StatusServiceUnavailable).
			JSON(map[string]string{"status": "unavailable"}).
			Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

// fail logs err and writes the matching JSON error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error, fields applog.LogFields) {
	ctx := r.Context()
	// The driver may surface an expired deadline as its own error.
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	if fields == nil {
		fields = applog.NewFields()
	}
	fields.WithHTTPRequest(r.Method, r.URL.Path).WithRequestID(trace.RequestID(r))
	events(r).LogError(ctx, "Request failed", err, op, fields)
	ErrorResponse(err, trace.RequestID(r)).Write(w)
}

// events returns a structured logger carrying the request's log context.
func events(r *http.Request) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.FromContext(r.Context()))
}

// parseBody parses the request body, writing a 400 on failure.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}
	return p, true
}
