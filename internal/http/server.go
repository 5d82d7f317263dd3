// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/report"
	"gastos/internal/services"
	"gastos/internal/taxonomy"
)

// ExpenseService is what the handlers need; *services.ExpenseService implements it.
type ExpenseService interface {
	SubmitExpense(ctx context.Context, intent core.ExpenseIntent) (services.Submission, error)
	UpdateExpense(ctx context.Context, sourceID string, intent core.ExpenseIntent) (services.Submission, error)
	DeleteExpense(ctx context.Context, ref string) (services.Deletion, error)
	ListEntries(ctx context.Context) ([]core.LedgerEntry, error)
	GetGroup(ctx context.Context, sourceID string) ([]core.LedgerEntry, error)
	GetAggregate(ctx context.Context, f report.Filter) (report.Aggregate, error)
	GetInsights(agg report.Aggregate) []insights.Insight
	ListCategories() []taxonomy.Node
	RegisterCategory(ctx context.Context, name string) error
	Resync(ctx context.Context) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger *log.Logger
	// RateLimitPerMinute bounds writes per client; zero uses the limiter default.
	RateLimitPerMinute int
	// Pinger backs /readyz; nil means always ready.
	Pinger Pinger
	Now    func() time.Time
}

type Server struct {
	http.Server
	svc     ExpenseService
	pinger  Pinger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc ExpenseService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ips := security.NewClientIPResolver()
	s := &Server{
		svc:     svc,
		pinger:  opts.Pinger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(ips.ClientIP),
		now:     now,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusNotFound, "no such endpoint", "").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed", "").Write(w)
	})
	r.Use(
		log.Middleware(logger),
		s.tracer.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
			WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, ips.ClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later", "").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete))

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleRegisterCategory).Methods(http.MethodPost)
	api.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{source_id}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{source_id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{ref}", s.handleDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/insights", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/resync", s.handleResync).Methods(http.MethodPost)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// TotalRequests is the number of routed requests served so far.
func (s *Server) TotalRequests() int64 {
	return s.tracer.TotalRequests()
}
