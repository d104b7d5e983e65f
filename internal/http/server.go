// Package http exposes the finance service as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// FinanceService is the part of services.FinanceService the handlers use.
type FinanceService interface {
	Overview() services.Overview
	Transactions() []core.Transaction
	AddTransactionInput(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error)
	BudgetStatus() (core.BudgetStatus, bool)
	Countdown() (string, bool)
	CreatePlanFromDraft(ctx context.Context, draft core.BudgetDraft) (core.BudgetPlan, error)
	ResetBudget(ctx context.Context) error
	Reconcile(ctx context.Context) ([]budget.Drift, error)
	Series(period core.Period) (core.Series, error)
	SaveDraft(ctx context.Context, draft core.BudgetDraft) error
	Draft(ctx context.Context) (*core.BudgetDraft, error)
}

var _ FinanceService = (*services.FinanceService)(nil)

// Server is the HTTP front end of the finance service.
type Server struct {
	http.Server
	svc         FinanceService
	logger      *log.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit overrides the number of write requests allowed per client
// and minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.rateLimiter.limit = perMinute
	}
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc FinanceService, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		svc:         svc,
		logger:      log.New(log.DefaultConfig()),
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitWrites)

		r.Get("/overview", s.handleOverview)
		r.Get("/chart", s.handleChart)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/budget", s.handleBudget)
		r.Post("/budget", s.handleCreatePlan)
		r.Post("/budget/reset", s.handleResetBudget)
		r.Post("/budget/reconcile", s.handleReconcile)

		r.Get("/draft", s.handleGetDraft)
		r.Put("/draft", s.handleSaveDraft)
	})
	return r
}

// Shutdown stops the rate limiter cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
