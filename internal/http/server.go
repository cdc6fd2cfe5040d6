package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneytrack/internal/aiquery"
	"moneytrack/internal/backup"
	"moneytrack/internal/core"
	"moneytrack/internal/log"
	"moneytrack/internal/middleware/ratelimit"
	"moneytrack/internal/middleware/security"
	"moneytrack/internal/middleware/trace"
	"moneytrack/internal/services"
	"moneytrack/internal/storage"
)

// QueryProcessor answers natural-language questions about the ledger.
type QueryProcessor interface {
	Process(ctx context.Context, question string) (aiquery.Result, error)
}

// Services groups the dependencies of the handlers. Backups and AI are
// optional; their endpoints answer 503 when nil.
type Services struct {
	Storage      *storage.SQLiteRepository
	Transactions *services.TransactionService
	Analytics    *services.AnalyticsService
	Recurring    *services.RecurringProcessor
	Data         *services.DataService
	Backups      *backup.Manager
	AI           QueryProcessor
}

type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	// Today overrides the clock used by the recurring process endpoint.
	Today func() core.Date
}

type Server struct {
	http.Server

	svc         Services
	today       func() core.Date
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Today == nil {
		opts.Today = core.Today
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	detector := security.NewDetector()
	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		svc:         svc,
		today:       opts.Today,
		rateLimiter: ratelimit.NewLimiter(limitCfg),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP)(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(opts.Logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	mux.HandleFunc("DELETE /api/transfers/{id}", s.handleDeleteTransfer)

	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("POST /api/recurring", s.handleCreateRecurring)
	mux.HandleFunc("POST /api/recurring/process", s.handleProcessRecurring)
	mux.HandleFunc("GET /api/recurring/{id}", s.handleGetRecurring)
	mux.HandleFunc("PUT /api/recurring/{id}", s.handleUpdateRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/payees", s.handleListPayees)
	mux.HandleFunc("POST /api/payees", s.handleCreatePayee)
	mux.HandleFunc("DELETE /api/payees/{id}", s.handleDeletePayee)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/summary", s.handleProjectSummary)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleSaveSettings)

	mux.HandleFunc("GET /api/analytics/{view}", s.handleAnalytics)

	mux.HandleFunc("GET /api/export/{format}", s.handleExport)
	mux.HandleFunc("POST /api/import/{format}", s.handleImport)
	mux.HandleFunc("GET /api/backups", s.requireBackups(s.handleListBackups))
	mux.HandleFunc("GET /api/backups/status", s.requireBackups(s.handleBackupStatus))
	mux.HandleFunc("POST /api/backups", s.requireBackups(s.handleCreateBackup))
	mux.HandleFunc("POST /api/backups/{name}/restore", s.requireBackups(s.handleRestoreBackup))

	mux.HandleFunc("POST /api/ai/query", s.handleAIQuery)
}

// Metrics returns the request counters of the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Storage.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		ServiceUnavailableError("database unavailable").Write(w)
		return
	}
	stats, err := s.svc.Storage.Stats(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		ServiceUnavailableError("schema unavailable").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"schema_version":   stats.SchemaVersion,
		"database_size_mb": stats.SizeMB,
	})
}
