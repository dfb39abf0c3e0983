package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arqcashflow/backend/internal/audit"
	"github.com/arqcashflow/backend/internal/config"
	"github.com/arqcashflow/backend/internal/database"
	"github.com/arqcashflow/backend/internal/expenses"
	"github.com/arqcashflow/backend/internal/middleware"
	"github.com/arqcashflow/backend/internal/recurring"
	"github.com/arqcashflow/backend/internal/teams"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	pool       *pgxpool.Pool
	logger     *slog.Logger
}

// New creates a new HTTP server with all routes configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Apply schema migrations before taking traffic
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	// Connect to database
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	// Create audit log repository and service (needs to be early for other services)
	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, logger)

	// Create teams repository and handler
	teamRepo := teams.NewRepository(pool)
	teamHandler := teams.NewHandler(teamRepo, logger)

	// Create expenses service and handler
	expenseRepo := expenses.NewRepository(pool)
	expenseService := expenses.NewService(expenseRepo, auditService, logger)
	expenseHandler := expenses.NewHandler(expenseService, logger)

	// Create recurring expenses service and handler
	recurringRepo := recurring.NewRepository(pool)
	recurringService := recurring.NewService(recurringRepo, auditService, logger)
	recurringHandler := recurring.NewHandler(recurringService, expenseService, logger)

	// Create audit log handler
	auditHandler := audit.NewHandler(auditService, logger)

	// Periodic audit log cleanup
	go runAuditCleanup(ctx, auditService, cfg.AuditRetentionDays, logger)

	// Authentication middleware for team-scoped routes
	requireTeam := middleware.RequireTeam(teamRepo, logger)

	// Rate limiter for generation-heavy endpoints (series creation and
	// regeneration fan out into bulk inserts)
	var rateLimitGenerate func(http.Handler) http.Handler
	if cfg.RateLimitEnabled {
		generateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		rateLimitGenerate = middleware.RateLimit(generateLimiter)
		logger.Info("rate limiting enabled for generation endpoints", "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
	} else {
		rateLimitGenerate = func(next http.Handler) http.Handler { return next }
		logger.Warn("rate limiting disabled - only use in development/testing")
	}

	// Setup routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /version", handleVersion)

	// Team provisioning (the only unauthenticated data endpoint)
	mux.HandleFunc("POST /teams", teamHandler.HandleCreate)
	mux.Handle("GET /teams/me", requireTeam(http.HandlerFunc(teamHandler.HandleMe)))

	// Expense endpoints
	mux.Handle("POST /api/expenses", requireTeam(http.HandlerFunc(expenseHandler.HandleCreate)))
	mux.Handle("GET /api/expenses", requireTeam(http.HandlerFunc(expenseHandler.HandleList)))
	mux.Handle("GET /api/expenses/{id}", requireTeam(http.HandlerFunc(expenseHandler.HandleGet)))
	mux.Handle("PATCH /api/expenses/{id}", requireTeam(http.HandlerFunc(expenseHandler.HandleUpdate)))
	mux.Handle("PUT /api/expenses/{id}/status", requireTeam(http.HandlerFunc(expenseHandler.HandleSetStatus)))
	mux.Handle("DELETE /api/expenses/{id}", requireTeam(http.HandlerFunc(expenseHandler.HandleDelete)))

	// Recurring expense endpoints (order matters to avoid route conflicts)
	mux.Handle("POST /api/recurring-expenses", requireTeam(rateLimitGenerate(http.HandlerFunc(recurringHandler.HandleCreate))))
	mux.Handle("GET /api/recurring-expenses", requireTeam(http.HandlerFunc(recurringHandler.HandleList)))
	mux.Handle("GET /api/recurring-expenses/{id}", requireTeam(http.HandlerFunc(recurringHandler.HandleGet)))
	mux.Handle("PATCH /api/recurring-expenses/{id}", requireTeam(http.HandlerFunc(recurringHandler.HandleUpdate)))
	mux.Handle("DELETE /api/recurring-expenses/{id}", requireTeam(http.HandlerFunc(recurringHandler.HandleDelete)))
	mux.Handle("GET /api/recurring-expenses/{id}/occurrences", requireTeam(http.HandlerFunc(recurringHandler.HandleListOccurrences)))
	mux.Handle("PUT /api/recurring-expenses/{id}/series", requireTeam(http.HandlerFunc(recurringHandler.HandleUpdateSeries)))
	mux.Handle("DELETE /api/recurring-expenses/{id}/series", requireTeam(http.HandlerFunc(recurringHandler.HandleDeleteSeries)))
	mux.Handle("POST /api/recurring-expenses/{id}/regenerate", requireTeam(rateLimitGenerate(http.HandlerFunc(recurringHandler.HandleRegenerate))))

	// Audit trail
	mux.Handle("GET /api/audit-logs", requireTeam(http.HandlerFunc(auditHandler.HandleList)))

	// Apply middleware
	var handler http.Handler = mux
	handler = middleware.NoCache()(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.Recovery(logger)(handler)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		pool:       pool,
		logger:     logger,
	}, nil
}

// runAuditCleanup deletes expired audit entries once a day until ctx is done.
func runAuditCleanup(ctx context.Context, auditService audit.Service, retentionDays int, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := auditService.Cleanup(cleanupCtx, retentionDays); err != nil {
				logger.Error("audit cleanup failed", "error", err)
			}
			cancel()
		}
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("closing database connection pool")
	s.pool.Close()
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Build-time variables injected via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"version":   Version,
		"commit":    Commit,
		"buildTime": BuildTime,
	})
}
