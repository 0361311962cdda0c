// Package http serves the JSON API over net/http.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"finanzas/internal/analytics"
	"finanzas/internal/auth"
	"finanzas/internal/cache"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Transactions *services.TransactionService
	Goals        *services.GoalService
	Reminders    *services.ReminderService
	Budget       *services.BudgetService
	Dashboard    *services.DashboardService
	Issuer       *auth.Issuer
	// Logger is attached to every request context. Defaults to slog's default.
	Logger *log.Logger

	// Storage is pinged by /readyz. Optional.
	Storage Pinger
	// Snapshots is reported on /metrics. Optional.
	Snapshots *cache.LRUCache[services.Snapshot]

	// ViewLocation reads dates without an offset. Defaults to Bogota.
	ViewLocation *time.Location
	RateLimitRPM int
}

// Server is an http.Server with the API routes and middleware installed.
type Server struct {
	http.Server

	deps     Deps
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware
	started  time.Time
	now      func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.ViewLocation == nil {
		deps.ViewLocation = analytics.Bogota
	}
	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           log.Middleware(deps.Logger)(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:     deps,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		started:  time.Now(),
		now:      time.Now,
	}
	s.routes(mux)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	// Operational endpoints skip the rate limiter so probes are never throttled.
	mux.Handle("GET /healthz", s.tracer.Middleware(http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /readyz", s.tracer.Middleware(http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", s.tracer.Middleware(http.HandlerFunc(s.handleMetrics)))

	mux.Handle("POST /api/auth/token", s.public(s.handleIssueToken))
	mux.Handle("GET /api/demo", s.public(s.handleDemo))

	mux.Handle("GET /api/transactions", s.private(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.private(s.handleCreateTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.private(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.private(s.handleDeleteTransaction))
	mux.Handle("DELETE /api/categories/{kind}/{name}", s.private(s.handleDeleteCategory))

	mux.Handle("GET /api/goals", s.private(s.handleListGoals))
	mux.Handle("POST /api/goals", s.private(s.handleCreateGoal))
	mux.Handle("PUT /api/goals/{id}", s.private(s.handleUpdateGoal))
	mux.Handle("DELETE /api/goals/{id}", s.private(s.handleDeleteGoal))
	mux.Handle("POST /api/goals/{id}/notes", s.private(s.handleAddGoalNote))

	mux.Handle("GET /api/reminders", s.private(s.handleListReminders))
	mux.Handle("POST /api/reminders", s.private(s.handleCreateReminder))
	mux.Handle("PUT /api/reminders/{id}", s.private(s.handleUpdateReminder))
	mux.Handle("DELETE /api/reminders/{id}", s.private(s.handleDeleteReminder))
	mux.Handle("POST /api/reminders/{id}/notes", s.private(s.handleAddReminderNote))

	mux.Handle("GET /api/budget", s.private(s.handleGetBudget))
	mux.Handle("PUT /api/budget", s.private(s.handleSetBudget))
	mux.Handle("POST /api/budget/custom", s.private(s.handleAddCustomLimit))
	mux.Handle("DELETE /api/budget/custom/{index}", s.private(s.handleRemoveCustomLimit))

	mux.Handle("GET /api/dashboard", s.private(s.handleDashboard))
	mux.Handle("GET /api/dashboard/range", s.private(s.handleDashboardRange))
}

// public wraps h in trace, probe detection, rate limiting and security
// headers, outermost first.
func (s *Server) public(h http.HandlerFunc) http.Handler {
	var next http.Handler = h
	next = s.headers.Middleware(next)
	next = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(next)
	next = s.detector.Middleware(next)
	return s.tracer.Middleware(next)
}

// private is public plus bearer token authentication.
func (s *Server) private(h http.HandlerFunc) http.Handler {
	return s.public(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Issuer == nil {
			ErrorResponse(http.StatusServiceUnavailable, "authentication is not configured").Write(w)
			return
		}
		s.deps.Issuer.Middleware(h).ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// userID returns the authenticated user. private guarantees it is present.
func userID(r *http.Request) string {
	uid, _ := auth.UserIDFromContext(r.Context())
	return uid
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", log.FieldComponent, log.ComponentHTTP)
	s.limiter.Stop()
	if err := s.Server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
