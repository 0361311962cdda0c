package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady verifies storage and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Storage == nil {
		checks["storage"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.deps.Storage.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "check", "storage", "error", err)
		checks["storage"] = "failed"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	if s.deps.Issuer == nil {
		checks["auth"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["auth"] = "ok"
	}

	if s.deps.Snapshots != nil {
		checks["cache"] = map[string]any{"entries": s.deps.Snapshots.Size(), "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "status": "ok"}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)

	if s.deps.Snapshots != nil {
		stats := s.deps.Snapshots.Stats()
		metric("dashboard_cache_hits_total", "Dashboard snapshot cache hits", "counter", stats.Hits)
		metric("dashboard_cache_misses_total", "Dashboard snapshot cache misses", "counter", stats.Misses)
		metric("dashboard_cache_entries", "Cached dashboard snapshots", "gauge", stats.Size)
	}

	metric("rate_limit_rejected_total", "Requests rejected by the rate limiter", "counter", limitMetrics.Rejected)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Requests blocked by method", "counter", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}

// handleIssueToken exchanges an identity-provider user id for a session
// token. The caller proves itself with the shared exchange secret.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.deps.Issuer == nil {
		ErrorResponse(http.StatusServiceUnavailable, "authentication is not configured").Write(w)
		return
	}
	if err := s.deps.Issuer.CheckExchangeSecret(r.Header.Get(auth.ExchangeSecretHeader)); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Token exchange rejected",
			log.FieldComponent, log.ComponentAuth,
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		ErrorResponse(http.StatusUnauthorized, err.Error()).Write(w)
		return
	}

	var in tokenInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	token, expiresAt, err := s.deps.Issuer.Issue(in.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyUserID) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Session token issued",
		log.FieldComponent, log.ComponentAuth,
		log.FieldUserID, in.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
