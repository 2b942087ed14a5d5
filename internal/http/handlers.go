package http

import (
	"context"
	"net/http"
	"time"

	applog "household/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the record store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed",
			applog.NewFields().WithError(err).WithOperation(applog.OpReady).ToSlice()...)
		checks["store"] = "not ready"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusNotFound, CodeNotFound, "route not found").Write(w)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed").Write(w)
}
