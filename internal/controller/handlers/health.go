package handlers

import (
	"net/http"

	"hirelane/pkg/api"
)

// Healthz is a liveness probe.
// It returns 200 OK if the server is running.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, "healthy", nil)
}

// Readyz is a readiness probe.
// It checks that the database answers.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.respondJson(w, http.StatusServiceUnavailable, api.ErrorResponse{
			Status:    api.StatusError,
			Message:   "database unavailable",
			Code:      http.StatusServiceUnavailable,
			Retryable: true,
		})
		return
	}
	h.respond(w, http.StatusOK, "ready", nil)
}
