package handlers

import (
	"net/http"

	"github.com/meshpoint/accounts/internal/http/helpers"
)

// Healthz: liveness, siempre 200 mientras el proceso responda.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz: readiness, verifica el repositorio.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  err.Error(),
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
