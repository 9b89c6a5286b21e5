package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/middlewares"
)

// Unlink: POST /account/unlink/{provider}.
func (h *Handlers) Unlink(w http.ResponseWriter, r *http.Request) {
	user := middlewares.CurrentUser(r.Context())
	u, err := h.svc.Linker.Unlink(r.Context(), user, chi.URLParam(r, "provider"))
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(u))
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

// SetPassword: POST /account/password, para cuentas nacidas federadas.
func (h *Handlers) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if !helpers.ReadStrictJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("password is required"))
		return
	}
	u, err := h.svc.Register.SetPassword(r.Context(), middlewares.CurrentUser(r.Context()), req.Password)
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(u))
}

// ConfirmSend: POST /account/confirm/send reenvía el mail de
// confirmación con un token fresco.
func (h *Handlers) ConfirmSend(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Confirm.Send(r.Context(), middlewares.CurrentUser(r.Context()))
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	helpers.WriteJSON(w, http.StatusAccepted, viewOf(u))
}

// Confirm: GET /account/confirm?token=... valida el link del mail.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Confirm.Confirm(r.Context(), middlewares.CurrentUser(r.Context()), r.URL.Query().Get("token"))
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(u))
}
