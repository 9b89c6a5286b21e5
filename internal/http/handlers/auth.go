package handlers

import (
	"net/http"

	"github.com/meshpoint/accounts/internal/account"
	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/middlewares"
)

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
}

// Register: POST /register. Una sesión guest se convierte en cuenta
// definitiva conservando su ID.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !helpers.ReadStrictJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("password is required"))
		return
	}

	u, err := h.svc.Register.Register(r.Context(), middlewares.CurrentUser(r.Context()), account.Registration{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Gender:    req.Gender,
	})
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	if err := h.sessions.Issue(w, u.ID); err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, viewOf(u))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login clásico: POST /login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !helpers.ReadStrictJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Register.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	if err := h.sessions.Issue(w, u.ID); err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(u))
}

// Logout: POST /logout. Idempotente, siempre 204.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Guest: POST /guest asigna una cuenta descartable y abre sesión.
func (h *Handlers) Guest(w http.ResponseWriter, r *http.Request) {
	if u := middlewares.CurrentUser(r.Context()); u != nil {
		// Ya hay sesión: devolvemos la cuenta existente.
		helpers.WriteJSON(w, http.StatusOK, viewOf(u))
		return
	}
	u, err := h.svc.Guests.Create(r.Context())
	if err != nil {
		helpers.WriteError(w, mapAccountErr(err))
		return
	}
	if err := h.sessions.Issue(w, u.ID); err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, viewOf(u))
}

// Me: GET /me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, viewOf(middlewares.CurrentUser(r.Context())))
}
