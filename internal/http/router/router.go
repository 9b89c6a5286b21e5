package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meshpoint/accounts/internal/http/handlers"
	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/middlewares"
	"github.com/meshpoint/accounts/internal/http/session"
	"github.com/meshpoint/accounts/internal/rate"
	"github.com/meshpoint/accounts/internal/store/core"
)

type Deps struct {
	Handlers *handlers.Handlers
	Sessions *session.Manager
	Repo     core.Repository

	// Limiters por endpoint; nil deshabilita el límite.
	LoginLimiter    rate.Limiter
	RegisterLimiter rate.Limiter
	ConfirmLimiter  rate.Limiter

	// Metrics es el handler de /metrics; nil lo omite.
	Metrics http.Handler
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.WithRequestID())
	r.Use(middlewares.WithRecover())
	r.Use(middlewares.WithSession(d.Sessions, d.Repo))
	r.Use(middlewares.WithLogging())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		helpers.WriteError(w, helpers.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("method not allowed"))
	})

	h := d.Handlers

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// Flujos federados. El begin comparte el límite de login: ambos son
	// la puerta de entrada de fuerza bruta.
	r.Group(func(r chi.Router) {
		r.Use(middlewares.WithRateLimit(d.LoginLimiter, nil))
		r.Get("/auth/{provider}", h.SocialBegin)
		r.Post("/login", h.Login)
	})
	r.Get("/auth/{provider}/callback", h.SocialCallback)
	r.Get("/auth/providers", h.ProviderList)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.WithRateLimit(d.RegisterLimiter, nil))
		r.Post("/register", h.Register)
		r.Post("/guest", h.Guest)
	})

	r.Post("/logout", h.Logout)

	// Operaciones sobre la cuenta de la sesión.
	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireUser())
		r.Get("/me", h.Me)
		r.Post("/account/password", h.SetPassword)
		r.Post("/account/unlink/{provider}", h.Unlink)
		r.Get("/account/confirm", h.Confirm)
		r.Post("/connections/subscribe", h.Subscribe)
		r.Post("/connections/unsubscribe", h.Unsubscribe)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.WithRateLimit(d.ConfirmLimiter, nil))
			r.Post("/account/confirm/send", h.ConfirmSend)
		})
	})

	return r
}
