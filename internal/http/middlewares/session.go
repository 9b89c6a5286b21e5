package middlewares

import (
	"errors"
	"net/http"

	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/session"
	"github.com/meshpoint/accounts/internal/store/core"
)

// WithSession resuelve la cookie de sesión a un usuario y lo deja en
// el contexto. Sesión ausente o inválida ⇒ request anónimo; nunca
// corta acá.
func WithSession(m *session.Manager, repo core.Repository) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := m.UserID(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			u, err := repo.GetUserByID(r.Context(), uid)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					// Cuenta borrada con cookie viva: limpiar y seguir anónimo.
					m.Clear(w)
					next.ServeHTTP(w, r)
					return
				}
				helpers.WriteError(w, helpers.ErrInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireUser corta con 401 si no hay usuario en el contexto.
func RequireUser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CurrentUser(r.Context()) == nil {
				helpers.WriteError(w, helpers.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
