// Package handlers expone los endpoints HTTP del subsistema de
// cuentas. Los handlers validan entrada, delegan en los services de
// account y traducen sus errores al envelope JSON de la API.
package handlers

import (
	"errors"
	"time"

	"github.com/meshpoint/accounts/internal/account"
	"github.com/meshpoint/accounts/internal/http/helpers"
	"github.com/meshpoint/accounts/internal/http/session"
	"github.com/meshpoint/accounts/internal/providers"
	"github.com/meshpoint/accounts/internal/store/core"
)

type Deps struct {
	Repo      core.Repository
	Services  *account.Services
	Providers *providers.Registry
	Sessions  *session.Manager
}

type Handlers struct {
	repo      core.Repository
	svc       *account.Services
	providers *providers.Registry
	sessions  *session.Manager
}

func New(d Deps) *Handlers {
	return &Handlers{
		repo:      d.Repo,
		svc:       d.Services,
		providers: d.Providers,
		sessions:  d.Sessions,
	}
}

// userView es la representación pública de una cuenta.
type userView struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	FirstName      string   `json:"first_name,omitempty"`
	LastName       string   `json:"last_name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	EmailConfirmed bool     `json:"email_confirmed"`
	Guest          bool     `json:"guest"`
	HasPassword    bool     `json:"has_password"`
	AvatarURL      string   `json:"avatar_url"`
	Identities     []string `json:"identities"`
	IsOnline       bool     `json:"is_online"`
	CreatedAt      string   `json:"created_at,omitempty"`
	LastLogin      string   `json:"last_login,omitempty"`
}

func viewOf(u *core.User) userView {
	ids := make([]string, 0, len(u.Identities))
	for name := range u.Identities {
		ids = append(ids, name)
	}
	v := userView{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Gender:         u.Gender,
		EmailConfirmed: u.EmailConfirmed,
		Guest:          u.LazyUsername,
		HasPassword:    u.HasPassword(),
		AvatarURL:      account.AvatarURL(u),
		Identities:     ids,
		IsOnline:       u.IsOnline,
	}
	if !u.CreatedAt.IsZero() {
		v.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	if !u.LastLogin.IsZero() {
		v.LastLogin = u.LastLogin.Format(time.RFC3339)
	}
	return v
}

// mapAccountErr traduce errores de dominio al envelope HTTP.
func mapAccountErr(err error) *helpers.HTTPError {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		return helpers.ErrUnauthorized.WithDetail("invalid credentials")
	case errors.Is(err, account.ErrUsernameTaken):
		return helpers.ErrConflict.WithDetail("username taken")
	case errors.Is(err, account.ErrInvalidUsername):
		return helpers.ErrBadRequest.WithDetail("invalid username")
	case errors.Is(err, account.ErrPasswordAlreadySet):
		return helpers.ErrConflict.WithDetail("password already set")
	case errors.Is(err, account.ErrNotLinked):
		return helpers.ErrNotFound.WithDetail("provider not linked")
	case errors.Is(err, account.ErrNoEmail):
		return helpers.ErrBadRequest.WithDetail("account has no email")
	case errors.Is(err, account.ErrConfirmationInvalid):
		return helpers.ErrBadRequest.WithDetail("confirmation token invalid")
	case errors.Is(err, account.ErrConfirmationExpired):
		return helpers.ErrBadRequest.WithDetail("confirmation token expired")
	case errors.Is(err, account.ErrUsernameExhausted),
		errors.Is(err, account.ErrGuestExhausted):
		return helpers.ErrConflict.WithDetail("no username available")
	case errors.Is(err, core.ErrNotFound):
		return helpers.ErrNotFound
	case errors.Is(err, core.ErrConflict):
		return helpers.ErrConflict
	}
	return helpers.ErrInternalServerError
}

// mapProviderErr traduce los errores del intercambio federado.
func mapProviderErr(err error) *helpers.HTTPError {
	switch {
	case errors.Is(err, providers.ErrInvalidGrant):
		return helpers.ErrUnauthorized.WithDetail("provider rejected the grant")
	case errors.Is(err, providers.ErrUnreachable),
		errors.Is(err, providers.ErrMalformedResponse):
		return helpers.ErrBadGateway
	}
	return helpers.ErrInternalServerError
}
