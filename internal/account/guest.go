package account

import (
	"context"
	"time"

	"github.com/meshpoint/accounts/internal/metrics"
	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/security/token"
	"github.com/meshpoint/accounts/internal/store/core"
)

const (
	guestPrefix    = "guest-"
	guestSuffixLen = 6

	// guestRetryCap: intentos antes de declarar agotado el espacio de
	// nombres de invitados. Con sufijos aleatorios de 6 caracteres las
	// colisiones repetidas son prácticamente imposibles.
	guestRetryCap = 100
)

// GuestService allocates throwaway accounts so an anonymous visitor
// can hold per-user state before signing in.
type GuestService struct {
	repo core.Repository
}

func NewGuestService(repo core.Repository) *GuestService {
	return &GuestService{repo: repo}
}

// Create allocates a lazy account with a random guest username. The
// account has no password and no identities; it upgrades in place on
// the first real login or registration.
func (s *GuestService) Create(ctx context.Context) (*core.User, error) {
	for attempt := 0; attempt < guestRetryCap; attempt++ {
		suffix, err := token.RandomString(guestSuffixLen)
		if err != nil {
			return nil, err
		}
		u := &core.User{
			Username:     guestPrefix + suffix,
			LazyUsername: true,
			LastLogin:    time.Now().UTC(),
		}
		err = s.repo.CreateUser(ctx, u)
		switch {
		case err == nil:
			metrics.IncGuestAllocation()
			logger.From(ctx).Info("guest account allocated",
				logger.Layer("account"),
				logger.Component("guest"),
				logger.Username(u.Username),
			)
			return u, nil
		case core.IsUsernameConflict(err):
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrGuestExhausted
}
