package account

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/meshpoint/accounts/internal/metrics"
	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/providers"
	"github.com/meshpoint/accounts/internal/store/core"
)

// identityRacePasses acota cuántas veces re-consultamos la identidad
// cuando otra petición concurrente nos gana la inserción.
const identityRacePasses = 3

// ResolverService reconciles a federated credential against the user
// store. It never pre-checks uniqueness: writes go straight to the
// repository and conflicts are classified after the fact, so the first
// committer always wins.
type ResolverService struct {
	repo core.Repository
}

func NewResolverService(repo core.Repository) *ResolverService {
	return &ResolverService{repo: repo}
}

// Resolve maps (provider, subject) to exactly one account and returns
// it with the credential and profile refreshed. current is the user
// bound to the session, or nil for an anonymous one: an anonymous
// login with an unknown identity creates a fresh account, while a
// session user absorbs the identity into their own row.
func (s *ResolverService) Resolve(ctx context.Context, current *core.User, prov providers.Provider, cred *providers.Credential, profile *providers.Profile) (*core.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("account"),
		logger.Component("resolver"),
		logger.Provider(prov.Name()),
	)

	for pass := 0; pass < identityRacePasses; pass++ {
		owner, err := s.repo.GetUserByIdentity(ctx, prov.Name(), profile.ID)
		switch {
		case err == nil:
			return s.refresh(ctx, owner, prov, cred, profile)
		case !errors.Is(err, core.ErrNotFound):
			return nil, err
		}

		// Identidad desconocida: armamos el candidato y dejamos que el
		// almacén decida los conflictos.
		u, raced, err := s.materialize(ctx, current, prov, cred, profile, log)
		if err != nil {
			return nil, err
		}
		if !raced {
			return u, nil
		}
		// Otro proceso insertó la identidad entre el lookup y nuestro
		// write: la próxima vuelta la encuentra y reutiliza esa cuenta.
		metrics.IncIdentityRace()
		log.Info("identity race detected, retrying lookup", logger.Int("pass", pass+1))
	}
	return nil, core.ErrConflict
}

// refresh updates the stored credential, profile picture and login
// stamp for an already-linked account. Re-login is idempotent.
func (s *ResolverService) refresh(ctx context.Context, owner *core.User, prov providers.Provider, cred *providers.Credential, profile *providers.Profile) (*core.User, error) {
	u := owner.Clone()
	applyIdentity(u, prov, cred, profile)
	u.LastLogin = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	metrics.IncLogin(prov.Name(), "login")
	return u, nil
}

// materialize attaches the identity to the session user, or builds a
// brand-new account, and pushes it through the write-then-classify
// loop. raced reports an identity conflict that the caller must
// resolve by re-running the lookup.
func (s *ResolverService) materialize(ctx context.Context, current *core.User, prov providers.Provider, cred *providers.Credential, profile *providers.Profile, log *zap.Logger) (u *core.User, raced bool, err error) {
	fresh := current == nil
	if fresh {
		u = &core.User{
			FirstName: profile.GivenName,
			LastName:  profile.FamilyName,
			Email:     profile.Email,
			Gender:    profile.Gender,
		}
	} else {
		u = current.Clone()
	}
	applyIdentity(u, prov, cred, profile)
	u.LastLogin = time.Now().UTC()

	persist := s.repo.CreateUser
	outcome := "signup"
	if !fresh {
		persist = s.repo.UpdateUser
		outcome = "attach"
	}

	if !fresh && !u.LazyUsername {
		// Username elegido por el usuario: no se pisa, solo puede
		// chocar la identidad.
		if err := persist(ctx, u); err != nil {
			if core.IsIdentityConflict(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
		metrics.IncLogin(prov.Name(), outcome)
		return u, false, nil
	}

	// Cuenta nueva o shell guest: el username sale del perfil federado
	// y hereda el loop de sufijos.
	base := CandidateUsername(profile)
	for attempt := 0; attempt < usernameRetryCap; attempt++ {
		u.Username = suffixed(base, attempt)
		err := persist(ctx, u)
		switch {
		case err == nil:
			metrics.IncLogin(prov.Name(), outcome)
			return u, false, nil
		case core.IsUsernameConflict(err):
			metrics.IncUsernameRetry()
			continue
		case core.IsIdentityConflict(err):
			return nil, true, nil
		default:
			return nil, false, err
		}
	}
	log.Warn("username space exhausted", logger.Username(base))
	return nil, false, ErrUsernameExhausted
}

// applyIdentity stamps the credential and profile data onto u,
// including the profile image when the account has none or it already
// comes from this provider.
func applyIdentity(u *core.User, prov providers.Provider, cred *providers.Credential, profile *providers.Profile) {
	u.SetIdentity(&core.Identity{
		Provider:    prov.Name(),
		ProviderID:  profile.ID,
		AccessToken: cred.AccessToken,
		TokenSecret: cred.TokenSecret,
		Link:        profile.Link,
		Picture:     profile.Picture,
		DisplayName: profile.Name,
		LinkedAt:    time.Now().UTC(),
	})
	if src := imageSourceFor(prov.Name()); src != core.ImageNone {
		if u.ProfileImage == core.ImageNone || u.ProfileImage == src {
			u.ProfileImage = src
		}
	}
	if u.Email == "" && profile.Email != "" {
		u.Email = profile.Email
	}
}

func imageSourceFor(provider string) core.ImageSource {
	switch provider {
	case "facebook":
		return core.ImageFacebook
	case "twitter":
		return core.ImageTwitter
	case "google":
		return core.ImageGoogle
	}
	return core.ImageNone
}
