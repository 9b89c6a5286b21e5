package account

import (
	"context"
	"errors"
	"time"

	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/security/password"
	"github.com/meshpoint/accounts/internal/store/core"
)

// Registration is the payload for an explicit signup.
type Registration struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Gender    string
}

// RegisterService handles classic username/password signup and login
// alongside the federated flows.
type RegisterService struct {
	repo core.Repository
}

func NewRegisterService(repo core.Repository) *RegisterService {
	return &RegisterService{repo: repo}
}

// Register creates an account with the chosen username. When current
// is a lazy guest the guest upgrades in place, keeping its ID and any
// state already hanging off it. The chosen username is never suffixed:
// if it is taken the caller gets ErrUsernameTaken and the person picks
// another.
func (s *RegisterService) Register(ctx context.Context, current *core.User, reg Registration) (*core.User, error) {
	if !ValidUsername(reg.Username) {
		return nil, ErrInvalidUsername
	}
	hash, err := password.Hash(password.Default, reg.Password)
	if err != nil {
		return nil, err
	}

	var u *core.User
	upgrade := current != nil && current.LazyUsername
	if upgrade {
		u = current.Clone()
		u.LazyUsername = false
	} else {
		u = &core.User{}
	}
	u.Username = reg.Username
	u.PasswordHash = &hash
	u.FirstName = reg.FirstName
	u.LastName = reg.LastName
	u.Email = reg.Email
	u.Gender = reg.Gender
	u.EmailConfirmed = false
	u.LastLogin = time.Now().UTC()

	if upgrade {
		err = s.repo.UpdateUser(ctx, u)
	} else {
		err = s.repo.CreateUser(ctx, u)
	}
	if err != nil {
		if core.IsUsernameConflict(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	logger.From(ctx).Info("account registered",
		logger.Layer("account"),
		logger.Component("register"),
		logger.Username(u.Username),
		logger.Bool("upgrade", upgrade),
	)
	return u, nil
}

// Authenticate checks a username/password pair. Lookup misses and
// wrong passwords collapse into the same ErrInvalidCredentials so the
// endpoint cannot be used to enumerate usernames.
func (s *RegisterService) Authenticate(ctx context.Context, username, pass string) (*core.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.HasPassword() || !password.Verify(pass, *u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	u.LastLogin = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword gives a password to an account that only has federated
// identities. Accounts that already have one must go through a reset
// flow, not this path.
func (s *RegisterService) SetPassword(ctx context.Context, user *core.User, pass string) (*core.User, error) {
	if user.HasPassword() {
		return nil, ErrPasswordAlreadySet
	}
	hash, err := password.Hash(password.Default, pass)
	if err != nil {
		return nil, err
	}
	u := user.Clone()
	u.PasswordHash = &hash
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
