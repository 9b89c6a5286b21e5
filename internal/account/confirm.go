package account

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/meshpoint/accounts/internal/observability/logger"
	"github.com/meshpoint/accounts/internal/security/token"
	"github.com/meshpoint/accounts/internal/store/core"
)

const confirmationTokenLen = 20

// ConfirmationMailer delivers the confirmation message. It is
// satisfied by email.Sender; tests plug in a recorder.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, to, username, confirmToken string) error
}

// ConfirmService issues and validates email confirmation tokens.
type ConfirmService struct {
	repo   core.Repository
	mailer ConfirmationMailer
	ttl    time.Duration
}

type ConfirmDeps struct {
	Repo   core.Repository
	Mailer ConfirmationMailer
	TTL    time.Duration
}

func NewConfirmService(d ConfirmDeps) *ConfirmService {
	if d.TTL <= 0 {
		d.TTL = 24 * time.Hour
	}
	return &ConfirmService{repo: d.Repo, mailer: d.Mailer, ttl: d.TTL}
}

// Send issues a fresh token and mails it. Re-sending replaces any
// outstanding token; old links stop working.
func (s *ConfirmService) Send(ctx context.Context, user *core.User) (*core.User, error) {
	if user.Email == "" {
		return nil, ErrNoEmail
	}
	tok, err := token.RandomString(confirmationTokenLen)
	if err != nil {
		return nil, err
	}
	u := user.Clone()
	u.EmailConfirmed = false
	u.ConfirmationToken = tok
	u.ConfirmationExpires = time.Now().UTC().Add(s.ttl)
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.mailer.SendConfirmation(ctx, u.Email, u.Username, tok); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("confirmation mail sent",
		logger.Layer("account"),
		logger.Component("confirm"),
		logger.UserID(u.ID),
	)
	return u, nil
}

// Confirm validates a token coming back from the mail link and marks
// the address confirmed.
func (s *ConfirmService) Confirm(ctx context.Context, user *core.User, tok string) (*core.User, error) {
	if user.ConfirmationToken == "" || tok == "" {
		return nil, ErrConfirmationInvalid
	}
	if subtle.ConstantTimeCompare([]byte(user.ConfirmationToken), []byte(tok)) != 1 {
		return nil, ErrConfirmationInvalid
	}
	if time.Now().UTC().After(user.ConfirmationExpires) {
		return nil, ErrConfirmationExpired
	}
	u := user.Clone()
	u.EmailConfirmed = true
	u.ConfirmationToken = ""
	u.ConfirmationExpires = time.Time{}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
