package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meshpoint/accounts/internal/store/memory"
)

type recordingMailer struct {
	to    string
	token string
	sent  int
}

func (m *recordingMailer) SendConfirmation(_ context.Context, to, _, confirmToken string) error {
	m.to = to
	m.token = confirmToken
	m.sent++
	return nil
}

func TestConfirmFlow(t *testing.T) {
	repo := memory.New()
	mailer := &recordingMailer{}
	svc := NewConfirmService(ConfirmDeps{Repo: repo, Mailer: mailer, TTL: time.Hour})
	ctx := context.Background()

	u := seedUser(t, repo, "neda")
	u.Email = "neda@example.com"
	if err := repo.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Send(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	if mailer.sent != 1 || mailer.to != "neda@example.com" {
		t.Fatalf("mail not sent: %+v", mailer)
	}
	if len(mailer.token) != confirmationTokenLen {
		t.Fatalf("token length: %d", len(mailer.token))
	}

	confirmed, err := svc.Confirm(ctx, u, mailer.token)
	if err != nil {
		t.Fatal(err)
	}
	if !confirmed.EmailConfirmed {
		t.Fatal("email not marked confirmed")
	}
	if confirmed.ConfirmationToken != "" {
		t.Fatal("token must be cleared after confirm")
	}
}

func TestConfirm_WrongToken(t *testing.T) {
	repo := memory.New()
	mailer := &recordingMailer{}
	svc := NewConfirmService(ConfirmDeps{Repo: repo, Mailer: mailer, TTL: time.Hour})
	ctx := context.Background()

	u := seedUser(t, repo, "neda")
	u.Email = "neda@example.com"
	_ = repo.UpdateUser(ctx, u)

	u, err := svc.Send(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Confirm(ctx, u, "not-the-token-1234"); !errors.Is(err, ErrConfirmationInvalid) {
		t.Fatalf("want ErrConfirmationInvalid, got %v", err)
	}
}

func TestConfirm_Expired(t *testing.T) {
	repo := memory.New()
	mailer := &recordingMailer{}
	svc := NewConfirmService(ConfirmDeps{Repo: repo, Mailer: mailer, TTL: time.Hour})
	ctx := context.Background()

	u := seedUser(t, repo, "neda")
	u.Email = "neda@example.com"
	_ = repo.UpdateUser(ctx, u)

	u, err := svc.Send(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	u.ConfirmationExpires = time.Now().UTC().Add(-time.Minute)
	if _, err := svc.Confirm(ctx, u, mailer.token); !errors.Is(err, ErrConfirmationExpired) {
		t.Fatalf("want ErrConfirmationExpired, got %v", err)
	}
}

func TestSend_RequiresEmail(t *testing.T) {
	repo := memory.New()
	svc := NewConfirmService(ConfirmDeps{Repo: repo, Mailer: &recordingMailer{}, TTL: time.Hour})

	u := seedUser(t, repo, "neda")
	if _, err := svc.Send(context.Background(), u); !errors.Is(err, ErrNoEmail) {
		t.Fatalf("want ErrNoEmail, got %v", err)
	}
}

func TestSend_ResendReplacesToken(t *testing.T) {
	repo := memory.New()
	mailer := &recordingMailer{}
	svc := NewConfirmService(ConfirmDeps{Repo: repo, Mailer: mailer, TTL: time.Hour})
	ctx := context.Background()

	u := seedUser(t, repo, "neda")
	u.Email = "neda@example.com"
	_ = repo.UpdateUser(ctx, u)

	u, err := svc.Send(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	first := mailer.token
	u, err = svc.Send(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	if mailer.token == first {
		t.Fatal("resend must rotate the token")
	}
	// El link viejo dejó de servir.
	if _, err := svc.Confirm(ctx, u, first); !errors.Is(err, ErrConfirmationInvalid) {
		t.Fatalf("old token must be invalid, got %v", err)
	}
}
