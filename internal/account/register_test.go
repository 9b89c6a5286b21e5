package account

import (
	"context"
	"errors"
	"testing"

	"github.com/meshpoint/accounts/internal/store/core"
	"github.com/meshpoint/accounts/internal/store/memory"
)

func TestRegister_CreatesAccount(t *testing.T) {
	repo := memory.New()
	svc := NewRegisterService(repo)

	u, err := svc.Register(context.Background(), nil, Registration{
		Username:  "neda",
		Password:  "correct horse",
		FirstName: "Neda",
		Email:     "neda@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !u.HasPassword() {
		t.Fatal("password not set")
	}
	if u.LazyUsername {
		t.Fatal("registered account must not be lazy")
	}
	if u.EmailConfirmed {
		t.Fatal("fresh email must start unconfirmed")
	}
}

func TestRegister_GuestUpgradesInPlace(t *testing.T) {
	repo := memory.New()
	guests := NewGuestService(repo)
	svc := NewRegisterService(repo)
	ctx := context.Background()

	g, err := guests.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	u, err := svc.Register(ctx, g, Registration{Username: "neda", Password: "pw123456"})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != g.ID {
		t.Fatalf("upgrade must keep the guest ID: %s vs %s", u.ID, g.ID)
	}
	if u.Username != "neda" || u.LazyUsername {
		t.Fatalf("upgrade incomplete: %q lazy=%v", u.Username, u.LazyUsername)
	}
	// El username guest quedó libre.
	if _, err := repo.GetUserByUsername(ctx, g.Username); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("old guest username still resolves: %v", err)
	}
}

func TestRegister_TakenUsernameIsNotSuffixed(t *testing.T) {
	repo := memory.New()
	svc := NewRegisterService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, nil, Registration{Username: "neda", Password: "pw123456"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, nil, Registration{Username: "Neda", Password: "pw123456"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("want ErrUsernameTaken, got %v", err)
	}
}

func TestRegister_InvalidUsername(t *testing.T) {
	repo := memory.New()
	svc := NewRegisterService(repo)

	_, err := svc.Register(context.Background(), nil, Registration{Username: "no way", Password: "pw123456"})
	if !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("want ErrInvalidUsername, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	repo := memory.New()
	svc := NewRegisterService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, nil, Registration{Username: "neda", Password: "correct horse"}); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Authenticate(ctx, "NEDA", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "neda" {
		t.Fatalf("username: %q", u.Username)
	}

	if _, err := svc.Authenticate(ctx, "neda", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	// Usuario inexistente colapsa en el mismo error.
	if _, err := svc.Authenticate(ctx, "ghost", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestSetPassword(t *testing.T) {
	repo := memory.New()
	svc := NewRegisterService(repo)
	ctx := context.Background()

	u := seedUser(t, repo, "neda")
	upd, err := svc.SetPassword(ctx, u, "fresh password")
	if err != nil {
		t.Fatal(err)
	}
	if !upd.HasPassword() {
		t.Fatal("password not set")
	}
	if _, err := svc.SetPassword(ctx, upd, "again"); !errors.Is(err, ErrPasswordAlreadySet) {
		t.Fatalf("second set: %v", err)
	}
}
