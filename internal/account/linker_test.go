package account

import (
	"context"
	"errors"
	"testing"

	"github.com/meshpoint/accounts/internal/providers"
	"github.com/meshpoint/accounts/internal/store/core"
	"github.com/meshpoint/accounts/internal/store/memory"
)

func seedUser(t *testing.T, repo core.Repository, username string, identities ...*core.Identity) *core.User {
	t.Helper()
	u := &core.User{Username: username}
	for _, id := range identities {
		u.SetIdentity(id)
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestLink_AttachesIdentity(t *testing.T) {
	repo := memory.New()
	svc := NewLinkerService(repo)
	me := seedUser(t, repo, "neda")

	res, err := svc.Link(context.Background(), me, fakeProvider{"twitter"},
		&providers.Credential{AccessToken: "at", TokenSecret: "ts"},
		&providers.Profile{ID: "tw-1", Username: "neda_tw"}, ResolutionNone)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Linked {
		t.Fatalf("state: %s", res.State)
	}
	id := res.User.Identity("twitter")
	if id == nil || id.TokenSecret != "ts" {
		t.Fatalf("identity: %+v", id)
	}

	stored, err := repo.GetUserByIdentity(context.Background(), "twitter", "tw-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID != me.ID {
		t.Fatal("identity not persisted on the requester")
	}
}

func TestLink_SelfAlreadyLinkedIsNoop(t *testing.T) {
	repo := memory.New()
	svc := NewLinkerService(repo)
	me := seedUser(t, repo, "neda",
		&core.Identity{Provider: "twitter", ProviderID: "tw-old", AccessToken: "old"})

	res, err := svc.Link(context.Background(), me, fakeProvider{"twitter"},
		&providers.Credential{AccessToken: "new"},
		&providers.Profile{ID: "tw-new"}, ResolutionNone)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != AlreadyLinkedSelf {
		t.Fatalf("state: %s", res.State)
	}
	// Zero mutation: la identidad vieja sigue intacta.
	stored, _ := repo.GetUserByID(context.Background(), me.ID)
	if got := stored.Identity("twitter").ProviderID; got != "tw-old" {
		t.Fatalf("identity mutated: %q", got)
	}
}

func TestLink_OtherOwnerReportedWithoutMutation(t *testing.T) {
	repo := memory.New()
	svc := NewLinkerService(repo)
	other := seedUser(t, repo, "rival",
		&core.Identity{Provider: "twitter", ProviderID: "tw-1"})
	me := seedUser(t, repo, "neda")

	res, err := svc.Link(context.Background(), me, fakeProvider{"twitter"},
		&providers.Credential{AccessToken: "t"},
		&providers.Profile{ID: "tw-1"}, ResolutionNone)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != AlreadyLinkedOther {
		t.Fatalf("state: %s", res.State)
	}
	if res.Other == nil || res.Other.ID != other.ID {
		t.Fatal("conflicting owner not reported")
	}
	// Nada cambió de lado y lado.
	storedMe, _ := repo.GetUserByID(context.Background(), me.ID)
	if storedMe.Identity("twitter") != nil {
		t.Fatal("requester mutated on conflict")
	}
	storedOther, _ := repo.GetUserByID(context.Background(), other.ID)
	if storedOther.Identity("twitter") == nil {
		t.Fatal("owner mutated on conflict")
	}
}

func TestLink_ResolutionUnlinkStripsOwner(t *testing.T) {
	repo := memory.New()
	svc := NewLinkerService(repo)
	other := seedUser(t, repo, "rival",
		&core.Identity{Provider: "twitter", ProviderID: "tw-1", Picture: "pic"})
	// El rival usaba la foto de twitter como avatar.
	other.ProfileImage = core.ImageTwitter
	if err := repo.UpdateUser(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	me := seedUser(t, repo, "neda")

	res, err := svc.Link(context.Background(), me, fakeProvider{"twitter"},
		&providers.Credential{AccessToken: "t"},
		&providers.Profile{ID: "tw-1"}, ResolutionUnlink)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Linked {
		t.Fatalf("state: %s", res.State)
	}

	stripped, _ := repo.GetUserByID(context.Background(), other.ID)
	if stripped == nil {
		t.Fatal("unlink must keep the other account alive")
	}
	if stripped.Identity("twitter") != nil {
		t.Fatal("identity still on the previous owner")
	}
	if stripped.ProfileImage != core.ImageNone {
		t.Fatalf("avatar should reset: %q", stripped.ProfileImage)
	}
}

func TestLink_ResolutionOverwriteDeletesOwner(t *testing.T) {
	repo := memory.New()
	svc := NewLinkerService(repo)
	other := seedUser(t, repo, "rival",
		&core.Identity{Provider: "twitter", ProviderID: "tw-1"})
	me := seedUser(t, repo, "neda")

	res, err := svc.Link(context.Background(), me, fakeProvider{"twitter"},
		&providers.Credential{AccessToken: "t"},
		&providers.Profile{ID: "tw-1"}, ResolutionOverwrite)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Linked {
		t.Fatalf("state: %s", res.State)
	}
	if _, err := repo.GetUserByID(context.Background(), other.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("overwrite must delete the previous owner")
	}
}

func TestUnlink(t *testing.T) {
	repo := memory.New()
	svc := NewLinkerService(repo)
	me := seedUser(t, repo, "neda",
		&core.Identity{Provider: "google", ProviderID: "g-1"})
	me.ProfileImage = core.ImageGoogle
	if err := repo.UpdateUser(context.Background(), me); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Unlink(context.Background(), me, "google")
	if err != nil {
		t.Fatal(err)
	}
	if u.Identity("google") != nil {
		t.Fatal("identity survived unlink")
	}
	if u.ProfileImage != core.ImageNone {
		t.Fatalf("avatar should reset: %q", u.ProfileImage)
	}

	if _, err := svc.Unlink(context.Background(), u, "google"); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("second unlink: %v", err)
	}
}
