package account

import (
	"context"
	"fmt"
	"testing"

	"github.com/meshpoint/accounts/internal/providers"
	"github.com/meshpoint/accounts/internal/store/core"
	"github.com/meshpoint/accounts/internal/store/memory"
)

type fakeProvider struct{ name string }

func (f fakeProvider) Name() string         { return f.name }
func (f fakeProvider) Type() providers.Type { return providers.TypeOAuth2 }
func (f fakeProvider) AuthorizeURL(context.Context, string) (string, error) {
	return "https://example.test/auth", nil
}
func (f fakeProvider) Exchange(context.Context, providers.Callback) (*providers.Credential, *providers.Profile, error) {
	return nil, nil, nil
}

func fbProfile(id, handle string) *providers.Profile {
	return &providers.Profile{ID: id, Username: handle, Name: handle}
}

func TestResolve_NewIdentityCreatesAccount(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	prov := fakeProvider{"facebook"}

	u, err := svc.Resolve(context.Background(), nil, prov,
		&providers.Credential{AccessToken: "tok-1"}, fbProfile("fb-1", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" {
		t.Fatal("expected assigned ID")
	}
	if u.Username != "neda" {
		t.Fatalf("username: %q", u.Username)
	}
	id := u.Identity("facebook")
	if id == nil || id.ProviderID != "fb-1" || id.AccessToken != "tok-1" {
		t.Fatalf("identity not attached: %+v", id)
	}
	if u.ProfileImage != core.ImageFacebook {
		t.Fatalf("profile image: %q", u.ProfileImage)
	}
}

func TestResolve_ReloginIsIdempotent(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	prov := fakeProvider{"facebook"}
	ctx := context.Background()

	first, err := svc.Resolve(ctx, nil, prov,
		&providers.Credential{AccessToken: "tok-1"}, fbProfile("fb-1", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Resolve(ctx, nil, prov,
		&providers.Credential{AccessToken: "tok-2"}, fbProfile("fb-1", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("relogin created a second account: %s vs %s", second.ID, first.ID)
	}
	if got := second.Identity("facebook").AccessToken; got != "tok-2" {
		t.Fatalf("credential not refreshed: %q", got)
	}
	if !second.LastLogin.After(first.CreatedAt) && !second.LastLogin.Equal(first.CreatedAt) {
		t.Fatal("last login not stamped")
	}
}

func TestResolve_UsernameCollisionSuffixes(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	ctx := context.Background()

	// Tres subjects distintos que derivan el mismo username.
	for i, want := range []string{"neda", "neda1", "neda2"} {
		u, err := svc.Resolve(ctx, nil, fakeProvider{"facebook"},
			&providers.Credential{AccessToken: "t"}, fbProfile(fmt.Sprintf("fb-%d", i), "neda"))
		if err != nil {
			t.Fatal(err)
		}
		if u.Username != want {
			t.Fatalf("collision %d: got %q, want %q", i, u.Username, want)
		}
	}
}

func TestResolve_CollisionIsCaseInsensitive(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	ctx := context.Background()

	if err := repo.CreateUser(ctx, &core.User{Username: "Neda"}); err != nil {
		t.Fatal(err)
	}
	u, err := svc.Resolve(ctx, nil, fakeProvider{"facebook"},
		&providers.Credential{AccessToken: "t"}, fbProfile("fb-9", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "neda1" {
		t.Fatalf("got %q, want neda1", u.Username)
	}
}

func TestResolve_SessionUserAbsorbsIdentity(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	ctx := context.Background()

	guest := &core.User{Username: "guest-abc123", LazyUsername: true}
	if err := repo.CreateUser(ctx, guest); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Resolve(ctx, guest, fakeProvider{"google"},
		&providers.Credential{AccessToken: "t"}, fbProfile("g-1", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != guest.ID {
		t.Fatalf("expected the session account, got %s", u.ID)
	}
	// El shell guest hereda el username del perfil federado.
	if u.Username != "neda" {
		t.Fatalf("guest username not upgraded: %q", u.Username)
	}
	if u.Identity("google") == nil {
		t.Fatal("identity not attached to session user")
	}
}

func TestResolve_GuestUpgradeSuffixesOnCollision(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	ctx := context.Background()

	if err := repo.CreateUser(ctx, &core.User{Username: "neda"}); err != nil {
		t.Fatal(err)
	}
	guest := &core.User{Username: "guest-abc123", LazyUsername: true}
	if err := repo.CreateUser(ctx, guest); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Resolve(ctx, guest, fakeProvider{"google"},
		&providers.Credential{AccessToken: "t"}, fbProfile("g-2", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != guest.ID {
		t.Fatalf("expected the session account, got %s", u.ID)
	}
	if u.Username != "neda1" {
		t.Fatalf("got %q, want neda1", u.Username)
	}
}

func TestResolve_ChosenUsernameSurvivesAttach(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	ctx := context.Background()

	member := &core.User{Username: "karim", LazyUsername: false}
	if err := repo.CreateUser(ctx, member); err != nil {
		t.Fatal(err)
	}

	u, err := svc.Resolve(ctx, member, fakeProvider{"facebook"},
		&providers.Credential{AccessToken: "t"}, fbProfile("fb-77", "somebody"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "karim" {
		t.Fatalf("chosen username must not change: %q", u.Username)
	}
	if u.Identity("facebook") == nil {
		t.Fatal("identity not attached")
	}
}

// racingRepo inyecta un conflicto de identidad en el primer Create y
// materializa al "ganador" para que el siguiente lookup lo encuentre.
type racingRepo struct {
	core.Repository
	raced  bool
	winner *core.User
}

func (r *racingRepo) CreateUser(ctx context.Context, u *core.User) error {
	if !r.raced {
		r.raced = true
		if err := r.Repository.CreateUser(ctx, r.winner); err != nil {
			return err
		}
		return &core.ConflictError{Field: core.ConflictIdentity}
	}
	return r.Repository.CreateUser(ctx, u)
}

func TestResolve_IdentityRaceYieldsToFirstCommitter(t *testing.T) {
	inner := memory.New()
	winner := &core.User{
		Username: "neda",
		Identities: map[string]*core.Identity{
			"facebook": {Provider: "facebook", ProviderID: "fb-1", AccessToken: "winner-tok"},
		},
	}
	repo := &racingRepo{Repository: inner, winner: winner}
	svc := NewResolverService(repo)

	u, err := svc.Resolve(context.Background(), nil, fakeProvider{"facebook"},
		&providers.Credential{AccessToken: "loser-tok"}, fbProfile("fb-1", "neda"))
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != winner.ID {
		t.Fatalf("race must resolve to the first committer, got %s want %s", u.ID, winner.ID)
	}
	// El perdedor termina logueado en la cuenta ganadora con su
	// credencial fresca.
	if got := u.Identity("facebook").AccessToken; got != "loser-tok" {
		t.Fatalf("credential not refreshed after race: %q", got)
	}
}

func TestResolve_ConcurrentSameIdentity(t *testing.T) {
	repo := memory.New()
	svc := NewResolverService(repo)
	ctx := context.Background()

	const n = 8
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			u, err := svc.Resolve(ctx, nil, fakeProvider{"facebook"},
				&providers.Credential{AccessToken: fmt.Sprintf("tok-%d", i)}, fbProfile("fb-1", "neda"))
			if err != nil {
				errs <- err
				return
			}
			ids <- u.ID
		}(i)
	}

	var first string
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatal(err)
		case id := <-ids:
			if first == "" {
				first = id
			} else if id != first {
				t.Fatalf("identity mapped to two accounts: %s and %s", first, id)
			}
		}
	}
}
