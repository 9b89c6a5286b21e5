package core

import "time"

// ImageSource selecciona el origen del avatar del usuario.
type ImageSource string

const (
	ImageNone     ImageSource = ""
	ImageGravatar ImageSource = "gravatar"
	ImageFacebook ImageSource = "facebook"
	ImageTwitter  ImageSource = "twitter"
	ImageGoogle   ImageSource = "google"
)

// Identity is one linked third-party identity on a user.
// (Provider, ProviderID) is globally unique: the storage layer enforces
// it with a unique index, not just application code.
type Identity struct {
	Provider    string
	ProviderID  string
	AccessToken string
	TokenSecret string // OAuth 1.0a only (twitter)
	Link        string
	Picture     string
	DisplayName string
	LinkedAt    time.Time
}

// Connection is a live push/long-poll subscription held by a client.
type Connection struct {
	CacheValidator    string // If-None-Match at subscribe time
	ModifiedValidator string // If-Modified-Since at subscribe time
	ChannelID         string
}

// User es la entidad central del subsistema de cuentas.
type User struct {
	ID       string
	Username string

	// PasswordHash nil significa "sin password local"; el usuario debe
	// completar el alta de password antes de usar login clásico.
	PasswordHash *string

	FirstName string
	LastName  string
	Email     string
	Gender    string

	EmailConfirmed      bool
	ConfirmationToken   string
	ConfirmationExpires time.Time

	// LazyUsername marca que el username fue autogenerado (cuenta guest)
	// y todavía no fue elegido por el usuario.
	LazyUsername bool

	ProfileImage ImageSource

	// Identities está indexado por nombre de provider ("facebook",
	// "twitter", "google").
	Identities map[string]*Identity

	Connections               []Connection
	ConnectionLastUnsubscribe time.Time
	IsOnline                  bool

	CreatedAt time.Time
	LastLogin time.Time
}

// Identity returns the linked identity for provider, or nil.
func (u *User) Identity(provider string) *Identity {
	if u.Identities == nil {
		return nil
	}
	return u.Identities[provider]
}

// SetIdentity attaches or replaces the identity for its provider.
func (u *User) SetIdentity(id *Identity) {
	if u.Identities == nil {
		u.Identities = make(map[string]*Identity, 1)
	}
	u.Identities[id.Provider] = id
}

// RemoveIdentity drops the identity for provider, reporting whether one
// was linked.
func (u *User) RemoveIdentity(provider string) bool {
	if u.Identities == nil {
		return false
	}
	if _, ok := u.Identities[provider]; !ok {
		return false
	}
	delete(u.Identities, provider)
	return true
}

// HasPassword reports whether a usable local password is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsAuthenticated reports whether the user counts as authenticated: a
// usable password or any linked third-party identity. A user is never
// anonymous once an identity is attached.
func (u *User) IsAuthenticated() bool {
	return u.HasPassword() || len(u.Identities) > 0
}

// Clone devuelve una copia profunda; los adapters en memoria la usan
// para no compartir punteros con los callers.
func (u *User) Clone() *User {
	cp := *u
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		cp.PasswordHash = &h
	}
	if u.Identities != nil {
		cp.Identities = make(map[string]*Identity, len(u.Identities))
		for k, v := range u.Identities {
			id := *v
			cp.Identities[k] = &id
		}
	}
	if u.Connections != nil {
		cp.Connections = make([]Connection, len(u.Connections))
		copy(cp.Connections, u.Connections)
	}
	return &cp
}
