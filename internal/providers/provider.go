// Package providers define los proveedores de identidad federada.
//
// Cada provider encapsula el intercambio token/perfil de un tercero
// (Facebook, Twitter, Google) y normaliza la respuesta a un Profile
// común, de modo que resolver y linker trabajan con una sola
// implementación en vez de una copia por proveedor.
//
// Architecture:
// - Provider interface: common methods all providers must implement
// - Registry: immutable name → Provider map built from config
// - Provider implementations: one sub-package per provider
package providers

import "context"

// Type indica el protocolo de autenticación.
type Type string

const (
	TypeOAuth1 Type = "oauth1"
	TypeOAuth2 Type = "oauth2"
)

// Provider is one third-party identity provider.
type Provider interface {
	Name() string
	Type() Type

	// AuthorizeURL builds the URL the user is redirected to. For
	// OAuth 1.0a providers this performs the request-token call.
	AuthorizeURL(ctx context.Context, state string) (string, error)

	// Exchange trades the callback parameters for an access credential
	// and the normalized profile. No side effects beyond the outbound
	// calls; failures surface immediately, never retried here.
	Exchange(ctx context.Context, cb Callback) (*Credential, *Profile, error)
}

// Callback are the inbound query parameters of a provider callback.
// OAuth2 providers use Code; OAuth 1.0a uses Token + Verifier.
type Callback struct {
	Code     string
	Token    string
	Verifier string
}

// Credential is the opaque credential material stored on the user and
// overwritten on each successful re-auth.
type Credential struct {
	AccessToken string
	TokenSecret string // OAuth 1.0a only
}

// Profile is a provider-agnostic identity assertion.
type Profile struct {
	// ID is the provider's unique identifier for the user. Always set;
	// a response without it is ErrMalformedResponse.
	ID string

	// Username is the provider-supplied handle, when the provider has
	// one (twitter screen_name). May be empty.
	Username string

	Name       string
	GivenName  string
	FamilyName string
	Email      string
	Gender     string
	Link       string
	Picture    string

	Raw map[string]any
}

// Config es la configuración inmutable de un provider, inyectada en la
// construcción (no hay settings globales mutables).
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}
