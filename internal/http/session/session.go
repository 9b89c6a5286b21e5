// Package session maneja la cookie de sesión y el estado transitorio
// de los flujos OAuth. Ambos son JWT HS256 firmados con el secret de
// sesión: la cookie lleva el user ID, el estado OAuth lleva la
// intención del flujo (login vs link) más un nonce anti-CSRF.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meshpoint/accounts/internal/security/token"
)

var (
	ErrNoSession    = errors.New("session: no session")
	ErrInvalidToken = errors.New("session: invalid token")
)

const flowCookieName = "oauth_flow"
const flowTTL = 10 * time.Minute

type Manager struct {
	secret     []byte
	CookieName string
	Domain     string
	SameSite   http.SameSite
	Secure     bool
	TTL        time.Duration
}

type Options struct {
	Secret     string
	CookieName string
	Domain     string
	SameSite   string
	Secure     bool
	TTL        time.Duration
}

func NewManager(o Options) *Manager {
	ss := http.SameSiteLaxMode
	switch o.SameSite {
	case "Strict", "strict":
		ss = http.SameSiteStrictMode
	case "None", "none":
		ss = http.SameSiteNoneMode
	}
	if o.CookieName == "" {
		o.CookieName = "sid"
	}
	if o.TTL <= 0 {
		o.TTL = 720 * time.Hour
	}
	return &Manager{
		secret:     []byte(o.Secret),
		CookieName: o.CookieName,
		Domain:     o.Domain,
		SameSite:   ss,
		Secure:     o.Secure,
		TTL:        o.TTL,
	}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Issue sets the session cookie for userID.
func (m *Manager) Issue(w http.ResponseWriter, userID string) error {
	now := time.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(m.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
	return nil
}

// Clear expira la cookie de sesión.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

// UserID extracts the authenticated user ID from the request cookie.
func (m *Manager) UserID(r *http.Request) (string, error) {
	c, err := r.Cookie(m.CookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoSession
	}
	return m.parseSubject(c.Value)
}

func (m *Manager) parseSubject(raw string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Flow is the intent carried across an OAuth round trip: what the
// callback should do with the exchanged identity.
type Flow struct {
	Provider string `json:"prv"`
	// Mode: "login" o "link".
	Mode string `json:"mode"`
	// Resolution acompaña un re-link tras conflicto ("unlink",
	// "overwrite" o vacío).
	Resolution string `json:"res,omitempty"`
	// Nonce doubles as the OAuth2 state value. OAuth 1.0a has no state
	// parameter, the flow cookie alone ties the legs together.
	Nonce string `json:"nonce"`
	// Next es adónde redirigir al terminar.
	Next string `json:"next,omitempty"`
}

type flowClaims struct {
	Flow
	jwt.RegisteredClaims
}

// BeginFlow stores the flow in a short-lived cookie and returns the
// nonce to use as the OAuth2 state parameter.
func (m *Manager) BeginFlow(w http.ResponseWriter, f Flow) (string, error) {
	nonce, err := token.GenerateOpaqueToken(16)
	if err != nil {
		return "", err
	}
	f.Nonce = nonce
	now := time.Now().UTC()
	claims := flowClaims{
		Flow: f,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flowTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    signed,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(flowTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
	return nonce, nil
}

// TakeFlow consumes the flow cookie, checking it against the provider
// and the echoed state. state is ignored for OAuth 1.0a callbacks
// (pass empty).
func (m *Manager) TakeFlow(w http.ResponseWriter, r *http.Request, provider, state string) (Flow, error) {
	defer http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})

	c, err := r.Cookie(flowCookieName)
	if err != nil || c.Value == "" {
		return Flow{}, ErrNoSession
	}
	var claims flowClaims
	_, err = jwt.ParseWithClaims(c.Value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Flow{}, ErrInvalidToken
	}
	if claims.Flow.Provider != provider {
		return Flow{}, ErrInvalidToken
	}
	if state != "" && state != claims.Flow.Nonce {
		return Flow{}, ErrInvalidToken
	}
	return claims.Flow, nil
}
