// Package facebook implements the Facebook OAuth2 provider.
package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meshpoint/accounts/internal/providers"
)

const ProviderName = "facebook"

const (
	defaultAuthEndpoint    = "https://www.facebook.com/dialog/oauth"
	defaultTokenEndpoint   = "https://graph.facebook.com/oauth/access_token"
	defaultProfileEndpoint = "https://graph.facebook.com/me"
)

const profileFields = "id,name,first_name,last_name,email,gender,link"

// Provider is the Facebook OAuth2 client.
type Provider struct {
	cfg providers.Config

	// Endpoints are overridable in tests.
	AuthEndpoint    string
	TokenEndpoint   string
	ProfileEndpoint string

	http *http.Client
}

func New(cfg providers.Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"email"}
	}
	return &Provider{
		cfg:             cfg,
		AuthEndpoint:    defaultAuthEndpoint,
		TokenEndpoint:   defaultTokenEndpoint,
		ProfileEndpoint: defaultProfileEndpoint,
		http:            &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Provider) Name() string         { return ProviderName }
func (p *Provider) Type() providers.Type { return providers.TypeOAuth2 }

func (p *Provider) AuthorizeURL(ctx context.Context, state string) (string, error) {
	u, err := url.Parse(p.AuthEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("scope", strings.Join(p.cfg.Scopes, ","))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	Link      string `json:"link"`
}

// Exchange trades the authorization code for an access token and loads
// the user's public profile from the Graph API.
func (p *Provider) Exchange(ctx context.Context, cb providers.Callback) (*providers.Credential, *providers.Profile, error) {
	if cb.Code == "" {
		return nil, nil, providers.InvalidGrant(ProviderName, "missing code")
	}

	u, err := url.Parse(p.TokenEndpoint)
	if err != nil {
		return nil, nil, err
	}
	q := u.Query()
	q.Set("client_id", p.cfg.ClientID)
	q.Set("client_secret", p.cfg.ClientSecret)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("code", cb.Code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, nil, providers.Unreachable(ProviderName, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, nil, providers.Malformed(ProviderName, "token response not json")
	}
	if tr.Error != nil || resp.StatusCode/100 != 2 {
		detail := ""
		if tr.Error != nil {
			detail = tr.Error.Message
		}
		return nil, nil, providers.InvalidGrant(ProviderName, detail)
	}
	if tr.AccessToken == "" {
		return nil, nil, providers.Malformed(ProviderName, "no access_token in response")
	}

	prof, err := p.fetchProfile(ctx, tr.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	return &providers.Credential{AccessToken: tr.AccessToken}, prof, nil
}

func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (*providers.Profile, error) {
	u, err := url.Parse(p.ProfileEndpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("fields", profileFields)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, providers.Unreachable(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.Malformed(ProviderName, "profile fetch failed")
	}

	var me profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, providers.Malformed(ProviderName, "profile response not json")
	}
	if me.ID == "" {
		return nil, providers.Malformed(ProviderName, "profile without id")
	}

	return &providers.Profile{
		ID:         me.ID,
		Name:       me.Name,
		GivenName:  me.FirstName,
		FamilyName: me.LastName,
		Email:      me.Email,
		Gender:     me.Gender,
		Link:       me.Link,
	}, nil
}
