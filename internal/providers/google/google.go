// Package google implements the Google OAuth2 provider.
package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meshpoint/accounts/internal/providers"
)

const ProviderName = "google"

const (
	defaultAuthEndpoint     = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenEndpoint    = "https://accounts.google.com/o/oauth2/token"
	defaultUserinfoEndpoint = "https://www.googleapis.com/oauth2/v1/userinfo"
)

// Provider is the Google OAuth2 client.
type Provider struct {
	cfg providers.Config

	// Endpoints are overridable in tests.
	AuthEndpoint     string
	TokenEndpoint    string
	UserinfoEndpoint string

	http *http.Client
}

func New(cfg providers.Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	}
	return &Provider{
		cfg:              cfg,
		AuthEndpoint:     defaultAuthEndpoint,
		TokenEndpoint:    defaultTokenEndpoint,
		UserinfoEndpoint: defaultUserinfoEndpoint,
		http:             &http.Client{Timeout: 10 * time.Second},
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
	q.Set("scope", strings.Join(p.cfg.Scopes, " "))
	q.Set("response_type", "code")
	q.Set("access_type", "online")
	q.Set("approval_prompt", "auto")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type userinfoResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Gender     string `json:"gender"`
	Link       string `json:"link"`
	Picture    string `json:"picture"`
}

// Exchange trades the authorization code for an access token and loads
// the userinfo document.
func (p *Provider) Exchange(ctx context.Context, cb providers.Callback) (*providers.Credential, *providers.Profile, error) {
	if cb.Code == "" {
		return nil, nil, providers.InvalidGrant(ProviderName, "missing code")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", cb.Code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, "POST", p.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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
	if tr.Error != "" || resp.StatusCode/100 != 2 {
		return nil, nil, providers.InvalidGrant(ProviderName, strings.TrimSpace(tr.Error+" "+tr.ErrorDesc))
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
	u, err := url.Parse(p.UserinfoEndpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
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
		return nil, providers.Malformed(ProviderName, "userinfo fetch failed")
	}

	var gu userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, providers.Malformed(ProviderName, "userinfo response not json")
	}
	if gu.ID == "" {
		return nil, providers.Malformed(ProviderName, "userinfo without id")
	}

	return &providers.Profile{
		ID:         gu.ID,
		Name:       gu.Name,
		GivenName:  gu.GivenName,
		FamilyName: gu.FamilyName,
		Email:      gu.Email,
		Gender:     gu.Gender,
		Link:       gu.Link,
		Picture:    gu.Picture,
	}, nil
}
