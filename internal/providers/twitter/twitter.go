// Package twitter implements the Twitter OAuth 1.0a provider.
// Unlike the OAuth2 providers, the flow starts with a request-token
// call whose secret must survive the redirect round-trip; it is held in
// the injected cache keyed by oauth_token, TTL-bounded.
package twitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/meshpoint/accounts/internal/cache"
	"github.com/meshpoint/accounts/internal/providers"
)

const ProviderName = "twitter"

const (
	defaultRequestTokenEndpoint = "https://api.twitter.com/oauth/request_token"
	defaultAuthorizeEndpoint    = "https://api.twitter.com/oauth/authenticate"
	defaultAccessTokenEndpoint  = "https://api.twitter.com/oauth/access_token"
	defaultVerifyEndpoint       = "https://api.twitter.com/1.1/account/verify_credentials.json"
)

const (
	secretKeyPrefix  = "twitter:reqtok:"
	requestSecretTTL = 15 * time.Minute
)

// Provider is the Twitter OAuth 1.0a client. Config.ClientID and
// Config.ClientSecret carry the consumer key pair.
type Provider struct {
	cfg     preConfig
	secrets cache.Cache

	// Endpoints are overridable in tests.
	RequestTokenEndpoint string
	AuthorizeEndpoint    string
	AccessTokenEndpoint  string
	VerifyEndpoint       string

	http *http.Client
}

type preConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
}

func New(cfg providers.Config, secrets cache.Cache) *Provider {
	return &Provider{
		cfg: preConfig{
			ConsumerKey:    cfg.ClientID,
			ConsumerSecret: cfg.ClientSecret,
			CallbackURL:    cfg.RedirectURL,
		},
		secrets:              secrets,
		RequestTokenEndpoint: defaultRequestTokenEndpoint,
		AuthorizeEndpoint:    defaultAuthorizeEndpoint,
		AccessTokenEndpoint:  defaultAccessTokenEndpoint,
		VerifyEndpoint:       defaultVerifyEndpoint,
		http:                 &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Provider) Name() string         { return ProviderName }
func (p *Provider) Type() providers.Type { return providers.TypeOAuth1 }

// AuthorizeURL obtains a request token and returns the authenticate
// URL. The request-token secret is cached for the callback leg; state
// is not part of OAuth 1.0a (the oauth_token ties the legs together).
func (p *Provider) AuthorizeURL(ctx context.Context, state string) (string, error) {
	auth := signRequest("POST", p.RequestTokenEndpoint, nil,
		map[string]string{"oauth_callback": p.cfg.CallbackURL},
		p.cfg.ConsumerKey, p.cfg.ConsumerSecret, "")

	vals, err := p.postForm(ctx, p.RequestTokenEndpoint, auth)
	if err != nil {
		return "", err
	}
	token := vals.Get("oauth_token")
	secret := vals.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", providers.Malformed(ProviderName, "request token response incomplete")
	}
	p.secrets.Set(secretKeyPrefix+token, []byte(secret), requestSecretTTL)

	u, err := url.Parse(p.AuthorizeEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("oauth_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type verifyResponse struct {
	IDStr           string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

// Exchange trades the verifier for an access token and loads the
// user's profile via verify_credentials.
func (p *Provider) Exchange(ctx context.Context, cb providers.Callback) (*providers.Credential, *providers.Profile, error) {
	if cb.Token == "" || cb.Verifier == "" {
		return nil, nil, providers.InvalidGrant(ProviderName, "missing oauth_token or oauth_verifier")
	}

	secretB, ok := p.secrets.Get(secretKeyPrefix + cb.Token)
	if !ok {
		return nil, nil, providers.InvalidGrant(ProviderName, "unknown or expired request token")
	}
	requestSecret := string(secretB)

	auth := signRequest("POST", p.AccessTokenEndpoint, nil,
		map[string]string{
			"oauth_token":    cb.Token,
			"oauth_verifier": cb.Verifier,
		},
		p.cfg.ConsumerKey, p.cfg.ConsumerSecret, requestSecret)

	vals, err := p.postForm(ctx, p.AccessTokenEndpoint, auth)
	if err != nil {
		return nil, nil, err
	}
	p.secrets.Delete(secretKeyPrefix + cb.Token)

	accessToken := vals.Get("oauth_token")
	accessSecret := vals.Get("oauth_token_secret")
	if accessToken == "" || accessSecret == "" {
		return nil, nil, providers.Malformed(ProviderName, "access token response incomplete")
	}

	prof, err := p.verifyCredentials(ctx, accessToken, accessSecret)
	if err != nil {
		return nil, nil, err
	}
	// user_id del intercambio como fallback si verify no lo trae.
	if prof.ID == "" {
		prof.ID = vals.Get("user_id")
	}
	if prof.Username == "" {
		prof.Username = vals.Get("screen_name")
	}
	if prof.ID == "" {
		return nil, nil, providers.Malformed(ProviderName, "no user id in response")
	}

	return &providers.Credential{AccessToken: accessToken, TokenSecret: accessSecret}, prof, nil
}

func (p *Provider) verifyCredentials(ctx context.Context, token, secret string) (*providers.Profile, error) {
	auth := signRequest("GET", p.VerifyEndpoint, nil, map[string]string{"oauth_token": token},
		p.cfg.ConsumerKey, p.cfg.ConsumerSecret, secret)

	req, err := http.NewRequestWithContext(ctx, "GET", p.VerifyEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, providers.Unreachable(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.Malformed(ProviderName, "verify_credentials failed")
	}

	var tw verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tw); err != nil {
		return nil, providers.Malformed(ProviderName, "verify_credentials response not json")
	}

	prof := &providers.Profile{
		ID:       tw.IDStr,
		Username: tw.ScreenName,
		Name:     tw.Name,
		Email:    tw.Email,
		Picture:  tw.ProfileImageURL,
	}
	if tw.ScreenName != "" {
		prof.Link = "https://twitter.com/" + tw.ScreenName
	}
	return prof, nil
}

// postForm manda un POST firmado y parsea la respuesta form-encoded.
func (p *Provider) postForm(ctx context.Context, endpoint, authHeader string) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, providers.Unreachable(ProviderName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Unreachable(ProviderName, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, providers.InvalidGrant(ProviderName, string(body))
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, providers.Malformed(ProviderName, "response not form-encoded")
	}
	return vals, nil
}
