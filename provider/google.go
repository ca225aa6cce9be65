package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleConfig holds Google sign-in settings.
type GoogleConfig struct {
	ClientID string `env:"GOOGLE_CLIENT_ID"`
}

// Google verifies Google ID tokens through the tokeninfo endpoint.
type Google struct {
	clientID string
	endpoint string
	http     *http.Client
}

// GoogleOption configures a Google provider.
type GoogleOption func(*Google)

// WithGoogleHTTPClient overrides the HTTP client.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.http = c }
}

// WithGoogleEndpoint overrides the tokeninfo endpoint, for tests.
func WithGoogleEndpoint(u string) GoogleOption {
	return func(g *Google) { g.endpoint = u }
}

// NewGoogle creates a Google provider.
func NewGoogle(cfg GoogleConfig, opts ...GoogleOption) *Google {
	g := &Google{
		clientID: cfg.ClientID,
		endpoint: googleTokenInfoURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Provider = (*Google)(nil)

// Name implements Provider.
func (g *Google) Name() string { return "google" }

type googleTokenInfo struct {
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify validates the ID token with Google and checks it was minted
// for this application.
func (g *Google) Verify(ctx context.Context, idToken string) (Profile, error) {
	if idToken == "" {
		return Profile{}, ErrInvalidToken
	}

	endpoint := g.endpoint + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("google: build request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("google: tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, ErrInvalidToken
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, fmt.Errorf("google: decode tokeninfo: %w", err)
	}
	if g.clientID != "" && info.Aud != g.clientID {
		return Profile{}, ErrInvalidToken
	}

	profile := Profile{
		ExternalID:    info.Sub,
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
		EmailVerified: info.EmailVerified == "true",
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
