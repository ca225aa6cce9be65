package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const discordUserURL = "https://discord.com/api/users/@me"

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// DiscordConfig holds Discord OAuth settings.
type DiscordConfig struct {
	ClientID     string `env:"DISCORD_CLIENT_ID"`
	ClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	RedirectURL  string `env:"DISCORD_REDIRECT_URL"`
}

// Discord verifies Discord authorization codes by exchanging them for
// an access token and fetching the account behind it.
type Discord struct {
	oauth   *oauth2.Config
	userURL string
	http    *http.Client
}

// DiscordOption configures a Discord provider.
type DiscordOption func(*Discord)

// WithDiscordHTTPClient overrides the HTTP client used for both the
// token exchange and the user fetch.
func WithDiscordHTTPClient(c *http.Client) DiscordOption {
	return func(d *Discord) { d.http = c }
}

// WithDiscordUserEndpoint overrides the user endpoint, for tests.
func WithDiscordUserEndpoint(u string) DiscordOption {
	return func(d *Discord) { d.userURL = u }
}

// WithDiscordTokenEndpoint overrides the token endpoint, for tests.
func WithDiscordTokenEndpoint(u string) DiscordOption {
	return func(d *Discord) { d.oauth.Endpoint.TokenURL = u }
}

// NewDiscord creates a Discord provider.
func NewDiscord(cfg DiscordConfig, opts ...DiscordOption) *Discord {
	d := &Discord{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     discordEndpoint,
			Scopes:       []string{"identify", "email"},
		},
		userURL: discordUserURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ Provider = (*Discord)(nil)

// Name implements Provider.
func (d *Discord) Name() string { return "discord" }

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
	Avatar     string `json:"avatar"`
}

// Verify exchanges the authorization code and returns the Discord
// account's profile.
func (d *Discord) Verify(ctx context.Context, code string) (Profile, error) {
	if code == "" {
		return Profile{}, ErrInvalidToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.http)
	token, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.userURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("discord: build request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := d.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("discord: user request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, ErrInvalidToken
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return Profile{}, fmt.Errorf("discord: decode user: %w", err)
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	profile := Profile{
		ExternalID:    user.ID,
		Email:         user.Email,
		Name:          name,
		EmailVerified: user.Verified,
	}
	if user.Avatar != "" {
		profile.AvatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", user.ID, user.Avatar)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
