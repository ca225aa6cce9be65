package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/roles"
)

var (
	// ErrMissingSecret is returned by New when no signing secret is
	// configured.
	ErrMissingSecret = errors.New("credential: signing secret is required")

	// ErrInvalidToken covers every verification failure: bad
	// signature, expired token, malformed input.
	ErrInvalidToken = errors.New("credential: invalid token")
)

// Config holds signing configuration. TTLs accept any Go duration
// string, including millisecond values such as "900000ms".
type Config struct {
	Secret     string        `env:"JWT_SECRET,required"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// Claims is the minimal claim set carried by both credentials.
type Claims struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  roles.Role `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies credentials with HMAC-SHA256.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New creates a codec from config, applying default TTLs to zero
// values.
func New(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Sign issues a token carrying claims with the given lifetime. Every
// token gets a unique jti so two tokens minted for the same subject in
// the same second are still distinct strings.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.RegisteredClaims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("credential: failed to sign token: %w", err)
	}
	return signed, nil
}

// SignAccess issues an access token with the configured TTL.
func (c *Codec) SignAccess(claims Claims) (string, error) {
	return c.Sign(claims, c.accessTTL)
}

// SignRefresh issues a refresh token with the configured TTL.
func (c *Codec) SignRefresh(claims Claims) (string, error) {
	return c.Sign(claims, c.refreshTTL)
}

// Verify checks signature and expiry and returns the claims. Any
// failure, including malformed input, yields ErrInvalidToken.
func (c *Codec) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Decode extracts claims without verifying the signature. Callers must
// only use it on tokens already verified in the same flow.
func (c *Codec) Decode(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
