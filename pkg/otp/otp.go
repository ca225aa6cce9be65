package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// DefaultTTL is the validity window for issued codes.
const DefaultTTL = 10 * time.Minute

const digits = 6

var (
	// ErrNoCode is returned when no code is outstanding.
	ErrNoCode = errors.New("otp: no code issued")
	// ErrCodeMismatch is returned when the submitted code does not
	// match the outstanding one.
	ErrCodeMismatch = errors.New("otp: code mismatch")
	// ErrCodeExpired is returned when the outstanding code's validity
	// window has passed, regardless of value match.
	ErrCodeExpired = errors.New("otp: code expired")
)

// Code is an outstanding one-time code embedded in a user record, one
// per purpose (email verification, password reset).
type Code struct {
	Value     string    `bson:"value" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"`
	Verified  bool      `bson:"verified" json:"-"`
}

// Generate returns a uniformly random 6-digit numeric code.
func Generate() (string, error) {
	max := big.NewInt(1)
	for range digits {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("otp: failed to read random source: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// Issue creates a new code expiring after ttl. A non-positive ttl uses
// DefaultTTL.
func Issue(ttl time.Duration) (Code, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	value, err := Generate()
	if err != nil {
		return Code{}, err
	}
	return Code{Value: value, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Outstanding reports whether a code has been issued and not cleared.
func (c Code) Outstanding() bool { return c.Value != "" }

// Expired reports whether the code's validity window has passed.
func (c Code) Expired(now time.Time) bool { return now.After(c.ExpiresAt) }

// Matches validates a submitted code against the outstanding one at
// the given instant. Expiry is checked before value so an attacker
// cannot distinguish a stale code from a wrong one by probing.
func (c Code) Matches(submitted string, now time.Time) error {
	if !c.Outstanding() {
		return ErrNoCode
	}
	if now.After(c.ExpiresAt) {
		return ErrCodeExpired
	}
	if c.Value != submitted {
		return ErrCodeMismatch
	}
	return nil
}
