package provider

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when the presented credential could
	// not be verified with the provider.
	ErrInvalidToken = errors.New("provider: invalid token")
	// ErrIncompleteProfile is returned when the provider verified the
	// credential but did not assert an identity usable for linking.
	ErrIncompleteProfile = errors.New("provider: incomplete profile")
)

// Profile is the normalized identity asserted by a provider.
type Profile struct {
	ExternalID    string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// Validate checks that the profile carries enough to link an account.
func (p Profile) Validate() error {
	if p.ExternalID == "" || p.Email == "" {
		return ErrIncompleteProfile
	}
	return nil
}

// Provider verifies an external credential and returns the identity
// behind it.
type Provider interface {
	// Name is the stable identifier used to key linked identities.
	Name() string
	// Verify exchanges or validates the client-obtained credential and
	// returns the asserted profile.
	Verify(ctx context.Context, token string) (Profile, error)
}
