package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/logger"
	"github.com/identikit/identikit/pkg/passwd"
	"github.com/identikit/identikit/pkg/roles"
	"github.com/identikit/identikit/provider"
)

// Resolution describes how a provider identity mapped to an account,
// so the boundary can tell the user what actually happened.
type Resolution int

const (
	// ResolutionExisting means the identity was already linked.
	ResolutionExisting Resolution = iota
	// ResolutionLinked means an account with the same email existed and
	// the identity was attached to it.
	ResolutionLinked
	// ResolutionCreated means a new account was provisioned.
	ResolutionCreated
)

// Linker resolves provider-asserted identities to local accounts,
// linking or creating accounts as needed, and signs resolved accounts
// in.
type Linker struct {
	users    UserStore
	issuer   *Issuer
	notifier *Notifier
	log      *slog.Logger
	now      func() time.Time
}

// LinkerOption configures a Linker during construction.
type LinkerOption func(*Linker)

// WithLinkerLogger sets the linker's logger.
func WithLinkerLogger(log *slog.Logger) LinkerOption {
	return func(l *Linker) { l.log = log }
}

// WithLinkerClock overrides the linker's time source.
func WithLinkerClock(now func() time.Time) LinkerOption {
	return func(l *Linker) { l.now = now }
}

// NewLinker creates an identity linker.
func NewLinker(users UserStore, issuer *Issuer, notifier *Notifier, opts ...LinkerOption) *Linker {
	l := &Linker{
		users:    users,
		issuer:   issuer,
		notifier: notifier,
		log:      logger.NewDiscard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Login verifies the provider credential, resolves the identity to an
// account, and issues a token pair.
func (l *Linker) Login(ctx context.Context, p provider.Provider, token string, client ClientInfo) (*User, TokenPair, Resolution, error) {
	user, res, err := l.Resolve(ctx, p, token)
	if err != nil {
		return nil, TokenPair{}, res, err
	}
	if !user.Active {
		return nil, TokenPair{}, res, ErrAccountInactive
	}

	pair, err := l.issuer.IssuePair(ctx, user, client)
	if err != nil {
		return nil, TokenPair{}, res, err
	}
	return user, pair, res, nil
}

// Resolve maps a provider credential to a local account and reports
// how. Resolution order: an account already linked to this external
// identity, then an account whose email matches (which gets linked),
// then a new account.
func (l *Linker) Resolve(ctx context.Context, p provider.Provider, token string) (*User, Resolution, error) {
	profile, err := p.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidToken) || errors.Is(err, provider.ErrIncompleteProfile) {
			return nil, ResolutionExisting, fmt.Errorf("%w: %w", ErrInvalidProviderToken, err)
		}
		return nil, ResolutionExisting, err
	}

	user, err := l.users.FindByProvider(ctx, p.Name(), profile.ExternalID)
	if err == nil {
		user, err = l.refresh(ctx, user, profile)
		return user, ResolutionExisting, err
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, ResolutionExisting, err
	}

	user, err = l.users.FindByEmail(ctx, strings.ToLower(profile.Email))
	if err == nil {
		user, err = l.link(ctx, user, p.Name(), profile)
		return user, ResolutionLinked, err
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, ResolutionExisting, err
	}

	user, err = l.create(ctx, p.Name(), profile)
	return user, ResolutionCreated, err
}

// refresh picks up profile fields the provider may have updated since
// the identity was linked.
func (l *Linker) refresh(ctx context.Context, user *User, profile provider.Profile) (*User, error) {
	changed := false
	if profile.Name != "" && user.Name == "" {
		user.Name = profile.Name
		changed = true
	}
	if profile.AvatarURL != "" && user.AvatarURL == "" {
		user.AvatarURL = profile.AvatarURL
		changed = true
	}
	if !changed {
		return user, nil
	}
	user.UpdatedAt = l.now()
	if err := l.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// link attaches the external identity to an existing account matched
// by email. The provider vouched for the address, so the email counts
// as verified from here on.
func (l *Linker) link(ctx context.Context, user *User, providerName string, profile provider.Profile) (*User, error) {
	user.SetProviderID(providerName, profile.ExternalID)
	user.EmailVerified = true
	if profile.Name != "" && user.Name == "" {
		user.Name = profile.Name
	}
	if profile.AvatarURL != "" && user.AvatarURL == "" {
		user.AvatarURL = profile.AvatarURL
	}
	user.UpdatedAt = l.now()
	if err := l.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// create provisions an account for a first-time external identity. A
// strong password is generated so the account can also sign in
// directly; it is mailed out of band and delivery failure does not
// fail the sign-in.
func (l *Linker) create(ctx context.Context, providerName string, profile provider.Profile) (*User, error) {
	password, err := passwd.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := passwd.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	base := normalizeUsername(profile.Name)
	if base == "user" {
		base = normalizeUsername(profile.Email)
	}
	username, err := uniqueUsername(ctx, l.users, base)
	if err != nil {
		return nil, err
	}

	now := l.now()
	user := &User{
		ID:            uuid.New(),
		Email:         strings.ToLower(profile.Email),
		Username:      username,
		PasswordHash:  hash,
		Name:          profile.Name,
		AvatarURL:     profile.AvatarURL,
		Role:          roles.User,
		EmailVerified: true,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	user.SetProviderID(providerName, profile.ExternalID)

	if err := l.users.Create(ctx, user); err != nil {
		return nil, err
	}

	go func(email, password string) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := l.notifier.SendGeneratedPassword(ctx, email, password); err != nil {
			l.log.Warn("generated password email not delivered", logger.Error(err), logger.Email(email))
		}
	}(user.Email, password)

	return user, nil
}
