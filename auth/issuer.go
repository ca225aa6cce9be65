package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/credential"
	"github.com/identikit/identikit/pkg/logger"
)

// Issuer mints credential pairs and keeps the session store in step
// with the refresh tokens it signs. Every refresh token it produces is
// backed by a session record; rotation retires the old record before
// the new one is written (delete-then-recreate, never update-in-place)
// so a rotated-out token can never be redeemed again.
type Issuer struct {
	codec    *credential.Codec
	sessions SessionStore
	log      *slog.Logger
}

// IssuerOption configures an Issuer during construction.
type IssuerOption func(*Issuer)

// WithIssuerLogger sets the issuer's logger.
func WithIssuerLogger(log *slog.Logger) IssuerOption {
	return func(i *Issuer) { i.log = log }
}

// NewIssuer creates a token issuer.
func NewIssuer(codec *credential.Codec, sessions SessionStore, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		codec:    codec,
		sessions: sessions,
		log:      logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ClaimsFor builds the minimal claim set for a user.
func ClaimsFor(user *User) credential.Claims {
	return credential.Claims{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}

// IssuePair signs an access/refresh pair for the user and persists the
// backing session record. Initial issuance is session-backed: a fresh
// refresh token is redeemable because this record exists, and revoking
// it (logout, password reset) kills the token before its cryptographic
// expiry.
func (i *Issuer) IssuePair(ctx context.Context, user *User, client ClientInfo) (TokenPair, error) {
	claims := ClaimsFor(user)

	access, err := i.codec.SignAccess(claims)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.codec.SignRefresh(claims)
	if err != nil {
		return TokenPair{}, err
	}

	if err := i.createSession(ctx, user.ID, refresh, client); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess signs a standalone access token for already-verified
// claims.
func (i *Issuer) IssueAccess(claims credential.Claims) (string, error) {
	return i.codec.SignAccess(claims)
}

// RotateRefresh signs a fresh refresh token and replaces the session
// record of oldRefresh with a new one. A concurrent rotation may have
// already deleted the old record; that delete observing not-found is a
// tolerated no-op and this rotation still completes, so a genuine race
// transiently yields two valid-looking refresh tokens of which only
// the last-persisted one stays redeemable.
func (i *Issuer) RotateRefresh(ctx context.Context, claims credential.Claims, oldRefresh string, client ClientInfo) (string, error) {
	if oldRefresh != "" {
		if err := i.sessions.Delete(ctx, HashToken(oldRefresh)); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return "", fmt.Errorf("retiring refresh session: %w", err)
		}
	}

	refresh, err := i.codec.SignRefresh(claims)
	if err != nil {
		return "", err
	}

	userID, err := uuid.Parse(claims.ID)
	if err != nil {
		return "", fmt.Errorf("claims carry malformed user id: %w", err)
	}

	if err := i.createSession(ctx, userID, refresh, client); err != nil {
		return "", err
	}
	return refresh, nil
}

func (i *Issuer) createSession(ctx context.Context, userID uuid.UUID, refresh string, client ClientInfo) error {
	now := time.Now()
	session := &Session{
		ID:             uuid.New(),
		UserID:         userID,
		TokenHash:      HashToken(refresh),
		Device:         client.Device,
		IP:             client.IP,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(i.codec.RefreshTTL()),
	}
	if err := i.sessions.Create(ctx, session); err != nil {
		return fmt.Errorf("persisting refresh session: %w", err)
	}
	return nil
}
