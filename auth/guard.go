package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/identikit/identikit/pkg/credential"
	"github.com/identikit/identikit/pkg/logger"
)

// Presented carries the credentials extracted from a request. Either
// token may be empty; an absent credential is treated exactly like an
// invalid one.
type Presented struct {
	Access  string
	Refresh string
	Client  ClientInfo
}

// Outcome tags an authorization Decision.
type Outcome int

const (
	// DecisionReject denies the request; the boundary clears both
	// client-side credential stores.
	DecisionReject Outcome = iota
	// DecisionAuthorize grants the request with no credential change.
	DecisionAuthorize
	// DecisionAuthorizeAndRotate grants the request and carries one or
	// both replacement credentials for the boundary to attach.
	DecisionAuthorizeAndRotate
)

// Decision is the Guard's verdict on one request. The Guard performs
// the store-side effects of rotation itself; applying the
// client-facing effects (headers, cookies) is the boundary's job.
type Decision struct {
	Outcome    Outcome
	Claims     credential.Claims
	NewAccess  string // set when the access token was rotated
	NewRefresh string // set when the refresh token was rotated
}

// Authorized reports whether the request may proceed.
func (d Decision) Authorized() bool { return d.Outcome != DecisionReject }

// Guard is the dual-token verification state machine. Each request's
// state is derived from the independent validity of the two presented
// credentials:
//
//	access  refresh  outcome
//	invalid invalid  reject, clear credentials
//	invalid valid    rotate both, authorize with refresh claims
//	valid   invalid  rotate refresh only, authorize with access claims
//	valid   valid    authorize as-is
//
// Access validity is cryptographic (signature + expiry). Refresh
// validity additionally requires a live session record, making the
// grant revocable ahead of the token's own expiry. Any failure during
// rotation degrades to rejection; the Guard never answers an error
// with access.
type Guard struct {
	codec    *credential.Codec
	sessions SessionStore
	issuer   *Issuer
	log      *slog.Logger
}

// GuardOption configures a Guard during construction.
type GuardOption func(*Guard)

// WithGuardLogger sets the guard's logger.
func WithGuardLogger(log *slog.Logger) GuardOption {
	return func(g *Guard) { g.log = log }
}

// NewGuard creates a verification guard.
func NewGuard(codec *credential.Codec, sessions SessionStore, issuer *Issuer, opts ...GuardOption) *Guard {
	g := &Guard{
		codec:    codec,
		sessions: sessions,
		issuer:   issuer,
		log:      logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check derives the Decision for one request at the given instant.
func (g *Guard) Check(ctx context.Context, p Presented, now time.Time) Decision {
	accessClaims, accessValid := g.checkAccess(p.Access)
	refreshClaims, refreshValid := g.checkRefresh(ctx, p.Refresh, now)

	switch {
	case accessValid && refreshValid:
		// Best effort: record the grant's use. Failure here must not
		// affect the authorization already decided.
		_ = g.sessions.Touch(ctx, HashToken(p.Refresh), now)
		return Decision{Outcome: DecisionAuthorize, Claims: accessClaims}

	case !accessValid && refreshValid:
		return g.rotateBoth(ctx, p, refreshClaims)

	case accessValid && !refreshValid:
		return g.rotateRefreshOnly(ctx, p, accessClaims)

	default:
		return Decision{Outcome: DecisionReject}
	}
}

// checkAccess validates signature and expiry of the access token.
func (g *Guard) checkAccess(token string) (credential.Claims, bool) {
	if token == "" {
		return credential.Claims{}, false
	}
	claims, err := g.codec.Verify(token)
	if err != nil || claims.ID == "" {
		return credential.Claims{}, false
	}
	return claims, true
}

// checkRefresh validates signature, expiry, and session liveness of
// the refresh token.
func (g *Guard) checkRefresh(ctx context.Context, token string, now time.Time) (credential.Claims, bool) {
	if token == "" {
		return credential.Claims{}, false
	}
	claims, err := g.codec.Verify(token)
	if err != nil || claims.ID == "" {
		return credential.Claims{}, false
	}

	session, err := g.sessions.FindByTokenHash(ctx, HashToken(token))
	if err != nil || session.Expired(now) {
		// No live session: revoked by logout or retired by rotation.
		return credential.Claims{}, false
	}
	return claims, true
}

// rotateBoth mints a fresh pair from the refresh token's claims: the
// common silent-continuation path after access expiry.
func (g *Guard) rotateBoth(ctx context.Context, p Presented, refreshClaims credential.Claims) Decision {
	claims := minimalClaims(refreshClaims)

	newAccess, err := g.issuer.IssueAccess(claims)
	if err != nil {
		g.log.Error("access rotation failed", logger.Error(err), logger.UserID(claims.ID), logger.Component("guard"))
		return Decision{Outcome: DecisionReject}
	}

	newRefresh, err := g.issuer.RotateRefresh(ctx, claims, p.Refresh, p.Client)
	if err != nil {
		g.log.Error("refresh rotation failed", logger.Error(err), logger.UserID(claims.ID), logger.Component("guard"))
		return Decision{Outcome: DecisionReject}
	}

	return Decision{
		Outcome:    DecisionAuthorizeAndRotate,
		Claims:     claims,
		NewAccess:  newAccess,
		NewRefresh: newRefresh,
	}
}

// rotateRefreshOnly extends session life opportunistically while the
// access token is still valid, without forcing re-login.
func (g *Guard) rotateRefreshOnly(ctx context.Context, p Presented, accessClaims credential.Claims) Decision {
	claims := minimalClaims(accessClaims)

	newRefresh, err := g.issuer.RotateRefresh(ctx, claims, p.Refresh, p.Client)
	if err != nil {
		g.log.Error("refresh rotation failed", logger.Error(err), logger.UserID(claims.ID), logger.Component("guard"))
		return Decision{Outcome: DecisionReject}
	}

	return Decision{
		Outcome:    DecisionAuthorizeAndRotate,
		Claims:     claims,
		NewRefresh: newRefresh,
	}
}

// minimalClaims strips temporal claims inherited from the source token
// so re-signing stamps fresh ones.
func minimalClaims(c credential.Claims) credential.Claims {
	return credential.Claims{
		ID:    c.ID,
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
	}
}
