package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/credential"
)

type contextKey struct{ name string }

var (
	claimsKey  = contextKey{name: "claims"}
	refreshKey = contextKey{name: "refresh"}
)

// withClaims stores the authorized claims in the request context.
func withClaims(ctx context.Context, claims credential.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims the guard attached, if any.
func ClaimsFromContext(ctx context.Context) (credential.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(credential.Claims)
	return claims, ok
}

// withRefreshToken stores the refresh token that backs the request's
// live session after the guard ran: the rotated replacement when the
// guard rotated, otherwise the presented one.
func withRefreshToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, refreshKey, token)
}

// refreshTokenFromContext returns the request's live refresh token.
func refreshTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(refreshKey).(string)
	return token
}

// UserIDFromContext returns the authorized user's id. The second
// return is false when the request is unauthenticated or the claims
// subject is malformed.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
