package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/identikit/auth"
)

func TestMemoryUserStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := auth.NewMemoryUserStore()

	user := newTestUser()
	require.NoError(t, store.Create(ctx, user))

	t.Run("lookups", func(t *testing.T) {
		byID, err := store.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)

		byEmail, err := store.FindByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byUsername, err := store.FindByUsername(ctx, user.Username)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byUsername.ID)

		byLogin, err := store.FindByLogin(ctx, user.Username)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byLogin.ID)

		_, err = store.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("uniqueness", func(t *testing.T) {
		dupe := newTestUser()
		dupe.Username = "different"
		err := store.Create(ctx, dupe)
		assert.ErrorIs(t, err, auth.ErrEmailTaken)

		dupe = newTestUser()
		dupe.Email = "different@example.com"
		err = store.Create(ctx, dupe)
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("provider lookup", func(t *testing.T) {
		linked, err := store.FindByID(ctx, user.ID)
		require.NoError(t, err)
		linked.SetProviderID("google", "sub-42")
		require.NoError(t, store.Update(ctx, linked))

		found, err := store.FindByProvider(ctx, "google", "sub-42")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = store.FindByProvider(ctx, "google", "sub-unknown")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("stored copies are isolated", func(t *testing.T) {
		first, err := store.FindByID(ctx, user.ID)
		require.NoError(t, err)
		first.Name = "mutated locally"

		second, err := store.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated locally", second.Name)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, user.ID))
		_, err := store.FindByID(ctx, user.ID)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
		assert.ErrorIs(t, store.Delete(ctx, user.ID), auth.ErrUserNotFound)
	})
}

func TestMemorySessionStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := auth.NewMemorySessionStore()

	userID := uuid.New()
	now := time.Now()
	mkSession := func(hash string, lastActivity time.Time) *auth.Session {
		return &auth.Session{
			ID:             uuid.New(),
			UserID:         userID,
			TokenHash:      hash,
			Device:         "test-agent",
			IP:             "192.0.2.1",
			CreatedAt:      now,
			LastActivityAt: lastActivity,
			ExpiresAt:      now.Add(time.Hour),
		}
	}

	require.NoError(t, store.Create(ctx, mkSession("hash-a", now.Add(-2*time.Minute))))
	require.NoError(t, store.Create(ctx, mkSession("hash-b", now.Add(-1*time.Minute))))
	require.NoError(t, store.Create(ctx, mkSession("hash-c", now)))

	t.Run("find by hash", func(t *testing.T) {
		session, err := store.FindByTokenHash(ctx, "hash-b")
		require.NoError(t, err)
		assert.Equal(t, userID, session.UserID)

		_, err = store.FindByTokenHash(ctx, "hash-missing")
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	t.Run("list is most recent first", func(t *testing.T) {
		sessions, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		assert.Equal(t, "hash-c", sessions[0].TokenHash)
		assert.Equal(t, "hash-a", sessions[2].TokenHash)
	})

	t.Run("touch", func(t *testing.T) {
		later := now.Add(10 * time.Minute)
		require.NoError(t, store.Touch(ctx, "hash-a", later))
		session, err := store.FindByTokenHash(ctx, "hash-a")
		require.NoError(t, err)
		assert.WithinDuration(t, later, session.LastActivityAt, time.Second)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "hash-b"))
		_, err := store.FindByTokenHash(ctx, "hash-b")
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "hash-b"), auth.ErrSessionNotFound)
	})

	t.Run("delete by user", func(t *testing.T) {
		require.NoError(t, store.DeleteByUser(ctx, userID))
		sessions, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("delete expired", func(t *testing.T) {
		stale := mkSession("hash-stale", now)
		stale.ExpiresAt = now.Add(-time.Minute)
		require.NoError(t, store.Create(ctx, stale))
		live := mkSession("hash-live", now)
		require.NoError(t, store.Create(ctx, live))

		require.NoError(t, store.DeleteExpired(ctx))
		_, err := store.FindByTokenHash(ctx, "hash-stale")
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
		_, err = store.FindByTokenHash(ctx, "hash-live")
		assert.NoError(t, err)
	})
}
