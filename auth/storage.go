package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore persists identity records. Implementations return
// ErrUserNotFound on a miss and ErrEmailTaken / ErrUsernameTaken when
// a uniqueness constraint is violated on Create or Update.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindByLogin matches the value against email first, then
	// username.
	FindByLogin(ctx context.Context, login string) (*User, error)
	// FindByProvider matches a stored external identity id.
	FindByProvider(ctx context.Context, provider, externalID string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists refresh grants keyed by token hash.
// Implementations return ErrSessionNotFound on a miss; Delete of an
// absent record also returns ErrSessionNotFound so rotation can tell
// "already retired by a concurrent request" from a store failure.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
	// Touch updates the session's last-activity time.
	Touch(ctx context.Context, hash string, at time.Time) error
	Delete(ctx context.Context, hash string) error
	// DeleteByUser revokes every session of the user.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	DeleteExpired(ctx context.Context) error
}
