package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/identikit/identikit/auth"
)

const (
	sessionKeyPrefix = "session:"
	userSetPrefix    = "user_sessions:"
)

func sessionKey(hash string) string { return sessionKeyPrefix + hash }

func userSetKey(userID uuid.UUID) string { return userSetPrefix + userID.String() }

// sessionDoc is the stored shape of auth.Session. The domain type's
// JSON tags are shaped for API responses and omit server-only fields,
// so storage uses its own encoding.
type sessionDoc struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	TokenHash      string    `json:"token_hash"`
	Device         string    `json:"device,omitempty"`
	IP             string    `json:"ip,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toSessionDoc(s *auth.Session) sessionDoc {
	return sessionDoc{
		ID:             s.ID,
		UserID:         s.UserID,
		TokenHash:      s.TokenHash,
		Device:         s.Device,
		IP:             s.IP,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

func (d sessionDoc) toSession() *auth.Session {
	return &auth.Session{
		ID:             d.ID,
		UserID:         d.UserID,
		TokenHash:      d.TokenHash,
		Device:         d.Device,
		IP:             d.IP,
		CreatedAt:      d.CreatedAt,
		LastActivityAt: d.LastActivityAt,
		ExpiresAt:      d.ExpiresAt,
	}
}

// SessionStore keeps sessions in Redis. Each session lives under its
// token hash with a TTL equal to the remaining session lifetime, and
// its hash is tracked in a set under the owning user.
type SessionStore struct {
	client redis.UniversalClient
}

var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store on the given client.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// Create implements auth.SessionStore.
func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis: refusing to store already expired session %s", session.ID)
	}

	payload, err := json.Marshal(toSessionDoc(session))
	if err != nil {
		return fmt.Errorf("redis: marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.TokenHash), payload, ttl)
	pipe.SAdd(ctx, userSetKey(session.UserID), session.TokenHash)
	// The set must outlive its longest member; expiry is refreshed on
	// every create so an idle set still disappears eventually.
	pipe.Expire(ctx, userSetKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store session: %w", err)
	}
	return nil
}

// FindByTokenHash implements auth.SessionStore.
func (s *SessionStore) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis: get session: %w", err)
	}

	var doc sessionDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("redis: unmarshal session: %w", err)
	}
	return doc.toSession(), nil
}

// Touch implements auth.SessionStore.
func (s *SessionStore) Touch(ctx context.Context, hash string, at time.Time) error {
	session, err := s.FindByTokenHash(ctx, hash)
	if err != nil {
		return err
	}
	session.LastActivityAt = at

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return auth.ErrSessionNotFound
	}
	payload, err := json.Marshal(toSessionDoc(session))
	if err != nil {
		return fmt.Errorf("redis: marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(hash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: touch session: %w", err)
	}
	return nil
}

// Delete implements auth.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, hash string) error {
	session, err := s.FindByTokenHash(ctx, hash)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(hash))
	pipe.SRem(ctx, userSetKey(session.UserID), hash)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// DeleteByUser implements auth.SessionStore.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	hashes, err := s.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis: list user sessions: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, sessionKey(hash))
	}
	pipe.Del(ctx, userSetKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete user sessions: %w", err)
	}
	return nil
}

// ListByUser implements auth.SessionStore.
func (s *SessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]auth.Session, error) {
	hashes, err := s.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list user sessions: %w", err)
	}

	var sessions []auth.Session
	var stale []any
	for _, hash := range hashes {
		session, err := s.FindByTokenHash(ctx, hash)
		if errors.Is(err, auth.ErrSessionNotFound) {
			// Redis already expired the record; drop the set entry.
			stale = append(stale, hash)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, userSetKey(userID), stale...).Err()
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	return sessions, nil
}

// DeleteExpired implements auth.SessionStore. Session keys carry their
// own TTL so Redis reaps them; stale set entries are reconciled lazily
// by ListByUser.
func (s *SessionStore) DeleteExpired(ctx context.Context) error {
	return nil
}
