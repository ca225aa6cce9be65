package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/identikit/identikit/auth"
)

const sessionsCollection = "sessions"

type sessionDoc struct {
	ID             string    `bson:"_id"`
	UserID         string    `bson:"user_id"`
	TokenHash      string    `bson:"token_hash"`
	Device         string    `bson:"device,omitempty"`
	IP             string    `bson:"ip,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	LastActivityAt time.Time `bson:"last_activity_at"`
	ExpiresAt      time.Time `bson:"expires_at"`
}

func toSessionDoc(s *auth.Session) sessionDoc {
	return sessionDoc{
		ID:             s.ID.String(),
		UserID:         s.UserID.String(),
		TokenHash:      s.TokenHash,
		Device:         s.Device,
		IP:             s.IP,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

func (d sessionDoc) toSession() (*auth.Session, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("mongodb: malformed session id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("mongodb: malformed session user id %q: %w", d.UserID, err)
	}
	return &auth.Session{
		ID:             id,
		UserID:         userID,
		TokenHash:      d.TokenHash,
		Device:         d.Device,
		IP:             d.IP,
		CreatedAt:      d.CreatedAt,
		LastActivityAt: d.LastActivityAt,
		ExpiresAt:      d.ExpiresAt,
	}, nil
}

// SessionStore persists sessions in the sessions collection. A TTL
// index reaps expired documents so DeleteExpired is rarely needed, but
// it remains available for immediate cleanup.
type SessionStore struct {
	col *mongo.Collection
}

var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store on the given database.
func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{col: db.Collection(sessionsCollection)}
}

// EnsureIndexes creates lookup and TTL indexes. Call once at startup.
func (s *SessionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("mongodb: create session indexes: %w", err)
	}
	return nil
}

// Create implements auth.SessionStore.
func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	if _, err := s.col.InsertOne(ctx, toSessionDoc(session)); err != nil {
		return fmt.Errorf("mongodb: insert session: %w", err)
	}
	return nil
}

// FindByTokenHash implements auth.SessionStore.
func (s *SessionStore) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	var doc sessionDoc
	err := s.col.FindOne(ctx, bson.D{{Key: "token_hash", Value: hash}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("mongodb: find session: %w", err)
	}
	return doc.toSession()
}

// Touch implements auth.SessionStore.
func (s *SessionStore) Touch(ctx context.Context, hash string, at time.Time) error {
	res, err := s.col.UpdateOne(ctx,
		bson.D{{Key: "token_hash", Value: hash}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_activity_at", Value: at}}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: touch session: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// Delete implements auth.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, hash string) error {
	res, err := s.col.DeleteOne(ctx, bson.D{{Key: "token_hash", Value: hash}})
	if err != nil {
		return fmt.Errorf("mongodb: delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// DeleteByUser implements auth.SessionStore.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.col.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID.String()}}); err != nil {
		return fmt.Errorf("mongodb: delete user sessions: %w", err)
	}
	return nil
}

// ListByUser implements auth.SessionStore.
func (s *SessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]auth.Session, error) {
	cursor, err := s.col.Find(ctx,
		bson.D{{Key: "user_id", Value: userID.String()}},
		options.Find().SetSort(bson.D{{Key: "last_activity_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongodb: list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []auth.Session
	for cursor.Next(ctx) {
		var doc sessionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongodb: decode session: %w", err)
		}
		session, err := doc.toSession()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb: iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpired implements auth.SessionStore.
func (s *SessionStore) DeleteExpired(ctx context.Context) error {
	filter := bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: time.Now()}}}}
	if _, err := s.col.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mongodb: delete expired sessions: %w", err)
	}
	return nil
}
