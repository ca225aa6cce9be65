package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/identikit/identikit/auth"
	"github.com/identikit/identikit/pkg/otp"
	"github.com/identikit/identikit/pkg/roles"
)

const usersCollection = "users"

// userDoc is the persisted shape of auth.User. UUIDs are stored as
// canonical strings so documents stay readable in shell queries.
type userDoc struct {
	ID            string            `bson:"_id"`
	Email         string            `bson:"email"`
	Username      string            `bson:"username,omitempty"`
	PasswordHash  string            `bson:"password_hash,omitempty"`
	Name          string            `bson:"name"`
	AvatarURL     string            `bson:"avatar_url,omitempty"`
	Role          string            `bson:"role"`
	EmailVerified bool              `bson:"email_verified"`
	ProviderIDs   map[string]string `bson:"provider_ids,omitempty"`
	Verification  otp.Code          `bson:"verification"`
	PasswordReset otp.Code          `bson:"password_reset"`
	Active        bool              `bson:"active"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
}

func toUserDoc(u *auth.User) userDoc {
	return userDoc{
		ID:            u.ID.String(),
		Email:         u.Email,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		ProviderIDs:   u.ProviderIDs,
		Verification:  u.Verification,
		PasswordReset: u.PasswordReset,
		Active:        u.Active,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (d userDoc) toUser() (*auth.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("mongodb: malformed user id %q: %w", d.ID, err)
	}
	return &auth.User{
		ID:            id,
		Email:         d.Email,
		Username:      d.Username,
		PasswordHash:  d.PasswordHash,
		Name:          d.Name,
		AvatarURL:     d.AvatarURL,
		Role:          roles.Parse(d.Role),
		EmailVerified: d.EmailVerified,
		ProviderIDs:   d.ProviderIDs,
		Verification:  d.Verification,
		PasswordReset: d.PasswordReset,
		Active:        d.Active,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

// UserStore persists accounts in the users collection.
type UserStore struct {
	col *mongo.Collection
}

var _ auth.UserStore = (*UserStore)(nil)

// NewUserStore creates a user store on the given database.
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique and lookup indexes the store
// depends on. Call once at startup.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "username", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
		{
			Keys:    bson.D{{Key: "provider_ids", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongodb: create user indexes: %w", err)
	}
	return nil
}

// Create implements auth.UserStore.
func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	_, err := s.col.InsertOne(ctx, toUserDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUserError(err)
		}
		return fmt.Errorf("mongodb: insert user: %w", err)
	}
	return nil
}

// FindByID implements auth.UserStore.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

// FindByEmail implements auth.UserStore.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByUsername implements auth.UserStore.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

// FindByLogin implements auth.UserStore.
func (s *UserStore) FindByLogin(ctx context.Context, login string) (*auth.User, error) {
	return s.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: login}},
		bson.D{{Key: "username", Value: login}},
	}}})
}

// FindByProvider implements auth.UserStore.
func (s *UserStore) FindByProvider(ctx context.Context, provider, externalID string) (*auth.User, error) {
	return s.findOne(ctx, bson.D{{Key: "provider_ids." + provider, Value: externalID}})
}

// Update implements auth.UserStore.
func (s *UserStore) Update(ctx context.Context, user *auth.User) error {
	res, err := s.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: user.ID.String()}}, toUserDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUserError(err)
		}
		return fmt.Errorf("mongodb: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// Delete implements auth.UserStore.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("mongodb: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.D) (*auth.User, error) {
	var doc userDoc
	if err := s.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("mongodb: find user: %w", err)
	}
	return doc.toUser()
}

// duplicateUserError maps a duplicate key violation to the conflicting
// field's sentinel. The index name appears in the driver's error text.
func duplicateUserError(err error) error {
	var we mongo.WriteException
	msg := err.Error()
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		msg = we.WriteErrors[0].Message
	}
	if strings.Contains(msg, "username") {
		return auth.ErrUsernameTaken
	}
	return auth.ErrEmailTaken
}
