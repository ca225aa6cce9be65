package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/otp"
	"github.com/identikit/identikit/pkg/roles"
)

// User is the identity record. PasswordHash may be empty only
// transiently: social signups receive a generated password at
// creation. OTP state is embedded per purpose, so at most one
// unexpired code of each kind exists per user.
type User struct {
	ID            uuid.UUID         `bson:"_id" json:"id"`
	Email         string            `bson:"email" json:"email"`
	Username      string            `bson:"username,omitempty" json:"username,omitempty"`
	PasswordHash  string            `bson:"password_hash,omitempty" json:"-"`
	Name          string            `bson:"name" json:"name"`
	AvatarURL     string            `bson:"avatar_url,omitempty" json:"avatar,omitempty"`
	Role          roles.Role        `bson:"role" json:"role"`
	EmailVerified bool              `bson:"email_verified" json:"emailVerified"`
	ProviderIDs   map[string]string `bson:"provider_ids,omitempty" json:"-"`
	Verification  otp.Code          `bson:"verification" json:"-"`
	PasswordReset otp.Code          `bson:"password_reset" json:"-"`
	Active        bool              `bson:"active" json:"isActive"`
	CreatedAt     time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updatedAt"`
}

// ProviderID returns the stored external id for a provider, if any.
func (u *User) ProviderID(provider string) string {
	if u.ProviderIDs == nil {
		return ""
	}
	return u.ProviderIDs[provider]
}

// SetProviderID links an external identity to the account.
func (u *User) SetProviderID(provider, externalID string) {
	if u.ProviderIDs == nil {
		u.ProviderIDs = make(map[string]string, 1)
	}
	u.ProviderIDs[provider] = externalID
}

// Profile is the externally visible projection of a User. It never
// carries the password hash or OTP state.
type Profile struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username,omitempty"`
	Name          string     `json:"name"`
	AvatarURL     string     `json:"avatar,omitempty"`
	Role          roles.Role `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Active        bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Profile returns the sanitized projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// Session is the durable, revocable counterpart to an issued refresh
// token. Only the token's SHA-256 hash is stored.
type Session struct {
	ID             uuid.UUID `bson:"_id" json:"id"`
	UserID         uuid.UUID `bson:"user_id" json:"-"`
	TokenHash      string    `bson:"token_hash" json:"-"`
	Device         string    `bson:"device,omitempty" json:"deviceInfo,omitempty"`
	IP             string    `bson:"ip,omitempty" json:"ipAddress,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	LastActivityAt time.Time `bson:"last_activity_at" json:"lastActivity"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expiresAt"`
}

// Expired reports whether the session's grant has lapsed at the given
// instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClientInfo describes the device and origin of a request, recorded on
// the session created for it.
type ClientInfo struct {
	Device string
	IP     string
}

// TokenPair is the signed access/refresh credential pair. It is never
// persisted; the server keeps only the refresh token's session record.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// HashToken derives the storage key for a refresh token. Sessions
// store this hash so a leaked session record cannot be replayed as a
// credential.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
