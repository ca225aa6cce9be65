package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/blob"
	"github.com/identikit/identikit/pkg/logger"
	"github.com/identikit/identikit/pkg/otp"
	"github.com/identikit/identikit/pkg/passwd"
	"github.com/identikit/identikit/pkg/roles"
)

// Config holds account service behavior toggles.
type Config struct {
	// VerificationRequired gates login on a verified email address.
	VerificationRequired bool `env:"EMAIL_VERIFICATION_REQUIRED" envDefault:"false"`
	// OTPTTL is the lifetime of verification and reset codes.
	OTPTTL time.Duration `env:"OTP_TTL" envDefault:"10m"`
}

// Service implements account registration, authentication, and
// self-service account management on top of a UserStore and
// SessionStore.
type Service struct {
	users    UserStore
	sessions SessionStore
	issuer   *Issuer
	notifier *Notifier
	avatars  blob.Storage
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithAvatarStorage enables avatar uploads through the given storage.
func WithAvatarStorage(s blob.Storage) ServiceOption {
	return func(svc *Service) { svc.avatars = s }
}

// WithServiceLogger sets the service's logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(svc *Service) { svc.log = log }
}

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// NewService creates an account service.
func NewService(users UserStore, sessions SessionStore, issuer *Issuer, notifier *Notifier, cfg Config, opts ...ServiceOption) *Service {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = otp.DefaultTTL
	}
	svc := &Service{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.NewDiscard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RegisterParams are the inputs for account creation. Username is
// optional; when absent one is derived from the name or email.
type RegisterParams struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates an account with an unverified email. A verification
// code is always stored; it is mailed only when verification is
// required, and delivery failure does not undo the registration. A
// requested username that is already taken gets a unique suffixed
// variant rather than a conflict; only a duplicate email refuses the
// registration.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	now := s.now()

	code, err := otp.Issue(s.cfg.OTPTTL)
	if err != nil {
		return nil, fmt.Errorf("issue verification code: %w", err)
	}

	hash, err := passwd.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	base := normalizeUsername(params.Username)
	if params.Username == "" {
		base = normalizeUsername(params.Name)
		if base == "user" {
			base = normalizeUsername(params.Email)
		}
	}
	username, err := uniqueUsername(ctx, s.users, base)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		Username:     username,
		PasswordHash: hash,
		Name:         params.Name,
		Role:         roles.User,
		Verification: code,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.cfg.VerificationRequired {
		if err := s.notifier.SendVerificationOTP(ctx, user.Email, code.Value); err != nil {
			s.log.Warn("verification email not delivered", logger.Error(err), logger.UserID(user.ID.String()))
		}
	}
	return user, nil
}

// LoginParams are the inputs for direct authentication. Login accepts
// either an email address or a username.
type LoginParams struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login authenticates with a password and issues a token pair. All
// credential failures collapse into ErrInvalidCredentials so the
// response does not reveal which part was wrong.
func (s *Service) Login(ctx context.Context, params LoginParams, client ClientInfo) (*User, TokenPair, error) {
	user, err := s.users.FindByLogin(ctx, strings.ToLower(strings.TrimSpace(params.Login)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}

	if user.PasswordHash == "" {
		return nil, TokenPair{}, ErrNoPasswordSet
	}
	if err := passwd.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, TokenPair{}, ErrAccountInactive
	}
	if s.cfg.VerificationRequired && !user.EmailVerified {
		return nil, TokenPair{}, ErrEmailNotVerified
	}

	pair, err := s.issuer.IssuePair(ctx, user, client)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Logout revokes the session behind the given refresh token. Revoking
// an already-gone session is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.sessions.Delete(ctx, HashToken(refreshToken))
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

// LogoutAll revokes every session of the user.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

// Sessions lists the user's live sessions, most recently active first.
func (s *Service) Sessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// Me returns the user's profile projection.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// UpdateProfileParams are the mutable profile fields. Nil fields are
// left unchanged.
type UpdateProfileParams struct {
	Name *string `json:"name"`
}

// UpdateProfile applies partial profile changes.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if params.Name != nil {
		user.Name = *params.Name
	}
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// UpdateAvatar stores the image and points the profile at it.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (Profile, error) {
	if s.avatars == nil {
		return Profile{}, errors.New("auth: avatar storage not configured")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	key := fmt.Sprintf("avatars/%s", user.ID)
	url, err := s.avatars.Store(ctx, data, key, contentType)
	if err != nil {
		return Profile{}, err
	}

	user.AvatarURL = url
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// CheckUsername reports whether the username is free to claim by the
// given user. A username the user already owns counts as available.
func (s *Service) CheckUsername(ctx context.Context, userID uuid.UUID, username string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	owner, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return owner.ID == userID, nil
}

// UpdateUsername claims a new username for the user.
func (s *Service) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) (Profile, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	available, err := s.CheckUsername(ctx, userID, username)
	if err != nil {
		return Profile{}, err
	}
	if !available {
		return Profile{}, ErrUsernameTaken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	user.Username = username
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// ForgotUsername emails the account's username to its address. The
// response never reveals whether the address exists.
func (s *Service) ForgotUsername(ctx context.Context, emailAddr string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	return s.notifier.SendUsernameReminder(ctx, user.Email, user.Username)
}
