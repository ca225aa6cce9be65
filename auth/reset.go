package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/identikit/identikit/pkg/logger"
	"github.com/identikit/identikit/pkg/otp"
	"github.com/identikit/identikit/pkg/passwd"
)

// ForgotPassword starts a password reset by emailing a code to the
// account's address. An unknown address still answers success so the
// endpoint cannot be used to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	code, err := otp.Issue(s.cfg.OTPTTL)
	if err != nil {
		return fmt.Errorf("issue reset code: %w", err)
	}
	user.PasswordReset = code
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.notifier.SendResetOTP(ctx, user.Email, code.Value)
}

// ResendResetOTP replaces the outstanding reset code with a fresh one.
func (s *Service) ResendResetOTP(ctx context.Context, emailAddr string) error {
	return s.ForgotPassword(ctx, emailAddr)
}

// VerifyResetOTP checks the submitted reset code and, on success,
// marks the reset as verified so ResetPassword may proceed. The code
// stays outstanding until the reset completes.
func (s *Service) VerifyResetOTP(ctx context.Context, emailAddr, code string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return err
	}

	if err := user.PasswordReset.Matches(code, s.now()); err != nil {
		return otpError(err)
	}

	user.PasswordReset.Verified = true
	user.UpdatedAt = s.now()
	return s.users.Update(ctx, user)
}

// ResetPassword completes a verified reset: it installs the new
// password, clears the reset state, and revokes every session so
// stolen refresh tokens die with the old password. The confirmation
// email is best effort.
func (s *Service) ResetPassword(ctx context.Context, emailAddr, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return err
	}
	if !user.PasswordReset.Outstanding() || !user.PasswordReset.Verified {
		return ErrResetNotVerified
	}
	if user.PasswordReset.Expired(s.now()) {
		return ErrExpiredOTP
	}

	hash, err := passwd.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.PasswordReset = otp.Code{}
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.log.Error("session revocation after reset failed", logger.Error(err), logger.UserID(user.ID.String()))
		return err
	}

	if err := s.notifier.SendPasswordChanged(ctx, user.Email); err != nil {
		s.log.Warn("password change email not delivered", logger.Error(err), logger.UserID(user.ID.String()))
	}
	return nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the current one. Existing sessions stay alive; the caller
// proved possession of the password, not theft of it.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == "" {
		return ErrNoPasswordSet
	}
	if err := passwd.Compare(user.PasswordHash, current); err != nil {
		return ErrPasswordMismatch
	}

	hash, err := passwd.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordChanged(ctx, user.Email); err != nil {
		s.log.Warn("password change email not delivered", logger.Error(err), logger.UserID(user.ID.String()))
	}
	return nil
}
