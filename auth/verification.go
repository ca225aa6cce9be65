package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/identikit/identikit/pkg/otp"
)

// VerifyEmail confirms ownership of the address with the submitted
// code. A successful verification consumes the code.
func (s *Service) VerifyEmail(ctx context.Context, emailAddr, code string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	if err := user.Verification.Matches(code, s.now()); err != nil {
		return otpError(err)
	}

	user.EmailVerified = true
	user.Verification = otp.Code{}
	user.UpdatedAt = s.now()
	return s.users.Update(ctx, user)
}

// ResendVerificationOTP issues a fresh verification code, replacing
// any outstanding one. Delivery failure is surfaced since the email is
// the whole point of the call.
func (s *Service) ResendVerificationOTP(ctx context.Context, emailAddr string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	code, err := otp.Issue(s.cfg.OTPTTL)
	if err != nil {
		return fmt.Errorf("issue verification code: %w", err)
	}
	user.Verification = code
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.notifier.SendVerificationOTP(ctx, user.Email, code.Value)
}

// otpError maps code validation failures onto the service's error
// taxonomy.
func otpError(err error) error {
	switch {
	case errors.Is(err, otp.ErrCodeExpired):
		return ErrExpiredOTP
	case errors.Is(err, otp.ErrNoCode), errors.Is(err, otp.ErrCodeMismatch):
		return ErrInvalidOTP
	default:
		return err
	}
}
