package auth

import "errors"

// Credential and session errors.
var (
	ErrUnauthorized       = errors.New("auth: unauthorized")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrSessionNotFound    = errors.New("auth: session not found")
)

// Account errors.
var (
	ErrUserNotFound    = errors.New("auth: user not found")
	ErrEmailTaken      = errors.New("auth: email already in use")
	ErrUsernameTaken   = errors.New("auth: username already taken")
	ErrAccountInactive = errors.New("auth: account is deactivated")
	ErrNoPasswordSet   = errors.New("auth: no password set for account")
)

// Verification and reset errors.
var (
	ErrEmailNotVerified     = errors.New("auth: email not verified")
	ErrEmailAlreadyVerified = errors.New("auth: email already verified")
	ErrInvalidOTP           = errors.New("auth: invalid otp")
	ErrExpiredOTP           = errors.New("auth: expired otp")
	ErrResetNotVerified     = errors.New("auth: reset otp not verified")
	ErrPasswordMismatch     = errors.New("auth: current password is incorrect")
)

// Social identity errors.
var (
	ErrInvalidProviderToken = errors.New("auth: invalid identity provider token")
)
