// Package auth is the identity and session core: password and social
// authentication, dual-token verification with silent rotation, OTP
// flows for email verification and password reset, and session
// lifecycle management.
//
// The package depends on storage through the UserStore and
// SessionStore interfaces and on collaborators through the
// email.EmailSender, blob.Storage, and provider interfaces, so every
// flow can be exercised against the in-memory store.
//
// The central piece is the Guard: a per-request state machine that
// derives an authorization Decision from the independent validity of
// the presented access and refresh credentials, minting replacements
// through the Issuer when exactly one of them has gone stale. The
// HTTP boundary (package httpapi) applies the Decision's side effects;
// the Guard itself never touches a response.
package auth
