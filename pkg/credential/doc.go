// Package credential signs and verifies the two JWT credentials that
// drive the session lifecycle: a short-lived access token and a
// long-lived refresh token. Both carry the same minimal claim set
// (id, email, name, role) to bound the blast radius of a leaked token.
//
// Verify checks signature and expiry and folds every failure mode,
// including malformed input, into ErrInvalidToken. Decode extracts
// claims without a signature check and exists only for flows that have
// already verified the token and need the claims again.
package credential
