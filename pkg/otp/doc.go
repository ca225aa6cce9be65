// Package otp implements one-time numeric codes with a fixed validity
// window. Codes are 6 digits, uniformly random, and single-use: the
// account service clears a code on successful verification, and
// issuing a new code of the same purpose overwrites any outstanding
// one, so only the most recent code is ever redeemable.
//
// A Code optionally carries a Verified gate. The password-reset flow
// flips the gate on successful verification instead of clearing the
// code, so the subsequent reset step can require a prior OTP match
// without accepting a second code submission.
package otp
