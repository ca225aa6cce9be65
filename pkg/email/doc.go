// Package email defines the outbound mail collaborator and its
// implementations. The identity core composes transactional messages
// (OTP codes, password notifications) and hands them to an
// EmailSender; delivery failures are the caller's policy decision —
// the account flows log and swallow them because notification is never
// the primary effect.
//
// Two senders ship with the package: a Postmark-backed client for
// production and a DevSender that writes messages to disk for local
// development.
package email
