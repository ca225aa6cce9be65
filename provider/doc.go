// Package provider verifies tokens from external identity providers
// and normalizes the identities they assert into a common profile.
//
// Each provider takes an opaque credential obtained by the client
// (an ID token, an OAuth authorization code) and answers with the
// verified identity behind it, or an error when the credential cannot
// be trusted.
package provider
