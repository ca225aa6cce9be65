// Package redis persists sessions in Redis, keyed by refresh token
// hash with a TTL matching the session's own expiry. A per-user set
// tracks each account's live sessions so bulk revocation stays a
// single round trip per session.
//
// Use this store when session churn is high and the durability of a
// document database is not needed for the session records themselves.
package redis
