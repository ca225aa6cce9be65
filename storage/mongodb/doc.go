// Package mongodb persists accounts and sessions in MongoDB.
//
// Configuration is entirely environment-driven: set MONGODB_URL and
// the stores connect with retry logic suited to managed deployments
// where the database may briefly be unreachable during failover.
// EnsureIndexes must be called once at startup so the uniqueness
// guarantees the stores rely on actually hold.
package mongodb
