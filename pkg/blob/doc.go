// Package blob stores opaque byte payloads (avatar images) and
// returns a public URL for each stored object. The identity core
// depends on the Storage interface only; the S3 implementation covers
// AWS and S3-compatible services.
package blob
