// Package httpapi exposes the identity service over HTTP.
//
// The package is a thin boundary: handlers decode requests, call the
// auth services, and encode {success, message} envelopes. All
// credential mechanics live in the guard middleware, which runs the
// verification state machine per request and applies its decision to
// the response (rotation headers, cookies, or a 401 with cleared
// cookies).
package httpapi
