// Package httpserver wraps net/http with graceful shutdown and
// environment-driven timeouts. Run blocks until the context is
// cancelled or an interrupt/TERM signal arrives, then drains in-flight
// requests within the configured shutdown deadline.
package httpserver
