// Package logger builds slog loggers with identikit conventions.
//
// Production services log JSON to stdout; development setups use the
// text handler at debug level. Attr helpers keep field names uniform
// across components so log aggregation can rely on them.
package logger
