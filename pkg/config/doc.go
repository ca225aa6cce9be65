// Package config loads typed configuration structs from environment
// variables.
//
// Every component of identikit declares its own Config struct with
// `env` field tags and receives the parsed value at construction time;
// nothing reads the environment at call time. The loader parses each
// struct type at most once per process and returns the cached value on
// subsequent calls, so independent components can load the same config
// without coordinating.
//
//	type Config struct {
//		Secret    string        `env:"JWT_SECRET,required"`
//		AccessTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// A .env file in the working directory is applied once before the
// first parse; missing files are ignored.
package config
