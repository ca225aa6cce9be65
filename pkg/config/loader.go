package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	cache  = make(map[string]any)
	envSrc sync.Once
)

// LoadEnv loads one or more .env files into the process environment
// before any config struct is parsed. Later files override earlier
// ones. Returns an error if any named file cannot be read.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Overload(p); err != nil {
			return fmt.Errorf("config: failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load parses environment variables into v. Each distinct struct type
// is parsed once per process; later calls receive the cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	envSrc.Do(func() {
		// Default .env is optional.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[key] = *v
	return nil
}

// MustLoad is Load but panics on failure. Intended for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	t := reflect.TypeOf(*new(T))
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
