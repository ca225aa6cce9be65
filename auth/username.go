package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// ErrUsernameExhausted is returned when no free username variant could
// be found within the retry budget.
var ErrUsernameExhausted = errors.New("auth: could not derive a unique username")

const usernameAttempts = 10

// normalizeUsername derives a username candidate from a display name
// or email local part: lowercase, alphanumeric plus underscore, no
// leading digits stripped.
func normalizeUsername(source string) string {
	if at := strings.IndexByte(source, '@'); at > 0 {
		source = source[:at]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(source) {
		switch {
		case r >= 'a' && r <= 'z', unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '-':
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "user"
	}
	if len(name) > 24 {
		name = name[:24]
	}
	return name
}

// uniqueUsername returns the base name if free, otherwise appends a
// random numeric suffix until a free variant is found or the attempt
// budget runs out.
func uniqueUsername(ctx context.Context, users UserStore, base string) (string, error) {
	candidate := base
	for range usernameAttempts {
		_, err := users.FindByUsername(ctx, candidate)
		if errors.Is(err, ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%04d", base, n.Int64())
	}
	return "", ErrUsernameExhausted
}
