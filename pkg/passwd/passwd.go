// Package passwd provides password hashing and generation primitives.
// Hashing uses bcrypt; generated passwords back social-login accounts
// that were created without a user-chosen password.
package passwd

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Compare when the password does not match
// the stored hash.
var ErrMismatch = errors.New("passwd: password mismatch")

// Hash derives a bcrypt hash from the plaintext password.
func Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("passwd: failed to hash password: %w", err)
	}
	return string(h), nil
}

// Compare checks plaintext against a stored bcrypt hash.
func Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatch
	}
	return nil
}

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	generatedLength = 16
)

// Generate returns a cryptographically random password containing at
// least one character from each class.
func Generate() (string, error) {
	all := upperChars + lowerChars + digitChars + specialChars

	chars := make([]byte, 0, generatedLength)
	for _, class := range []string{upperChars, lowerChars, digitChars, specialChars} {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < generatedLength {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Shuffle so required-class characters are not positionally fixed.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("passwd: failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}
