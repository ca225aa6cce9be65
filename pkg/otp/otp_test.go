package otp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identikit/identikit/pkg/otp"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	for range 50 {
		code, err := otp.Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "non-digit in code %q", code)
		}
	}
}

func TestIssueAndMatch(t *testing.T) {
	t.Parallel()

	code, err := otp.Issue(otp.DefaultTTL)
	require.NoError(t, err)
	require.True(t, code.Outstanding())

	now := time.Now()
	assert.NoError(t, code.Matches(code.Value, now))
	assert.ErrorIs(t, code.Matches("000000", now), otp.ErrCodeMismatch)
}

func TestMatches_Expired(t *testing.T) {
	t.Parallel()

	code, err := otp.Issue(otp.DefaultTTL)
	require.NoError(t, err)

	after := time.Now().Add(otp.DefaultTTL + time.Second)

	// Expiry wins even when the value matches.
	assert.ErrorIs(t, code.Matches(code.Value, after), otp.ErrCodeExpired)
	assert.ErrorIs(t, code.Matches("000000", after), otp.ErrCodeExpired)
}

func TestMatches_NoCode(t *testing.T) {
	t.Parallel()

	var empty otp.Code
	assert.False(t, empty.Outstanding())
	assert.ErrorIs(t, empty.Matches("123456", time.Now()), otp.ErrNoCode)
}

func TestIssue_DefaultTTL(t *testing.T) {
	t.Parallel()

	code, err := otp.Issue(0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(otp.DefaultTTL), code.ExpiresAt, 2*time.Second)
}
