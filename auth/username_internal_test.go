package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Jane Doe", want: "jane_doe"},
		{in: "jane.doe@example.com", want: "jane_doe"},
		{in: "JANE-DOE", want: "jane_doe"},
		{in: "__jane__", want: "jane"},
		{in: "Løvborg Ångström", want: "lvborg_ngstrm"},
		{in: "@@@", want: "user"},
		{in: "", want: "user"},
		{in: "a_really_long_display_name_that_keeps_going", want: "a_really_long_display_na"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeUsername(tt.in), "input %q", tt.in)
	}
}
