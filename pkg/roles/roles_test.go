package roles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/identikit/identikit/pkg/roles"
)

func TestParse(t *testing.T) {
	t.Parallel()

	assert.Equal(t, roles.Admin, roles.Parse("ADMIN"))
	assert.Equal(t, roles.SuperAdmin, roles.Parse("SUPERADMIN"))
	assert.Equal(t, roles.User, roles.Parse("USER"))

	// Unknown values degrade to the least privileged role.
	assert.Equal(t, roles.User, roles.Parse("root"))
	assert.Equal(t, roles.User, roles.Parse(""))
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		required []roles.Role
		actual   roles.Role
		want     bool
	}{
		{"empty set allows any valid role", nil, roles.User, true},
		{"exact match", []roles.Role{roles.Admin}, roles.Admin, true},
		{"member of set", []roles.Role{roles.Admin, roles.SuperAdmin}, roles.SuperAdmin, true},
		{"not a member", []roles.Role{roles.Admin, roles.SuperAdmin}, roles.User, false},
		{"invalid actual role always denied", nil, roles.Role("root"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, roles.Allowed(tt.required, tt.actual))
		})
	}
}
