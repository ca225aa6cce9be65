// Package roles defines the account role hierarchy and the capability
// check used to gate privileged operations. The check takes the set of
// acceptable roles and the caller's actual role; it never inspects a
// request object.
package roles

// Role identifies an account's privilege level.
type Role string

const (
	User       Role = "USER"
	Admin      Role = "ADMIN"
	SuperAdmin Role = "SUPERADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case User, Admin, SuperAdmin:
		return true
	}
	return false
}

// String returns the role's wire representation.
func (r Role) String() string { return string(r) }

// Parse maps a wire value to a Role, defaulting unknown values to User
// so a corrupted claim can never grant elevated access.
func Parse(s string) Role {
	r := Role(s)
	if !r.Valid() {
		return User
	}
	return r
}

// Allowed reports whether actual satisfies the required role set. An
// empty required set allows any valid role.
func Allowed(required []Role, actual Role) bool {
	if !actual.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == actual {
			return true
		}
	}
	return false
}
