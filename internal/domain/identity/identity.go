// Package identity describes who is calling: the actor id and role handed
// over by the authentication layer.
package identity

import (
	"strings"
)

// Role is an opaque upstream role name.
type Role string

const (
	RoleAuthor    Role = "AUTHOR"
	RoleReviewer  Role = "REVIEWER"
	RoleDesigner  Role = "DESIGNER"
	RoleEditor    Role = "EDITOR"
	RolePublisher Role = "PUBLISHER"
	RoleAdmin     Role = "ADMIN"
	RoleReader    Role = "READER"
)

// AllRoles lists every known role.
var AllRoles = []Role{
	RoleAuthor,
	RoleReviewer,
	RoleDesigner,
	RoleEditor,
	RolePublisher,
	RoleAdmin,
	RoleReader,
}

// ParseRole is case-insensitive and rejects unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller. IP and UserAgent are request metadata
// recorded in audit trails.
type Actor struct {
	ID        uint
	Role      Role
	IP        string
	UserAgent string
}

// IsZero reports a missing identity.
func (a Actor) IsZero() bool {
	return a.ID == 0 || a.Role == ""
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
