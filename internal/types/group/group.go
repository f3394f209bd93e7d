package group

// Role is a user's role inside a single group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleNone   Role = ""
)

// IsAdmin reports whether the role can administer the group.
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// IsMember reports whether the role grants membership at all.
func (r Role) IsMember() bool {
	return r != RoleNone
}

// GlobalRole is a user's platform-wide role.
type GlobalRole string

const (
	GlobalAdmin GlobalRole = "admin"
	GlobalUser  GlobalRole = "user"
)
