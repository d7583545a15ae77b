package constants

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRoles is the set of allowed account roles.
var ValidRoles = []string{RoleUser, RoleAdmin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
