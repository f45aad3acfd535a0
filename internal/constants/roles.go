package constants

const (
	Admin            = "admin"
	BaseCommander    = "base_commander"
	LogisticsOfficer = "logistics_officer"
)

// ValidRoles is the set of allowed values for Users.role.
var ValidRoles = []string{Admin, BaseCommander, LogisticsOfficer}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
