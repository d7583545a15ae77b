package constants

const (
	ViewMarket     = "view_market"
	Trade          = "trade"
	TriggerSync    = "trigger_sync"
	ManageAccounts = "manage_accounts"
	EditQuotes     = "edit_quotes"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewMarket:     {RoleUser, RoleAdmin},
	Trade:          {RoleUser, RoleAdmin},
	TriggerSync:    {RoleUser, RoleAdmin},
	ManageAccounts: {RoleAdmin},
	EditQuotes:     {RoleAdmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
