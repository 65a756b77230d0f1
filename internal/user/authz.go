package user

// Authorization evaluator. Pure functions of the already-loaded role; no
// data-store access happens here, and every predicate fails closed when the
// role is absent. The HTTP middleware and the /roles/check display endpoint
// both go through these, so route gating and UI affordances cannot drift.

// HasPermission reports whether a role carries a permission. SUPER_ADMIN
// passes unconditionally; everything else is an exact, case-sensitive match
// against the role's permission set.
func HasPermission(role *Role, permission Permission) bool {
	if role == nil {
		return false
	}
	if role.Name == RoleSuperAdmin {
		return true
	}
	for _, perm := range role.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

// HasMinimumRole reports whether a role sits at or above the required tier
// in the fixed ordering NONE < USER < ADMIN < SUPER_ADMIN.
func HasMinimumRole(role *Role, required RoleName) bool {
	if role == nil {
		return false
	}
	return role.Name.Rank() >= required.Rank()
}

func IsAdmin(role *Role) bool {
	if role == nil {
		return false
	}
	return role.Name == RoleAdmin || role.Name == RoleSuperAdmin
}

func IsSuperAdmin(role *Role) bool {
	return role != nil && role.Name == RoleSuperAdmin
}

// CanManageChannels is the gate for channel CRUD and reordering.
func CanManageChannels(role *Role) bool {
	if IsSuperAdmin(role) {
		return true
	}
	return HasPermission(role, PermissionManageChannels)
}
