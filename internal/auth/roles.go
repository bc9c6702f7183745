package auth

// Operator role constants.
const (
	RoleViewer     = "viewer"
	RoleReconciler = "reconciler"
	RoleSuperAdmin = "superadmin"
)

// AllOperatorRoles returns all valid operator roles.
func AllOperatorRoles() []string {
	return []string{RoleViewer, RoleReconciler, RoleSuperAdmin}
}

// ResolveRoles returns roles that can close reconciliation items.
func ResolveRoles() []string {
	return []string{RoleReconciler, RoleSuperAdmin}
}

func validRole(role string) bool {
	for _, r := range AllOperatorRoles() {
		if r == role {
			return true
		}
	}
	return false
}
