package rbac

// Role names. Keep these stable; they are part of the login response contract.
const (
	RoleAdmin   = "admin"
	RoleFinance = "finance"
	RoleStaff   = "staff"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsKnownRole reports whether role is one the backend issues.
func IsKnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFinance, RoleStaff:
		return true
	}
	return false
}
