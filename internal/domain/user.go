package domain

import "strings"

// Role represents the role carried by an authenticated user
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalizes a role string. Unknown or empty values become RoleCustomer.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSeller:
		return RoleSeller
	default:
		return RoleCustomer
	}
}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleSeller || r == RoleAdmin
}

// User represents the cached profile of an authenticated user
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsBanned bool   `json:"isBanned,omitempty"`
}
