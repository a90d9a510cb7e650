// Package routing maps roles and flows to storefront routes.
package routing

import (
	"strings"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/domain"
)

// Routes
const (
	Home              = "/"
	Login             = "/login"
	Register          = "/register"
	Shop              = "/shop"
	Cart              = "/cart"
	AdminDashboard    = "/dashboard/admin"
	SellerDashboard   = "/dashboard/seller"
	CustomerDashboard = "/dashboard/customer"
)

// Product returns the detail route for a medicine
func Product(id string) string {
	return Shop + "/" + strings.TrimSpace(id)
}

// DashboardRouteFor returns the dashboard route for role.
// Anything other than ADMIN or SELLER lands on the customer dashboard.
func DashboardRouteFor(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return AdminDashboard
	case domain.RoleSeller:
		return SellerDashboard
	default:
		return CustomerDashboard
	}
}

// Navigation asks the caller to move to Route once After has elapsed
type Navigation struct {
	Route string
	After time.Duration
}

// To navigates to route immediately
func To(route string) Navigation {
	return Navigation{Route: route}
}

// IsZero reports whether no navigation was requested
func (n Navigation) IsZero() bool {
	return n.Route == ""
}
