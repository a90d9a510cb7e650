package routing

import (
	"testing"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDashboardRouteFor(t *testing.T) {
	tests := []struct {
		name string
		role domain.Role
		want string
	}{
		{"admin", domain.RoleAdmin, AdminDashboard},
		{"seller", domain.RoleSeller, SellerDashboard},
		{"customer", domain.RoleCustomer, CustomerDashboard},
		{"absent", "", CustomerDashboard},
		{"unknown", "PHARMACIST", CustomerDashboard},
		{"lowercase is not trusted", "seller", CustomerDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DashboardRouteFor(tt.role))
		})
	}
}

func TestProduct(t *testing.T) {
	assert.Equal(t, "/shop/m-42", Product("m-42"))
}

func TestNavigation(t *testing.T) {
	assert.True(t, Navigation{}.IsZero())
	assert.False(t, To(Login).IsZero())
	assert.Equal(t, Login, To(Login).Route)
}
