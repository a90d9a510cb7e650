package mockapi

import (
	"fmt"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
)

// DemoPassword is the password of every seeded account
const DemoPassword = "password123"

// Demo account emails
const (
	DemoAdminEmail    = "admin@medistore.test"
	DemoSellerEmail   = "seller@medistore.test"
	DemoCustomerEmail = "customer@medistore.test"
)

// Seed loads demo accounts, categories and a small catalog
func Seed(d *Data) error {
	var seller *domain.User
	for _, req := range []dto.RegisterRequest{
		{Name: "Admin", Email: DemoAdminEmail, Password: DemoPassword, Role: domain.RoleAdmin},
		{Name: "Square Pharma", Email: DemoSellerEmail, Password: DemoPassword, Role: domain.RoleSeller},
		{Name: "Rahim", Email: DemoCustomerEmail, Password: DemoPassword, Role: domain.RoleCustomer},
	} {
		u, err := d.Register(req)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", req.Email, err)
		}
		if u.Role == domain.RoleSeller {
			seller = u
		}
	}

	painRelief := d.AddCategory("Pain Relief")
	vitamins := d.AddCategory("Vitamins")
	antibiotics := d.AddCategory("Antibiotics")

	for _, req := range []dto.MedicineRequest{
		{Name: "Napa Extra", Description: "Paracetamol 500mg + Caffeine", Price: 2.5, Stock: 500, Manufacturer: "Beximco", ExpiryDate: "2027-06-30", CategoryID: painRelief.ID},
		{Name: "Ace Plus", Description: "Paracetamol 500mg", Price: 1.8, Stock: 300, Manufacturer: "Square", ExpiryDate: "2027-01-31", CategoryID: painRelief.ID},
		{Name: "Ceevit", Description: "Vitamin C 250mg chewable", Price: 3, Stock: 200, Manufacturer: "Square", ExpiryDate: "2026-12-31", CategoryID: vitamins.ID},
		{Name: "Azithrocin", Description: "Azithromycin 500mg", Price: 12, Stock: 40, Manufacturer: "Beximco", ExpiryDate: "2026-11-30", CategoryID: antibiotics.ID},
	} {
		if _, err := d.SaveMedicine(seller.ID, "", req); err != nil {
			return fmt.Errorf("failed to seed %s: %w", req.Name, err)
		}
	}
	return nil
}
