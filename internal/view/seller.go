package view

import (
	"context"
	"errors"
	"strings"

	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/orders"
	"github.com/niloyhakimai/medistore-client/internal/routing"
)

// ErrIncompleteMedicine is returned when the inventory form is missing fields
var ErrIncompleteMedicine = errors.New("medicine name, price and stock are required")

// SellerBackend is the inventory side of the storefront API
type SellerBackend interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	SellerMedicines(ctx context.Context) ([]domain.Medicine, error)
	CreateMedicine(ctx context.Context, req dto.MedicineRequest) (*domain.Medicine, error)
	UpdateMedicine(ctx context.Context, id string, req dto.MedicineRequest) (*domain.Medicine, error)
	DeleteMedicine(ctx context.Context, id string) error
}

// SellerDashboard manages inventory and fulfils incoming orders
type SellerDashboard struct {
	sessions Sessions
	backend  SellerBackend
	actions  *orders.Actions
	notifier notify.Notifier
}

// NewSellerDashboard creates a SellerDashboard
func NewSellerDashboard(sessions Sessions, backend SellerBackend, actions *orders.Actions, n notify.Notifier) *SellerDashboard {
	return &SellerDashboard{sessions: sessions, backend: backend, actions: actions, notifier: n}
}

// Mount checks the session belongs to a seller
func (d *SellerDashboard) Mount(ctx context.Context) (routing.Navigation, bool) {
	_, nav, ok := guard(ctx, d.sessions, domain.RoleSeller)
	return nav, ok
}

// Categories feeds the category picker
func (d *SellerDashboard) Categories(ctx context.Context) ([]domain.Category, error) {
	return d.backend.ListCategories(ctx)
}

// Inventory lists the seller's medicines
func (d *SellerDashboard) Inventory(ctx context.Context) ([]domain.Medicine, error) {
	meds, err := d.backend.SellerMedicines(ctx)
	if err != nil {
		d.notifier.Error(apiclient.Message(err, "Failed to load inventory"))
		return nil, err
	}
	return meds, nil
}

func validMedicine(req dto.MedicineRequest) bool {
	return strings.TrimSpace(req.Name) != "" && req.Price >= 0 && req.Stock >= 0
}

// AddMedicine creates a product
func (d *SellerDashboard) AddMedicine(ctx context.Context, req dto.MedicineRequest) (*domain.Medicine, error) {
	if !validMedicine(req) {
		d.notifier.Error("Failed to add medicine")
		return nil, ErrIncompleteMedicine
	}
	m, err := d.backend.CreateMedicine(ctx, req)
	if err != nil {
		d.notifier.Error(apiclient.Message(err, "Failed to add medicine"))
		return nil, err
	}
	d.notifier.Success("Medicine Added Successfully! 💊")
	return m, nil
}

// UpdateMedicine replaces a product
func (d *SellerDashboard) UpdateMedicine(ctx context.Context, id string, req dto.MedicineRequest) (*domain.Medicine, error) {
	if !validMedicine(req) {
		d.notifier.Error("Failed to update medicine")
		return nil, ErrIncompleteMedicine
	}
	m, err := d.backend.UpdateMedicine(ctx, id, req)
	if err != nil {
		d.notifier.Error(apiclient.Message(err, "Failed to update medicine"))
		return nil, err
	}
	d.notifier.Success("Medicine updated")
	return m, nil
}

// DeleteMedicine removes a product
func (d *SellerDashboard) DeleteMedicine(ctx context.Context, id string) error {
	if err := d.backend.DeleteMedicine(ctx, id); err != nil {
		d.notifier.Error(apiclient.Message(err, "Failed to delete medicine"))
		return err
	}
	d.notifier.Success("Medicine deleted")
	return nil
}

// Orders lists incoming orders
func (d *SellerDashboard) Orders(ctx context.Context) ([]domain.Order, error) {
	return d.actions.SellerOrders(ctx)
}

// UpdateOrderStatus requests a fulfilment transition
func (d *SellerDashboard) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	return d.actions.UpdateStatus(ctx, id, status)
}
