package orders

import (
	"context"

	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/notify"
)

// Backend requests order transitions. It alone decides whether they apply.
type Backend interface {
	CancelOrder(ctx context.Context, id string) (*domain.Order, error)
	SellerOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// Actions issues user initiated order transitions
type Actions struct {
	backend  Backend
	notifier notify.Notifier
}

// NewActions creates Actions
func NewActions(backend Backend, n notify.Notifier) *Actions {
	return &Actions{backend: backend, notifier: n}
}

// Cancel asks the backend to cancel a customer's order
func (a *Actions) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	order, err := a.backend.CancelOrder(ctx, id)
	if err != nil {
		a.notifier.Error(apiclient.Message(err, "Failed to cancel order"))
		return nil, err
	}
	a.notifier.Success("Order cancelled")
	return order, nil
}

// SellerOrders lists incoming orders for the seller, newest first
func (a *Actions) SellerOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := a.backend.SellerOrders(ctx)
	if err != nil {
		a.notifier.Error(apiclient.Message(err, "Failed to load orders"))
		return nil, err
	}
	SortNewestFirst(orders)
	return orders, nil
}

// UpdateStatus asks the backend to move an order to status
func (a *Actions) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.IsValid() {
		a.notifier.Error("Unknown order status")
		return nil, domain.ErrInvalidStatus
	}
	order, err := a.backend.UpdateOrderStatus(ctx, id, status.Normalize())
	if err != nil {
		a.notifier.Error(apiclient.Message(err, "Failed to update order status"))
		return nil, err
	}
	a.notifier.Success("Order marked as " + order.Status.Label())
	return order, nil
}
