package view

import (
	"context"
	"sync"

	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/checkout"
	"github.com/niloyhakimai/medistore-client/internal/notify"
)

// CartPageState is what the cart review renders
type CartPageState struct {
	Lines      []cart.Line
	Total      float64
	Submitting bool
}

// CartPage reviews the cart and places the order
type CartPage struct {
	cart     *cart.Service
	checkout *checkout.Service
	bus      *bus.Bus
	notifier notify.Notifier

	mu          sync.Mutex
	state       CartPageState
	unsubscribe func()
}

// NewCartPage creates a CartPage
func NewCartPage(c *cart.Service, co *checkout.Service, b *bus.Bus, n notify.Notifier) *CartPage {
	return &CartPage{cart: c, checkout: co, bus: b, notifier: n}
}

// Mount subscribes to change notifications and syncs once
func (p *CartPage) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.unsubscribe == nil {
		p.unsubscribe = p.bus.Subscribe(func(bus.Notification) { p.Sync(ctx) })
	}
	p.mu.Unlock()
	p.Sync(ctx)
}

// Unmount stops listening
func (p *CartPage) Unmount() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Sync recomputes lines and total from the store
func (p *CartPage) Sync(ctx context.Context) CartPageState {
	c := p.cart.Load(ctx)
	state := CartPageState{
		Lines:      c.Lines,
		Total:      c.Total(),
		Submitting: p.checkout.Submitting(),
	}
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	return state
}

// State returns the last synced state
func (p *CartPage) State() CartPageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Remove drops a line
func (p *CartPage) Remove(ctx context.Context, productID string) error {
	if err := p.cart.Remove(ctx, productID); err != nil {
		p.notifier.Error("Failed to remove item")
		return err
	}
	p.notifier.Success("Item removed")
	p.Sync(ctx)
	return nil
}

// PlaceOrder submits the cart
func (p *CartPage) PlaceOrder(ctx context.Context, address string) (*checkout.Result, error) {
	res, err := p.checkout.PlaceOrder(ctx, address)
	p.Sync(ctx)
	return res, err
}
