package view

import (
	"context"
	"sync"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/orders"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/session"
)

// FeedFunc builds the order feed for a session
type FeedFunc func(s session.Session) orders.Feed

// CustomerDashboard shows the order history and keeps it fresh
type CustomerDashboard struct {
	sessions Sessions
	newFeed  FeedFunc
	actions  *orders.Actions

	mu       sync.Mutex
	feed     orders.Feed
	orders   []domain.Order
	loaded   bool
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func([]domain.Order)
}

// NewCustomerDashboard creates a CustomerDashboard
func NewCustomerDashboard(sessions Sessions, newFeed FeedFunc, actions *orders.Actions) *CustomerDashboard {
	return &CustomerDashboard{sessions: sessions, newFeed: newFeed, actions: actions}
}

// OnChange registers fn to be called with every new order list
func (d *CustomerDashboard) OnChange(fn func([]domain.Order)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Mount starts the order feed. Without a session it returns the login
// route and starts nothing.
func (d *CustomerDashboard) Mount(ctx context.Context) (routing.Navigation, bool) {
	s, ok := d.sessions.Current(ctx)
	if !ok {
		return routing.To(routing.Login), false
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return routing.Navigation{}, true
	}
	feedCtx, cancel := context.WithCancel(ctx)
	feed := d.newFeed(s)
	done := make(chan struct{})
	d.feed, d.cancel, d.done = feed, cancel, done
	d.mu.Unlock()

	go func() {
		defer close(done)
		_ = feed.Run(feedCtx, d.receive)
	}()
	return routing.Navigation{}, true
}

// Unmount stops the feed and waits for it
func (d *CustomerDashboard) Unmount() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (d *CustomerDashboard) receive(list []domain.Order) {
	d.mu.Lock()
	if d.cancel == nil {
		d.mu.Unlock()
		return
	}
	d.orders = list
	d.loaded = true
	onChange := d.onChange
	d.mu.Unlock()

	if onChange != nil {
		onChange(list)
	}
}

// Orders returns the latest list and whether a fetch has completed
func (d *CustomerDashboard) Orders() ([]domain.Order, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orders, d.loaded
}

// Refresh re-fetches out of band
func (d *CustomerDashboard) Refresh(ctx context.Context) ([]domain.Order, error) {
	d.mu.Lock()
	feed := d.feed
	d.mu.Unlock()
	if feed == nil {
		return nil, nil
	}
	return feed.Refresh(ctx)
}

// Cancel asks the backend to cancel an order and shows its new status
func (d *CustomerDashboard) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	updated, err := d.actions.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	for i := range d.orders {
		if d.orders[i].ID == updated.ID {
			d.orders[i].Status = updated.Status
		}
	}
	d.mu.Unlock()
	return updated, nil
}
