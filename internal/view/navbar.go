package view

import (
	"context"
	"errors"
	"sync"

	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/session"
)

// ErrLogoutUnavailable is returned by Logout on a Navbar built without a session manager
var ErrLogoutUnavailable = errors.New("logout is not available")

// NavbarState is what the navigation bar renders
type NavbarState struct {
	LoggedIn       bool
	Role           domain.Role
	DashboardRoute string
	CartCount      int
}

// Navbar tracks login state and the cart badge
type Navbar struct {
	sessions Sessions
	cart     *cart.Service
	bus      *bus.Bus
	manager  *session.Manager

	mu          sync.Mutex
	ctx         context.Context
	state       NavbarState
	unsubscribe func()
	onChange    func(NavbarState)
}

// NewNavbar creates a Navbar. manager may be nil if logout is not offered.
func NewNavbar(sessions Sessions, c *cart.Service, b *bus.Bus, manager *session.Manager) *Navbar {
	return &Navbar{
		sessions: sessions,
		cart:     c,
		bus:      b,
		manager:  manager,
		state:    loggedOut(),
	}
}

func loggedOut() NavbarState {
	return NavbarState{Role: domain.RoleCustomer, DashboardRoute: routing.CustomerDashboard}
}

// OnChange registers fn to be called after every sync
func (n *Navbar) OnChange(fn func(NavbarState)) {
	n.mu.Lock()
	n.onChange = fn
	n.mu.Unlock()
}

// Mount subscribes to change notifications and syncs once
func (n *Navbar) Mount(ctx context.Context) {
	n.mu.Lock()
	if n.unsubscribe != nil {
		n.mu.Unlock()
		return
	}
	n.ctx = ctx
	n.unsubscribe = n.bus.Subscribe(func(bus.Notification) { n.Sync(n.context()) })
	n.mu.Unlock()

	n.Sync(ctx)
}

// Unmount stops listening
func (n *Navbar) Unmount() {
	n.mu.Lock()
	unsubscribe := n.unsubscribe
	n.unsubscribe = nil
	n.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (n *Navbar) context() context.Context {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx == nil {
		return context.Background()
	}
	return n.ctx
}

// Sync re-reads the session and cart
func (n *Navbar) Sync(ctx context.Context) NavbarState {
	state := loggedOut()
	if s, ok := n.sessions.Current(ctx); ok {
		state.LoggedIn = true
		state.Role = s.User.Role
		state.DashboardRoute = routing.DashboardRouteFor(s.User.Role)
	}
	state.CartCount = n.cart.Load(ctx).Count()

	n.mu.Lock()
	n.state = state
	onChange := n.onChange
	n.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
	return state
}

// State returns the last synced state
func (n *Navbar) State() NavbarState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Logout clears the session and cart and resets the bar
func (n *Navbar) Logout(ctx context.Context) (routing.Navigation, error) {
	if n.manager == nil {
		return routing.Navigation{}, ErrLogoutUnavailable
	}
	res, err := n.manager.Logout(ctx)
	if err != nil {
		return routing.Navigation{}, err
	}
	n.Sync(ctx)
	return res.Navigation, nil
}
