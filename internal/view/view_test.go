package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/checkout"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/orders"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/session"
	"github.com/niloyhakimai/medistore-client/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type env struct {
	store    *store.MemoryStore
	bus      *bus.Bus
	reader   *session.Reader
	cart     *cart.Service
	notifier *notify.Recorder
}

func newEnv() *env {
	st := store.NewMemoryStore()
	b := bus.New()
	return &env{
		store:    st,
		bus:      b,
		reader:   session.NewReader(st),
		cart:     cart.NewService(st, b),
		notifier: notify.NewRecorder(),
	}
}

func (e *env) login(t *testing.T, role domain.Role) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SetJSON(ctx, e.store, store.KeyUser, domain.User{ID: "u1", Name: "Mim", Role: role}))
	require.NoError(t, e.store.Set(ctx, store.KeyToken, "token"))
	e.bus.Publish(ctx, store.KeyToken, store.KeyUser)
}

// stubAuth accepts every login
type stubAuth struct{}

func (stubAuth) Login(_ context.Context, email, _ string) (*dto.LoginResponse, error) {
	return &dto.LoginResponse{Token: "t", User: &domain.User{ID: "u9", Name: "Seller", Email: email, Role: domain.RoleSeller}}, nil
}

func (stubAuth) Register(context.Context, dto.RegisterRequest) error { return nil }

func TestNavbar_FollowsNotifications(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	manager := session.NewManager(e.reader, e.bus, stubAuth{}, e.notifier)
	nav := NewNavbar(e.reader, e.cart, e.bus, manager)

	nav.Mount(ctx)
	assert.Equal(t, NavbarState{Role: domain.RoleCustomer, DashboardRoute: routing.CustomerDashboard}, nav.State())

	_, err := e.cart.Add(ctx, "p1", "Paracetamol", 5)
	require.NoError(t, err)
	_, err = e.cart.Add(ctx, "p1", "Paracetamol", 5)
	require.NoError(t, err)
	_, err = e.cart.Add(ctx, "p2", "Vitamin C", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, nav.State().CartCount)

	_, err = manager.Login(ctx, "s@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, NavbarState{LoggedIn: true, Role: domain.RoleSeller, DashboardRoute: routing.SellerDashboard, CartCount: 3}, nav.State())

	route, err := nav.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, routing.Login, route.Route)
	assert.Equal(t, NavbarState{Role: domain.RoleCustomer, DashboardRoute: routing.CustomerDashboard}, nav.State())
}

func TestNavbar_LogoutWithoutManager(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.login(t, domain.RoleCustomer)
	nav := NewNavbar(e.reader, e.cart, e.bus, nil)
	nav.Mount(ctx)
	defer nav.Unmount()

	_, err := nav.Logout(ctx)
	assert.ErrorIs(t, err, ErrLogoutUnavailable)
	assert.True(t, nav.State().LoggedIn)
}

func TestNavbar_UnmountStopsListening(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	nav := NewNavbar(e.reader, e.cart, e.bus, nil)

	var syncs int
	nav.OnChange(func(NavbarState) { syncs++ })
	nav.Mount(ctx)
	nav.Mount(ctx)
	require.Equal(t, 1, syncs)

	nav.Unmount()
	nav.Unmount()
	_, err := e.cart.Add(ctx, "p1", "Paracetamol", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, syncs)
	assert.Zero(t, nav.State().CartCount)
	assert.Equal(t, 1, nav.Sync(ctx).CartCount)
}

// orderBackend satisfies checkout.Backend
type orderBackend struct {
	mock.Mock
}

func (m *orderBackend) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, error) {
	args := m.Called(ctx, req, key)
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *orderBackend) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Medicine), args.Error(1)
}

func TestCartPage(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.login(t, domain.RoleCustomer)

	backend := new(orderBackend)
	backend.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Order{ID: "o1"}, nil)
	co := checkout.NewService(backend, e.reader, e.cart, e.notifier, &checkout.Config{RedirectDelay: 2 * time.Second})
	page := NewCartPage(e.cart, co, e.bus, e.notifier)
	defer page.Unmount()

	_, err := e.cart.Add(ctx, "p1", "Paracetamol", 5)
	require.NoError(t, err)
	_, err = e.cart.Add(ctx, "p2", "Vitamin C", 10)
	require.NoError(t, err)

	page.Mount(ctx)
	assert.Equal(t, 15.0, page.State().Total)

	require.NoError(t, page.Remove(ctx, "p2"))
	assert.Equal(t, 5.0, page.State().Total)
	msg, _ := e.notifier.Last()
	assert.Equal(t, "Item removed", msg.Text)

	res, err := page.PlaceOrder(ctx, "House 7")
	require.NoError(t, err)
	assert.Equal(t, routing.CustomerDashboard, res.Navigation.Route)
	assert.Empty(t, page.State().Lines)
	assert.Zero(t, page.State().Total)
}

// staticLister serves a fixed order list
type staticLister struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (s *staticLister) ListOrders(context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

// cancelBackend satisfies orders.Backend
type cancelBackend struct{}

func (cancelBackend) CancelOrder(_ context.Context, id string) (*domain.Order, error) {
	return &domain.Order{ID: id, Status: domain.OrderStatusCancelled}, nil
}
func (cancelBackend) SellerOrders(context.Context) ([]domain.Order, error) { return nil, nil }
func (cancelBackend) UpdateOrderStatus(_ context.Context, id string, s domain.OrderStatus) (*domain.Order, error) {
	return &domain.Order{ID: id, Status: s}, nil
}

func TestCustomerDashboard(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	now := time.Now()
	lister := &staticLister{orders: []domain.Order{
		{ID: "o1", Status: domain.OrderStatusPlaced, CreatedAt: now.Add(-time.Hour)},
		{ID: "o2", Status: domain.OrderStatusShipped, CreatedAt: now},
	}}
	newFeed := func(session.Session) orders.Feed {
		return orders.NewPollingFeed(orders.NewPoller(lister, e.notifier, &orders.PollerConfig{Interval: time.Hour}))
	}
	d := NewCustomerDashboard(e.reader, newFeed, orders.NewActions(cancelBackend{}, e.notifier))

	nav, ok := d.Mount(ctx)
	assert.False(t, ok)
	assert.Equal(t, routing.Login, nav.Route)
	_, loaded := d.Orders()
	assert.False(t, loaded)

	e.login(t, domain.RoleCustomer)
	_, ok = d.Mount(ctx)
	require.True(t, ok)
	defer d.Unmount()

	require.Eventually(t, func() bool {
		_, loaded := d.Orders()
		return loaded
	}, time.Second, 5*time.Millisecond)
	list, _ := d.Orders()
	assert.Equal(t, "o2", list[0].ID)

	_, err := d.Cancel(ctx, "o1")
	require.NoError(t, err)
	list, _ = d.Orders()
	assert.Equal(t, domain.OrderStatusCancelled, list[1].Status)

	_, err = d.Refresh(ctx)
	require.NoError(t, err)
	msg, _ := e.notifier.Last()
	assert.Equal(t, "Orders updated", msg.Text)
}

func TestCustomerDashboard_UnmountDropsLateResults(t *testing.T) {
	e := newEnv()
	e.login(t, domain.RoleCustomer)
	lister := &staticLister{orders: []domain.Order{{ID: "o1"}}}
	newFeed := func(session.Session) orders.Feed {
		return orders.NewPollingFeed(orders.NewPoller(lister, notify.Discard{}, &orders.PollerConfig{Interval: 5 * time.Millisecond}))
	}
	d := NewCustomerDashboard(e.reader, newFeed, orders.NewActions(cancelBackend{}, notify.Discard{}))

	var mu sync.Mutex
	deliveries := 0
	d.OnChange(func([]domain.Order) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	})

	_, ok := d.Mount(context.Background())
	require.True(t, ok)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries >= 2
	}, time.Second, 5*time.Millisecond)
	d.Unmount()

	mu.Lock()
	after := deliveries
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, deliveries)
	mu.Unlock()
}

// MockAdminBackend is a mock implementation of AdminBackend
type MockAdminBackend struct {
	mock.Mock
}

func (m *MockAdminBackend) AdminStats(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

func (m *MockAdminBackend) AdminUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockAdminBackend) SetUserBanned(ctx context.Context, id string, banned bool) (*domain.User, error) {
	args := m.Called(ctx, id, banned)
	return args.Get(0).(*domain.User), args.Error(1)
}

func TestAdminDashboard(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	backend := new(MockAdminBackend)
	d := NewAdminDashboard(e.reader, backend, e.notifier)

	nav, ok := d.Mount(ctx)
	assert.False(t, ok)
	assert.Equal(t, routing.Login, nav.Route)

	e.login(t, domain.RoleSeller)
	nav, ok = d.Mount(ctx)
	assert.False(t, ok)
	assert.Equal(t, routing.SellerDashboard, nav.Route)

	e.login(t, domain.RoleAdmin)
	_, ok = d.Mount(ctx)
	assert.True(t, ok)

	backend.On("AdminStats", mock.Anything).Return(&domain.Stats{TotalSales: 120.5, TotalOrders: 4, TotalUsers: 3}, nil).Once()
	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120.5, stats.TotalSales)
	assert.NotNil(t, stats.RecentOrders)

	backend.On("AdminStats", mock.Anything).Return(nil, assert.AnError).Once()
	_, err = d.Stats(ctx)
	require.Error(t, err)
	msg, _ := e.notifier.Last()
	assert.Equal(t, "Failed to load dashboard data", msg.Text)

	backend.On("SetUserBanned", mock.Anything, "u2", true).Return(&domain.User{ID: "u2", IsBanned: true}, nil)
	user, err := d.SetBanned(ctx, "u2", true)
	require.NoError(t, err)
	assert.True(t, user.IsBanned)
	msg, _ = e.notifier.Last()
	assert.Equal(t, "User banned", msg.Text)
}

// MockSellerBackend is a mock implementation of SellerBackend
type MockSellerBackend struct {
	mock.Mock
}

func (m *MockSellerBackend) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockSellerBackend) SellerMedicines(ctx context.Context) ([]domain.Medicine, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Medicine), args.Error(1)
}

func (m *MockSellerBackend) CreateMedicine(ctx context.Context, req dto.MedicineRequest) (*domain.Medicine, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Medicine), args.Error(1)
}

func (m *MockSellerBackend) UpdateMedicine(ctx context.Context, id string, req dto.MedicineRequest) (*domain.Medicine, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(*domain.Medicine), args.Error(1)
}

func (m *MockSellerBackend) DeleteMedicine(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestSellerDashboard(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.login(t, domain.RoleSeller)
	backend := new(MockSellerBackend)
	d := NewSellerDashboard(e.reader, backend, orders.NewActions(cancelBackend{}, e.notifier), e.notifier)

	_, ok := d.Mount(ctx)
	require.True(t, ok)

	_, err := d.AddMedicine(ctx, dto.MedicineRequest{Price: 3})
	assert.ErrorIs(t, err, ErrIncompleteMedicine)
	backend.AssertNotCalled(t, "CreateMedicine", mock.Anything, mock.Anything)

	req := dto.MedicineRequest{Name: "Napa Extra", Price: 2.5, Stock: 100, CategoryID: "c1"}
	backend.On("CreateMedicine", mock.Anything, req).Return(&domain.Medicine{ID: "m1", Name: "Napa Extra"}, nil)
	m, err := d.AddMedicine(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	msg, _ := e.notifier.Last()
	assert.Equal(t, "Medicine Added Successfully! 💊", msg.Text)

	backend.On("DeleteMedicine", mock.Anything, "m1").Return(nil)
	require.NoError(t, d.DeleteMedicine(ctx, "m1"))

	order, err := d.UpdateOrderStatus(ctx, "o1", domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	backend.AssertExpectations(t)
}
