package checkout

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/session"
	"github.com/niloyhakimai/medistore-client/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBackend is a mock implementation of Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, error) {
	args := m.Called(ctx, req, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockBackend) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Medicine), args.Error(1)
}

type fixture struct {
	store    *store.MemoryStore
	backend  *MockBackend
	cart     *cart.Service
	notifier *notify.Recorder
	service  *Service
	notified atomic.Int32
}

func newFixture(t *testing.T, cfg *Config, loggedIn bool, lines ...cart.Line) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:    store.NewMemoryStore(),
		backend:  new(MockBackend),
		notifier: notify.NewRecorder(),
	}
	if loggedIn {
		require.NoError(t, f.store.Set(ctx, store.KeyToken, "token"))
		require.NoError(t, store.SetJSON(ctx, f.store, store.KeyUser, domain.User{ID: "u1", Role: domain.RoleCustomer}))
	}
	if len(lines) > 0 {
		require.NoError(t, store.SetJSON(ctx, f.store, store.KeyCart, lines))
	}

	b := bus.New()
	b.Subscribe(func(bus.Notification) { f.notified.Add(1) })
	f.cart = cart.NewService(f.store, b)
	f.service = NewService(f.backend, session.NewReader(f.store), f.cart, f.notifier, cfg)
	return f
}

func noRevalidate() *Config {
	return &Config{RedirectDelay: 2 * time.Second}
}

var (
	paracetamol = cart.Line{ProductID: "p1", Name: "Paracetamol", UnitPrice: 5, Quantity: 2}
	vitaminC    = cart.Line{ProductID: "p2", Name: "Vitamin C", UnitPrice: 10, Quantity: 1}
)

func TestPlaceOrder_NoSessionNavigatesToLogin(t *testing.T) {
	f := newFixture(t, nil, false, paracetamol)

	res, err := f.service.PlaceOrder(context.Background(), "House 7")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, routing.Login, res.Navigation.Route)

	f.backend.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	f.backend.AssertNotCalled(t, "GetMedicine", mock.Anything, mock.Anything)
	msg, _ := f.notifier.Last()
	assert.Equal(t, "Please login to place an order!", msg.Text)
}

func TestPlaceOrder_BlankAddress(t *testing.T) {
	f := newFixture(t, nil, true, paracetamol)

	_, err := f.service.PlaceOrder(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrAddressRequired)
	f.backend.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	msg, _ := f.notifier.Last()
	assert.Equal(t, "Please enter a shipping address!", msg.Text)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t, nil, true)

	_, err := f.service.PlaceOrder(context.Background(), "House 7")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t, noRevalidate(), true, paracetamol, vitaminC)
	want := dto.CreateOrderRequest{
		Address: "House 7, Road 2",
		Items: []dto.OrderItemRequest{
			{MedicineID: "p1", Quantity: 2},
			{MedicineID: "p2", Quantity: 1},
		},
	}
	f.backend.On("CreateOrder", mock.Anything, want, mock.MatchedBy(func(key string) bool { return key != "" })).
		Return(&domain.Order{ID: "o1", TotalAmount: 20, Status: domain.OrderStatusPlaced}, nil).Once()

	res, err := f.service.PlaceOrder(context.Background(), "  House 7, Road 2 ")
	require.NoError(t, err)

	assert.Equal(t, "o1", res.Order.ID)
	assert.Equal(t, routing.Navigation{Route: routing.CustomerDashboard, After: 2 * time.Second}, res.Navigation)
	assert.True(t, f.cart.Load(context.Background()).IsEmpty())
	assert.Equal(t, int32(1), f.notified.Load())
	assert.False(t, f.service.Submitting())

	msg, _ := f.notifier.Last()
	assert.Equal(t, notify.Message{Level: notify.LevelSuccess, Text: "Order Placed Successfully! 🎉 Redirecting..."}, msg)
	f.backend.AssertExpectations(t)
}

func TestPlaceOrder_FailureLeavesCart(t *testing.T) {
	f := newFixture(t, noRevalidate(), true, paracetamol)
	f.backend.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &apiclient.APIError{StatusCode: http.StatusBadRequest, Message: "Insufficient stock for Paracetamol"})

	_, err := f.service.PlaceOrder(context.Background(), "House 7")
	require.Error(t, err)

	assert.Equal(t, []cart.Line{paracetamol}, f.cart.Load(context.Background()).Lines)
	assert.Zero(t, f.notified.Load())
	assert.False(t, f.service.Submitting())

	msg, _ := f.notifier.Last()
	assert.Equal(t, notify.Message{Level: notify.LevelError, Text: "Insufficient stock for Paracetamol"}, msg)
}

func TestPlaceOrder_OneSubmissionAtATime(t *testing.T) {
	f := newFixture(t, noRevalidate(), true, paracetamol)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.backend.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&domain.Order{ID: "o1"}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.service.PlaceOrder(context.Background(), "House 7")
		done <- err
	}()
	<-entered

	assert.True(t, f.service.Submitting())
	_, err := f.service.PlaceOrder(context.Background(), "House 7")
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)
	f.backend.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestPlaceOrder_RepricedCartIsNotSubmitted(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true, paracetamol, vitaminC)
	f.backend.On("GetMedicine", mock.Anything, "p1").Return(&domain.Medicine{ID: "p1", Name: "Paracetamol", Price: 6, Stock: 50}, nil)
	f.backend.On("GetMedicine", mock.Anything, "p2").Return(&domain.Medicine{ID: "p2", Name: "Vitamin C", Price: 10, Stock: 50}, nil)

	_, err := f.service.PlaceOrder(context.Background(), "House 7")
	assert.ErrorIs(t, err, ErrCartRepriced)
	f.backend.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)

	c := f.cart.Load(context.Background())
	line, _ := c.Find("p1")
	assert.Equal(t, 6.0, line.UnitPrice)
	assert.Equal(t, 22.0, c.Total())
	assert.Equal(t, int32(1), f.notified.Load())
}

func TestPlaceOrder_RevalidatedCartIsSubmitted(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true, paracetamol)
	f.backend.On("GetMedicine", mock.Anything, "p1").Return(&domain.Medicine{ID: "p1", Name: "Paracetamol", Price: 5, Stock: 2}, nil)
	f.backend.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Order{ID: "o2"}, nil)

	res, err := f.service.PlaceOrder(context.Background(), "House 7")
	require.NoError(t, err)
	assert.Equal(t, "o2", res.Order.ID)
	assert.Equal(t, int32(1), f.notified.Load())
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true, paracetamol)
	f.backend.On("GetMedicine", mock.Anything, "p1").Return(&domain.Medicine{ID: "p1", Name: "Paracetamol", Price: 5, Stock: 1}, nil)

	_, err := f.service.PlaceOrder(context.Background(), "House 7")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	msg, _ := f.notifier.Last()
	assert.Equal(t, "Only 1 left of Paracetamol", msg.Text)
	assert.Equal(t, []cart.Line{paracetamol}, f.cart.Load(context.Background()).Lines)
}

func TestPlaceOrder_ProductUnavailable(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true, paracetamol)
	f.backend.On("GetMedicine", mock.Anything, "p1").Return(nil, &apiclient.APIError{StatusCode: http.StatusNotFound})

	_, err := f.service.PlaceOrder(context.Background(), "House 7")
	assert.ErrorIs(t, err, ErrProductUnavailable)
	assert.False(t, f.service.Submitting())
}
