package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niloyhakimai/medistore-client/internal/catalog"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/mockapi"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		App:      config.AppConfig{Name: "storefront-test", Environment: "development"},
		API:      config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Storage:  config.StorageConfig{Backend: config.StorageFile, FilePath: filepath.Join(t.TempDir(), "profile.json")},
		Bus:      config.BusConfig{Bridge: config.BridgeNone},
		Orders:   config.OrdersConfig{PollInterval: time.Hour, Feed: config.FeedPoll},
		Checkout: config.CheckoutConfig{RedirectDelay: 0, RevalidatePrices: true},
	}
}

func startBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	data := mockapi.NewData(bcrypt.MinCost)
	require.NoError(t, mockapi.Seed(data))
	ts := httptest.NewServer(mockapi.New(data, nil, nil).Router())
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

func TestApp_ShoppingFlow(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, startBackend(t))

	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.sessions.Login(ctx, mockapi.DemoCustomerEmail, mockapi.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, routing.CustomerDashboard, res.Navigation.Route)

	nav := a.navbar()
	nav.Mount(ctx)
	defer nav.Unmount()
	assert.True(t, nav.State().LoggedIn)

	meds, err := a.catalog.Search(ctx, "pain")
	require.NoError(t, err)
	require.Len(t, meds, 2)

	for i := 0; i < 2; i++ {
		_, err = a.catalog.AddToCart(ctx, &meds[0], catalog.SurfaceCard)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, nav.State().CartCount)

	placed, err := a.checkout.PlaceOrder(ctx, "House 7, Dhaka")
	require.NoError(t, err)
	assert.Equal(t, 2*meds[0].Price, placed.Order.TotalAmount)
	assert.Zero(t, nav.State().CartCount)

	list, err := a.client.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.OrderStatusPlaced, list[0].Status)

	_, err = nav.Logout(ctx)
	require.NoError(t, err)
	assert.False(t, nav.State().LoggedIn)
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, startBackend(t))

	first, err := newApp(ctx, cfg)
	require.NoError(t, err)
	_, err = first.sessions.Login(ctx, mockapi.DemoSellerEmail, mockapi.DemoPassword)
	require.NoError(t, err)
	first.Close()

	second, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()

	s, ok := second.sessions.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, domain.RoleSeller, s.User.Role)

	inventory, err := second.client.SellerMedicines(ctx)
	require.NoError(t, err)
	assert.Len(t, inventory, 4)
}

func TestApp_Doctor(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, testConfig(t, startBackend(t)))
	require.NoError(t, err)
	defer a.Close()

	results := a.doctor(ctx)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	down, err := newApp(ctx, testConfig(t, "http://127.0.0.1:1/api"))
	require.NoError(t, err)
	defer down.Close()

	results = down.doctor(ctx)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestApp_FileBridgeRequiresFileStore(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1/api")
	cfg.Storage.Backend = config.StorageMemory
	cfg.Bus.Bridge = config.BridgeFile

	_, err := newApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestGuardMessage(t *testing.T) {
	assert.Equal(t, "Please log in to continue", guardMessage(routing.Navigation{Route: routing.Login}))
	assert.Equal(t, "This page is not available for your account", guardMessage(routing.Navigation{Route: routing.CustomerDashboard}))
}
