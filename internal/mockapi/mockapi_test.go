package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recordingPublisher captures produced events
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderStatusEvent
	topics []string
}

func (p *recordingPublisher) Produce(_ context.Context, topic, key string, value []byte) error {
	var ev domain.OrderStatusEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) statuses() []domain.OrderStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderStatus, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Status
	}
	return out
}

type fixture struct {
	data      *Data
	server    *Server
	publisher *recordingPublisher
	baseURL   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	data := NewData(bcrypt.MinCost)
	require.NoError(t, Seed(data))

	pub := &recordingPublisher{}
	srv := New(data, pub, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &fixture{data: data, server: srv, publisher: pub, baseURL: ts.URL + "/api"}
}

// client returns an API client and a setter for its bearer token
func (f *fixture) client() (*apiclient.Client, func(string)) {
	var mu sync.Mutex
	token := ""
	source := apiclient.TokenFunc(func(context.Context) (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		return token, token != ""
	})
	set := func(t string) {
		mu.Lock()
		token = t
		mu.Unlock()
	}
	return apiclient.New(&apiclient.Config{BaseURL: f.baseURL, Timeout: 5 * time.Second}, source), set
}

func (f *fixture) loginAs(t *testing.T, email string) (*apiclient.Client, *domain.User) {
	t.Helper()
	client, setToken := f.client()
	resp, err := client.Login(context.Background(), email, DemoPassword)
	require.NoError(t, err)
	setToken(resp.Token)
	return client, resp.User
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	client, _ := f.client()
	ctx := context.Background()

	resp, err := client.Login(ctx, "Seller@MediStore.test ", DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, domain.RoleSeller, resp.User.Role)

	claims, err := f.server.Tokens().Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.Subject)

	_, err = client.Login(ctx, DemoSellerEmail, "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
	assert.Equal(t, "Invalid email or password", apiclient.Message(err, ""))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	client, _ := f.client()
	ctx := context.Background()

	req := dto.RegisterRequest{Name: "Karim", Email: "karim@example.com", Password: "secret1"}
	require.NoError(t, client.Register(ctx, req))

	err := client.Register(ctx, req)
	assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))

	req.Email, req.Role = "boss@example.com", domain.RoleAdmin
	err = client.Register(ctx, req)
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	resp, err := client.Login(ctx, "karim@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, resp.User.Role)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	client, _ := f.client()
	ctx := context.Background()

	meds, err := client.ListMedicines(ctx)
	require.NoError(t, err)
	require.Len(t, meds, 4)
	assert.Equal(t, "Ace Plus", meds[0].Name)
	assert.Equal(t, "Pain Relief", meds[0].CategoryName())

	m, err := client.GetMedicine(ctx, meds[1].ID)
	require.NoError(t, err)
	assert.Equal(t, meds[1].Name, m.Name)

	_, err = client.GetMedicine(ctx, "missing")
	assert.True(t, apiclient.IsNotFound(err))

	cats, err := client.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 3)
}

func TestOrders_CustomerLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer, user := f.loginAs(t, DemoCustomerEmail)

	meds, err := customer.ListMedicines(ctx)
	require.NoError(t, err)
	napa := meds[3]
	require.Equal(t, "Napa Extra", napa.Name)

	req := dto.CreateOrderRequest{
		Address: "House 7, Road 3, Dhaka",
		Items:   []dto.OrderItemRequest{{MedicineID: napa.ID, Quantity: 4}},
	}
	order, err := customer.CreateOrder(ctx, req, "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)
	assert.Equal(t, 10.0, order.TotalAmount)
	assert.Equal(t, user.ID, order.UserID)

	again, err := customer.CreateOrder(ctx, req, "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)

	changed := dto.CreateOrderRequest{Address: req.Address, Items: []dto.OrderItemRequest{{MedicineID: napa.ID, Quantity: 1}}}
	_, err = customer.CreateOrder(ctx, changed, "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, apiclient.StatusCode(err))

	after, err := customer.GetMedicine(ctx, napa.ID)
	require.NoError(t, err)
	assert.Equal(t, napa.Stock-4, after.Stock)

	list, err := customer.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Napa Extra", list[0].Items[0].Medicine.Name)

	cancelled, err := customer.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	_, err = customer.CancelOrder(ctx, order.ID)
	assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))

	restored, err := customer.GetMedicine(ctx, napa.ID)
	require.NoError(t, err)
	assert.Equal(t, napa.Stock, restored.Stock)

	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusPlaced, domain.OrderStatusCancelled}, f.publisher.statuses())
	assert.Equal(t, "order.status", f.publisher.topics[0])
}

func TestOrders_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer, _ := f.loginAs(t, DemoCustomerEmail)

	meds, err := customer.ListMedicines(ctx)
	require.NoError(t, err)
	azithro := meds[1]
	require.Equal(t, "Azithrocin", azithro.Name)

	_, err = customer.CreateOrder(ctx, dto.CreateOrderRequest{
		Address: "Dhaka",
		Items:   []dto.OrderItemRequest{{MedicineID: azithro.ID, Quantity: azithro.Stock + 1}},
	}, "k")
	assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))

	_, err = customer.CreateOrder(ctx, dto.CreateOrderRequest{
		Address: "Dhaka",
		Items:   []dto.OrderItemRequest{{MedicineID: "gone", Quantity: 1}},
	}, "k2")
	assert.True(t, apiclient.IsNotFound(err))

	_, err = customer.CreateOrder(ctx, dto.CreateOrderRequest{Items: []dto.OrderItemRequest{{MedicineID: azithro.ID, Quantity: 1}}}, "k3")
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	anonymous, _ := f.client()
	_, err = anonymous.ListOrders(ctx)
	assert.True(t, apiclient.IsUnauthorized(err))

	seller, _ := f.loginAs(t, DemoSellerEmail)
	_, err = seller.ListOrders(ctx)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))
}

func TestSeller_InventoryAndFulfilment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller, sellerUser := f.loginAs(t, DemoSellerEmail)
	customer, _ := f.loginAs(t, DemoCustomerEmail)

	cats, err := seller.ListCategories(ctx)
	require.NoError(t, err)

	created, err := seller.CreateMedicine(ctx, dto.MedicineRequest{Name: "Fexo", Price: 8, Stock: 10, CategoryID: cats[0].ID})
	require.NoError(t, err)
	assert.Equal(t, sellerUser.ID, created.SellerID)

	_, err = seller.CreateMedicine(ctx, dto.MedicineRequest{Name: "Ghost", Price: 1, CategoryID: "nope"})
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	updated, err := seller.UpdateMedicine(ctx, created.ID, dto.MedicineRequest{Name: "Fexo 120", Price: 9, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "Fexo 120", updated.Name)

	inventory, err := seller.SellerMedicines(ctx)
	require.NoError(t, err)
	assert.Len(t, inventory, 5)

	order, err := customer.CreateOrder(ctx, dto.CreateOrderRequest{
		Address: "Chattogram",
		Items:   []dto.OrderItemRequest{{MedicineID: created.ID, Quantity: 2}},
	}, "k")
	require.NoError(t, err)

	incoming, err := seller.SellerOrders(ctx)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "Rahim", incoming[0].User.Name)

	_, err = seller.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusDelivered)
	assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))

	for _, next := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		o, err := seller.UpdateOrderStatus(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, o.Status)
	}

	_, err = seller.UpdateOrderStatus(ctx, order.ID, "LOST")
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	require.NoError(t, seller.DeleteMedicine(ctx, created.ID))
	err = seller.DeleteMedicine(ctx, created.ID)
	assert.True(t, apiclient.IsNotFound(err))
}

func TestAdmin_StatsAndBans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, adminUser := f.loginAs(t, DemoAdminEmail)
	customer, customerUser := f.loginAs(t, DemoCustomerEmail)

	stats, err := admin.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Zero(t, stats.TotalOrders)
	assert.NotNil(t, stats.RecentOrders)

	_, err = customer.AdminStats(ctx)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	users, err := admin.AdminUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = admin.SetUserBanned(ctx, adminUser.ID, true)
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	banned, err := admin.SetUserBanned(ctx, customerUser.ID, true)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)

	_, err = customer.ListOrders(ctx)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	anonymous, _ := f.client()
	_, err = anonymous.Login(ctx, DemoCustomerEmail, DemoPassword)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	_, err = admin.SetUserBanned(ctx, customerUser.ID, false)
	require.NoError(t, err)
	_, err = customer.ListOrders(ctx)
	assert.NoError(t, err)
}

func TestTokens_Expiry(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Issue(&domain.User{ID: "u1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, claims.Role)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokens("other", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
