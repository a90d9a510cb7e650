package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(&Config{BaseURL: srv.URL + "/api/"}, tokens)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": []domain.Order{}})
	}, TokenFunc(func(context.Context) (string, bool) { return "tok-123", true }))

	_, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", got)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var got string
	var seen bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got, seen = r.Header.Get("Authorization"), true
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": []domain.Medicine{}})
	}, TokenFunc(func(context.Context) (string, bool) { return "", false }))

	_, err := c.ListMedicines(context.Background())
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Empty(t, got)
}

func TestClient_InjectsTraceContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/categories", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": []domain.Category{{ID: "c1", Name: "Pain Relief"}}})
	}, nil)

	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: "c1", Name: "Pain Relief"}}, cats)
}

func TestClient_LoginTopLevelAndEnveloped(t *testing.T) {
	user := &domain.User{ID: "u1", Name: "Rahim", Email: "rahim@example.com", Role: domain.RoleSeller}

	tests := []struct {
		name string
		body interface{}
	}{
		{"top level", map[string]interface{}{"success": true, "token": "t1", "user": user}},
		{"enveloped", map[string]interface{}{"success": true, "data": map[string]interface{}{"token": "t1", "user": user}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var req dto.LoginRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "rahim@example.com", req.Email)
				writeJSON(w, http.StatusOK, tt.body)
			}, nil)

			resp, err := c.Login(context.Background(), "rahim@example.com", "secret")
			require.NoError(t, err)
			assert.Equal(t, "t1", resp.Token)
			assert.Equal(t, user, resp.User)
		})
	}
}

func TestClient_APIErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{"top level message", http.StatusBadRequest, `{"success":false,"message":"Invalid credentials"}`, "Invalid credentials", ""},
		{"nested error", http.StatusConflict, `{"success":false,"error":{"code":"CONFLICT","message":"Email already exists"}}`, "Email already exists", "CONFLICT"},
		{"string error", http.StatusForbidden, `{"error":"Forbidden"}`, "Forbidden", ""},
		{"plain text", http.StatusBadGateway, `upstream down`, "upstream down", ""},
		{"empty body", http.StatusInternalServerError, ``, "Internal Server Error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, nil)

			err := c.Register(context.Background(), dto.RegisterRequest{Name: "a", Email: "b", Password: "cccccc"})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestClient_CreateOrderSendsIdempotencyKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get(dto.IdempotencyKeyHeader))

		var req dto.CreateOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "House 7, Dhaka", req.Address)
		assert.Len(t, req.Items, 1)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    domain.Order{ID: "o1", Status: domain.OrderStatusPlaced, TotalAmount: 10},
		})
	}, nil)

	order, err := c.CreateOrder(context.Background(), dto.CreateOrderRequest{
		Items:   []dto.OrderItemRequest{{MedicineID: "m1", Quantity: 2}},
		Address: "House 7, Dhaka",
	}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
}

func TestClient_EscapesPathIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/a%2Fb/cancel", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": domain.Order{ID: "a/b", Status: domain.OrderStatusCancelled}})
	}, nil)

	order, err := c.CancelOrder(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
}

func TestClient_NullDataIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": nil})
	}, nil)

	orders, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)

	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(&Config{BaseURL: srv.URL}, nil)

	_, err := c.ListOrders(context.Background())
	require.Error(t, err)
	assert.Zero(t, StatusCode(err))
	assert.Equal(t, "Failed to load orders", Message(err, "Failed to load orders"))
}

func TestErrorHelpers(t *testing.T) {
	notFound := &APIError{StatusCode: http.StatusNotFound}
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsUnauthorized(notFound))
	assert.True(t, IsUnauthorized(&APIError{StatusCode: http.StatusUnauthorized}))
	assert.Equal(t, "Stock too low", Message(&APIError{StatusCode: 400, Message: "Stock too low"}, "fallback"))
}
