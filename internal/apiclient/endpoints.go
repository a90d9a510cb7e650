package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
)

func escape(id string) string {
	return url.PathEscape(id)
}

// Login exchanges credentials for a token and the user profile
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := c.do(ctx, call{
		op: "login", method: http.MethodPost, path: "/auth/login",
		body: dto.LoginRequest{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) error {
	return c.do(ctx, call{op: "register", method: http.MethodPost, path: "/auth/register", body: req}, nil)
}

// ListMedicines returns the catalog
func (c *Client) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var out []domain.Medicine
	if err := c.do(ctx, call{op: "list_medicines", method: http.MethodGet, path: "/medicines"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMedicine returns one catalog entry
func (c *Client) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	var out domain.Medicine
	if err := c.do(ctx, call{op: "get_medicine", method: http.MethodGet, path: "/medicines/" + escape(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCategories returns the catalog taxonomy
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.do(ctx, call{op: "list_categories", method: http.MethodGet, path: "/categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder submits an order. idempotencyKey lets the backend collapse
// duplicate submissions.
func (c *Client) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, call{
		op: "create_order", method: http.MethodPost, path: "/orders", body: req,
		headers: map[string]string{dto.IdempotencyKeyHeader: idempotencyKey},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns the current user's order history
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, call{op: "list_orders", method: http.MethodGet, path: "/orders"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder asks the backend to cancel an order
func (c *Client) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, call{op: "cancel_order", method: http.MethodPatch, path: "/orders/" + escape(id) + "/cancel"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminStats returns the admin dashboard summary
func (c *Client) AdminStats(ctx context.Context) (*domain.Stats, error) {
	var out domain.Stats
	if err := c.do(ctx, call{op: "admin_stats", method: http.MethodGet, path: "/admin/stats"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUsers lists every account
func (c *Client) AdminUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.do(ctx, call{op: "admin_users", method: http.MethodGet, path: "/admin/users"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetUserBanned bans or unbans an account
func (c *Client) SetUserBanned(ctx context.Context, id string, banned bool) (*domain.User, error) {
	var out domain.User
	err := c.do(ctx, call{
		op: "admin_update_user", method: http.MethodPatch, path: "/admin/users/" + escape(id),
		body: dto.UpdateUserRequest{IsBanned: banned},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SellerMedicines lists the seller's inventory
func (c *Client) SellerMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var out []domain.Medicine
	if err := c.do(ctx, call{op: "seller_medicines", method: http.MethodGet, path: "/seller/medicines"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMedicine adds a product to the seller's inventory
func (c *Client) CreateMedicine(ctx context.Context, req dto.MedicineRequest) (*domain.Medicine, error) {
	var out domain.Medicine
	if err := c.do(ctx, call{op: "seller_create_medicine", method: http.MethodPost, path: "/seller/medicines", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMedicine replaces a product in the seller's inventory
func (c *Client) UpdateMedicine(ctx context.Context, id string, req dto.MedicineRequest) (*domain.Medicine, error) {
	var out domain.Medicine
	err := c.do(ctx, call{
		op: "seller_update_medicine", method: http.MethodPut, path: "/seller/medicines/" + escape(id), body: req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMedicine removes a product from the seller's inventory
func (c *Client) DeleteMedicine(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "seller_delete_medicine", method: http.MethodDelete, path: "/seller/medicines/" + escape(id)}, nil)
}

// SellerOrders lists orders containing the seller's products
func (c *Client) SellerOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, call{op: "seller_orders", method: http.MethodGet, path: "/seller/orders"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderStatus requests a fulfilment transition
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, call{
		op: "seller_update_order", method: http.MethodPatch, path: "/seller/orders/" + escape(id),
		body: dto.UpdateOrderStatusRequest{Status: status},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
