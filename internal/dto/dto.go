// Package dto holds the request and response bodies exchanged with the
// storefront backend.
package dto

import "github.com/niloyhakimai/medistore-client/internal/domain"

// LoginRequest represents the login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued credential and the cached profile
type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// RegisterRequest represents the registration form
type RegisterRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     domain.Role `json:"role"`
}

// OrderItemRequest is one {medicineId, quantity} pair of an order request
type OrderItemRequest struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest represents an order submission
type CreateOrderRequest struct {
	Items   []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Address string             `json:"address" binding:"required"`
}

// UpdateOrderStatusRequest represents a seller fulfilment update
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// UpdateUserRequest represents an admin ban toggle
type UpdateUserRequest struct {
	IsBanned bool `json:"isBanned"`
}

// MedicineRequest represents the seller inventory form
type MedicineRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" binding:"min=0"`
	Stock        int     `json:"stock" binding:"min=0"`
	Manufacturer string  `json:"manufacturer"`
	ExpiryDate   string  `json:"expiryDate"`
	CategoryID   string  `json:"categoryId"`
}

// IdempotencyKeyHeader carries the client generated key of an order submission
const IdempotencyKeyHeader = "X-Idempotency-Key"
