package domain

import "time"

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPlaced     OrderStatus = "PLACED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// orderTransitions is the fulfilment graph the backend enforces
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:     {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// Normalize folds the legacy PENDING status into PLACED
func (s OrderStatus) Normalize() OrderStatus {
	if s == OrderStatusPending {
		return OrderStatusPlaced
	}
	return s
}

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	switch s.Normalize() {
	case OrderStatusPlaced, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	n := s.Normalize()
	return n == OrderStatusDelivered || n == OrderStatusCancelled
}

// CanTransitionTo reports whether the backend accepts moving from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s.Normalize()] {
		if allowed == next.Normalize() {
			return true
		}
	}
	return false
}

// Label returns a display label for the status
func (s OrderStatus) Label() string {
	switch s.Normalize() {
	case OrderStatusPlaced:
		return "Placed"
	case OrderStatusProcessing:
		return "Processing"
	case OrderStatusShipped:
		return "Shipped"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// OrderItem represents one line of a placed order
type OrderItem struct {
	ID         string    `json:"id,omitempty"`
	MedicineID string    `json:"medicineId"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	Medicine   *Medicine `json:"medicine,omitempty"`
}

// Order is a read-only projection of an order owned by the backend
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId,omitempty"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	Address     string      `json:"address,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	User        *User       `json:"user,omitempty"`
}

// Stats represents the admin dashboard summary
type Stats struct {
	TotalSales   float64 `json:"totalSales"`
	TotalOrders  int     `json:"totalOrders"`
	TotalUsers   int     `json:"totalUsers"`
	RecentOrders []Order `json:"recentOrders"`
}
