package domain

import "time"

// OrderStatusEvent is published whenever an order changes status
type OrderStatusEvent struct {
	OrderID    string      `json:"orderId"`
	UserID     string      `json:"userId"`
	Status     OrderStatus `json:"status"`
	OccurredAt time.Time   `json:"occurredAt"`
}
