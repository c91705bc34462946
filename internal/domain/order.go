package domain

import "time"

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus validates a status string.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	switch OrderStatus(value) {
	case OrderPending, OrderConfirmed, OrderInProgress, OrderCompleted, OrderCancelled:
		return OrderStatus(value), true
	default:
		return "", false
	}
}

// IsOpen reports whether revenue for the order is still expected.
func (s OrderStatus) IsOpen() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderInProgress
}

// Order is a customer booking.
type Order struct {
	ID          string
	CustomerID  string
	MitraID     *string
	ServiceID   *string
	Status      OrderStatus
	TotalPrice  float64
	Address     *string
	ScheduledAt *time.Time
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderWithDetails is an order joined with display names.
type OrderWithDetails struct {
	Order
	CustomerName string
	MitraName    string
	ServiceName  string
}
