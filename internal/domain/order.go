package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PendingPayment"
	OrderStatusPaid           OrderStatus = "Paid"
	OrderStatusPaymentFailed  OrderStatus = "PaymentFailed"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
// Paid is terminal and may never be reversed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// CanTransitionTo encodes the forward-only order lifecycle:
// PendingPayment -> {Paid, PaymentFailed, Cancelled}, PaymentFailed -> Cancelled.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	switch s {
	case OrderStatusPendingPayment:
		return to == OrderStatusPaid || to == OrderStatusPaymentFailed || to == OrderStatusCancelled
	case OrderStatusPaymentFailed:
		return to == OrderStatusCancelled
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is a snapshot taken at order creation. Product name and price
// are copied, not referenced, so later catalog changes cannot alter a
// placed order.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// Order is the saga's unit of work. The order id doubles as the
// idempotency and correlation key for payment and event handling.
type Order struct {
	ID                   uuid.UUID
	UserID               string
	UserEmail            string
	Status               OrderStatus
	TotalAmount          float64
	PaymentTransactionID string
	Items                []OrderItem
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SumLineTotals recomputes the order total from its items. TotalAmount
// must always equal this at the moment of persistence.
func (o *Order) SumLineTotals() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.LineTotal
	}
	return total
}
