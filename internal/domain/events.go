package domain

import "time"

// Routing keys for the topic-routed event bus. Dot-namespaced, stable.
const (
	RouteOrderPaid          = "order.paid"
	RouteOrderPaymentFailed = "order.payment_failed"
	RoutePaymentSucceeded   = "payment.succeeded"
	RoutePaymentFailed      = "payment.failed"
)

// OrderPaidEvent is published downstream when an order reaches Paid.
type OrderPaidEvent struct {
	OrderID              string    `json:"orderId"`
	UserID               string    `json:"userId"`
	UserEmail            string    `json:"userEmail"`
	TotalAmount          float64   `json:"totalAmount"`
	PaymentTransactionID string    `json:"paymentTransactionId"`
	PaidAtUTC            time.Time `json:"paidAtUtc"`
}

// OrderPaymentFailedEvent is published downstream when payment settles as failed.
type OrderPaymentFailedEvent struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	UserEmail   string    `json:"userEmail"`
	TotalAmount float64   `json:"totalAmount"`
	Reason      string    `json:"reason"`
	FailedAtUTC time.Time `json:"failedAtUtc"`
}

// PaymentSucceededEvent is consumed from the payment provider side.
type PaymentSucceededEvent struct {
	OrderID         string    `json:"orderId"`
	PaymentIntentID string    `json:"paymentIntentId"`
	TransactionID   string    `json:"transactionId"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	PaidAtUTC       time.Time `json:"paidAtUtc"`
}

// PaymentFailedEvent is consumed from the payment provider side.
type PaymentFailedEvent struct {
	OrderID         string    `json:"orderId"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Reason          string    `json:"reason"`
	FailedAtUTC     time.Time `json:"failedAtUtc"`
}
