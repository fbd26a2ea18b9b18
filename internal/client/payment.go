package client

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type PaymentResult struct {
	Paid          bool   `json:"paid"`
	TransactionID string `json:"transactionId"`
	FailureReason string `json:"failureReason"`
}

type CheckoutSession struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type processPaymentRequest struct {
	OrderID         string  `json:"orderId"`
	Amount          float64 `json:"amount"`
	SimulateFailure bool    `json:"simulateFailure,omitempty"`
}

type checkoutSessionRequest struct {
	OrderID       string  `json:"orderId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customerEmail,omitempty"`
}

// PaymentClient talks to the payment capability. Process is the
// synchronous gateway mode; CreateCheckoutSession starts the hosted flow
// whose terminal outcome arrives later as a payment.succeeded/failed event.
type PaymentClient struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
}

func NewPaymentClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		hc:      newHTTPClient(timeout),
		logger:  logger,
	}
}

func (c *PaymentClient) Process(ctx context.Context, bearerToken, orderID string, amount float64, simulateFailure bool) (*PaymentResult, error) {
	req := processPaymentRequest{
		OrderID:         orderID,
		Amount:          amount,
		SimulateFailure: simulateFailure,
	}
	res, err := doJSON[PaymentResult](ctx, c.hc, http.MethodPost, c.baseURL+"/process", bearerToken, req)
	if err != nil {
		c.logger.Warn("payment process call failed",
			zap.String("order_id", orderID),
			zap.Float64("amount", amount),
			zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (c *PaymentClient) CreateCheckoutSession(ctx context.Context, bearerToken, orderID string, amount float64, customerEmail string) (*CheckoutSession, error) {
	req := checkoutSessionRequest{
		OrderID:       orderID,
		Amount:        amount,
		Currency:      "USD",
		CustomerEmail: customerEmail,
	}
	res, err := doJSON[CheckoutSession](ctx, c.hc, http.MethodPost, c.baseURL+"/checkout-session", bearerToken, req)
	if err != nil {
		c.logger.Warn("payment checkout session call failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, err
	}
	return res, nil
}
