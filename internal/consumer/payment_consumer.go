// Package consumer reconciles order state from out-of-band payment events.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/bus"
	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/metrics"
	"github.com/NematiDev/Zentec/internal/repository"
)

// OrderStore is the slice of the repository the handler needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, paymentTransactionID string) error
}

// StockReleaser returns reserved stock when a hosted payment fails.
type StockReleaser interface {
	Release(ctx context.Context, bearerToken, productID string, quantity int) error
}

// PaymentEventHandler applies payment.succeeded/payment.failed deliveries
// to order state. Delivery is at-least-once and possibly cross-instance
// concurrent for the same order id; the status check before every
// transition is what makes duplicates and reorderings safe.
type PaymentEventHandler struct {
	orders       OrderStore
	inventory    StockReleaser
	publisher    bus.Publisher
	serviceToken string
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewPaymentEventHandler(orders OrderStore, inventory StockReleaser, publisher bus.Publisher, serviceToken string, m *metrics.Metrics, logger *zap.Logger) *PaymentEventHandler {
	return &PaymentEventHandler{
		orders:       orders,
		inventory:    inventory,
		publisher:    publisher,
		serviceToken: serviceToken,
		metrics:      m,
		logger:       logger,
	}
}

func (h *PaymentEventHandler) Handle(ctx context.Context, msg bus.Message) error {
	var err error
	switch msg.RoutingKey {
	case domain.RoutePaymentSucceeded:
		err = h.handleSucceeded(ctx, msg.Value)
	case domain.RoutePaymentFailed:
		err = h.handleFailed(ctx, msg.Value)
	default:
		// cannot become processable by retrying
		err = fmt.Errorf("%w: unrecognized routing key %q", bus.ErrDrop, msg.RoutingKey)
	}

	h.metrics.ConsumedEventsTotal.WithLabelValues(msg.RoutingKey, resultLabel(err)).Inc()
	return err
}

func (h *PaymentEventHandler) handleSucceeded(ctx context.Context, payload []byte) error {
	var evt domain.PaymentSucceededEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: invalid payment.succeeded payload: %v", bus.ErrDrop, err)
	}

	order, err := h.loadOrder(ctx, evt.OrderID)
	if err != nil || order == nil {
		return err
	}

	if order.Status == domain.OrderStatusPaid {
		// redelivery or an out-of-order retry; already applied
		h.logger.Info("order already marked as paid",
			zap.String("order_id", evt.OrderID))
		return nil
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusPaid) {
		h.logger.Warn("payment.succeeded for order no longer pending",
			zap.String("order_id", evt.OrderID),
			zap.String("status", string(order.Status)))
		return nil
	}

	if err := h.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaid, evt.TransactionID); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	h.publisher.Publish(ctx, domain.RouteOrderPaid, order.ID.String(), domain.OrderPaidEvent{
		OrderID:              order.ID.String(),
		UserID:               order.UserID,
		UserEmail:            order.UserEmail,
		TotalAmount:          order.TotalAmount,
		PaymentTransactionID: evt.TransactionID,
		PaidAtUTC:            time.Now().UTC(),
	})

	h.logger.Info("order marked as paid",
		zap.String("order_id", evt.OrderID),
		zap.String("transaction_id", evt.TransactionID))
	return nil
}

func (h *PaymentEventHandler) handleFailed(ctx context.Context, payload []byte) error {
	var evt domain.PaymentFailedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: invalid payment.failed payload: %v", bus.ErrDrop, err)
	}

	order, err := h.loadOrder(ctx, evt.OrderID)
	if err != nil || order == nil {
		return err
	}

	if order.Status == domain.OrderStatusPaid {
		// never downgrade a paid order
		h.logger.Warn("dropping payment.failed for already paid order",
			zap.String("order_id", evt.OrderID))
		return nil
	}
	if order.Status != domain.OrderStatusPendingPayment {
		// redelivery; the failure was already applied and compensated
		return nil
	}

	// A pending order still holds its reservations; give them back before
	// recording the failure. Releases act on the service's own behalf since
	// there is no user request in flight here.
	for _, item := range order.Items {
		if releaseErr := h.inventory.Release(ctx, h.serviceToken, item.ProductID, item.Quantity); releaseErr != nil {
			h.logger.Error("failed to release stock for failed payment",
				zap.String("order_id", evt.OrderID),
				zap.String("product_id", item.ProductID),
				zap.Error(releaseErr))
		}
	}

	if err := h.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaymentFailed, ""); err != nil {
		return fmt.Errorf("mark order payment failed: %w", err)
	}

	h.publisher.Publish(ctx, domain.RouteOrderPaymentFailed, order.ID.String(), domain.OrderPaymentFailedEvent{
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		UserEmail:   order.UserEmail,
		TotalAmount: order.TotalAmount,
		Reason:      evt.Reason,
		FailedAtUTC: time.Now().UTC(),
	})

	h.logger.Warn("order marked as payment failed",
		zap.String("order_id", evt.OrderID),
		zap.String("reason", evt.Reason))
	return nil
}

// loadOrder resolves the event's order. A malformed id or a missing order
// is acknowledged with a warning: retrying cannot make either processable,
// since payment events only follow order creation.
func (h *PaymentEventHandler) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid order id %q: %v", bus.ErrDrop, orderID, err)
	}

	order, err := h.orders.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		h.logger.Warn("payment event for unknown order", zap.String("order_id", orderID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, bus.ErrDrop):
		return "dropped"
	default:
		return "error"
	}
}
