package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/domain"
)

// settlePayment drives the synchronous payment mode to a terminal order
// state. A transport error from the payment capability is treated the same
// as a declined payment: the reservations are compensated and the order
// lands in PaymentFailed. Either way the caller gets the order view back;
// payment outcome is carried in the status, not in an error.
func (s *CheckoutService) settlePayment(ctx context.Context, caller domain.Caller, cart *domain.Cart, order *domain.Order, reserved []reservedItem, simulateFailure bool) (*CheckoutResult, error) {
	payRes, payErr := s.payment.Process(ctx, caller.BearerToken, order.ID.String(), order.TotalAmount, simulateFailure)

	if payErr != nil || !payRes.Paid {
		reason := "payment declined"
		if payErr != nil {
			reason = payErr.Error()
		} else if payRes.FailureReason != "" {
			reason = payRes.FailureReason
		}
		return s.failPayment(ctx, caller, order, reserved, reason)
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaid, payRes.TransactionID); err != nil {
		// The charge went through but the local transition did not; do not
		// compensate stock for a paid order. Surface the fault.
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	order.Status = domain.OrderStatusPaid
	order.PaymentTransactionID = payRes.TransactionID
	order.UpdatedAt = time.Now().UTC()

	s.checkOutCart(ctx, cart)

	s.publisher.Publish(ctx, domain.RouteOrderPaid, order.ID.String(), domain.OrderPaidEvent{
		OrderID:              order.ID.String(),
		UserID:               order.UserID,
		UserEmail:            order.UserEmail,
		TotalAmount:          order.TotalAmount,
		PaymentTransactionID: order.PaymentTransactionID,
		PaidAtUTC:            time.Now().UTC(),
	})

	s.logger.Info("order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", order.PaymentTransactionID),
		zap.Float64("total_amount", order.TotalAmount))

	return &CheckoutResult{Order: order}, nil
}

// beginHostedPayment replaces the synchronous charge with a hosted
// checkout session. The order stays PendingPayment; the terminal
// transition arrives later through the payment events consumer. Failing to
// obtain a session is treated as a payment failure and compensated.
func (s *CheckoutService) beginHostedPayment(ctx context.Context, caller domain.Caller, cart *domain.Cart, order *domain.Order, reserved []reservedItem) (*CheckoutResult, error) {
	session, err := s.payment.CreateCheckoutSession(ctx, caller.BearerToken, order.ID.String(), order.TotalAmount, caller.Email)
	if err != nil {
		return s.failPayment(ctx, caller, order, reserved, err.Error())
	}

	s.checkOutCart(ctx, cart)

	s.logger.Info("hosted checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", session.SessionID))

	return &CheckoutResult{Order: order, PaymentSession: session}, nil
}

// failPayment compensates the full reservation set, persists the order as
// PaymentFailed and publishes the failure downstream.
func (s *CheckoutService) failPayment(ctx context.Context, caller domain.Caller, order *domain.Order, reserved []reservedItem, reason string) (*CheckoutResult, error) {
	s.logger.Warn("payment failed",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", reason))

	s.releaseReserved(ctx, caller.BearerToken, reserved)

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaymentFailed, ""); err != nil {
		return nil, fmt.Errorf("mark order payment failed: %w", err)
	}

	order.Status = domain.OrderStatusPaymentFailed
	order.UpdatedAt = time.Now().UTC()

	s.publisher.Publish(ctx, domain.RouteOrderPaymentFailed, order.ID.String(), domain.OrderPaymentFailedEvent{
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		UserEmail:   order.UserEmail,
		TotalAmount: order.TotalAmount,
		Reason:      reason,
		FailedAtUTC: time.Now().UTC(),
	})

	return &CheckoutResult{Order: order}, nil
}
