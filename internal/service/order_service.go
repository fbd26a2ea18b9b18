package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/repository"
)

// OrderService answers order queries and handles explicit user
// cancellation.
type OrderService struct {
	orders    repository.OrderRepository
	inventory InventoryGateway
	logger    *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, inventory InventoryGateway, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		inventory: inventory,
		logger:    logger,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, caller domain.Caller, orderID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetUserOrder(ctx, caller.UserID, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, caller domain.Caller, page, size int) ([]*domain.Order, int64, error) {
	return s.orders.ListUserOrders(ctx, caller.UserID, page, size)
}

// CancelOrder cancels an order from PendingPayment or PaymentFailed.
// Paid orders are never cancellable here; an already Cancelled order is a
// no-op success. Only PendingPayment orders still hold reservations, so
// only those release stock; PaymentFailed orders were compensated when
// the payment failed.
func (s *OrderService) CancelOrder(ctx context.Context, caller domain.Caller, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetUserOrder(ctx, caller.UserID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusPaid {
		return nil, NewFailure(FailureConflict, "paid orders cannot be cancelled")
	}
	if order.Status == domain.OrderStatusCancelled {
		return order, nil
	}

	if order.Status == domain.OrderStatusPendingPayment {
		for _, item := range order.Items {
			if releaseErr := s.inventory.Release(ctx, caller.BearerToken, item.ProductID, item.Quantity); releaseErr != nil {
				s.logger.Error("failed to release stock on cancel",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID),
					zap.Error(releaseErr))
			}
		}
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled, ""); err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatusCancelled

	s.logger.Info("order cancelled by user", zap.String("order_id", order.ID.String()))
	return order, nil
}
