package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/domain"
)

// reservedItem is the in-memory reservation intent for one saga attempt.
// It exists only to drive compensation and is discarded afterwards.
type reservedItem struct {
	productID string
	quantity  int
}

// reserveItems reserves stock for every cart line in cart order. Single
// products reserve atomically; there is no cross-product atomicity, so on
// the first failure every prior reservation of this attempt is released
// and the inventory error is surfaced as a reservation failure.
//
// The returned order items are built from what the reservation call
// reported (name, unit price, reserved quantity), not from the cart's
// cached copy, so price-at-reservation wins.
func (s *CheckoutService) reserveItems(ctx context.Context, bearerToken string, items []domain.CartItem) ([]domain.OrderItem, []reservedItem, error) {
	orderItems := make([]domain.OrderItem, 0, len(items))
	reserved := make([]reservedItem, 0, len(items))

	for _, item := range items {
		res, err := s.inventory.Reserve(ctx, bearerToken, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Warn("reservation failed, releasing prior reservations",
				zap.String("product_id", item.ProductID),
				zap.Int("reserved_so_far", len(reserved)),
				zap.Error(err))
			s.releaseReserved(ctx, bearerToken, reserved)
			return nil, nil, NewFailure(FailureReservation, "unable to reserve product stock", err.Error())
		}

		reserved = append(reserved, reservedItem{productID: item.ProductID, quantity: item.Quantity})
		orderItems = append(orderItems, domain.OrderItem{
			ProductID:   res.ProductID,
			ProductName: res.ProductName,
			UnitPrice:   res.UnitPrice,
			Quantity:    res.ReservedQuantity,
			LineTotal:   res.UnitPrice * float64(res.ReservedQuantity),
		})
	}

	return orderItems, reserved, nil
}
