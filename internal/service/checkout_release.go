package service

import (
	"context"

	"go.uber.org/zap"
)

// releaseReserved compensates a reservation set. Releases are idempotent
// and commutative, so order does not matter. A release that errors is
// logged and skipped: compensation is best-effort and the reaper bounds
// the lifetime of any leaked reservation.
func (s *CheckoutService) releaseReserved(ctx context.Context, bearerToken string, reserved []reservedItem) {
	if len(reserved) == 0 {
		return
	}
	s.metrics.CompensationsTotal.Inc()

	for _, r := range reserved {
		if err := s.inventory.Release(ctx, bearerToken, r.productID, r.quantity); err != nil {
			s.logger.Error("compensating release failed",
				zap.String("product_id", r.productID),
				zap.Int("quantity", r.quantity),
				zap.Error(err))
		}
	}
}
