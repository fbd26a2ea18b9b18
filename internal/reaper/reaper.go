// Package reaper cancels orders stuck in PendingPayment past a deadline
// and releases the stock they still hold. It is the backstop that bounds
// reservation leaks from crashed sagas and never-finished hosted payments.
package reaper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/metrics"
)

type OrderStore interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, paymentTransactionID string) error
}

type StockReleaser interface {
	Release(ctx context.Context, bearerToken, productID string, quantity int) error
}

type Config struct {
	// Deadline is how long an order may sit in PendingPayment.
	Deadline time.Duration
	// Interval between cycles; ErrorBackoff is used instead after a cycle
	// that errored.
	Interval     time.Duration
	ErrorBackoff time.Duration
	// BatchSize bounds how many orders one cycle touches.
	BatchSize int
	// ServiceToken authorizes inventory releases made on the service's own
	// behalf rather than a user's.
	ServiceToken string
}

type Reaper struct {
	orders    OrderStore
	inventory StockReleaser
	cfg       Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(orders OrderStore, inventory StockReleaser, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Reaper {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 30 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Reaper{
		orders:    orders,
		inventory: inventory,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("abandoned order reaper started",
		zap.Duration("deadline", r.cfg.Deadline),
		zap.Duration("interval", r.cfg.Interval))

	for {
		wait := r.cfg.Interval
		if err := r.RunCycle(ctx); err != nil {
			r.logger.Error("reaper cycle failed", zap.Error(err))
			wait = r.cfg.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			r.logger.Info("abandoned order reaper stopped")
			return
		case <-time.After(wait):
		}
	}
}

// RunCycle cancels one batch of abandoned orders. Only orders in
// PendingPayment older than the deadline are selected; stock release is
// best-effort and never blocks the cancellation.
func (r *Reaper) RunCycle(ctx context.Context) error {
	cutoff := time.Now().Add(-r.cfg.Deadline)
	orders, err := r.orders.ListPendingOlderThan(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, order := range orders {
		r.logger.Info("cancelling abandoned order",
			zap.String("order_id", order.ID.String()),
			zap.Time("created_at", order.CreatedAt))

		for _, item := range order.Items {
			if releaseErr := r.inventory.Release(ctx, r.cfg.ServiceToken, item.ProductID, item.Quantity); releaseErr != nil {
				r.logger.Error("failed to release stock for abandoned order",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID),
					zap.Error(releaseErr))
			}
		}

		if err := r.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled, ""); err != nil {
			r.logger.Error("failed to cancel abandoned order",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
			continue
		}
		r.metrics.ReapedOrdersTotal.Inc()
	}

	if len(orders) > 0 {
		r.logger.Info("reaper cycle finished", zap.Int("cancelled", len(orders)))
	}
	return nil
}
