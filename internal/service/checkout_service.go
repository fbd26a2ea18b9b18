package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/bus"
	"github.com/NematiDev/Zentec/internal/cache"
	"github.com/NematiDev/Zentec/internal/client"
	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/metrics"
	"github.com/NematiDev/Zentec/internal/repository"
)

// PaymentMode selects how the saga settles payment. A deployment runs
// exactly one mode; running both would duplicate order.paid publishes
// (idempotent consumers absorb it, but there is no reason to).
type PaymentMode string

const (
	PaymentModeSync   PaymentMode = "sync"
	PaymentModeHosted PaymentMode = "hosted"
)

type CheckoutRequest struct {
	SimulatePaymentFailure bool
}

// CheckoutResult is returned for every checkout that got past the
// preconditions and reservation. Payment failure is reported through
// Order.Status, not through an error.
type CheckoutResult struct {
	Order          *domain.Order
	PaymentSession *client.CheckoutSession
}

// CheckoutService is the saga orchestrator: it converts the caller's
// Active cart into an order, reserving stock along the way and
// compensating on any partial failure.
type CheckoutService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	cartCache cache.CartCache
	inventory InventoryGateway
	payment   PaymentGateway
	users     UserGateway
	publisher bus.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	mode      PaymentMode
}

func NewCheckoutService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	cartCache cache.CartCache,
	inventory InventoryGateway,
	payment PaymentGateway,
	users UserGateway,
	publisher bus.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	mode PaymentMode,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		carts:     carts,
		cartCache: cartCache,
		inventory: inventory,
		payment:   payment,
		users:     users,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		mode:      mode,
	}
}

// Checkout runs one saga attempt:
//
//  1. snapshot the Active cart,
//  2. reserve stock item by item in cart order, releasing prior
//     reservations on the first failure,
//  3. persist the order in PendingPayment from the reservation snapshots,
//  4. settle payment synchronously or hand back a hosted session.
//
// Precondition and reservation failures return a *Failure and leave no
// order row behind. Payment failure returns a CheckoutResult whose order
// is PaymentFailed.
func (s *CheckoutService) Checkout(ctx context.Context, caller domain.Caller, req CheckoutRequest) (*CheckoutResult, error) {
	started := time.Now()
	result, err := s.checkout(ctx, caller, req)
	s.metrics.CheckoutDuration.Observe(time.Since(started).Seconds())
	s.metrics.CheckoutsTotal.WithLabelValues(checkoutOutcome(result, err)).Inc()
	return result, err
}

func (s *CheckoutService) checkout(ctx context.Context, caller domain.Caller, req CheckoutRequest) (*CheckoutResult, error) {
	cart, err := s.carts.GetActiveCart(ctx, caller.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, NewFailure(FailureEmptyCart, "cart is empty, nothing to checkout")
	}
	if err != nil {
		return nil, fmt.Errorf("load active cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, NewFailure(FailureEmptyCart, "cart is empty, nothing to checkout")
	}

	if err := s.validateProfile(ctx, caller); err != nil {
		return nil, err
	}

	orderItems, reserved, err := s.reserveItems(ctx, caller.BearerToken, cart.Items)
	if err != nil {
		// partial reservations already released; no order row exists
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    caller.UserID,
		UserEmail: caller.Email,
		Status:    domain.OrderStatusPendingPayment,
		Items:     orderItems,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.TotalAmount = order.SumLineTotals()

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.releaseReserved(ctx, caller.BearerToken, reserved)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if s.mode == PaymentModeHosted {
		return s.beginHostedPayment(ctx, caller, cart, order, reserved)
	}
	return s.settlePayment(ctx, caller, cart, order, reserved, req.SimulatePaymentFailure)
}

func (s *CheckoutService) validateProfile(ctx context.Context, caller domain.Caller) error {
	profile, err := s.users.GetProfile(ctx, caller.BearerToken)
	if err != nil {
		return NewFailure(FailureIncompleteProfile, "unable to retrieve user profile", err.Error())
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"Province", profile.Province},
		{"City", profile.City},
		{"Address", profile.Address},
		{"PostalCode", profile.PostalCode},
	} {
		if f.value == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return NewFailure(FailureIncompleteProfile, "user profile is incomplete", missing...)
	}
	return nil
}

// checkOutCart marks the source cart CheckedOut. A failure here is logged
// and tolerated: the order is already settled and the stale cart only
// costs the user a manual clear.
func (s *CheckoutService) checkOutCart(ctx context.Context, cart *domain.Cart) {
	cart.Status = domain.CartStatusCheckedOut
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("failed to mark cart checked out",
			zap.String("cart_id", cart.ID.String()),
			zap.Error(err))
		return
	}
	bg, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cartCache.Delete(bg, cart.UserID); err != nil {
		s.logger.Warn("cart cache invalidate error", zap.Error(err))
	}
}

func checkoutOutcome(result *CheckoutResult, err error) string {
	switch {
	case err == nil && result != nil && result.Order != nil && result.Order.Status == domain.OrderStatusPaymentFailed:
		return "payment_failed"
	case err == nil:
		return "ok"
	default:
		if f, ok := AsFailure(err); ok {
			return string(f.Kind)
		}
		return "fault"
	}
}
