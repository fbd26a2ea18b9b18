package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NematiDev/Zentec/internal/client"
	"github.com/NematiDev/Zentec/internal/domain"
)

var caller = domain.Caller{UserID: "user-1", Email: "user@example.com", BearerToken: "token"}

func twoLineCart() *domain.Cart {
	return activeCart("user-1",
		cartLine("product-a", "Product A", 10.00, 2),
		cartLine("product-b", "Product B", 5.00, 1),
	)
}

func stockFor(cart *domain.Cart) map[string]*client.ReserveResult {
	stock := make(map[string]*client.ReserveResult)
	for _, item := range cart.Items {
		stock[item.ProductID] = &client.ReserveResult{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
		}
	}
	return stock
}

func TestCheckout_HappyPath(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{Result: &client.PaymentResult{Paid: true, TransactionID: "TX-1"}}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.OrderStatusPaid, result.Order.Status)
	assert.Equal(t, "TX-1", result.Order.PaymentTransactionID)
	assert.Equal(t, 25.00, result.Order.TotalAmount)
	assert.Len(t, result.Order.Items, 2)

	// stock reserved in cart order, nothing released
	assert.Equal(t, []string{"product-a", "product-b"}, inv.ReserveCalls)
	assert.Empty(t, inv.Released)

	// cart checked out
	require.Len(t, carts.SavedCarts, 1)
	assert.Equal(t, domain.CartStatusCheckedOut, carts.SavedCarts[0].Status)

	// exactly one order.paid event
	paid := pub.ByRoutingKey(domain.RouteOrderPaid)
	require.Len(t, paid, 1)
	evt := paid[0].Payload.(domain.OrderPaidEvent)
	assert.Equal(t, result.Order.ID.String(), evt.OrderID)
	assert.Equal(t, "TX-1", evt.PaymentTransactionID)
	assert.Equal(t, 25.00, evt.TotalAmount)
}

func TestCheckout_EmptyCart(t *testing.T) {
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: activeCart("user-1")}
	inv := &MockInventoryGateway{}
	pay := &MockPaymentGateway{}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	assert.Nil(t, result)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, FailureEmptyCart, f.Kind)
	assert.Empty(t, inv.ReserveCalls)
	assert.Empty(t, orders.CreatedOrders)
}

func TestCheckout_NoActiveCart(t *testing.T) {
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{}
	svc := newTestCheckoutService(orders, carts, &MockInventoryGateway{}, &MockPaymentGateway{}, &MockUserGateway{}, &MockPublisher{}, PaymentModeSync)

	_, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, FailureEmptyCart, f.Kind)
}

func TestCheckout_IncompleteProfile(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	users := &MockUserGateway{Profile: &client.UserProfile{Province: "Tehran", City: "Tehran"}}
	svc := newTestCheckoutService(orders, carts, inv, &MockPaymentGateway{}, users, &MockPublisher{}, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	assert.Nil(t, result)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, FailureIncompleteProfile, f.Kind)
	assert.Contains(t, f.Errors, "Address is required")
	assert.Contains(t, f.Errors, "PostalCode is required")

	// nothing reserved, no order row
	assert.Empty(t, inv.ReserveCalls)
	assert.Empty(t, orders.CreatedOrders)
}

func TestCheckout_ReservationFailureCompensatesPriorItems(t *testing.T) {
	cart := activeCart("user-1",
		cartLine("product-a", "Product A", 10.00, 2),
		cartLine("product-b", "Product B", 5.00, 1),
		cartLine("product-c", "Product C", 7.50, 4),
	)
	stock := stockFor(cart)
	delete(stock, "product-c") // reservation fails on the third item

	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stock}
	pay := &MockPaymentGateway{}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	assert.Nil(t, result)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, FailureReservation, f.Kind)

	// exactly the two prior reservations released, each exactly once
	assert.Equal(t, []ReleasedItem{
		{ProductID: "product-a", Quantity: 2},
		{ProductID: "product-b", Quantity: 1},
	}, inv.Released)

	// no order row, no payment, no events
	assert.Empty(t, orders.CreatedOrders)
	assert.Zero(t, pay.ProcessCalls)
	assert.Empty(t, pub.Published)
}

func TestCheckout_FirstReservationFailureReleasesNothing(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{} // every reservation fails
	users := &MockUserGateway{Profile: completeProfile()}
	svc := newTestCheckoutService(orders, carts, inv, &MockPaymentGateway{}, users, &MockPublisher{}, PaymentModeSync)

	_, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, FailureReservation, f.Kind)
	assert.Equal(t, []string{"product-a"}, inv.ReserveCalls)
	assert.Empty(t, inv.Released)
}

func TestCheckout_PaymentDeclinedCompensatesEverything(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{Result: &client.PaymentResult{Paid: false, FailureReason: "card declined"}}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.OrderStatusPaymentFailed, result.Order.Status)

	// every reservation of the attempt released
	assert.Equal(t, []ReleasedItem{
		{ProductID: "product-a", Quantity: 2},
		{ProductID: "product-b", Quantity: 1},
	}, inv.Released)

	// order persisted, then transitioned to PaymentFailed
	require.Len(t, orders.CreatedOrders, 1)
	require.Len(t, orders.Updates, 1)
	assert.Equal(t, domain.OrderStatusPaymentFailed, orders.Updates[0].Status)

	// failure event carries the reason
	failed := pub.ByRoutingKey(domain.RouteOrderPaymentFailed)
	require.Len(t, failed, 1)
	evt := failed[0].Payload.(domain.OrderPaymentFailedEvent)
	assert.Equal(t, "card declined", evt.Reason)

	// the cart stays Active so the user can retry
	assert.Empty(t, carts.SavedCarts)
}

func TestCheckout_PaymentTransportErrorTreatedAsFailure(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{ProcessErr: errors.New("connection refused")}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, result.Order.Status)
	assert.Len(t, inv.Released, 2)
}

func TestCheckout_SimulatedPaymentFailure(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{Result: &client.PaymentResult{Paid: true, TransactionID: "TX-1"}}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{SimulatePaymentFailure: true})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, result.Order.Status)
	failed := pub.ByRoutingKey(domain.RouteOrderPaymentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "simulated failure", failed[0].Payload.(domain.OrderPaymentFailedEvent).Reason)
}

func TestCheckout_OrderPersistFailureCompensates(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{CreateErr: errors.New("db down")}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	assert.Nil(t, result)
	require.Error(t, err)
	_, isFailure := AsFailure(err)
	assert.False(t, isFailure, "a storage fault is not a business failure")
	assert.Len(t, inv.Released, 2)
	assert.Zero(t, pay.ProcessCalls)
}

func TestCheckout_PriceAtReservationWins(t *testing.T) {
	cart := activeCart("user-1", cartLine("product-a", "Product A", 10.00, 2))
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: map[string]*client.ReserveResult{
		// price changed since the item was added to the cart
		"product-a": {ProductID: "product-a", ProductName: "Product A", UnitPrice: 12.00},
	}}
	pay := &MockPaymentGateway{Result: &client.PaymentResult{Paid: true, TransactionID: "TX-2"}}
	users := &MockUserGateway{Profile: completeProfile()}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, &MockPublisher{}, PaymentModeSync)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	require.NoError(t, err)
	assert.Equal(t, 24.00, result.Order.TotalAmount)
	assert.Equal(t, 12.00, result.Order.Items[0].UnitPrice)
}

func TestCheckout_HostedModeReturnsSession(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{Session: &client.CheckoutSession{SessionID: "sess-1", CheckoutURL: "https://pay.example/sess-1"}}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeHosted)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	require.NoError(t, err)
	require.NotNil(t, result.PaymentSession)
	assert.Equal(t, "sess-1", result.PaymentSession.SessionID)

	// the order waits for the payment events consumer
	assert.Equal(t, domain.OrderStatusPendingPayment, result.Order.Status)
	assert.Empty(t, orders.Updates)
	assert.Empty(t, pub.Published)

	// no synchronous charge in hosted mode
	assert.Zero(t, pay.ProcessCalls)
	assert.Equal(t, 1, pay.SessionCalls)

	// cart is checked out up front; a failed hosted payment reaches the
	// user as a PaymentFailed order, not a resurrected cart
	require.Len(t, carts.SavedCarts, 1)
	assert.Equal(t, domain.CartStatusCheckedOut, carts.SavedCarts[0].Status)
}

func TestCheckout_HostedModeSessionFailureCompensates(t *testing.T) {
	cart := twoLineCart()
	orders := &MockOrderRepository{}
	carts := &MockCartRepository{Cart: cart}
	inv := &MockInventoryGateway{Stock: stockFor(cart)}
	pay := &MockPaymentGateway{SessionErr: errors.New("payment provider unavailable")}
	users := &MockUserGateway{Profile: completeProfile()}
	pub := &MockPublisher{}
	svc := newTestCheckoutService(orders, carts, inv, pay, users, pub, PaymentModeHosted)

	result, err := svc.Checkout(context.Background(), caller, CheckoutRequest{})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, result.Order.Status)
	assert.Len(t, inv.Released, 2)
	require.Len(t, pub.ByRoutingKey(domain.RouteOrderPaymentFailed), 1)
}
