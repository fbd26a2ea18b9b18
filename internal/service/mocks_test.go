package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/cache"
	"github.com/NematiDev/Zentec/internal/client"
	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/metrics"
	"github.com/NematiDev/Zentec/internal/repository"
)

// MockOrderRepository implements repository.OrderRepository for testing
type MockOrderRepository struct {
	mu sync.Mutex

	CreatedOrders []*domain.Order
	CreateErr     error

	Order  *domain.Order
	GetErr error

	Updates   []StatusUpdate
	UpdateErr error

	Pending []*domain.Order
	ListErr error
}

type StatusUpdate struct {
	OrderID       uuid.UUID
	Status        domain.OrderStatus
	TransactionID string
}

func (m *MockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.CreatedOrders = append(m.CreatedOrders, order)
	return nil
}

func (m *MockOrderRepository) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Order, nil
}

func (m *MockOrderRepository) GetUserOrder(_ context.Context, _ string, id uuid.UUID) (*domain.Order, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Order, nil
}

func (m *MockOrderRepository) ListUserOrders(_ context.Context, _ string, _, _ int) ([]*domain.Order, int64, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	return m.Pending, int64(len(m.Pending)), nil
}

func (m *MockOrderRepository) UpdateOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus, paymentTransactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Updates = append(m.Updates, StatusUpdate{OrderID: id, Status: status, TransactionID: paymentTransactionID})
	return nil
}

func (m *MockOrderRepository) ListPendingOlderThan(_ context.Context, _ time.Time, _ int) ([]*domain.Order, error) {
	return m.Pending, m.ListErr
}

// MockCartRepository implements repository.CartRepository for testing
type MockCartRepository struct {
	Cart      *domain.Cart
	GetErr    error
	CreateErr error

	SavedCarts []*domain.Cart
	SaveErr    error
}

func (m *MockCartRepository) GetActiveCart(_ context.Context, _ string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Cart == nil {
		return nil, repository.ErrCartNotFound
	}
	return m.Cart, nil
}

func (m *MockCartRepository) CreateCart(_ context.Context, cart *domain.Cart) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Cart = cart
	return nil
}

func (m *MockCartRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.SavedCarts = append(m.SavedCarts, cart)
	return nil
}

// MockCartCache implements cache.CartCache for testing
type MockCartCache struct {
	mu      sync.Mutex
	Cached  *domain.Cart
	Deletes int
}

func (m *MockCartCache) Get(_ context.Context, _ string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Cached == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.Cached, nil
}

func (m *MockCartCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cached = cart
	return nil
}

func (m *MockCartCache) Delete(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cached = nil
	m.Deletes++
	return nil
}

// MockInventoryGateway implements InventoryGateway for testing
type MockInventoryGateway struct {
	// Stock maps product id to reservation outcome; a missing entry
	// produces an insufficient-stock error.
	Stock      map[string]*client.ReserveResult
	ReserveErr map[string]error

	ReserveCalls []string
	Released     []ReleasedItem
	ReleaseErr   error
}

type ReleasedItem struct {
	ProductID string
	Quantity  int
}

func (m *MockInventoryGateway) Reserve(_ context.Context, _, productID string, quantity int) (*client.ReserveResult, error) {
	m.ReserveCalls = append(m.ReserveCalls, productID)
	if err, ok := m.ReserveErr[productID]; ok {
		return nil, err
	}
	if res, ok := m.Stock[productID]; ok {
		out := *res
		out.ReservedQuantity = quantity
		return &out, nil
	}
	return nil, &client.APIError{StatusCode: 409, Message: "insufficient stock"}
}

func (m *MockInventoryGateway) Release(_ context.Context, _, productID string, quantity int) error {
	m.Released = append(m.Released, ReleasedItem{ProductID: productID, Quantity: quantity})
	return m.ReleaseErr
}

// MockPaymentGateway implements PaymentGateway for testing
type MockPaymentGateway struct {
	Result     *client.PaymentResult
	ProcessErr error

	Session    *client.CheckoutSession
	SessionErr error

	ProcessCalls int
	SessionCalls int
}

func (m *MockPaymentGateway) Process(_ context.Context, _, _ string, _ float64, simulateFailure bool) (*client.PaymentResult, error) {
	m.ProcessCalls++
	if m.ProcessErr != nil {
		return nil, m.ProcessErr
	}
	if simulateFailure {
		return &client.PaymentResult{Paid: false, FailureReason: "simulated failure"}, nil
	}
	return m.Result, nil
}

func (m *MockPaymentGateway) CreateCheckoutSession(_ context.Context, _, _ string, _ float64, _ string) (*client.CheckoutSession, error) {
	m.SessionCalls++
	if m.SessionErr != nil {
		return nil, m.SessionErr
	}
	return m.Session, nil
}

// MockUserGateway implements UserGateway for testing
type MockUserGateway struct {
	Profile *client.UserProfile
	Err     error
}

func (m *MockUserGateway) GetProfile(_ context.Context, _ string) (*client.UserProfile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Profile, nil
}

// MockCatalogGateway implements CatalogGateway for testing
type MockCatalogGateway struct {
	Products map[string]*client.ProductInfo
	Err      error
}

func (m *MockCatalogGateway) GetBasicInfo(_ context.Context, _, productID string) (*client.ProductInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Products[productID]; ok {
		return p, nil
	}
	return nil, &client.APIError{StatusCode: 404, Message: "product not found"}
}

// MockPublisher implements bus.Publisher for testing
type MockPublisher struct {
	mu        sync.Mutex
	Published []PublishedEvent
}

type PublishedEvent struct {
	RoutingKey string
	Key        string
	Payload    any
}

func (m *MockPublisher) Publish(_ context.Context, routingKey, key string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedEvent{RoutingKey: routingKey, Key: key, Payload: payload})
}

func (m *MockPublisher) ByRoutingKey(routingKey string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedEvent
	for _, e := range m.Published {
		if e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

func completeProfile() *client.UserProfile {
	return &client.UserProfile{
		Province:   "Tehran",
		City:       "Tehran",
		Address:    "12 Azadi St",
		PostalCode: "1234567890",
	}
}

func activeCart(userID string, items ...domain.CartItem) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.CartStatusActive,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func cartLine(productID, name string, price float64, quantity int) domain.CartItem {
	return domain.CartItem{
		ProductID:   productID,
		ProductName: name,
		UnitPrice:   price,
		Quantity:    quantity,
		LineTotal:   price * float64(quantity),
		AddedAt:     time.Now().UTC(),
	}
}

// newTestCheckoutService creates a fully wired CheckoutService for testing
func newTestCheckoutService(
	orders *MockOrderRepository,
	carts *MockCartRepository,
	inv *MockInventoryGateway,
	pay *MockPaymentGateway,
	users *MockUserGateway,
	pub *MockPublisher,
	mode PaymentMode,
) *CheckoutService {
	return NewCheckoutService(orders, carts, &MockCartCache{}, inv, pay, users, pub, metrics.New(), zap.NewNop(), mode)
}
