package service

import (
	"context"

	"github.com/NematiDev/Zentec/internal/client"
)

// Gateways to the external capabilities. The HTTP implementations live in
// internal/client; tests substitute hand-written mocks.

type InventoryGateway interface {
	Reserve(ctx context.Context, bearerToken, productID string, quantity int) (*client.ReserveResult, error)
	Release(ctx context.Context, bearerToken, productID string, quantity int) error
}

type PaymentGateway interface {
	Process(ctx context.Context, bearerToken, orderID string, amount float64, simulateFailure bool) (*client.PaymentResult, error)
	CreateCheckoutSession(ctx context.Context, bearerToken, orderID string, amount float64, customerEmail string) (*client.CheckoutSession, error)
}

type UserGateway interface {
	GetProfile(ctx context.Context, bearerToken string) (*client.UserProfile, error)
}

type CatalogGateway interface {
	GetBasicInfo(ctx context.Context, bearerToken, productID string) (*client.ProductInfo, error)
}
