package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/NematiDev/Zentec/internal/cache"
	"github.com/NematiDev/Zentec/internal/domain"
	"github.com/NematiDev/Zentec/internal/repository"
)

// CartService owns the user's single Active cart.
type CartService struct {
	repo    repository.CartRepository
	catalog CatalogGateway
	cache   cache.CartCache
	sfg     singleflight.Group // prevents cache stampede on the read path
	logger  *zap.Logger
}

func NewCartService(repo repository.CartRepository, catalog CatalogGateway, cartCache cache.CartCache, logger *zap.Logger) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		cache:   cartCache,
		logger:  logger,
	}
}

// GetActiveCart returns the caller's Active cart, creating an empty one if
// none exists.
func (s *CartService) GetActiveCart(ctx context.Context, caller domain.Caller) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(caller.UserID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, caller.UserID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cart cache get error", zap.Error(err))
		}

		cart, errGet := s.getOrCreateCart(ctx, caller.UserID)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			bg, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(bg, caller.UserID, cart); errSet != nil {
				s.logger.Warn("cart cache set error", zap.Error(errSet))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem appends a line for productID or merges the quantity into an
// existing line. Unit price and name come from the catalog at add time.
func (s *CartService) AddItem(ctx context.Context, caller domain.Caller, productID string, quantity int) (*domain.Cart, error) {
	if productID == "" || quantity <= 0 {
		return nil, NewFailure(FailureInvalidItem, "product id and a positive quantity are required")
	}

	product, err := s.catalog.GetBasicInfo(ctx, caller.BearerToken, productID)
	if err != nil {
		return nil, NewFailure(FailureProductUnavailable, "product not found or unavailable", err.Error())
	}
	if !product.Available() {
		return nil, NewFailure(FailureProductUnavailable, "product is not available")
	}

	cart, err := s.getOrCreateCart(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	if i := cart.FindItem(product.ID); i >= 0 {
		cart.Items[i].Quantity += quantity
		cart.Items[i].LineTotal = cart.Items[i].UnitPrice * float64(cart.Items[i].Quantity)
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    quantity,
			LineTotal:   product.Price * float64(quantity),
			AddedAt:     time.Now().UTC(),
		})
	}

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	s.invalidateCache(caller.UserID)
	return cart, nil
}

// UpdateItem sets the quantity of an existing line; quantity 0 removes it.
func (s *CartService) UpdateItem(ctx context.Context, caller domain.Caller, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, NewFailure(FailureInvalidItem, "quantity cannot be negative")
	}

	cart, err := s.repo.GetActiveCart(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	i := cart.FindItem(productID)
	if i < 0 {
		return nil, NewFailure(FailureInvalidItem, "cart item not found")
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Quantity = quantity
		cart.Items[i].LineTotal = cart.Items[i].UnitPrice * float64(quantity)
	}

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	s.invalidateCache(caller.UserID)
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, caller domain.Caller, productID string) (*domain.Cart, error) {
	return s.UpdateItem(ctx, caller, productID, 0)
}

// ClearCart empties the cart's lines; the cart itself stays Active.
func (s *CartService) ClearCart(ctx context.Context, caller domain.Caller) (*domain.Cart, error) {
	cart, err := s.repo.GetActiveCart(ctx, caller.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return s.getOrCreateCart(ctx, caller.UserID)
	}
	if err != nil {
		return nil, err
	}

	cart.Items = nil
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	s.invalidateCache(caller.UserID)
	return cart, nil
}

func (s *CartService) getOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetActiveCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	cart = &domain.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	createErr := s.repo.CreateCart(ctx, cart)
	if errors.Is(createErr, repository.ErrActiveCartExists) {
		// lost the race; another request created it first
		return s.repo.GetActiveCart(ctx, userID)
	}
	if createErr != nil {
		return nil, createErr
	}
	return cart, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate error", zap.Error(err))
	}
}
