package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type ReserveResult struct {
	ProductID        string  `json:"productId"`
	ProductName      string  `json:"productName"`
	UnitPrice        float64 `json:"unitPrice"`
	ReservedQuantity int     `json:"reservedQuantity"`
	RemainingStock   int     `json:"remainingStock"`
}

type reserveStockRequest struct {
	Quantity int `json:"quantity"`
}

// InventoryClient talks to the inventory capability. Reserve and release
// are atomic per product; there is no cross-product atomicity, which is
// why the saga compensates item by item.
type InventoryClient struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
}

func NewInventoryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *InventoryClient {
	return &InventoryClient{
		baseURL: baseURL,
		hc:      newHTTPClient(timeout),
		logger:  logger,
	}
}

func (c *InventoryClient) Reserve(ctx context.Context, bearerToken, productID string, quantity int) (*ReserveResult, error) {
	url := fmt.Sprintf("%s/%s/reserve", c.baseURL, productID)
	res, err := doJSON[ReserveResult](ctx, c.hc, http.MethodPost, url, bearerToken, reserveStockRequest{Quantity: quantity})
	if err != nil {
		c.logger.Warn("inventory reserve failed",
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (c *InventoryClient) Release(ctx context.Context, bearerToken, productID string, quantity int) error {
	url := fmt.Sprintf("%s/%s/release", c.baseURL, productID)
	_, err := doJSON[bool](ctx, c.hc, http.MethodPost, url, bearerToken, reserveStockRequest{Quantity: quantity})
	if err != nil {
		c.logger.Warn("inventory release failed",
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return err
	}
	return nil
}
