package client

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type ProductInfo struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
	IsActive      bool    `json:"isActive"`
}

// Available reports whether the product can be added to a cart.
func (p *ProductInfo) Available() bool {
	return p.IsActive && p.StockQuantity > 0
}

// ProductClient fetches catalog basics needed when building a cart line.
type ProductClient struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
}

func NewProductClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ProductClient {
	return &ProductClient{
		baseURL: baseURL,
		hc:      newHTTPClient(timeout),
		logger:  logger,
	}
}

func (c *ProductClient) GetBasicInfo(ctx context.Context, bearerToken, productID string) (*ProductInfo, error) {
	res, err := doJSON[ProductInfo](ctx, c.hc, http.MethodGet, c.baseURL+"/"+productID+"/basic", bearerToken, nil)
	if err != nil {
		c.logger.Warn("product lookup failed", zap.String("product_id", productID), zap.Error(err))
		return nil, err
	}
	return res, nil
}
