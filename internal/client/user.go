package client

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type UserProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
}

// UserClient resolves the caller's fulfillment profile from the user
// capability.
type UserClient struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
}

func NewUserClient(baseURL string, timeout time.Duration, logger *zap.Logger) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		hc:      newHTTPClient(timeout),
		logger:  logger,
	}
}

func (c *UserClient) GetProfile(ctx context.Context, bearerToken string) (*UserProfile, error) {
	res, err := doJSON[UserProfile](ctx, c.hc, http.MethodGet, c.baseURL+"/profile", bearerToken, nil)
	if err != nil {
		c.logger.Warn("user profile lookup failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}
