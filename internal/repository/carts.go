package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/NematiDev/Zentec/internal/domain"
)

func (r *Repository) GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `SELECT id, user_id, status, items, created_at, updated_at
	          FROM carts WHERE user_id = $1 AND status = $2`

	var cart domain.Cart
	var itemsJSON []byte
	err := r.db.QueryRowContext(ctx, query, userID, domain.CartStatusActive).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Status,
		&itemsJSON,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active cart: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &cart.Items); err != nil {
		return nil, fmt.Errorf("unmarshal cart items: %w", err)
	}

	return &cart, nil
}

func (r *Repository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	query := `INSERT INTO carts (id, user_id, status, items, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		cart.ID,
		cart.UserID,
		cart.Status,
		itemsJSON)
	if insertErr != nil {
		// A partial unique index on (user_id) WHERE status = 'Active'
		// enforces the one-active-cart-per-user invariant.
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrActiveCartExists
		}
		return fmt.Errorf("insert cart: %w", insertErr)
	}
	return nil
}

func (r *Repository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	query := `UPDATE carts SET status = $2, items = $3, updated_at = NOW() WHERE id = $1`

	res, updateErr := r.db.ExecContext(ctx, query, cart.ID, cart.Status, itemsJSON)
	if updateErr != nil {
		return fmt.Errorf("update cart: %w", updateErr)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartNotFound
	}
	return nil
}
