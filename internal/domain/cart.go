package domain

import (
	"time"

	"github.com/google/uuid"
)

type CartStatus string

const (
	CartStatusActive     CartStatus = "Active"
	CartStatusCheckedOut CartStatus = "CheckedOut"
	CartStatusAbandoned  CartStatus = "Abandoned"
)

func (s CartStatus) String() string {
	return string(s)
}

type CartItem struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   float64   `json:"line_total"`
	AddedAt     time.Time `json:"added_at"`
}

// Cart is the user's single Active cart. A cart is never deleted, it is
// checked out or abandoned via a status transition.
type Cart struct {
	ID        uuid.UUID
	UserID    string
	Status    CartStatus
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Cart) TotalAmount() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.LineTotal
	}
	return total
}

func (c *Cart) TotalItems() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
