package models

import (
	"time"

	"github.com/google/uuid"
)

// CartIdentity is the single ownership key for a request's cart operations.
// Exactly one of UserID or GuestID is set. It is resolved once per request
// and carried in the request context; handlers never re-resolve it.
type CartIdentity struct {
	UserID  *uuid.UUID
	GuestID string
}

func (ci CartIdentity) IsUser() bool {
	return ci.UserID != nil
}

// CartEntry is one product line owned by a user or a guest. At most one entry
// exists per (owner, product) pair; adding again increments the quantity.
type CartEntry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	GuestID   string     `json:"guest_id,omitempty"`
	ProductID uuid.UUID  `json:"product_id"`
	Quantity  int        `json:"quantity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is a cart entry joined to its current catalog product. Product is
// nil when the product has been deleted since the entry was added; such items
// stay listed but are excluded from the subtotal.
type CartItem struct {
	Entry     CartEntry `json:"entry"`
	Product   *Product  `json:"product,omitempty"`
	LineTotal float64   `json:"line_total"`
}

type CartView struct {
	Items    []CartItem `json:"items"`
	Subtotal float64    `json:"subtotal"`
}

// TotalWeightGrams sums quantity-weighted product weights over items whose
// product still exists.
func (v CartView) TotalWeightGrams() float64 {
	var total float64
	for _, item := range v.Items {
		if item.Product != nil {
			total += float64(item.Entry.Quantity) * item.Product.Weight
		}
	}
	return total
}
