package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category labels one product. Its ProductID is fixed at creation.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BelongsTo reports whether the category is owned by product.
func (c *Category) BelongsTo(product *Product) bool {
	if c == nil || product == nil {
		return false
	}
	return c.ProductID == product.ID
}
