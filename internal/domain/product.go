package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxStock is the largest quantity an INTEGER column holds.
const MaxStock = math.MaxInt32

// MaxMoney is the largest amount a DECIMAL(10,2) column holds.
var MaxMoney = decimal.RequireFromString("99999999.99")

// Product represents an item held in stock.
//
// StockQuantity is nil until the product's stock is first set. Sales treat
// an unset quantity as zero units available.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	StockQuantity *int            `json:"stock_quantity" db:"stock_quantity"`
	Price         decimal.Decimal `json:"price" db:"price"`
	ImageURL      string          `json:"image_url" db:"image_url"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Available returns the number of units that can still be sold.
func (p *Product) Available() int {
	if p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}

// StockLevel is the ledger view of a product: units on hand plus the total
// recorded as sold.
type StockLevel struct {
	ProductID uuid.UUID `json:"product_id"`
	Remaining int       `json:"remaining_stock"`
	UnitsSold int       `json:"units_sold"`
}

// IntPtr is a small helper for optional stock quantities.
func IntPtr(v int) *int {
	return &v
}
