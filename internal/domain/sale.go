package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is an immutable record of units leaving stock.
type Sale struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ProductID    uuid.UUID       `json:"product" db:"product_id"`
	ProductName  string          `json:"product_name" db:"product_name"`
	CategoryID   *uuid.UUID      `json:"category" db:"category_id"`
	CategoryName *string         `json:"category_name" db:"category_name"`
	QuantitySold int             `json:"quantity_sold" db:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalSale    decimal.Decimal `json:"total_sale" db:"total_sale"`
	SoldAt       time.Time       `json:"date" db:"sold_at"`
}

// ComputeTotal recalculates TotalSale from quantity and unit price. It must
// run before every write.
func (s *Sale) ComputeTotal() {
	s.TotalSale = s.UnitPrice.Mul(decimal.NewFromInt(int64(s.QuantitySold))).Round(2)
}

// ProductDailySales is one row of a daily sales summary.
type ProductDailySales struct {
	ProductID     uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName   string          `json:"product_name" db:"product_name"`
	TotalQuantity int             `json:"total_quantity" db:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue" db:"total_revenue"`
	AveragePrice  decimal.Decimal `json:"average_price" db:"average_price"`
}

// DailySummary aggregates the sales of one calendar day.
type DailySummary struct {
	Date  string              `json:"date"`
	Sales []ProductDailySales `json:"sales"`
}
