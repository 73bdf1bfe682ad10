package repository

import (
	"context"
	"errors"
	"fmt"

	"inventory-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound = errors.New("sale not found")
)

// SaleRepository is the write side of the sales ledger
type SaleRepository interface {
	// Create inserts sale. TotalSale is recomputed from quantity and unit
	// price before the insert, whatever the caller put there.
	Create(ctx context.Context, sale *domain.Sale) error
	Delete(ctx context.Context, id uuid.UUID) error
	// UnitsSold sums quantity_sold over every sale of a product.
	UnitsSold(ctx context.Context, productID uuid.UUID) (int, error)
	// CountByCategory counts the sales that still reference a category.
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
}

type saleRepository struct {
	db DBTX
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db DBTX) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	sale.ComputeTotal()

	query := `
		INSERT INTO sales (id, product_id, category_id, quantity_sold, unit_price, total_sale, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		sale.ID,
		sale.ProductID,
		sale.CategoryID,
		sale.QuantitySold,
		sale.UnitPrice,
		sale.TotalSale,
		sale.SoldAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	return nil
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSaleNotFound
	}

	return nil
}

func (r *saleRepository) UnitsSold(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity_sold), 0) FROM sales WHERE product_id = $1`,
		productID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum units sold: %w", err)
	}
	return total, nil
}

func (r *saleRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sales WHERE category_id = $1`,
		categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count category sales: %w", err)
	}
	return count, nil
}
