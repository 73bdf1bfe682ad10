package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inventory-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SaleQueryRepository serves the read models built from the sales ledger:
// sale listings with product and category names, and daily rollups.
type SaleQueryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]domain.Sale, int, error)
	// DailySummary aggregates the sales with from <= sold_at < to, grouped
	// by product and ordered by revenue, highest first.
	DailySummary(ctx context.Context, from, to time.Time) ([]domain.ProductDailySales, error)
}

type saleQueryRepository struct {
	db *sqlx.DB
}

// NewSaleQueryRepository wraps db for struct-mapped reads
func NewSaleQueryRepository(db *sql.DB) SaleQueryRepository {
	return &saleQueryRepository{db: sqlx.NewDb(db, "pgx")}
}

const saleSelect = `
	SELECT s.id, s.product_id, p.name AS product_name, s.category_id, c.name AS category_name,
	       s.quantity_sold, s.unit_price, s.total_sale, s.sold_at
	FROM sales s
	JOIN products p ON p.id = s.product_id
	LEFT JOIN categories c ON c.id = s.category_id
`

func (r *saleQueryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.db.GetContext(ctx, &sale, saleSelect+` WHERE s.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}
	return &sale, nil
}

func (r *saleQueryRepository) List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]domain.Sale, int, error) {
	where := ""
	args := []interface{}{}
	if productID != nil {
		where = ` WHERE s.product_id = ?`
		args = append(args, *productID)
	}

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM sales s` + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	offset := (page - 1) * pageSize
	query := r.db.Rebind(saleSelect + where + ` ORDER BY s.sold_at DESC, s.id ASC LIMIT ? OFFSET ?`)
	args = append(args, pageSize, offset)

	sales := []domain.Sale{}
	if err := r.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}

	return sales, total, nil
}

func (r *saleQueryRepository) DailySummary(ctx context.Context, from, to time.Time) ([]domain.ProductDailySales, error) {
	query := `
		SELECT s.product_id,
		       p.name AS product_name,
		       SUM(s.quantity_sold) AS total_quantity,
		       SUM(s.total_sale) AS total_revenue,
		       ROUND(AVG(s.unit_price), 2) AS average_price
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.sold_at >= $1 AND s.sold_at < $2
		GROUP BY s.product_id, p.name
		ORDER BY total_revenue DESC, p.name ASC, s.product_id ASC
	`

	rows := []domain.ProductDailySales{}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to aggregate daily sales: %w", err)
	}

	return rows, nil
}
