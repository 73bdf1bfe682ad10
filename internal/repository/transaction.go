package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so the same repository code
// runs inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repositories hands out repositories bound to one transaction.
type Repositories interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Sales() SaleRepository
}

// TransactionManager runs fn in a single database transaction. The
// transaction is rolled back if fn returns an error or panics, and committed
// otherwise.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type sqlTransactionManager struct {
	db *sql.DB
}

type txRepositories struct {
	tx *sql.Tx
}

func (r *txRepositories) Products() ProductRepository {
	return NewProductRepository(r.tx)
}

func (r *txRepositories) Categories() CategoryRepository {
	return NewCategoryRepository(r.tx)
}

func (r *txRepositories) Sales() SaleRepository {
	return NewSaleRepository(r.tx)
}

// NewTransactionManager creates a TransactionManager over db
func NewTransactionManager(db *sql.DB) TransactionManager {
	return &sqlTransactionManager{db: db}
}

func (m *sqlTransactionManager) WithinTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txRepositories{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
