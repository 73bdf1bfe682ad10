package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-api/internal/domain"
	"inventory-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordSaleInput is a sale request as received from a caller. There is no
// total: it is always derived from quantity and unit price.
type RecordSaleInput struct {
	ProductID    uuid.UUID
	CategoryID   uuid.UUID
	QuantitySold int
	UnitPrice    decimal.Decimal
}

// SaleService records sales against the product ledger
type SaleService interface {
	// RecordSale checks the request against the current product state and,
	// if it passes, stores the sale and takes the units out of stock in a
	// single transaction. Checks run in order (stock, price, category) and
	// the first failure is returned without any write.
	RecordSale(ctx context.Context, in RecordSaleInput) (*domain.Sale, error)
	List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]domain.Sale, int, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	// Delete removes a sale record. Stock is not restored.
	Delete(ctx context.Context, id uuid.UUID) error
}

type saleService struct {
	tm        repository.TransactionManager
	saleRepo  repository.SaleRepository
	queryRepo repository.SaleQueryRepository
	now       func() time.Time
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(
	tm repository.TransactionManager,
	saleRepo repository.SaleRepository,
	queryRepo repository.SaleQueryRepository,
) SaleService {
	return &saleService{
		tm:        tm,
		saleRepo:  saleRepo,
		queryRepo: queryRepo,
		now:       time.Now,
	}
}

func validateSaleInput(in RecordSaleInput) error {
	verr := &domain.ValidationError{}
	if in.ProductID == uuid.Nil {
		verr.Add("product", "This field is required")
	}
	if in.CategoryID == uuid.Nil {
		verr.Add("category", "This field is required")
	}
	switch {
	case in.QuantitySold < 1:
		verr.Add("quantity_sold", "Ensure this value is greater than or equal to 1")
	case in.QuantitySold > domain.MaxStock:
		verr.Add("quantity_sold", fmt.Sprintf("Ensure this value is less than or equal to %d", domain.MaxStock))
	}
	switch {
	case in.UnitPrice.IsNegative():
		verr.Add("unit_price", "Ensure this value is greater than or equal to 0")
	case in.UnitPrice.GreaterThan(domain.MaxMoney):
		verr.Add("unit_price", fmt.Sprintf("Ensure this value is less than or equal to %s", domain.MaxMoney.StringFixed(2)))
	}
	if verr.Empty() {
		total := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.QuantitySold))).Round(2)
		if total.GreaterThan(domain.MaxMoney) {
			verr.Add("quantity_sold", fmt.Sprintf("Sale total cannot exceed %s", domain.MaxMoney.StringFixed(2)))
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func (s *saleService) RecordSale(ctx context.Context, in RecordSaleInput) (*domain.Sale, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}

	var sale *domain.Sale
	err := s.tm.WithinTx(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products().FindByIDForUpdate(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return domain.NewValidationError("product", "Product does not exist")
			}
			return err
		}

		if in.QuantitySold > product.Available() {
			return domain.ErrInsufficientStock(in.QuantitySold, product.Available())
		}

		if !in.UnitPrice.Equal(product.Price) {
			return &domain.BusinessRuleError{
				Field:   "unit_price",
				Message: fmt.Sprintf("Unit price must match product price of %s", product.Price.StringFixed(2)),
			}
		}

		category, err := repos.Categories().FindByID(ctx, in.CategoryID)
		if err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return domain.NewValidationError("category", "Category does not exist")
			}
			return err
		}
		if !category.BelongsTo(product) {
			return &domain.BusinessRuleError{
				Field:   "category",
				Message: "Category must match the product's category",
			}
		}

		sale = &domain.Sale{
			ID:           uuid.New(),
			ProductID:    product.ID,
			ProductName:  product.Name,
			CategoryID:   &category.ID,
			CategoryName: &category.Name,
			QuantitySold: in.QuantitySold,
			UnitPrice:    in.UnitPrice,
			SoldAt:       s.now().UTC(),
		}

		if err := repos.Sales().Create(ctx, sale); err != nil {
			return err
		}

		if _, err := repos.Products().AdjustStock(ctx, product.ID, -in.QuantitySold); err != nil {
			if errors.Is(err, repository.ErrNegativeStock) {
				return domain.ErrInsufficientStock(in.QuantitySold, product.Available())
			}
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return sale, nil
}

func (s *saleService) List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]domain.Sale, int, error) {
	page, pageSize = NormalizePage(page, pageSize)
	return s.queryRepo.List(ctx, productID, page, pageSize)
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return s.queryRepo.FindByID(ctx, id)
}

func (s *saleService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.saleRepo.Delete(ctx, id)
}
