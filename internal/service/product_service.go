package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"inventory-api/internal/domain"
	"inventory-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength     = 255
	maxImageURLLength = 500
)

// ProductInput carries the writable attributes of a product
type ProductInput struct {
	Name          string
	Description   string
	StockQuantity *int
	Price         decimal.Decimal
	ImageURL      string
}

// ProductService is the product ledger: catalog maintenance plus the stock
// arithmetic every sale and restock goes through.
type ProductService interface {
	Create(ctx context.Context, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	// AdjustStock applies delta to the stock quantity. A change that would
	// leave the quantity negative is rejected without writing.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*domain.Product, error)
	// RemainingStock reads the current stock level. It is never cached.
	RemainingStock(ctx context.Context, id uuid.UUID) (*domain.StockLevel, error)
}

type productService struct {
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, saleRepo repository.SaleRepository) ProductService {
	return &productService{
		productRepo: productRepo,
		saleRepo:    saleRepo,
	}
}

func validateProduct(in ProductInput) error {
	verr := &domain.ValidationError{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "This field is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		verr.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters", maxNameLength))
	}

	// Checked at the stored precision so 0.004 cannot become 0.00.
	price := in.Price.Round(2)
	switch {
	case !price.IsPositive():
		verr.Add("price", "Price must be greater than zero")
	case price.GreaterThan(domain.MaxMoney):
		verr.Add("price", fmt.Sprintf("Ensure this value is less than or equal to %s", domain.MaxMoney.StringFixed(2)))
	}

	if in.StockQuantity != nil {
		switch {
		case *in.StockQuantity < 0:
			verr.Add("stock_quantity", "Stock quantity cannot be negative")
		case *in.StockQuantity > domain.MaxStock:
			verr.Add("stock_quantity", fmt.Sprintf("Ensure this value is less than or equal to %d", domain.MaxStock))
		}
	}

	if utf8.RuneCountInString(in.ImageURL) > maxImageURLLength {
		verr.Add("image_url", fmt.Sprintf("Ensure this field has no more than %d characters", maxImageURLLength))
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		StockQuantity: in.StockQuantity,
		Price:         in.Price.Round(2),
		ImageURL:      in.ImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.StockQuantity = in.StockQuantity
	product.Price = in.Price.Round(2)
	product.ImageURL = in.ImageURL
	product.UpdatedAt = time.Now().UTC()

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) List(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	page, pageSize = NormalizePage(page, pageSize)
	return s.productRepo.List(ctx, page, pageSize, sortBy, sortOrder)
}

func (s *productService) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	page, pageSize = NormalizePage(page, pageSize)
	return s.productRepo.Search(ctx, query, page, pageSize)
}

func (s *productService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*domain.Product, error) {
	if delta == 0 {
		return nil, domain.NewValidationError("delta", "Adjustment must not be zero")
	}
	if delta > domain.MaxStock || delta < -domain.MaxStock {
		return nil, domain.NewValidationError("delta", fmt.Sprintf("Adjustment must be within ±%d", domain.MaxStock))
	}

	if _, err := s.productRepo.AdjustStock(ctx, id, delta); err != nil {
		switch {
		case errors.Is(err, repository.ErrNegativeStock):
			return nil, s.negativeStockError(ctx, id, delta)
		case errors.Is(err, repository.ErrProductConstraint):
			return nil, &domain.BusinessRuleError{
				Field:   "delta",
				Message: fmt.Sprintf("Stock quantity cannot exceed %d", domain.MaxStock),
			}
		}
		return nil, err
	}

	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) negativeStockError(ctx context.Context, id uuid.UUID, delta int) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.BusinessRuleError{
		Field:   "delta",
		Message: fmt.Sprintf("Cannot remove %d units. Only %d available.", -delta, product.Available()),
	}
}

func (s *productService) RemainingStock(ctx context.Context, id uuid.UUID) (*domain.StockLevel, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sold, err := s.saleRepo.UnitsSold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to compute remaining stock: %w", err)
	}

	return &domain.StockLevel{
		ProductID: product.ID,
		Remaining: product.Available(),
		UnitsSold: sold,
	}, nil
}
