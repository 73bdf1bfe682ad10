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
)

// CategoryService defines the interface for the category registry
type CategoryService interface {
	Create(ctx context.Context, name string, productID uuid.UUID) (*domain.Category, error)
	List(ctx context.Context, productID *uuid.UUID) ([]*domain.Category, error)
	// Get returns the category and the number of sales recorded against it.
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	saleRepo     repository.SaleRepository
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categoryRepo repository.CategoryRepository, saleRepo repository.SaleRepository) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		saleRepo:     saleRepo,
	}
}

func (s *categoryService) Create(ctx context.Context, name string, productID uuid.UUID) (*domain.Category, error) {
	name = strings.TrimSpace(name)

	verr := &domain.ValidationError{}
	switch {
	case name == "":
		verr.Add("name", "This field is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		verr.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters", maxNameLength))
	}
	if productID == uuid.Nil {
		verr.Add("product_id", "This field is required")
	}
	if !verr.Empty() {
		return nil, verr
	}

	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.NewValidationError("product_id", "Product does not exist")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

func (s *categoryService) List(ctx context.Context, productID *uuid.UUID) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx, productID)
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, int, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.saleRepo.CountByCategory(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count category sales: %w", err)
	}

	return category, count, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}
