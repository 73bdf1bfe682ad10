package transport

import (
	"net/http"

	"inventory-api/internal/domain"
	"inventory-api/internal/middleware"
	"inventory-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryRequest is the body of a category create call
type CategoryRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// CategoryResponse is a category with the number of sales filed under it
type CategoryResponse struct {
	*domain.Category
	SalesCount int `json:"sales_count"`
}

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(h.logger, domain.CapabilityCatalogWrite))
			r.Post("/", h.Create)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List returns categories, optionally only those of one product
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, ok := optionalUUIDQuery(w, r, "product_id")
	if !ok {
		return
	}

	categories, err := h.categoryService.List(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{
		Count:   len(categories),
		Results: categories,
	})
}

// Get returns a category with its sales count
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	category, salesCount, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CategoryResponse{Category: category, SalesCount: salesCount})
}

// Create adds a category to a product
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	category, err := h.categoryService.Create(r.Context(), req.Name, uuid.MustParse(req.ProductID))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create category")
		return
	}

	h.logger.Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("product_id", category.ProductID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, CategoryResponse{Category: category})
}

// Delete removes a category; its sales keep their history without it
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
