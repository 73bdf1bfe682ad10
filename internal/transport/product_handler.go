package transport

import (
	"net/http"
	"strings"

	"inventory-api/internal/domain"
	"inventory-api/internal/middleware"
	"inventory-api/internal/repository"
	"inventory-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the body of product create and update calls
type ProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	ImageURL      string           `json:"image_url" validate:"omitempty,max=500"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
		Price:         *req.Price,
		ImageURL:      req.ImageURL,
	}
}

// StockAdjustmentRequest restocks (positive delta) or writes off
// (negative delta) units
type StockAdjustmentRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// ProductResponse is a product plus its live stock figures
type ProductResponse struct {
	*domain.Product
	RemainingStock int  `json:"remaining_stock"`
	UnitsSold      *int `json:"units_sold,omitempty"`
}

func newProductResponses(products []*domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResponse{Product: p, RemainingStock: p.Available()})
	}
	return out
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Search is public and passes
// through rateLimit.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.With(rateLimit).Get("/search", h.Search)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(h.logger, domain.CapabilityCatalogWrite))
				r.Post("/", h.Create)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
				r.Post("/{id}/stock", h.AdjustStock)
			})
		})
	})
}

// List returns a page of products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := service.NormalizePage(intQuery(r, "page", 1), intQuery(r, "page_size", service.DefaultPageSize))
	order := repository.SortOrder(strings.ToUpper(q.Get("order")))

	products, total, err := h.productService.List(r.Context(), page, pageSize, q.Get("sort"), order)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{
		Count:    total,
		Page:     page,
		PageSize: pageSize,
		Results:  newProductResponses(products),
	})
}

// Search matches products by name or description
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("searched"))
	page, pageSize := service.NormalizePage(intQuery(r, "page", 1), intQuery(r, "page_size", service.MaxPageSize))

	products, total, err := h.productService.Search(r.Context(), term, page, pageSize)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to search products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{
		Count:   total,
		Results: newProductResponses(products),
	})
}

// Get returns a product with its remaining stock and units sold
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	level, err := h.productService.RemainingStock(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{
		Product:        product,
		RemainingStock: level.Remaining,
		UnitsSold:      &level.UnitsSold,
	})
}

// Create adds a product to the catalog
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.Create(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, ProductResponse{
		Product:        product,
		RemainingStock: product.Available(),
	})
}

// Update replaces a product's editable fields
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.Update(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{
		Product:        product,
		RemainingStock: product.Available(),
	})
}

// Delete removes a product along with its categories and sales
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock applies a manual stock delta
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req StockAdjustmentRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to adjust stock")
		return
	}

	h.logger.Info("Stock adjusted",
		zap.String("product_id", id.String()),
		zap.Int("delta", req.Delta),
		zap.Int("stock_quantity", product.Available()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{
		Product:        product,
		RemainingStock: product.Available(),
	})
}
