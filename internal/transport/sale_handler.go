package transport

import (
	"net/http"

	"inventory-api/internal/domain"
	"inventory-api/internal/middleware"
	"inventory-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleRequest is the body of a record-sale call
type SaleRequest struct {
	Product      string           `json:"product" validate:"required,uuid"`
	Category     string           `json:"category" validate:"required,uuid"`
	QuantitySold int              `json:"quantity_sold" validate:"required,gte=1"`
	UnitPrice    *decimal.Decimal `json:"unit_price" validate:"required"`
}

// SaleHandler handles HTTP requests for sales and the daily analytics view
type SaleHandler struct {
	saleService      service.SaleService
	analyticsService service.AnalyticsService
	logger           *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService service.SaleService, analyticsService service.AnalyticsService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService:      saleService,
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(h.logger, domain.CapabilitySalesRead))
			r.Get("/", h.List)
			r.Get("/analytics", h.Analytics)
			r.Get("/{id}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(h.logger, domain.CapabilitySalesWrite))
			r.Post("/", h.Create)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// Create records a sale and decrements stock
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	sale, err := h.saleService.RecordSale(r.Context(), service.RecordSaleInput{
		ProductID:    uuid.MustParse(req.Product),
		CategoryID:   uuid.MustParse(req.Category),
		QuantitySold: req.QuantitySold,
		UnitPrice:    *req.UnitPrice,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to record sale")
		return
	}

	h.logger.Info("Sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("product_id", sale.ProductID.String()),
		zap.Int("quantity_sold", sale.QuantitySold),
		zap.String("total_sale", sale.TotalSale.StringFixed(2)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// List returns a page of sales, newest first
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, ok := optionalUUIDQuery(w, r, "product_id")
	if !ok {
		return
	}
	page, pageSize := service.NormalizePage(intQuery(r, "page", 1), intQuery(r, "page_size", service.DefaultPageSize))

	sales, total, err := h.saleService.List(r.Context(), productID, page, pageSize)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{
		Count:    total,
		Page:     page,
		PageSize: pageSize,
		Results:  sales,
	})
}

// Get returns one sale
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.saleService.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// Delete removes a sale record. Stock is not restored.
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.saleService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete sale")
		return
	}

	h.logger.Info("Sale deleted", zap.String("sale_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// Analytics returns the per-product summary for ?date=YYYY-MM-DD, or for
// today when no date is given
func (h *SaleHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	day := h.analyticsService.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := h.analyticsService.ParseDay(raw)
		if err != nil {
			respondWithServiceError(w, h.logger, err, "failed to build sales analytics")
			return
		}
		day = parsed
	}

	summary, err := h.analyticsService.DailySummary(r.Context(), day)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to build sales analytics")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}
