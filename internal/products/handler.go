package products

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nkoval/backoffice/internal/domain"
	"github.com/nkoval/backoffice/internal/pkg/httputil"
)

// Handler handles HTTP requests for the products module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new products handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers product routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/deleted", h.ListDeleted)
		r.Get("/serial/{serial}", h.GetBySerialNumber)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/restore", h.Restore)
		r.Delete("/{id}/purge", h.Purge)
	})
}

// CreateProductRequest represents the request body for creating a product.
type CreateProductRequest struct {
	SerialNumber  int64             `json:"serialNumber" validate:"required,gt=0"`
	Title         string            `json:"title" validate:"required,min=1,max=255"`
	Type          string            `json:"type" validate:"required,min=1,max=100"`
	Specification string            `json:"specification"`
	IsNew         *bool             `json:"isNew"`
	Photo         string            `json:"photo"`
	Guarantee     *domain.Guarantee `json:"guarantee"`
	Price         []domain.Price    `json:"price" validate:"required,min=1,dive"`
	Date          *time.Time        `json:"date"`
	OrderID       *int64            `json:"orderId" validate:"omitempty,gt=0"`
}

// UpdateProductRequest represents the request body for patching a product.
type UpdateProductRequest struct {
	Title         *string           `json:"title" validate:"omitempty,min=1,max=255"`
	Type          *string           `json:"type" validate:"omitempty,min=1,max=100"`
	Specification *string           `json:"specification"`
	IsNew         *bool             `json:"isNew"`
	Photo         *string           `json:"photo"`
	Guarantee     *domain.Guarantee `json:"guarantee"`
	Price         []domain.Price    `json:"price" validate:"omitempty,min=1,dive"`
	Date          *time.Time        `json:"date"`
}

// Create handles POST /products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	product, err := h.service.Create(r.Context(), CreateProductInput(req))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, product)
}

// List handles GET /products. Accepts an optional ?type= filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Type: r.URL.Query().Get("type")}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// ListDeleted handles GET /products/deleted.
func (h *Handler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDeleted(r.Context())
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// Get handles GET /products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, product)
}

// GetBySerialNumber handles GET /products/serial/{serial}.
func (h *Handler) GetBySerialNumber(w http.ResponseWriter, r *http.Request) {
	serial, err := strconv.ParseInt(chi.URLParam(r, "serial"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid serial number")
		return
	}

	product, err := h.service.GetBySerialNumber(r.Context(), serial)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, product)
}

// Update handles PATCH /products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	product, err := h.service.Update(r.Context(), id, UpdateProductInput(req))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id}, a soft delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// Restore handles POST /products/{id}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, product)
}

// Purge handles DELETE /products/{id}/purge, the irreversible removal.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.Purge(r.Context(), id); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateSerial):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoPrices),
		errors.Is(err, domain.ErrMultipleDefaults),
		errors.Is(err, domain.ErrInvalidPriceValue):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		httputil.HandleError(r.Context(), w, err, nil)
	}
}
