package orders

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

// Handler handles HTTP requests for the orders module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new orders handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers order routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/deleted", h.ListDeleted)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/restore", h.Restore)
		r.Delete("/{id}/purge", h.Purge)
	})
}

// ProductRequest represents a product created together with its order.
type ProductRequest struct {
	SerialNumber  int64             `json:"serialNumber" validate:"required,gt=0"`
	Title         string            `json:"title" validate:"required,min=1,max=255"`
	Type          string            `json:"type" validate:"required,min=1,max=100"`
	Specification string            `json:"specification"`
	IsNew         *bool             `json:"isNew"`
	Photo         string            `json:"photo"`
	Guarantee     *domain.Guarantee `json:"guarantee"`
	Price         []domain.Price    `json:"price" validate:"required,min=1,dive"`
}

// CreateOrderRequest represents the request body for creating an order.
type CreateOrderRequest struct {
	Title       string           `json:"title" validate:"required,min=1,max=255"`
	Description string           `json:"description"`
	Date        *time.Time       `json:"date"`
	Products    []ProductRequest `json:"products" validate:"omitempty,dive"`
}

// UpdateOrderRequest represents the request body for patching an order.
type UpdateOrderRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
}

// Create handles POST /orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := CreateOrderInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Products:    make([]OrderProductInput, 0, len(req.Products)),
	}
	for _, p := range req.Products {
		input.Products = append(input.Products, OrderProductInput{
			SerialNumber:  p.SerialNumber,
			Title:         p.Title,
			Type:          p.Type,
			Specification: p.Specification,
			IsNew:         p.IsNew,
			Photo:         p.Photo,
			Guarantee:     p.Guarantee,
			Price:         p.Price,
		})
	}

	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, order)
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// ListDeleted handles GET /orders/deleted.
func (h *Handler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDeleted(r.Context())
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, order)
}

// Update handles PATCH /orders/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	order, err := h.service.Update(r.Context(), id, UpdateOrderInput(req))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, order)
}

// Delete handles DELETE /orders/{id}, a soft delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// Restore handles POST /orders/{id}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, order)
}

// Purge handles DELETE /orders/{id}/purge, the irreversible removal.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid order id")
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
	case errors.Is(err, ErrOrderNotFound):
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
