package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nkoval/backoffice/internal/domain"
	"github.com/nkoval/backoffice/internal/pkg/httputil"
)

// UserLister lists all users for the directory endpoint.
type UserLister interface {
	List(ctx context.Context) ([]domain.User, error)
}

// Handler handles HTTP requests for the auth module.
type Handler struct {
	service   *Service
	users     UserLister
	validator *validator.Validate
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, users UserLister) *Handler {
	return &Handler{
		service:   service,
		users:     users,
		validator: validator.New(),
	}
}

// RegisterRoutes registers public auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/init-session", h.InitSession)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/login-basic", h.LoginBasic)
	})
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/profile", h.Profile)
	r.Get("/auth/users", h.Users)
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// LoginRequest carries the one-time session ticket for the primary login path.
// Ticket validation failures are reported by the service, not the validator,
// so a malformed ticket yields the same 401 as a missing one.
type LoginRequest struct {
	UUID string `json:"uuid"`
}

// InitSession handles POST /auth/init-session.
func (h *Handler) InitSession(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.service.InitSession(r.Context())
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, ticket)
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), RegisterInput(req))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login. Credentials travel in the Authorization
// header using the Basic scheme; the body carries the session ticket.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.service.Login(r.Context(), req.UUID, r.Header.Get("Authorization"))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// LoginBasic handles POST /auth/login-basic, the ticket-less login path.
func (h *Handler) LoginBasic(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LoginBasic(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Profile handles GET /auth/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())
	if userID == 0 {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httputil.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Users handles GET /auth/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSession):
		httputil.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		httputil.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrMalformedAuthHeader):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUserNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	default:
		httputil.HandleError(r.Context(), w, err, nil)
	}
}
