// Package orders provides HTTP handlers and business logic for orders and
// their soft-delete lifecycle.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/nkoval/backoffice/internal/domain"
)

// Service implements order business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new orders service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// OrderProductInput holds data for a product created together with an order.
type OrderProductInput struct {
	SerialNumber  int64
	Title         string
	Type          string
	Specification string
	IsNew         *bool
	Photo         string
	Guarantee     *domain.Guarantee
	Price         []domain.Price
}

// CreateOrderInput holds data for creating an order.
type CreateOrderInput struct {
	Title       string
	Description string
	Date        *time.Time
	Products    []OrderProductInput
}

// UpdateOrderInput holds optional fields for patching an order.
// Nil fields are left untouched.
type UpdateOrderInput struct {
	Title       *string
	Description *string
	Date        *time.Time
}

// Create persists the order and any supplied products atomically and returns
// the stored order with its products attached.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	for _, p := range input.Products {
		if err := domain.ValidatePrices(p.Price); err != nil {
			return nil, err
		}
	}

	date := s.now()
	if input.Date != nil {
		date = *input.Date
	}

	order := &domain.Order{
		Title:       input.Title,
		Description: input.Description,
		Date:        date,
	}

	items := make([]domain.Product, 0, len(input.Products))
	for _, p := range input.Products {
		isNew := true
		if p.IsNew != nil {
			isNew = *p.IsNew
		}
		items = append(items, domain.Product{
			SerialNumber:  p.SerialNumber,
			IsNew:         isNew,
			Photo:         p.Photo,
			Title:         p.Title,
			Type:          p.Type,
			Specification: p.Specification,
			Guarantee:     p.Guarantee,
			Price:         p.Price,
			Date:          date,
		})
	}

	if err := s.repo.Create(ctx, order, items); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, order.ID)
}

// List returns all active orders, most recently created first.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx)
}

// Get returns an active order by id. Soft-deleted orders are invisible here.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies the patch to an active order.
func (s *Service) Update(ctx context.Context, id int64, input UpdateOrderInput) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		order.Title = *input.Title
	}
	if input.Description != nil {
		order.Description = *input.Description
	}
	if input.Date != nil {
		order.Date = *input.Date
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	return s.repo.GetByID(ctx, id)
}

// Delete soft-deletes the order and its products. The rows remain and the
// order can be restored; physical removal is a separate Purge.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

// Restore brings a soft-deleted order and its products back.
func (s *Service) Restore(ctx context.Context, id int64) (*domain.Order, error) {
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ListDeleted returns all soft-deleted orders, most recently updated first.
func (s *Service) ListDeleted(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListDeleted(ctx)
}

// Purge physically removes the order and all its products. Irreversible.
func (s *Service) Purge(ctx context.Context, id int64) error {
	return s.repo.Purge(ctx, id)
}
