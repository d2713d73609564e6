package products

import (
	"context"
	"fmt"
	"time"

	"github.com/nkoval/backoffice/internal/domain"
)

// Service implements product business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new products service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreateProductInput holds data for creating a standalone product.
type CreateProductInput struct {
	SerialNumber  int64
	Title         string
	Type          string
	Specification string
	IsNew         *bool
	Photo         string
	Guarantee     *domain.Guarantee
	Price         []domain.Price
	Date          *time.Time
	OrderID       *int64
}

// UpdateProductInput holds optional fields for patching a product.
// Nil fields are left untouched; Guarantee and Price replace wholesale.
type UpdateProductInput struct {
	Title         *string
	Type          *string
	Specification *string
	IsNew         *bool
	Photo         *string
	Guarantee     *domain.Guarantee
	Price         []domain.Price
	Date          *time.Time
}

// Create persists a new product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if err := domain.ValidatePrices(input.Price); err != nil {
		return nil, err
	}

	isNew := true
	if input.IsNew != nil {
		isNew = *input.IsNew
	}
	date := s.now()
	if input.Date != nil {
		date = *input.Date
	}

	product := &domain.Product{
		SerialNumber:  input.SerialNumber,
		IsNew:         isNew,
		Photo:         input.Photo,
		Title:         input.Title,
		Type:          input.Type,
		Specification: input.Specification,
		Guarantee:     input.Guarantee,
		Price:         input.Price,
		Date:          date,
		OrderID:       input.OrderID,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// List returns all active products, optionally filtered by type.
func (s *Service) List(ctx context.Context, filter Filter) ([]domain.Product, error) {
	return s.repo.List(ctx, filter)
}

// Get returns an active product by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySerialNumber returns an active product by its serial number.
func (s *Service) GetBySerialNumber(ctx context.Context, serial int64) (*domain.Product, error) {
	return s.repo.GetBySerialNumber(ctx, serial)
}

// Update applies the patch to an active product.
func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		product.Title = *input.Title
	}
	if input.Type != nil {
		product.Type = *input.Type
	}
	if input.Specification != nil {
		product.Specification = *input.Specification
	}
	if input.IsNew != nil {
		product.IsNew = *input.IsNew
	}
	if input.Photo != nil {
		product.Photo = *input.Photo
	}
	if input.Guarantee != nil {
		product.Guarantee = input.Guarantee
	}
	if input.Price != nil {
		if err := domain.ValidatePrices(input.Price); err != nil {
			return nil, err
		}
		product.Price = input.Price
	}
	if input.Date != nil {
		product.Date = *input.Date
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

// Delete soft-deletes the product. The row remains and the serial number
// stays reserved until the product is purged.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}

// Restore brings a soft-deleted product back.
func (s *Service) Restore(ctx context.Context, id int64) (*domain.Product, error) {
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ListDeleted returns all soft-deleted products, most recently updated first.
func (s *Service) ListDeleted(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListDeleted(ctx)
}

// Purge physically removes the product row. Irreversible; frees the serial
// number for reuse.
func (s *Service) Purge(ctx context.Context, id int64) error {
	return s.repo.Purge(ctx, id)
}
