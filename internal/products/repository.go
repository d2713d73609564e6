// Package products provides HTTP handlers and business logic for standalone
// products and their soft-delete lifecycle.
package products

import (
	"context"

	"github.com/nkoval/backoffice/internal/domain"
)

// Filter narrows product listings. Zero value means no filtering.
type Filter struct {
	Type string
}

// Repository defines the interface for product data operations.
type Repository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySerialNumber(ctx context.Context, serial int64) (*domain.Product, error)
	List(ctx context.Context, filter Filter) ([]domain.Product, error)
	ListDeleted(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error

	// SoftDelete flags the product deleted; Restore clears the flag; Purge
	// physically removes the row.
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Purge(ctx context.Context, id int64) error
}
