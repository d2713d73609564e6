package orders

import (
	"context"
	"errors"

	"github.com/nkoval/backoffice/internal/domain"
	"github.com/nkoval/backoffice/internal/products"
)

// Repository errors.
var (
	ErrOrderNotFound = errors.New("order not found")

	// Shared with the products feature: order creation inserts product rows
	// and hits the same uniqueness constraint.
	ErrDuplicateSerial = products.ErrDuplicateSerial
)

// Repository defines the interface for order data operations.
type Repository interface {
	// Create inserts the order and all its products in a single transaction;
	// a failing product insert rolls back the order row.
	Create(ctx context.Context, order *domain.Order, items []domain.Product) error

	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListDeleted(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error

	// SoftDelete flags the order and its products deleted; Restore clears
	// the flags; Purge physically removes product rows then the order row.
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Purge(ctx context.Context, id int64) error
}
