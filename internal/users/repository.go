package users

import (
	"context"

	"github.com/nkoval/backoffice/internal/domain"
)

// Repository defines the interface for user and role data operations.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error

	GetRoleByID(ctx context.Context, id int64) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}
