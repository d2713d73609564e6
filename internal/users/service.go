// Package users provides user and role management.
package users

import (
	"context"
	"fmt"

	"github.com/nkoval/backoffice/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Service implements user management business logic.
type Service struct {
	repo Repository
}

// NewService creates a new users service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// UpdateUserInput holds optional fields for patching a user.
// Nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// List returns all users with their roles, passwords stripped.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Password = ""
	}
	return list, nil
}

// Get returns a single user with their role, password stripped.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Update applies the patch to the user. A new password is re-hashed before
// persisting.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hash)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

// AssignRole changes the user's role.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	role, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	user.RoleID = &role.ID
	user.Role = role

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}
