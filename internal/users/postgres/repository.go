// Package postgres provides the PostgreSQL implementation of the users
// repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nkoval/backoffice/internal/domain"
	"github.com/nkoval/backoffice/internal/users"
)

const uniqueViolation = "23505"

// Repository implements the users.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user. The default role applies when RoleID is nil.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, email, password, role_id)
		VALUES ($1, $2, $3, COALESCE($4, 2))
		RETURNING id, role_id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Password,
		user.RoleID,
	).Scan(&user.ID, &user.RoleID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return users.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userSelect = `
	SELECT u.id, u.name, u.email, u.password, u.role_id, u.created_at, u.updated_at,
	       r.id, r.name, r.description, r.permissions
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user     domain.User
		roleID   *int64
		roleName *string
		roleDesc *string
		rolePerm []byte
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.RoleID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&roleID,
		&roleName,
		&roleDesc,
		&rolePerm,
	)
	if err != nil {
		return nil, err
	}

	if roleID != nil {
		role := domain.Role{
			ID:          *roleID,
			Name:        domain.RoleName(*roleName),
			Description: *roleDesc,
		}
		if len(rolePerm) > 0 {
			if err := json.Unmarshal(rolePerm, &role.Permissions); err != nil {
				return nil, fmt.Errorf("decode role permissions: %w", err)
			}
		}
		user.Role = &role
	}
	return &user, nil
}

// GetUserByID retrieves a user with their role by id.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, userSelect+" WHERE u.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user with their role by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, userSelect+" WHERE u.email = $1", email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers retrieves all users with their roles.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, userSelect+" ORDER BY u.id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return list, nil
}

// UpdateUser persists the user's mutable fields.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, password = $4, role_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Password,
		user.RoleID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return users.ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// GetRoleByID retrieves a role by id.
func (r *Repository) GetRoleByID(ctx context.Context, id int64) (*domain.Role, error) {
	query := `SELECT id, name, description, permissions FROM roles WHERE id = $1`

	var role domain.Role
	err := r.db.QueryRow(ctx, query, id).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.Permissions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role by id: %w", err)
	}
	return &role, nil
}

// ListRoles retrieves all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	query := `SELECT id, name, description, permissions FROM roles ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}
