// Package postgres provides the PostgreSQL implementation of the products
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
	"github.com/nkoval/backoffice/internal/products"
)

const uniqueViolation = "23505"

const productSelect = `
	SELECT id, serial_number, is_new, COALESCE(photo, ''), title, type,
	       COALESCE(specification, ''), guarantee, price, date, deleted,
	       order_id, created_at, updated_at
	FROM products
`

// Repository implements the products.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *domain.Product) error {
	guarantee, price, err := encodeProductJSON(product)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO products (serial_number, is_new, photo, title, type, specification, guarantee, price, date, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		product.SerialNumber,
		product.IsNew,
		product.Photo,
		product.Title,
		product.Type,
		product.Specification,
		guarantee,
		price,
		product.Date,
		product.OrderID,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return products.ErrDuplicateSerial
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func encodeProductJSON(p *domain.Product) (guarantee, price []byte, err error) {
	if p.Guarantee != nil {
		guarantee, err = json.Marshal(p.Guarantee)
		if err != nil {
			return nil, nil, fmt.Errorf("encode guarantee: %w", err)
		}
	}
	price, err = json.Marshal(p.Price)
	if err != nil {
		return nil, nil, fmt.Errorf("encode price: %w", err)
	}
	return guarantee, price, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p         domain.Product
		guarantee []byte
		price     []byte
	)
	err := row.Scan(
		&p.ID,
		&p.SerialNumber,
		&p.IsNew,
		&p.Photo,
		&p.Title,
		&p.Type,
		&p.Specification,
		&guarantee,
		&price,
		&p.Date,
		&p.Deleted,
		&p.OrderID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(guarantee) > 0 {
		if err := json.Unmarshal(guarantee, &p.Guarantee); err != nil {
			return nil, fmt.Errorf("decode guarantee: %w", err)
		}
	}
	if err := json.Unmarshal(price, &p.Price); err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	return &p, nil
}

// GetByID retrieves an active product by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRow(ctx, productSelect+` WHERE id = $1 AND deleted = false`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, products.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetBySerialNumber retrieves an active product by its serial number.
func (r *Repository) GetBySerialNumber(ctx context.Context, serial int64) (*domain.Product, error) {
	row := r.db.QueryRow(ctx, productSelect+` WHERE serial_number = $1 AND deleted = false`, serial)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, products.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by serial number: %w", err)
	}
	return product, nil
}

// List retrieves all active products, newest first. An empty filter type
// matches everything.
func (r *Repository) List(ctx context.Context, filter products.Filter) ([]domain.Product, error) {
	query := productSelect + ` WHERE deleted = false`
	args := []any{}
	if filter.Type != "" {
		query += ` AND type = $1`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryProducts(ctx, query, args...)
}

// ListDeleted retrieves all soft-deleted products, by last update.
func (r *Repository) ListDeleted(ctx context.Context) ([]domain.Product, error) {
	query := productSelect + ` WHERE deleted = true ORDER BY updated_at DESC`
	return r.queryProducts(ctx, query)
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return list, nil
}

// Update persists the product's mutable fields.
func (r *Repository) Update(ctx context.Context, product *domain.Product) error {
	guarantee, price, err := encodeProductJSON(product)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET is_new = $2, photo = $3, title = $4, type = $5, specification = $6,
		    guarantee = $7, price = $8, date = $9, updated_at = NOW()
		WHERE id = $1 AND deleted = false
		RETURNING updated_at
	`
	err = r.db.QueryRow(ctx, query,
		product.ID,
		product.IsNew,
		product.Photo,
		product.Title,
		product.Type,
		product.Specification,
		guarantee,
		price,
		product.Date,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return products.ErrProductNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// SoftDelete flags the product deleted.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE products SET deleted = true, updated_at = NOW()
		WHERE id = $1 AND deleted = false
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return products.ErrProductNotFound
	}
	return nil
}

// Restore clears the deleted flag.
func (r *Repository) Restore(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE products SET deleted = false, updated_at = NOW()
		WHERE id = $1 AND deleted = true
	`, id)
	if err != nil {
		return fmt.Errorf("restore product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return products.ErrProductNotFound
	}
	return nil
}

// Purge hard-deletes the product row regardless of its deleted flag.
func (r *Repository) Purge(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("purge product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return products.ErrProductNotFound
	}
	return nil
}
