// Package postgres provides the PostgreSQL implementation of the orders
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
	"github.com/nkoval/backoffice/internal/orders"
)

const uniqueViolation = "23505"

// Repository implements the orders.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts the order and its products in one transaction.
func (r *Repository) Create(ctx context.Context, order *domain.Order, items []domain.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (title, description, date)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, order.Title, order.Description, order.Date).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = &order.ID
		if err := insertProduct(ctx, tx, &items[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func insertProduct(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	guarantee, price, err := encodeProductJSON(p)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO products (serial_number, is_new, photo, title, type, specification, guarantee, price, date, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		p.SerialNumber,
		p.IsNew,
		p.Photo,
		p.Title,
		p.Type,
		p.Specification,
		guarantee,
		price,
		p.Date,
		p.OrderID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return orders.ErrDuplicateSerial
		}
		return fmt.Errorf("create order product: %w", err)
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

// GetByID retrieves an active order with its active products.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), date, deleted, created_at, updated_at
		FROM orders
		WHERE id = $1 AND deleted = false
	`
	var order domain.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.Title,
		&order.Description,
		&order.Date,
		&order.Deleted,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orders.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	products, err := r.loadProducts(ctx, order.ID, false)
	if err != nil {
		return nil, err
	}
	order.Products = products

	return &order, nil
}

// List retrieves all active orders, newest first, with their products.
func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, false, "created_at DESC")
}

// ListDeleted retrieves all soft-deleted orders, by last update.
func (r *Repository) ListDeleted(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, true, "updated_at DESC")
}

func (r *Repository) list(ctx context.Context, deleted bool, orderBy string) ([]domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT id, title, COALESCE(description, ''), date, deleted, created_at, updated_at
		FROM orders
		WHERE deleted = $1
		ORDER BY %s
	`, orderBy)

	rows, err := r.db.Query(ctx, query, deleted)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		err := rows.Scan(
			&order.ID,
			&order.Title,
			&order.Description,
			&order.Date,
			&order.Deleted,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range list {
		products, err := r.loadProducts(ctx, list[i].ID, deleted)
		if err != nil {
			return nil, err
		}
		list[i].Products = products
	}

	return list, nil
}

func (r *Repository) loadProducts(ctx context.Context, orderID int64, deleted bool) ([]domain.Product, error) {
	query := `
		SELECT id, serial_number, is_new, COALESCE(photo, ''), title, type,
		       COALESCE(specification, ''), guarantee, price, date, deleted,
		       order_id, created_at, updated_at
		FROM products
		WHERE order_id = $1 AND deleted = $2
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, orderID, deleted)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p         domain.Product
			guarantee []byte
			price     []byte
		)
		err := rows.Scan(
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
			return nil, fmt.Errorf("scan order product: %w", err)
		}

		if len(guarantee) > 0 {
			if err := json.Unmarshal(guarantee, &p.Guarantee); err != nil {
				return nil, fmt.Errorf("decode guarantee: %w", err)
			}
		}
		if err := json.Unmarshal(price, &p.Price); err != nil {
			return nil, fmt.Errorf("decode price: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order products: %w", err)
	}
	return products, nil
}

// Update persists the order's mutable fields.
func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET title = $2, description = $3, date = $4, updated_at = NOW()
		WHERE id = $1 AND deleted = false
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		order.ID,
		order.Title,
		order.Description,
		order.Date,
	).Scan(&order.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orders.ErrOrderNotFound
		}
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

// SoftDelete flags the order and its products deleted in one transaction.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin soft delete order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `
		UPDATE orders SET deleted = true, updated_at = NOW()
		WHERE id = $1 AND deleted = false
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return orders.ErrOrderNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET deleted = true, updated_at = NOW()
		WHERE order_id = $1 AND deleted = false
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete order products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit soft delete order: %w", err)
	}
	return nil
}

// Restore clears the deleted flag on the order and its products.
// The update targets the row directly: the order is invisible to the
// filtered readers while deleted.
func (r *Repository) Restore(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin restore order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `
		UPDATE orders SET deleted = false, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("restore order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return orders.ErrOrderNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET deleted = false, updated_at = NOW()
		WHERE order_id = $1 AND deleted = true
	`, id)
	if err != nil {
		return fmt.Errorf("restore order products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit restore order: %w", err)
	}
	return nil
}

// Purge hard-deletes the order's products and then the order row itself.
func (r *Repository) Purge(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin purge order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("purge order products: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("purge order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return orders.ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit purge order: %w", err)
	}
	return nil
}
