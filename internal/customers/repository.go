package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/autocare/workshop/internal/platform/db"
)

// Repository reads customers.
type Repository interface {
	FindByPhone(ctx context.Context, fragment string) (Customer, error)
	Get(ctx context.Context, id string) (Customer, error)
}

// PGRepository is the PostgreSQL implementation.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const customerColumns = `id::text, name, phone, total_spent::float8, booking_history, created_at`

func scanCustomer(row pgx.CollectableRow) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.TotalSpent, &c.BookingHistory, &c.CreatedAt)
	return c, err
}

func (r *PGRepository) one(ctx context.Context, sql string, args ...any) (Customer, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return Customer{}, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

// FindByPhone returns the newest customer whose phone contains fragment.
func (r *PGRepository) FindByPhone(ctx context.Context, fragment string) (Customer, error) {
	c, err := r.one(ctx, `SELECT `+customerColumns+` FROM customers
		WHERE strpos(phone, $1) > 0
		ORDER BY created_at DESC
		LIMIT 1`, fragment)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Customer{}, fmt.Errorf("find customer by phone: %w", err)
	}
	return c, err
}

// Get loads a customer by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Customer, error) {
	c, err := r.one(ctx, `SELECT `+customerColumns+` FROM customers WHERE id::text = $1`, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, err
}
