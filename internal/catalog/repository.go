package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/autocare/workshop/internal/platform/db"
)

// Repository defines persistence operations for the service menu.
type Repository interface {
	List(ctx context.Context) ([]Service, error)
	Seed(ctx context.Context, services []Service) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// List returns the menu in display order.
func (r *PGRepository) List(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price::float8, category, position FROM services ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Service, error) {
		var s Service
		err := row.Scan(&s.ID, &s.Name, &s.Price, &s.Category, &s.Position)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: scan: %w", err)
	}
	return services, nil
}

// Seed inserts services that are not present yet.
func (r *PGRepository) Seed(ctx context.Context, services []Service) error {
	for _, s := range services {
		_, err := r.db.Exec(ctx, `INSERT INTO services (id, name, price, category, position) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Name, s.Price, string(s.Category), s.Position)
		if err != nil {
			return fmt.Errorf("catalog: seed %s: %w", s.ID, err)
		}
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
