package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/autocare/workshop/internal/platform/db"
)

// Repository reads dashboard aggregates and writes expenses.
type Repository interface {
	Counts(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error)
	MonthlyIncome(ctx context.Context, from time.Time, tz string) (map[string]float64, error)
	MonthlyExpenses(ctx context.Context, from time.Time) (map[string]float64, error)
	InsertExpense(ctx context.Context, e Expense) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs the repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// Counts returns the headline counters for the day [dayStart, dayEnd).
func (r *PGRepository) Counts(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE scheduled_at >= $1 AND scheduled_at < $2),
	COUNT(*) FILTER (WHERE status = 'pending'),
	COALESCE(SUM(total_amount) FILTER (WHERE status IN ('paid', 'completed')), 0)::float8,
	COUNT(*) FILTER (WHERE status = 'completed')
FROM bookings`
	var s Stats
	if err := r.db.QueryRow(ctx, query, dayStart, dayEnd).Scan(&s.TodayCount, &s.PendingCount, &s.Revenue, &s.CompletedCount); err != nil {
		return Stats{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return s, nil
}

// MonthlyIncome sums paid and completed bookings by creation month in tz.
func (r *PGRepository) MonthlyIncome(ctx context.Context, from time.Time, tz string) (map[string]float64, error) {
	const query = `SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM') AS month, SUM(total_amount)::float8
FROM bookings
WHERE status IN ('paid', 'completed') AND created_at >= $1
GROUP BY month`
	return r.monthly(ctx, query, from, tz)
}

// MonthlyExpenses sums the expense ledger by month.
func (r *PGRepository) MonthlyExpenses(ctx context.Context, from time.Time) (map[string]float64, error) {
	const query = `SELECT to_char(spent_on, 'YYYY-MM') AS month, SUM(amount)::float8
FROM expenses
WHERE spent_on >= $1::date
GROUP BY month`
	return r.monthly(ctx, query, from)
}

type monthTotal struct {
	Month string
	Total float64
}

func (r *PGRepository) monthly(ctx context.Context, query string, args ...any) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dashboard monthly: %w", err)
	}
	totals, err := pgx.CollectRows(rows, pgx.RowToStructByPos[monthTotal])
	if err != nil {
		return nil, fmt.Errorf("dashboard monthly: %w", err)
	}
	out := make(map[string]float64, len(totals))
	for _, t := range totals {
		out[t.Month] = t.Total
	}
	return out, nil
}

// InsertExpense stores an expense.
func (r *PGRepository) InsertExpense(ctx context.Context, e Expense) error {
	_, err := r.db.Exec(ctx, `INSERT INTO expenses (id, label, amount, spent_on, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Label, e.Amount, e.SpentOn, e.CreatedBy, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}
