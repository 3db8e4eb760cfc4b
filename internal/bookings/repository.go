package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autocare/workshop/internal/platform/db"
)

// Repository persists bookings.
type Repository interface {
	List(ctx context.Context) ([]Booking, error)
	Get(ctx context.Context, id string) (Booking, error)
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]Booking, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Booking, error)
	ListForCustomer(ctx context.Context, phone string, ids []string) ([]Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	SetPaymentLink(ctx context.Context, id, link string) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes performed while creating a booking.
type TxRepository interface {
	NextSequence(ctx context.Context, day time.Time) (int, error)
	UpsertCustomer(ctx context.Context, in CustomerUpsert) (string, error)
	InsertBooking(ctx context.Context, b Booking) error
}

// CustomerUpsert adds a booking to the customer identified by phone,
// creating the customer when the phone is new.
type CustomerUpsert struct {
	NewID     string
	Name      string
	Phone     string
	Amount    float64
	BookingID string
}

// PGRepository is the PostgreSQL implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const bookingColumns = `id::text, number, customer_id::text, customer_name, customer_phone,
	car_make, car_model, car_year, license_plate, services, total_amount::float8,
	status, created_at, scheduled_at, COALESCE(payment_link, ''), COALESCE(notes, ''), created_by`

func scanBooking(row pgx.CollectableRow) (Booking, error) {
	var b Booking
	var status string
	err := row.Scan(
		&b.ID, &b.Number, &b.CustomerID, &b.CustomerName, &b.CustomerPhone,
		&b.Car.Make, &b.Car.Model, &b.Car.Year, &b.Car.LicensePlate, &b.Services, &b.TotalAmount,
		&status, &b.CreatedAt, &b.ScheduledAt, &b.PaymentLink, &b.Notes, &b.CreatedBy,
	)
	b.Status = Status(status)
	return b, err
}

func (r *PGRepository) query(ctx context.Context, sql string, args ...any) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanBooking)
}

// List returns every booking, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Booking, error) {
	list, err := r.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, number DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return list, nil
}

// Get loads a booking by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Booking, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id::text = $1`, id)
	if err != nil {
		return Booking{}, fmt.Errorf("get booking: %w", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBooking)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListScheduledBetween returns bookings scheduled in [from, to), newest first.
func (r *PGRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	list, err := r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE scheduled_at >= $1 AND scheduled_at < $2
		ORDER BY created_at DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list scheduled bookings: %w", err)
	}
	return list, nil
}

// ListByStatus returns bookings in any of statuses, newest first.
func (r *PGRepository) ListByStatus(ctx context.Context, statuses ...Status) ([]Booking, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = s.String()
	}
	list, err := r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = ANY($1)
		ORDER BY created_at DESC`, raw)
	if err != nil {
		return nil, fmt.Errorf("list bookings by status: %w", err)
	}
	return list, nil
}

// ListForCustomer returns bookings made with phone or listed in ids, newest first.
func (r *PGRepository) ListForCustomer(ctx context.Context, phone string, ids []string) ([]Booking, error) {
	if ids == nil {
		ids = []string{}
	}
	list, err := r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE customer_phone = $1 OR id::text = ANY($2)
		ORDER BY created_at DESC`, phone, ids)
	if err != nil {
		return nil, fmt.Errorf("list customer bookings: %w", err)
	}
	return list, nil
}

// UpdateStatus moves a booking from one status to another. A booking that
// is no longer in from yields ErrInvalidTransition.
func (r *PGRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bookings SET status = $3, updated_at = NOW()
		WHERE id::text = $1 AND status = $2`, id, from.String(), to.String())
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// SetPaymentLink stores the link issued for a booking.
func (r *PGRepository) SetPaymentLink(ctx context.Context, id, link string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bookings SET payment_link = $2, updated_at = NOW() WHERE id::text = $1`, id, link)
	if err != nil {
		return fmt.Errorf("set payment link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// NextSequence increments and returns the per-day booking counter.
func (t *txRepo) NextSequence(ctx context.Context, day time.Time) (int, error) {
	var seq int
	err := t.tx.QueryRow(ctx, `INSERT INTO booking_sequences (day, last_value) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = booking_sequences.last_value + 1
		RETURNING last_value`, day).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next booking sequence: %w", err)
	}
	return seq, nil
}

// UpsertCustomer returns the id of the customer owning phone after adding the booking.
func (t *txRepo) UpsertCustomer(ctx context.Context, in CustomerUpsert) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `INSERT INTO customers (id, name, phone, total_spent, booking_history)
		VALUES ($1, $2, $3, $4, ARRAY[$5::text])
		ON CONFLICT (phone) DO UPDATE SET
			total_spent = customers.total_spent + EXCLUDED.total_spent,
			booking_history = array_append(customers.booking_history, $5::text),
			updated_at = NOW()
		RETURNING id::text`, in.NewID, in.Name, in.Phone, in.Amount, in.BookingID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert customer: %w", err)
	}
	return id, nil
}

// InsertBooking stores a new booking row.
func (t *txRepo) InsertBooking(ctx context.Context, b Booking) error {
	var paymentLink, notes any
	if b.PaymentLink != "" {
		paymentLink = b.PaymentLink
	}
	if b.Notes != "" {
		notes = b.Notes
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO bookings (
			id, number, customer_id, customer_name, customer_phone,
			car_make, car_model, car_year, license_plate, services, total_amount,
			status, created_at, scheduled_at, payment_link, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		b.ID, b.Number, b.CustomerID, b.CustomerName, b.CustomerPhone,
		b.Car.Make, b.Car.Model, b.Car.Year, b.Car.LicensePlate, b.Services, b.TotalAmount,
		b.Status.String(), b.CreatedAt, b.ScheduledAt, paymentLink, notes, b.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}
