package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/autocare/workshop/internal/platform/db"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	ActiveStaff(ctx context.Context) ([]Staff, error)
	InsertStaff(ctx context.Context, s Staff) error
	CreateSession(ctx context.Context, id, staffID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// ActiveStaff lists staff allowed to log in, oldest first.
func (r *PGRepository) ActiveStaff(ctx context.Context) ([]Staff, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, role, pin_hash, is_active, created_at FROM staff WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Staff])
}

// InsertStaff stores a new staff member.
func (r *PGRepository) InsertStaff(ctx context.Context, s Staff) error {
	_, err := r.db.Exec(ctx, `INSERT INTO staff (id, name, role, pin_hash, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Name, s.Role, s.PINHash, s.IsActive, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

// CreateSession records a login session for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id, staffID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO staff_sessions (id, staff_id, created_at, expires_at, ip, user_agent) VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))
ON CONFLICT (id) DO UPDATE SET staff_id = EXCLUDED.staff_id, expires_at = EXCLUDED.expires_at`,
		id, staffID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM staff_sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions prunes sessions that expired before now.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM staff_sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
