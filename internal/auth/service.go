package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/autocare/workshop/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo       Repository
	defaultPIN string
	validate   *validator.Validate
	now        func() time.Time
}

// NewService constructs a new Service. An empty defaultPIN disables the
// built-in staff login.
func NewService(repo Repository, defaultPIN string) *Service {
	return &Service{repo: repo, defaultPIN: defaultPIN, validate: validator.New(), now: time.Now}
}

type pinInput struct {
	PIN string `validate:"required,len=4,numeric"`
}

// Authenticate resolves the staff member owning pin.
func (s *Service) Authenticate(ctx context.Context, pin string) (Staff, error) {
	if err := s.validate.Struct(pinInput{PIN: pin}); err != nil {
		return Staff{}, ErrInvalidPIN
	}
	if s.defaultPIN != "" && pin == s.defaultPIN {
		return Staff{ID: DefaultStaffID, Name: DefaultStaffName, Role: RoleAdmin, IsActive: true}, nil
	}
	staff, err := s.repo.ActiveStaff(ctx)
	if err != nil {
		return Staff{}, fmt.Errorf("load staff: %w", err)
	}
	for _, member := range staff {
		if bcrypt.CompareHashAndPassword([]byte(member.PINHash), []byte(pin)) == nil {
			return member, nil
		}
	}
	return Staff{}, shared.ErrInvalidCredentials
}

// CreateStaff hashes pin and stores a new active staff member.
func (s *Service) CreateStaff(ctx context.Context, name, role, pin string) (Staff, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Staff{}, errors.New("staff name is required")
	}
	if role == "" {
		role = RoleStaff
	}
	if role != RoleStaff && role != RoleAdmin {
		return Staff{}, fmt.Errorf("unknown role %q", role)
	}
	if err := s.validate.Struct(pinInput{PIN: pin}); err != nil {
		return Staff{}, ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return Staff{}, err
	}
	member := Staff{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		PINHash:   string(hash),
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertStaff(ctx, member); err != nil {
		return Staff{}, err
	}
	return member, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, staffID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, staffID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// PurgeExpiredSessions deletes expired session records.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now())
}
