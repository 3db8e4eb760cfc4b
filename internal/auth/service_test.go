package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/autocare/workshop/internal/shared"
)

type memRepo struct {
	staff []Staff
	err   error
}

func (m *memRepo) ActiveStaff(context.Context) ([]Staff, error) { return m.staff, m.err }
func (m *memRepo) InsertStaff(_ context.Context, s Staff) error {
	m.staff = append(m.staff, s)
	return nil
}
func (m *memRepo) CreateSession(context.Context, string, string, time.Time, string, string) error {
	return nil
}
func (m *memRepo) DeleteSession(context.Context, string) error { return nil }
func (m *memRepo) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestCreateStaffHashesPIN(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, "")

	member, err := svc.CreateStaff(context.Background(), " Carol ", RoleAdmin, "2468")
	require.NoError(t, err)
	assert.Equal(t, "Carol", member.Name)
	assert.True(t, member.IsAdmin())
	assert.NotEqual(t, "2468", member.PINHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(member.PINHash), []byte("2468")))

	got, err := svc.Authenticate(context.Background(), "2468")
	require.NoError(t, err)
	assert.Equal(t, member.ID, got.ID)
}

func TestCreateStaffRejectsBadInput(t *testing.T) {
	svc := NewService(&memRepo{}, "")
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, "", RoleStaff, "1111")
	assert.Error(t, err)
	_, err = svc.CreateStaff(ctx, "Dan", "owner", "1111")
	assert.Error(t, err)
	_, err = svc.CreateStaff(ctx, "Dan", RoleStaff, "11a1")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestAuthenticateDefaultPINDisabled(t *testing.T) {
	svc := NewService(&memRepo{}, "")
	_, err := svc.Authenticate(context.Background(), "1234")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRepositoryFailure(t *testing.T) {
	svc := NewService(&memRepo{err: errors.New("db down")}, "1234")
	_, err := svc.Authenticate(context.Background(), "5555")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
