package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocare/workshop/internal/platform/httpx"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "workshop_session", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, sess *Session) *Session {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(context.Background(), rec, req, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	return loaded
}

func TestSessionPersistsStaffAndFlash(t *testing.T) {
	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	sess.SetStaff("staff-1", "Dana")
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "Booking created successfully!"})

	loaded := roundTrip(t, sm, sess)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "staff-1", loaded.StaffID())
	assert.Equal(t, "Dana", loaded.StaffName())

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Booking created successfully!", flash.Message)
	assert.Nil(t, loaded.PopFlash())

	again := roundTrip(t, sm, loaded)
	assert.Nil(t, again.PopFlash(), "flash must be shown once")
}

func TestUnknownCookieGetsFreshID(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestRenewDropsOldKey(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	loaded := roundTrip(t, sm, sess)
	oldID := loaded.ID

	sm.Renew(loaded)
	loaded.SetStaff("staff-1", "Dana")
	renewed := roundTrip(t, sm, loaded)

	assert.NotEqual(t, oldID, renewed.ID)
	assert.False(t, mr.Exists("workshop:session:"+oldID))
	assert.Equal(t, "staff-1", renewed.StaffID())
}

func TestDestroyClearsCookie(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	loaded := roundTrip(t, sm, sess)

	sm.Destroy(loaded)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/", nil), loaded))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.False(t, mr.Exists("workshop:session:"+loaded.ID))
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	csrf := NewCSRFManager("secret")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	same, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, same)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "nope"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)
}

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "Please select at least one service", UserSafeMessage(NewSafeError("Please select at least one service", errors.New("empty"))))
	assert.Equal(t, "Invalid PIN. Please try again.", UserSafeMessage(ErrInvalidCredentials))
	assert.Equal(t, "Something went wrong. Please try again.", UserSafeMessage(errors.New("pq: timeout")))
	assert.Equal(t, "", UserSafeMessage(nil))

	missing := httpx.NewError(httpx.ErrNotFound, "booking not found")
	assert.Equal(t, "The requested record was not found", UserSafeMessage(fmt.Errorf("load: %w", missing)))
	assert.Equal(t, "This record changed in the meantime. Please reload and try again.", UserSafeMessage(ErrIdempotencyConflict))
	assert.Equal(t, "Please check the form and try again.", UserSafeMessage(httpx.NewError(httpx.ErrValidation, "bad input")))
	assert.ErrorIs(t, ErrInvalidCredentials, httpx.ErrUnauthorized)
}
