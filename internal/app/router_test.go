package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocare/workshop/internal/auth"
	"github.com/autocare/workshop/internal/observability"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
	"github.com/autocare/workshop/jobs"
)

type noStaff struct{}

func (noStaff) ActiveStaff(ctx context.Context) ([]auth.Staff, error) { return nil, nil }
func (noStaff) InsertStaff(ctx context.Context, s auth.Staff) error  { return nil }
func (noStaff) CreateSession(ctx context.Context, id, staffID string, expiresAt time.Time, ip, ua string) error {
	return nil
}
func (noStaff) DeleteSession(ctx context.Context, id string) error { return nil }
func (noStaff) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "workshop_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	templates, err := view.NewEngine()
	require.NoError(t, err)

	cfg := &Config{AppEnv: "production", AppRequestTimeout: 5 * time.Second, AppRateLimit: 1000}
	return NewRouter(RouterParams{
		Logger:         slog.Default(),
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Metrics:        observability.NewMetrics(),
		AuthHandler:    auth.NewHandler(nil, auth.NewService(noStaff{}, "1234"), templates, sessions, csrf),
		JobHandler:     jobs.NewHandler(nil, nil),
		Realtime: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	})
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := do(newTestRouter(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestStaticAssetsCached(t *testing.T) {
	rr := do(newTestRouter(t), httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestProtectedRoutesRequireStaff(t *testing.T) {
	router := newTestRouter(t)

	rr := do(router, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login", rr.Header().Get("Location"))

	rr = do(router, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	do(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "workshop_http_requests_total")
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "workshop_session" {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestLoginFlowWithCSRF(t *testing.T) {
	router := newTestRouter(t)

	rr := do(router, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)
	match := csrfField.FindStringSubmatch(rr.Body.String())
	require.Len(t, match, 2)

	post := func(token string) *httptest.ResponseRecorder {
		form := url.Values{"pin": {"1234"}}
		if token != "" {
			form.Set("csrf_token", token)
		}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		return do(router, req)
	}

	assert.Equal(t, http.StatusForbidden, post("").Code)
	assert.Equal(t, http.StatusForbidden, post("forged").Code)

	rr = post(match[1])
	require.Equal(t, http.StatusSeeOther, rr.Code)
	renewed := sessionCookie(t, rr)
	assert.NotEqual(t, cookie.Value, renewed.Value)

	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.AddCookie(renewed)
	rr = do(router, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"failedToday":0,"processedToday":0}`, rr.Body.String())
}
