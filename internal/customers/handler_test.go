package customers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocare/workshop/internal/platform/httpx"
)

func apiRouter() http.Handler {
	h := NewHandler(slog.Default(), newTestService(), nil, nil)
	r := chi.NewRouter()
	r.Route("/api", h.MountAPI)
	return r
}

func TestAPISearchFindsCustomer(t *testing.T) {
	rr := httptest.NewRecorder()
	apiRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/customers?phone=1234", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var profile Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "Old Customer", profile.Customer.Name)
	assert.Equal(t, 2, profile.BookingCount)
}

func TestAPISearchNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	apiRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/customers?phone=000", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "No customer found with phone number: 000", problem.Detail)
}

func TestAPISearchRequiresPhone(t *testing.T) {
	rr := httptest.NewRecorder()
	apiRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/customers", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
