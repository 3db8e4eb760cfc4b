package bookings

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocare/workshop/internal/platform/httpx"
)

func newAPIRouter(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewAPIHandler(slog.Default(), f.svc).MountRoutes(r)
	})
	return f, r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const createBody = `{
	"customerName": "Jane Doe",
	"customerPhone": "555-0101",
	"car": {"make": "Honda", "model": "Civic", "year": 2020, "licensePlate": "abc123"},
	"serviceIds": ["1", "7"],
	"scheduledDate": "2025-03-08T09:00:00Z"
}`

func TestAPICreateAndGet(t *testing.T) {
	_, router := newAPIRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/bookings/", createBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created createResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, 145.0, created.Booking.TotalAmount)
	assert.Equal(t, PaymentLinkSent, created.PaymentLink.Result)

	rr = doJSON(t, router, http.MethodGet, "/api/bookings/"+created.Booking.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got Booking
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, created.Booking.Number, got.Number)
	assert.Equal(t, "ABC123", got.Car.LicensePlate)
}

func TestAPICreateValidationProblem(t *testing.T) {
	_, router := newAPIRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/bookings/", `{"customerName": "", "serviceIds": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "Please select at least one service", problem.Fields["services"])
	assert.Equal(t, "Customer name is required", problem.Fields["customerName"])
}

func TestAPIStatusTransitions(t *testing.T) {
	f, router := newAPIRouter(t)
	res, err := f.svc.Create(context.Background(), validRequest(), "staff-1")
	require.NoError(t, err)
	path := "/api/bookings/" + res.Booking.ID + "/status"

	rr := doJSON(t, router, http.MethodPost, path, `{"status": "completed"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPost, path, `{"status": "paid"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, path, `{"status": "refunded"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/bookings/missing/status", `{"status": "paid"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPIListFilters(t *testing.T) {
	f, router := newAPIRouter(t)
	_, err := f.svc.Create(context.Background(), validRequest(), "staff-1")
	require.NoError(t, err)

	rr := doJSON(t, router, http.MethodGet, "/api/bookings/?status=paid", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var result ListResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Empty(t, result.Bookings)
	assert.Equal(t, 1, result.Counts.All)
	assert.Equal(t, 1, result.Counts.Pending)
}

func TestAPIPaymentLinkDemo(t *testing.T) {
	f, router := newAPIRouter(t)
	f.svc.SetPayments(nil)
	res, err := f.svc.Create(context.Background(), validRequest(), "staff-1")
	require.NoError(t, err)

	rr := doJSON(t, router, http.MethodPost, "/api/bookings/"+res.Booking.ID+"/payment-link", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var outcome PaymentLinkOutcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
	assert.Equal(t, PaymentLinkDemo, outcome.Result)
	assert.Equal(t, MessagePaymentLinkDemo, outcome.Message)
}

func TestAPIDomainErrorsMapToProblems(t *testing.T) {
	f, router := newAPIRouter(t)
	res, err := f.svc.Create(context.Background(), validRequest(), "staff-1")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), res.Booking.ID, StatusCancelled, "staff-1")
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		status int
		detail string
	}{
		{"missing booking", http.MethodGet, "/api/bookings/missing", http.StatusNotFound, "booking not found"},
		{"link for closed booking", http.MethodPost, "/api/bookings/" + res.Booking.ID + "/payment-link", http.StatusConflict, "payment link not allowed for this booking"},
		{"link for missing booking", http.MethodPost, "/api/bookings/missing/payment-link", http.StatusNotFound, "booking not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, router, tc.method, tc.path, "")
			require.Equal(t, tc.status, rr.Code)
			var problem httpx.ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
			assert.Equal(t, tc.detail, problem.Detail)
		})
	}
}
