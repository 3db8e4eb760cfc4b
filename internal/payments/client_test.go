package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLinkSendsCallableEnvelope(t *testing.T) {
	var got callableRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":{"paymentLink":"https://pay.example/abc"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	link, err := client.CreateLink(context.Background(), LinkRequest{BookingID: "b1", CustomerPhone: "+15551234"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", link)
	assert.Equal(t, "b1", got.Data.BookingID)
	assert.Equal(t, "+15551234", got.Data.CustomerPhone)
}

func TestCreateLinkSurfacesFunctionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"status":"INTERNAL","message":"gateway down"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).CreateLink(context.Background(), LinkRequest{BookingID: "b1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")
}

func TestCreateLinkRejectsEmptyLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).CreateLink(context.Background(), LinkRequest{BookingID: "b1"})
	assert.Error(t, err)
}

func TestCreateLinkNotConfigured(t *testing.T) {
	_, err := NewClient("", time.Second).CreateLink(context.Background(), LinkRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
