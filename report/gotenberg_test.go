package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGotenberg(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"up"}`))
	})
	mux.HandleFunc("/forms/chromium/convert/html", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", header.Filename)
		html, _ := io.ReadAll(file)
		assert.Contains(t, string(html), "Receipt")
		assert.Equal(t, "true", r.FormValue("printBackground"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRenderHTML(t *testing.T) {
	srv := fakeGotenberg(t)
	pdf, err := NewClient(srv.URL+"/").RenderHTML(context.Background(), "<html><body>Receipt</body></html>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
}

func TestRenderHTMLStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<html></html>")
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("")
	assert.ErrorIs(t, client.Ping(context.Background()), ErrNotConfigured)
	_, err := client.RenderHTML(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPingHandler(t *testing.T) {
	srv := fakeGotenberg(t)
	r := chi.NewRouter()
	r.Route("/report", NewHandler(NewClient(srv.URL), slog.Default()).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	down := chi.NewRouter()
	down.Route("/report", NewHandler(NewClient(""), slog.Default()).MountRoutes)
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
