package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/autocare/workshop/internal/auth"
	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/customers"
	"github.com/autocare/workshop/internal/dashboard"
	"github.com/autocare/workshop/internal/observability"
	"github.com/autocare/workshop/internal/platform/httpx"
	"github.com/autocare/workshop/internal/receipts"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/jobs"
	"github.com/autocare/workshop/report"
	"github.com/autocare/workshop/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	BookingHandler   *bookings.Handler
	BookingAPI       *bookings.APIHandler
	CustomerHandler  *customers.Handler
	ReceiptHandler   *receipts.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	Realtime         http.Handler
}

// NewRouter constructs the chi.Router with workshop defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireStaff)

		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.BookingHandler != nil {
			params.BookingHandler.MountRoutes(r)
		}
		if params.CustomerHandler != nil {
			params.CustomerHandler.MountRoutes(r)
		}
		if params.ReceiptHandler != nil {
			params.ReceiptHandler.MountRoutes(r)
		}
		if params.Realtime != nil {
			r.Handle("/ws", params.Realtime)
		}
		r.Route("/api", func(r chi.Router) {
			if params.BookingAPI != nil {
				params.BookingAPI.MountRoutes(r)
			}
			if params.CustomerHandler != nil {
				params.CustomerHandler.MountAPI(r)
			}
		})
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
