package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
)

// TodayLister returns bookings scheduled for the current workshop day.
type TodayLister interface {
	Today(ctx context.Context, now time.Time) ([]bookings.Booking, error)
}

// Handler serves the dashboard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	today     TodayLister
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, today TodayLister, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, today: today, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/dashboard", h.show)
	r.Post("/dashboard/expenses", h.createExpense)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview, err := h.service.Overview(ctx)
	if err != nil {
		h.logger.Error("load dashboard failed", slog.Any("error", err))
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	today, err := h.today.Today(ctx, h.service.Now())
	if err != nil {
		h.logger.Error("load today's bookings failed", slog.Any("error", err))
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	data := View{
		Stats:      overview.Stats,
		TodayTotal: len(today),
		Months:     overview.Months,
		Chart:      IncomeChart(overview.Months),
	}
	data.Today = today
	if len(today) > TodayPreview {
		data.Today = today[:TodayPreview]
	}
	h.render(w, r, data)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	in := ExpenseInput{Label: r.PostFormValue("label")}
	if amount, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("amount")), 64); err == nil {
		in.Amount = amount
	}
	if raw := strings.TrimSpace(r.PostFormValue("spentOn")); raw != "" {
		if day, err := time.ParseInLocation("2006-01-02", raw, h.templates.Location()); err == nil {
			in.SpentOn = day
		}
	}
	_, err := h.service.RecordExpense(r.Context(), in, shared.StaffFromContext(r.Context()))
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, shared.FlashSuccess, "Expense recorded")
	case errors.Is(err, ErrValidation):
		h.redirectWithFlash(w, r, shared.FlashError, shared.UserSafeMessage(err))
	default:
		h.logger.Error("record expense failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, shared.FlashError, shared.UserSafeMessage(err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data View) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var staffName string
	if sess != nil {
		flash = sess.PopFlash()
		staffName = sess.StaffName()
	}
	err := h.templates.Render(w, "pages/dashboard.html", view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		StaffName:   staffName,
		Data:        data,
	})
	if err != nil {
		h.logger.Error("template render failed", slog.Any("error", err), slog.String("template", "pages/dashboard.html"))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
