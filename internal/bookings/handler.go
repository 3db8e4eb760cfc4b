package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/autocare/workshop/internal/catalog"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
)

// MenuLister lists the service menu for the booking form and prices a
// selection from it.
type MenuLister interface {
	List(ctx context.Context) ([]catalog.Service, error)
	Total(ctx context.Context, ids []string) (float64, error)
}

// Handler serves the booking pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	menu      MenuLister
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, menu MenuLister, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		menu:      menu,
		templates: templates,
		csrf:      csrf,
	}
}

// MountRoutes registers the booking pages.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/bookings", h.list)
	r.Get("/bookings/new", h.showForm)
	r.Post("/bookings", h.create)
	r.Get("/bookings/export", h.export)
	r.Get("/bookings/{id}", h.show)
	r.Post("/bookings/{id}/status", h.updateStatus)
	r.Post("/bookings/{id}/payment-link", h.sendPaymentLink)
}

type listView struct {
	Result      ListResult
	Filter      Filter
	Statuses    []Status
	SortOptions []Sort
}

// ExportURL links to the export of the current filtered list.
func (v listView) ExportURL(format string) string {
	values := v.Filter.Query()
	values.Set("format", format)
	return "/bookings/export?" + values.Encode()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ParseFilter(r.URL.Query())
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list bookings failed", slog.Any("error", err))
		http.Error(w, "Failed to load bookings", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/bookings_list.html", "Bookings", listView{
		Result:      result,
		Filter:      filter,
		Statuses:    Statuses,
		SortOptions: SortOptions,
	}, http.StatusOK)
}

// FormValues echoes the submitted form back into the page.
type FormValues struct {
	CustomerName  string
	CustomerPhone string
	CarMake       string
	CarModel      string
	CarYear       string
	LicensePlate  string
	ScheduledDate string
	Notes         string
	Services      []string
}

type formView struct {
	Groups         []catalog.CategoryGroup
	Form           FormValues
	Errors         map[string]string
	IdempotencyKey string
	Total          float64
	MinYear        int
	MaxYear        int
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, FormValues{}, nil, http.StatusOK)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, values FormValues, errs map[string]string, status int) {
	services, err := h.menu.List(r.Context())
	if err != nil {
		h.logger.Error("load service menu failed", slog.Any("error", err))
		http.Error(w, "Failed to load services", http.StatusInternalServerError)
		return
	}
	total, err := h.menu.Total(r.Context(), values.Services)
	if err != nil {
		h.logger.Debug("price booking form selection", slog.Any("error", err))
	}
	h.render(w, r, "pages/booking_form.html", "New Booking", formView{
		Groups:         catalog.ByCategory(services),
		Form:           values,
		Errors:         errs,
		IdempotencyKey: uuid.NewString(),
		Total:          total,
		MinYear:        MinCarYear,
		MaxYear:        h.service.Now().In(h.templates.Location()).Year() + 1,
	}, status)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	values := FormValues{
		CustomerName:  r.PostFormValue("customerName"),
		CustomerPhone: r.PostFormValue("customerPhone"),
		CarMake:       r.PostFormValue("carMake"),
		CarModel:      r.PostFormValue("carModel"),
		CarYear:       r.PostFormValue("carYear"),
		LicensePlate:  r.PostFormValue("licensePlate"),
		ScheduledDate: r.PostFormValue("scheduledDate"),
		Notes:         r.PostFormValue("notes"),
		Services:      r.PostForm["services"],
	}
	req := CreateRequest{
		CustomerName:   values.CustomerName,
		CustomerPhone:  values.CustomerPhone,
		Car:            Car{Make: values.CarMake, Model: values.CarModel, LicensePlate: values.LicensePlate},
		ServiceIDs:     values.Services,
		Notes:          values.Notes,
		IdempotencyKey: r.PostFormValue("idempotency_key"),
	}
	req.Car.Year, _ = strconv.Atoi(strings.TrimSpace(values.CarYear))
	if values.ScheduledDate != "" {
		if at, err := time.ParseInLocation("2006-01-02T15:04", values.ScheduledDate, h.templates.Location()); err == nil {
			req.ScheduledAt = at
		}
	}

	staffID := shared.StaffFromContext(r.Context())
	result, err := h.service.Create(r.Context(), req, staffID)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderForm(w, r, values, verr.Fields, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrDuplicateSubmission):
			h.redirectWithFlash(w, r, "/bookings", shared.FlashInfo, "This booking was already submitted")
		default:
			h.logger.Error("create booking failed", slog.Any("error", err))
			h.renderForm(w, r, values, map[string]string{"general": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		}
		return
	}

	message := fmt.Sprintf("Booking %s created successfully!", result.Booking.Number)
	switch {
	case result.Queued:
		message += " Payment link is being sent."
	case result.PaymentLink.Message != "":
		message += " " + result.PaymentLink.Message
	}
	h.redirectWithFlash(w, r, "/bookings/"+result.Booking.ID, shared.FlashSuccess, message)
}

type detailView struct {
	Booking      Booking
	NextStatuses []Status
	CanSendLink  bool
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleLoadError(w, err)
		return
	}
	h.render(w, r, "pages/booking_detail.html", "Booking "+booking.Number, detailView{
		Booking:      booking,
		NextStatuses: booking.Status.NextStatuses(),
		CanSendLink:  booking.CanSendPaymentLink(),
	}, http.StatusOK)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	target := "/bookings/" + id
	status, err := ParseStatus(r.PostFormValue("status"))
	if err != nil {
		h.redirectWithFlash(w, r, target, shared.FlashError, "Unknown status")
		return
	}
	booking, err := h.service.UpdateStatus(r.Context(), id, status, shared.StaffFromContext(r.Context()))
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, target, shared.FlashSuccess, "Booking marked as "+booking.Status.Label())
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Booking not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		h.redirectWithFlash(w, r, target, shared.FlashError, "This booking cannot be marked as "+status.Label())
	default:
		h.logger.Error("update booking status failed", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, target, shared.FlashError, shared.UserSafeMessage(err))
	}
}

func (h *Handler) sendPaymentLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := "/bookings/" + id
	outcome, err := h.service.SendPaymentLink(r.Context(), id)
	switch {
	case err == nil && outcome.Result == PaymentLinkSent:
		h.redirectWithFlash(w, r, target, shared.FlashSuccess, outcome.Message)
	case err == nil:
		h.redirectWithFlash(w, r, target, shared.FlashInfo, outcome.Message)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Booking not found", http.StatusNotFound)
	case errors.Is(err, ErrPaymentLinkNotAllowed):
		h.redirectWithFlash(w, r, target, shared.FlashError, "Payment links cannot be sent for closed bookings")
	default:
		h.logger.Error("send payment link failed", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, target, shared.FlashError, shared.UserSafeMessage(err))
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter := ParseFilter(r.URL.Query())
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("export bookings failed", slog.Any("error", err))
		http.Error(w, "Failed to export bookings", http.StatusInternalServerError)
		return
	}
	stamp := h.service.Now().In(h.templates.Location()).Format("20060102")
	switch r.URL.Query().Get("format") {
	case ExportXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, stamp))
		err = WriteXLSX(w, result.Bookings, h.templates.Location())
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.csv"`, stamp))
		err = WriteCSV(w, result.Bookings, h.templates.Location())
	}
	if err != nil {
		h.logger.Error("write booking export failed", slog.Any("error", err))
	}
}

func (h *Handler) handleLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	h.logger.Error("load booking failed", slog.Any("error", err))
	http.Error(w, "Failed to load booking", http.StatusInternalServerError)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)

	var flash *shared.FlashMessage
	var staffName string
	if sess != nil {
		flash = sess.PopFlash()
		staffName = sess.StaffName()
	}

	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		StaffName:   staffName,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, tmpl, viewData); err != nil {
		h.logger.Error("template render failed", slog.Any("error", err), slog.String("template", tmpl))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, url, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
