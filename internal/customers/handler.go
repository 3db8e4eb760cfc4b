package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/autocare/workshop/internal/platform/httpx"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
)

// Handler serves the customer history page and API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the customer page.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.search)
	r.Get("/customers/{id}", h.show)
}

// MountAPI registers the JSON routes on an /api router.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/customers", h.apiSearch)
	r.Get("/customers/{id}", h.apiShow)
}

type searchView struct {
	Phone    string
	Searched bool
	NotFound bool
	Profile  *Profile
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	data := searchView{Phone: phone, Searched: phone != ""}
	if phone != "" {
		profile, err := h.service.Lookup(r.Context(), phone)
		switch {
		case err == nil:
			data.Profile = &profile
		case errors.Is(err, ErrNotFound):
			data.NotFound = true
		default:
			h.logger.Error("customer lookup failed", slog.Any("error", err))
			http.Error(w, "Failed to search customers", http.StatusInternalServerError)
			return
		}
	}
	h.render(w, r, data)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Customer not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load customer failed", slog.Any("error", err))
		http.Error(w, "Failed to load customer", http.StatusInternalServerError)
		return
	}
	h.render(w, r, searchView{Phone: profile.Customer.Phone, Searched: true, Profile: &profile})
}

func (h *Handler) apiSearch(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if strings.TrimSpace(phone) == "" {
		httpx.ValidationProblem(w, map[string]string{"phone": "Phone number is required"})
		return
	}
	profile, err := h.service.Lookup(r.Context(), phone)
	h.respond(w, profile, err, "No customer found with phone number: "+phone)
}

func (h *Handler) apiShow(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, profile, err, "Customer not found")
}

func (h *Handler) respond(w http.ResponseWriter, profile Profile, err error, notFound string) {
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, profile)
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", notFound)
	default:
		h.logger.Error("customer api failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data searchView) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var staffName string
	if sess != nil {
		flash = sess.PopFlash()
		staffName = sess.StaffName()
	}
	err := h.templates.Render(w, "pages/customers.html", view.TemplateData{
		Title:       "Customer History",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		StaffName:   staffName,
		Data:        data,
	})
	if err != nil {
		h.logger.Error("template render failed", slog.Any("error", err), slog.String("template", "pages/customers.html"))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
