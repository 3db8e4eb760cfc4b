package receipts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
)

// PDFClient converts HTML documents to PDF.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves the receipts pages and documents.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	renderer  *Renderer
	pdf       PDFClient
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, renderer *Renderer, pdf PDFClient, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		renderer:  renderer,
		pdf:       pdf,
		templates: templates,
		csrf:      csrf,
	}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/receipts", h.list)
	r.Get("/receipts/{id}", h.preview)
	r.Get("/receipts/{id}/print", h.print)
	r.Get("/receipts/{id}/download", h.download)
	r.Get("/receipts/{id}/pdf", h.pdfDocument)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		h.logger.Error("list receipts failed", slog.Any("error", err))
		http.Error(w, "Failed to load receipts", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/receipts.html", "Receipts", result)
}

type previewView struct {
	Booking  bookings.Booking
	Document string
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.load(w, r)
	if !ok {
		return
	}
	doc, err := h.renderer.RenderString(booking)
	if err != nil {
		h.logger.Error("render receipt failed", slog.Any("error", err))
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/receipt_preview.html", "Receipt "+booking.Number, previewView{Booking: booking, Document: doc})
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeDocument(w, booking, true, "")
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeDocument(w, booking, false, fmt.Sprintf(`attachment; filename="%s"`, Filename(booking, "html")))
}

func (h *Handler) writeDocument(w http.ResponseWriter, booking bookings.Booking, autoPrint bool, disposition string) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, booking, autoPrint); err != nil {
		h.logger.Error("render receipt failed", slog.Any("error", err))
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	_, _ = buf.WriteTo(w)
}

func (h *Handler) pdfDocument(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.load(w, r)
	if !ok {
		return
	}
	doc, err := h.renderer.RenderString(booking)
	if err != nil {
		h.logger.Error("render receipt failed", slog.Any("error", err))
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), doc)
	if err != nil {
		h.logger.Error("receipt pdf conversion failed", slog.Any("error", err), slog.String("booking", booking.Number))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, Filename(booking, "pdf")))
	_, _ = w.Write(pdf)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (bookings.Booking, bool) {
	booking, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Receipt not found", http.StatusNotFound)
			return bookings.Booking{}, false
		}
		h.logger.Error("load receipt failed", slog.Any("error", err))
		http.Error(w, "Failed to load receipt", http.StatusInternalServerError)
		return bookings.Booking{}, false
	}
	return booking, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var staffName string
	if sess != nil {
		flash = sess.PopFlash()
		staffName = sess.StaffName()
	}
	err := h.templates.Render(w, tmpl, view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		StaffName:   staffName,
		Data:        data,
	})
	if err != nil {
		h.logger.Error("template render failed", slog.Any("error", err), slog.String("template", tmpl))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
