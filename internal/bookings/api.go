package bookings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autocare/workshop/internal/platform/httpx"
	"github.com/autocare/workshop/internal/shared"
)

// APIHandler serves the JSON booking API under /api/bookings.
type APIHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewAPIHandler builds the API handler.
func NewAPIHandler(logger *slog.Logger, service *Service) *APIHandler {
	return &APIHandler{logger: logger, service: service}
}

// MountRoutes registers the API routes on r (already prefixed with /api).
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/today", h.today)
		r.Get("/pending", h.pending)
		r.Get("/{id}", h.get)
		r.Post("/{id}/status", h.updateStatus)
		r.Post("/{id}/payment-link", h.sendPaymentLink)
	})
}

func (h *APIHandler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), ParseFilter(r.URL.Query()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *APIHandler) today(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Today(r.Context(), h.service.Now())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bookings": list, "total": len(list)})
}

func (h *APIHandler) pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.PendingPayments(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bookings": list, "total": len(list)})
}

func (h *APIHandler) get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

type createResponse struct {
	Booking     Booking            `json:"booking"`
	PaymentLink PaymentLinkOutcome `json:"paymentLink"`
	Queued      bool               `json:"queued"`
}

func (h *APIHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	result, err := h.service.Create(r.Context(), req, shared.StaffFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, createResponse{
		Booking:     result.Booking,
		PaymentLink: result.PaymentLink,
		Queued:      result.Queued,
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *APIHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"status": "Unknown status"})
		return
	}
	booking, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status, shared.StaffFromContext(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *APIHandler) sendPaymentLink(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.SendPaymentLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.ValidationProblem(w, verr.Fields)
	case errors.Is(err, ErrInvalidStatus):
		httpx.ValidationProblem(w, map[string]string{"status": "Unknown status"})
	case httpx.IsClientError(err):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("booking api failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
