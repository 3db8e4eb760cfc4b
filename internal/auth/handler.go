package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	auditor        shared.AuditRecorder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		auditor:        shared.NopAuditor{},
	}
}

// SetAuditor records logins and logouts.
func (h *Handler) SetAuditor(a shared.AuditRecorder) {
	if a != nil {
		h.auditor = a
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	Error string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.StaffID() != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	var flash *shared.FlashMessage
	if r.URL.Query().Get("signed_out") == "1" {
		flash = &shared.FlashMessage{Kind: shared.FlashInfo, Message: MessageLoggedOut}
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{}, flash)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	staff, err := h.service.Authenticate(r.Context(), strings.TrimSpace(r.PostFormValue("pin")))
	switch {
	case errors.Is(err, ErrInvalidPIN):
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Error: MessagePINFormat}, nil)
		return
	case errors.Is(err, shared.ErrInvalidCredentials):
		h.renderLogin(w, r, http.StatusUnauthorized, loginPageData{Error: MessageInvalidPIN}, nil)
		return
	case err != nil:
		h.logger.Error("authenticate staff", slog.Any("error", err))
		h.renderLogin(w, r, http.StatusInternalServerError, loginPageData{Error: MessageLoginFailed}, nil)
		return
	}

	h.sessionManager.Renew(sess)
	sess.SetStaff(staff.ID, staff.Name)
	message := "Welcome back, " + staff.Name + "!"
	if staff.ID == DefaultStaffID {
		message = MessageDefaultLogin
	}
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Message: message})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, staff.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	if err := h.auditor.Record(r.Context(), shared.AuditLog{ActorID: staff.ID, Action: shared.AuditLogin, Entity: "staff", EntityID: staff.ID}); err != nil {
		h.logger.Warn("audit login", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if staffID := sess.StaffID(); staffID != "" {
			if err := h.auditor.Record(r.Context(), shared.AuditLog{ActorID: staffID, Action: shared.AuditLogout, Entity: "staff", EntityID: staffID}); err != nil {
				h.logger.Warn("audit logout", slog.Any("error", err))
			}
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login?signed_out=1", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData, flash *shared.FlashMessage) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	if flash == nil && sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Staff Login",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
