package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	money     Money
	location  *time.Location
	workshop  string
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title        string
	CSRFToken    string
	Flash        *shared.FlashMessage
	CurrentPath  string
	StaffName    string
	WorkshopName string
	Data         any
}

// Option customises the Engine.
type Option func(*Engine)

// WithMoney sets the currency formatter used by the money template func.
func WithMoney(m Money) Option {
	return func(e *Engine) { e.money = m }
}

// WithLocation renders timestamps in the workshop time zone.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithWorkshopName sets the name shown in page headers.
func WithWorkshopName(name string) Option {
	return func(e *Engine) { e.workshop = name }
}

// NewEngine parses templates at build-time.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{location: time.UTC}
	e.money, _ = NewMoney("USD")
	for _, opt := range opts {
		opt(e)
	}
	tpl, err := template.New("root").Funcs(e.Funcs()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	e.templates = tpl
	return e, nil
}

// Funcs exposes the helper functions available in every template.
func (e *Engine) Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(e.location).Format("Jan 02, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(e.location).Format("Jan 02, 2006 - 03:04 PM")
		},
		"inputDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(e.location).Format("2006-01-02T15:04")
		},
		"money": e.money.Format,
		"upper": strings.ToUpper,
		"statusClass": func(status fmt.Stringer) string {
			return "status-" + status.String()
		},
		"hasString": func(list []string, v string) bool {
			for _, item := range list {
				if item == v {
					return true
				}
			}
			return false
		},
		"isActive": func(current, prefix string) bool {
			if prefix == "/" {
				return current == "/"
			}
			return strings.HasPrefix(current, prefix)
		},
	}
}

// Render executes a named template with TemplateData and a 200 status.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus buffers the page so a template error never leaves a
// half-written response, then writes it with status.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	if data.WorkshopName == "" {
		data.WorkshopName = e.workshop
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Money returns the configured currency formatter.
func (e *Engine) Money() Money {
	return e.money
}

// Location returns the time zone used for rendering.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}
