package receipts

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/view"
	"github.com/autocare/workshop/web"
)

// Workshop identifies the business printed on receipts.
type Workshop struct {
	Name    string
	Phone   string
	Address string
}

// DocumentData feeds the receipt template.
type DocumentData struct {
	Workshop  Workshop
	Booking   bookings.Booking
	AutoPrint bool
}

// Renderer produces standalone receipt documents.
type Renderer struct {
	tpl      *template.Template
	workshop Workshop
}

// NewRenderer parses the receipt template.
func NewRenderer(workshop Workshop, money view.Money, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	funcMap := template.FuncMap{
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("Jan 02, 2006 - 03:04 PM")
		},
		"money": money.Format,
	}
	tpl, err := template.New("receipt.html").Funcs(funcMap).ParseFS(web.Templates, "templates/documents/receipt.html")
	if err != nil {
		return nil, fmt.Errorf("receipts: parse template: %w", err)
	}
	return &Renderer{tpl: tpl, workshop: workshop}, nil
}

// Render writes the receipt document for b.
func (r *Renderer) Render(w io.Writer, b bookings.Booking, autoPrint bool) error {
	if r == nil || r.tpl == nil {
		return fmt.Errorf("receipts renderer not initialised")
	}
	return r.tpl.Execute(w, DocumentData{Workshop: r.workshop, Booking: b, AutoPrint: autoPrint})
}

// RenderString returns the receipt document as a string.
func (r *Renderer) RenderString(b bookings.Booking) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, b, false); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Filename is the download name for a receipt.
func Filename(b bookings.Booking, ext string) string {
	return "Receipt_" + b.Number + "." + ext
}
