// Package email renders and sends transactional emails: customer-facing
// quotations and operator alerts.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// OfferData feeds the quotation template. Amounts arrive pre-formatted so
// the template stays free of money arithmetic.
type OfferData struct {
	QuoteNumber     string
	RecipientName   string
	Route           string
	Currency        string
	HaulageTotal    string
	SeafreightTotal string
	MiscTotal       string
	GrandTotal      string
	ValidUntil      string
	SenderName      string
}

// SyncFailureData feeds the operator alert template.
type SyncFailureData struct {
	DraftID    string
	RemoteID   string
	Direction  string
	Reason     string
	OccurredAt string
	DraftURL   string
}

// Renderer renders the embedded email templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates. Fails fast at startup if a
// template is broken.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// OfferSubject builds the subject line for a quotation email.
func OfferSubject(quoteNumber string) string {
	return fmt.Sprintf("Your freight quotation %s", quoteNumber)
}

// SyncFailureSubject builds the subject line for an operator alert.
func SyncFailureSubject(draftID string) string {
	return fmt.Sprintf("Draft sync failure (%s)", draftID)
}

// RenderOffer renders the customer quotation body.
func (r *Renderer) RenderOffer(data OfferData) (string, error) {
	return r.render("offer.html", data)
}

// RenderSyncFailure renders the operator alert body.
func (r *Renderer) RenderSyncFailure(data SyncFailureData) (string, error) {
	return r.render("sync_failure.html", data)
}

func (r *Renderer) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatCents renders an int64 cent amount as a decimal string ("1234.50").
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
