// Package transport defines the quote API request and response shapes.
package transport

import (
	"time"

	drafts "forwarding_portal_backend/internal/drafts/transport"

	"github.com/google/uuid"
)

// QuoteStatus is the workflow state of a finalized quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// FinalizeRequest converts a draft into a quote.
type FinalizeRequest struct {
	DraftID      uuid.UUID `json:"draftId" validate:"required"`
	ValidityDays int       `json:"validityDays" validate:"omitempty,min=1,max=365"`
}

// SendRequest emails a quote to its recipient. Recipient fields override the
// customer snapshot when present.
type SendRequest struct {
	RecipientName  string `json:"recipientName"`
	RecipientEmail string `json:"recipientEmail" validate:"omitempty,email"`
}

// UpdateStatusRequest moves a quote through its workflow.
type UpdateStatusRequest struct {
	Status QuoteStatus `json:"status" validate:"required,oneof=accepted rejected expired"`
}

// ListQuotesRequest defines the query parameters for listing quotes.
type ListQuotesRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=draft sent accepted rejected expired"`
	Search   string `form:"search"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// QuoteResponse is the API representation of a quote.
type QuoteResponse struct {
	ID             uuid.UUID               `json:"id"`
	DraftID        uuid.UUID               `json:"draftId"`
	QuoteNumber    string                  `json:"quoteNumber"`
	CustomerName   string                  `json:"customerName"`
	CustomerEmail  string                  `json:"customerEmail,omitempty"`
	Route          string                  `json:"route,omitempty"`
	Currency       string                  `json:"currency"`
	Breakdown      drafts.OptionBreakdown  `json:"breakdown"`
	Status         QuoteStatus             `json:"status"`
	ValidUntil     *time.Time              `json:"validUntil,omitempty"`
	SentAt         *time.Time              `json:"sentAt,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// ListQuotesResponse is the paginated quote list.
type ListQuotesResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}
