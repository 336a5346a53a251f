// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"forwarding_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Draft Domain Events
// =============================================================================

// DraftFinalized is published when a draft is converted into a quote.
type DraftFinalized struct {
	BaseEvent
	DraftID uuid.UUID `json:"draftId"`
	QuoteID uuid.UUID `json:"quoteId"`
}

func (e DraftFinalized) EventName() string { return "drafts.finalized" }

// DraftSyncFailed is published when a remote push for a draft fails.
// The notification module turns repeated failures into an operator email.
type DraftSyncFailed struct {
	BaseEvent
	DraftID   uuid.UUID `json:"draftId"`
	RemoteID  string    `json:"remoteId,omitempty"`
	Direction string    `json:"direction"`
	Reason    string    `json:"reason"`
}

func (e DraftSyncFailed) EventName() string { return "drafts.sync.failed" }

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteSent is published when a finalized quote is emailed to the customer.
type QuoteSent struct {
	BaseEvent
	QuoteID        uuid.UUID `json:"quoteId"`
	QuoteNumber    string    `json:"quoteNumber"`
	RecipientName  string    `json:"recipientName"`
	RecipientEmail string    `json:"recipientEmail"`
	Subject        string    `json:"subject"`
	HTMLBody       string    `json:"htmlBody"`
}

func (e QuoteSent) EventName() string { return "quotes.sent" }
