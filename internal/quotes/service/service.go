// Package service implements quote finalization, numbering, and the send
// workflow on top of the drafts module.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	draftstransport "forwarding_portal_backend/internal/drafts/transport"
	"forwarding_portal_backend/internal/email"
	"forwarding_portal_backend/internal/events"
	"forwarding_portal_backend/internal/quotes/repository"
	"forwarding_portal_backend/internal/quotes/transport"
	"forwarding_portal_backend/platform/apperr"
	"forwarding_portal_backend/platform/logger"
	"forwarding_portal_backend/platform/validator"

	"github.com/google/uuid"
)

// DraftSource is the slice of the drafts module that finalization needs.
type DraftSource interface {
	Get(ctx context.Context, id uuid.UUID) (draftstransport.DraftResponse, error)
	Finalize(ctx context.Context, id uuid.UUID) error
}

// Service implements quote business logic.
type Service struct {
	store    repository.Store
	drafts   DraftSource
	renderer *email.Renderer
	bus      events.Bus
	validate *validator.Validator
	log      *logger.Logger
	now      func() time.Time
}

// New creates the quotes service.
func New(store repository.Store, drafts DraftSource, renderer *email.Renderer, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		drafts:   drafts,
		renderer: renderer,
		bus:      bus,
		validate: validate,
		log:      log,
		now:      time.Now,
	}
}

const defaultValidityDays = 30

// Finalize converts a draft into a numbered quote. The draft must carry at
// least one option and exactly one preferred option; the preferred option's
// totals are snapshotted onto the quote.
func (s *Service) Finalize(ctx context.Context, req transport.FinalizeRequest) (transport.QuoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.QuoteResponse{}, apperr.Validation(err.Error())
	}

	// A draft yields one quote. Checking the quote table as well as the
	// draft status catches drafts whose finalized flag never landed.
	existing, err := s.store.GetByDraft(ctx, req.DraftID)
	if err == nil {
		return transport.QuoteResponse{}, apperr.Conflict("draft is already quoted as " + existing.QuoteNumber)
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return transport.QuoteResponse{}, err
	}

	draft, err := s.drafts.Get(ctx, req.DraftID)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if draft.Status == draftstransport.DraftStatusFinalized {
		return transport.QuoteResponse{}, apperr.Conflict("draft is already finalized")
	}
	if len(draft.Options) == 0 {
		return transport.QuoteResponse{}, apperr.Validation("draft has no options to quote")
	}

	preferred, err := preferredOption(draft.Options)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	now := s.now().UTC()
	counter, err := s.store.NextQuoteNumber(ctx, now.Year())
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	quoteNumber := fmt.Sprintf("Q-%d-%05d", now.Year(), counter)

	snapshot, err := json.Marshal(preferred)
	if err != nil {
		return transport.QuoteResponse{}, fmt.Errorf("snapshot option: %w", err)
	}

	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = defaultValidityDays
	}
	validUntil := now.AddDate(0, 0, validityDays)

	quote := repository.Quote{
		ID:                   uuid.New(),
		DraftID:              draft.ID,
		QuoteNumber:          quoteNumber,
		Currency:             draft.Currency,
		OptionSnapshot:       snapshot,
		HaulageTotalCents:    preferred.Breakdown.HaulageTotalCents,
		SeafreightTotalCents: preferred.Breakdown.SeafreightTotalCents,
		MiscTotalCents:       preferred.Breakdown.MiscTotalCents,
		SubtotalCents:        preferred.Breakdown.SubtotalCents,
		MarginAmountCents:    preferred.Breakdown.MarginAmountCents,
		GrandTotalCents:      preferred.Breakdown.GrandTotalCents,
		Status:               string(transport.QuoteStatusDraft),
		ValidUntil:           &validUntil,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if draft.Customer != nil {
		quote.CustomerName = customerDisplayName(*draft.Customer)
		quote.CustomerEmail = draft.Customer.Email
	}
	if draft.Shipment != nil {
		quote.Route = routeLabel(*draft.Shipment)
	}

	if err := s.store.Create(ctx, quote); err != nil {
		return transport.QuoteResponse{}, err
	}
	if err := s.drafts.Finalize(ctx, draft.ID); err != nil {
		return transport.QuoteResponse{}, err
	}

	s.bus.Publish(ctx, events.DraftFinalized{
		BaseEvent: events.NewBaseEvent(),
		DraftID:   draft.ID,
		QuoteID:   quote.ID,
	})
	return toResponse(quote), nil
}

// Get returns one quote.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.QuoteResponse, error) {
	quote, err := s.store.Get(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	return toResponse(quote), nil
}

// List returns a paginated quote listing.
func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (transport.ListQuotesResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.ListQuotesResponse{}, apperr.Validation(err.Error())
	}

	result, err := s.store.List(ctx, repository.ListParams{
		Status:   req.Status,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return transport.ListQuotesResponse{}, err
	}

	items := make([]transport.QuoteResponse, 0, len(result.Items))
	for _, quote := range result.Items {
		items = append(items, toResponse(quote))
	}
	return transport.ListQuotesResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Send renders the quotation email and publishes it for delivery. The quote
// moves to "sent" once the event is on the bus; delivery itself is async.
func (s *Service) Send(ctx context.Context, id uuid.UUID, req transport.SendRequest) (transport.QuoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.QuoteResponse{}, apperr.Validation(err.Error())
	}

	quote, err := s.store.Get(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if quote.Status != string(transport.QuoteStatusDraft) && quote.Status != string(transport.QuoteStatusSent) {
		return transport.QuoteResponse{}, apperr.Validation("only draft or sent quotes can be sent")
	}

	recipientName := req.RecipientName
	if recipientName == "" {
		recipientName = quote.CustomerName
	}
	recipientEmail := req.RecipientEmail
	if recipientEmail == "" {
		recipientEmail = quote.CustomerEmail
	}
	if recipientEmail == "" {
		return transport.QuoteResponse{}, apperr.Validation("quote has no recipient email address")
	}

	data := email.OfferData{
		QuoteNumber:   quote.QuoteNumber,
		RecipientName: recipientName,
		Route:         quote.Route,
		Currency:      quote.Currency,
		GrandTotal:    email.FormatCents(quote.GrandTotalCents),
		SenderName:    "Forwarding Portal",
	}
	if quote.HaulageTotalCents > 0 {
		data.HaulageTotal = email.FormatCents(quote.HaulageTotalCents)
	}
	if quote.SeafreightTotalCents > 0 {
		data.SeafreightTotal = email.FormatCents(quote.SeafreightTotalCents)
	}
	if quote.MiscTotalCents > 0 {
		data.MiscTotal = email.FormatCents(quote.MiscTotalCents)
	}
	if quote.ValidUntil != nil {
		data.ValidUntil = quote.ValidUntil.Format("2 January 2006")
	}

	body, err := s.renderer.RenderOffer(data)
	if err != nil {
		return transport.QuoteResponse{}, apperr.Wrap(apperr.KindInternal, "render quotation email", err)
	}

	sentAt := s.now().UTC()
	if err := s.store.SetStatus(ctx, id, string(transport.QuoteStatusSent), &sentAt); err != nil {
		return transport.QuoteResponse{}, err
	}

	s.bus.Publish(ctx, events.QuoteSent{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        quote.ID,
		QuoteNumber:    quote.QuoteNumber,
		RecipientName:  recipientName,
		RecipientEmail: recipientEmail,
		Subject:        email.OfferSubject(quote.QuoteNumber),
		HTMLBody:       body,
	})

	quote.Status = string(transport.QuoteStatusSent)
	quote.SentAt = &sentAt
	return toResponse(quote), nil
}

// UpdateStatus moves a quote to a terminal workflow state. Only sent quotes
// can be accepted or rejected; draft quotes can only expire.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest) (transport.QuoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.QuoteResponse{}, apperr.Validation(err.Error())
	}

	quote, err := s.store.Get(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	current := transport.QuoteStatus(quote.Status)
	if !canTransitionStatus(current, req.Status) {
		return transport.QuoteResponse{}, apperr.Validation(
			fmt.Sprintf("cannot move quote from %s to %s", current, req.Status))
	}

	if err := s.store.SetStatus(ctx, id, string(req.Status), nil); err != nil {
		return transport.QuoteResponse{}, err
	}
	quote.Status = string(req.Status)
	return toResponse(quote), nil
}

func canTransitionStatus(current, next transport.QuoteStatus) bool {
	switch next {
	case transport.QuoteStatusAccepted, transport.QuoteStatusRejected:
		return current == transport.QuoteStatusSent
	case transport.QuoteStatusExpired:
		return current == transport.QuoteStatusDraft || current == transport.QuoteStatusSent
	default:
		return false
	}
}

func preferredOption(options []draftstransport.OptionResponse) (draftstransport.OptionResponse, error) {
	var preferred *draftstransport.OptionResponse
	for i := range options {
		if options[i].IsPreferred {
			if preferred != nil {
				return draftstransport.OptionResponse{}, apperr.Internal("draft has multiple preferred options")
			}
			preferred = &options[i]
		}
	}
	if preferred == nil {
		return draftstransport.OptionResponse{}, apperr.Validation("draft has no preferred option")
	}
	return *preferred, nil
}

func customerDisplayName(customer draftstransport.CustomerStep) string {
	if customer.ContactName != "" {
		return customer.ContactName
	}
	return customer.CompanyName
}

func routeLabel(shipment draftstransport.ShipmentStep) string {
	parts := []string{}
	if shipment.OriginPort != "" {
		parts = append(parts, shipment.OriginPort)
	}
	if shipment.DestinationPort != "" {
		parts = append(parts, shipment.DestinationPort)
	}
	return strings.Join(parts, " to ")
}

func toResponse(quote repository.Quote) transport.QuoteResponse {
	return transport.QuoteResponse{
		ID:            quote.ID,
		DraftID:       quote.DraftID,
		QuoteNumber:   quote.QuoteNumber,
		CustomerName:  quote.CustomerName,
		CustomerEmail: quote.CustomerEmail,
		Route:         quote.Route,
		Currency:      quote.Currency,
		Breakdown: draftstransport.OptionBreakdown{
			HaulageTotalCents:    quote.HaulageTotalCents,
			SeafreightTotalCents: quote.SeafreightTotalCents,
			MiscTotalCents:       quote.MiscTotalCents,
			SubtotalCents:        quote.SubtotalCents,
			MarginAmountCents:    quote.MarginAmountCents,
			GrandTotalCents:      quote.GrandTotalCents,
		},
		Status:     transport.QuoteStatus(quote.Status),
		ValidUntil: quote.ValidUntil,
		SentAt:     quote.SentAt,
		CreatedAt:  quote.CreatedAt,
		UpdatedAt:  quote.UpdatedAt,
	}
}
