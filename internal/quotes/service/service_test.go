package service

import (
	"context"
	"strings"
	"testing"
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

type fakeQuoteStore struct {
	quotes   map[uuid.UUID]repository.Quote
	counters map[int]int
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{
		quotes:   map[uuid.UUID]repository.Quote{},
		counters: map[int]int{},
	}
}

func (f *fakeQuoteStore) Create(_ context.Context, quote repository.Quote) error {
	f.quotes[quote.ID] = quote
	return nil
}

func (f *fakeQuoteStore) Get(_ context.Context, id uuid.UUID) (repository.Quote, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	return quote, nil
}

func (f *fakeQuoteStore) GetByDraft(_ context.Context, draftID uuid.UUID) (repository.Quote, error) {
	for _, quote := range f.quotes {
		if quote.DraftID == draftID {
			return quote, nil
		}
	}
	return repository.Quote{}, apperr.NotFound("quote not found")
}

func (f *fakeQuoteStore) List(_ context.Context, _ repository.ListParams) (repository.ListResult, error) {
	var items []repository.Quote
	for _, quote := range f.quotes {
		items = append(items, quote)
	}
	return repository.ListResult{Items: items, Total: len(items), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeQuoteStore) SetStatus(_ context.Context, id uuid.UUID, status string, sentAt *time.Time) error {
	quote, ok := f.quotes[id]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	quote.Status = status
	if sentAt != nil {
		quote.SentAt = sentAt
	}
	f.quotes[id] = quote
	return nil
}

func (f *fakeQuoteStore) NextQuoteNumber(_ context.Context, year int) (int, error) {
	f.counters[year]++
	return f.counters[year], nil
}

type fakeDraftSource struct {
	drafts    map[uuid.UUID]draftstransport.DraftResponse
	finalized map[uuid.UUID]bool
}

func (f *fakeDraftSource) Get(_ context.Context, id uuid.UUID) (draftstransport.DraftResponse, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return draftstransport.DraftResponse{}, apperr.NotFound("draft not found")
	}
	return draft, nil
}

func (f *fakeDraftSource) Finalize(_ context.Context, id uuid.UUID) error {
	f.finalized[id] = true
	return nil
}

func quotableDraft() draftstransport.DraftResponse {
	return draftstransport.DraftResponse{
		ID:       uuid.New(),
		Currency: "EUR",
		Status:   draftstransport.DraftStatusOpen,
		Customer: &draftstransport.CustomerStep{
			CompanyName: "Acme Logistics",
			ContactName: "Jan de Vries",
			Email:       "jan@acme.example",
		},
		Shipment: &draftstransport.ShipmentStep{OriginPort: "NLRTM", DestinationPort: "SGSIN"},
		Options: []draftstransport.OptionResponse{
			{
				ID:          uuid.New(),
				IsPreferred: true,
				Breakdown: draftstransport.OptionBreakdown{
					HaulageTotalCents:    15000,
					SeafreightTotalCents: 220000,
					SubtotalCents:        235000,
					MarginAmountCents:    23500,
					GrandTotalCents:      258500,
				},
			},
			{ID: uuid.New()},
		},
	}
}

func newQuotesService(t *testing.T, drafts *fakeDraftSource) (*Service, *fakeQuoteStore, events.Bus) {
	t.Helper()
	store := newFakeQuoteStore()
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	renderer, err := email.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return New(store, drafts, renderer, bus, validator.New(), log), store, bus
}

func TestFinalize_SnapshotsPreferredOption(t *testing.T) {
	draft := quotableDraft()
	drafts := &fakeDraftSource{
		drafts:    map[uuid.UUID]draftstransport.DraftResponse{draft.ID: draft},
		finalized: map[uuid.UUID]bool{},
	}
	svc, store, _ := newQuotesService(t, drafts)

	quote, err := svc.Finalize(context.Background(), transport.FinalizeRequest{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if quote.Breakdown.GrandTotalCents != 258500 {
		t.Fatalf("expected snapshot of preferred totals, got %d", quote.Breakdown.GrandTotalCents)
	}
	if quote.CustomerName != "Jan de Vries" {
		t.Fatalf("expected contact name, got %q", quote.CustomerName)
	}
	if quote.Route != "NLRTM to SGSIN" {
		t.Fatalf("unexpected route %q", quote.Route)
	}
	if quote.Status != transport.QuoteStatusDraft {
		t.Fatalf("new quote should start as draft, got %s", quote.Status)
	}
	if !drafts.finalized[draft.ID] {
		t.Fatal("draft must be marked finalized")
	}
	if len(store.quotes) != 1 {
		t.Fatalf("expected 1 stored quote, got %d", len(store.quotes))
	}
}

func TestFinalize_QuoteNumbersAreSequentialPerYear(t *testing.T) {
	first := quotableDraft()
	second := quotableDraft()
	drafts := &fakeDraftSource{
		drafts: map[uuid.UUID]draftstransport.DraftResponse{
			first.ID:  first,
			second.ID: second,
		},
		finalized: map[uuid.UUID]bool{},
	}
	svc, _, _ := newQuotesService(t, drafts)

	q1, err := svc.Finalize(context.Background(), transport.FinalizeRequest{DraftID: first.ID})
	if err != nil {
		t.Fatalf("finalize first: %v", err)
	}
	q2, err := svc.Finalize(context.Background(), transport.FinalizeRequest{DraftID: second.ID})
	if err != nil {
		t.Fatalf("finalize second: %v", err)
	}

	year := time.Now().UTC().Year()
	if !strings.HasPrefix(q1.QuoteNumber, "Q-") || !strings.Contains(q1.QuoteNumber, "-00001") {
		t.Fatalf("unexpected first number %q", q1.QuoteNumber)
	}
	if !strings.Contains(q2.QuoteNumber, "-00002") {
		t.Fatalf("unexpected second number %q", q2.QuoteNumber)
	}
	if !strings.Contains(q1.QuoteNumber, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")) {
		t.Fatalf("quote number missing year: %q", q1.QuoteNumber)
	}
}

func TestFinalize_RequiresOptionsAndPreferred(t *testing.T) {
	noOptions := quotableDraft()
	noOptions.Options = nil

	noPreferred := quotableDraft()
	for i := range noPreferred.Options {
		noPreferred.Options[i].IsPreferred = false
	}

	alreadyDone := quotableDraft()
	alreadyDone.Status = draftstransport.DraftStatusFinalized

	drafts := &fakeDraftSource{
		drafts: map[uuid.UUID]draftstransport.DraftResponse{
			noOptions.ID:   noOptions,
			noPreferred.ID: noPreferred,
			alreadyDone.ID: alreadyDone,
		},
		finalized: map[uuid.UUID]bool{},
	}
	svc, _, _ := newQuotesService(t, drafts)
	ctx := context.Background()

	if _, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: noOptions.ID}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without options, got %v", err)
	}
	if _, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: noPreferred.ID}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without preferred option, got %v", err)
	}
	if _, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: alreadyDone.ID}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for already-finalized draft, got %v", err)
	}
}

func TestFinalize_RejectsDraftThatAlreadyHasAQuote(t *testing.T) {
	draft := quotableDraft()
	drafts := &fakeDraftSource{
		drafts:    map[uuid.UUID]draftstransport.DraftResponse{draft.ID: draft},
		finalized: map[uuid.UUID]bool{},
	}
	svc, store, _ := newQuotesService(t, drafts)
	ctx := context.Background()

	if _, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: draft.ID}); err != nil {
		t.Fatalf("first finalize: %v", err)
	}

	// The draft record still claims to be open, as it would if marking it
	// finalized was lost; the existing quote must still block a second one.
	drafts.drafts[draft.ID] = draft

	_, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: draft.ID})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for a draft with an existing quote, got %v", err)
	}
	if len(store.quotes) != 1 {
		t.Fatalf("expected the single original quote, got %d", len(store.quotes))
	}
}

func TestSend_PublishesQuoteSentAndStampsStatus(t *testing.T) {
	draft := quotableDraft()
	drafts := &fakeDraftSource{
		drafts:    map[uuid.UUID]draftstransport.DraftResponse{draft.ID: draft},
		finalized: map[uuid.UUID]bool{},
	}
	svc, store, bus := newQuotesService(t, drafts)
	ctx := context.Background()

	received := make(chan events.QuoteSent, 1)
	bus.Subscribe("quotes.sent", events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if sent, ok := event.(events.QuoteSent); ok {
			received <- sent
		}
		return nil
	}))

	quote, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sent, err := svc.Send(ctx, quote.ID, transport.SendRequest{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != transport.QuoteStatusSent {
		t.Fatalf("expected sent status, got %s", sent.Status)
	}
	if sent.SentAt == nil {
		t.Fatal("sentAt not stamped")
	}

	select {
	case event := <-received:
		if event.RecipientEmail != "jan@acme.example" {
			t.Fatalf("wrong recipient %q", event.RecipientEmail)
		}
		if !strings.Contains(event.HTMLBody, quote.QuoteNumber) {
			t.Fatal("rendered body missing quote number")
		}
		if !strings.Contains(event.HTMLBody, "2585.00") {
			t.Fatal("rendered body missing grand total")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("quote sent event never published")
	}

	stored := store.quotes[quote.ID]
	if stored.Status != string(transport.QuoteStatusSent) {
		t.Fatalf("stored status not updated, got %s", stored.Status)
	}
}

func TestSend_RequiresRecipientEmail(t *testing.T) {
	draft := quotableDraft()
	draft.Customer.Email = ""
	drafts := &fakeDraftSource{
		drafts:    map[uuid.UUID]draftstransport.DraftResponse{draft.ID: draft},
		finalized: map[uuid.UUID]bool{},
	}
	svc, _, _ := newQuotesService(t, drafts)
	ctx := context.Background()

	quote, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, err := svc.Send(ctx, quote.ID, transport.SendRequest{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without recipient, got %v", err)
	}

	// Explicit recipient override works.
	if _, err := svc.Send(ctx, quote.ID, transport.SendRequest{RecipientEmail: "ops@acme.example"}); err != nil {
		t.Fatalf("send with override: %v", err)
	}
}

func TestUpdateStatus_WorkflowGuards(t *testing.T) {
	draft := quotableDraft()
	drafts := &fakeDraftSource{
		drafts:    map[uuid.UUID]draftstransport.DraftResponse{draft.ID: draft},
		finalized: map[uuid.UUID]bool{},
	}
	svc, _, _ := newQuotesService(t, drafts)
	ctx := context.Background()

	quote, err := svc.Finalize(ctx, transport.FinalizeRequest{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Accepting an unsent quote is invalid.
	if _, err := svc.UpdateStatus(ctx, quote.ID, transport.UpdateStatusRequest{Status: transport.QuoteStatusAccepted}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error accepting unsent quote, got %v", err)
	}

	if _, err := svc.Send(ctx, quote.ID, transport.SendRequest{}); err != nil {
		t.Fatalf("send: %v", err)
	}

	accepted, err := svc.UpdateStatus(ctx, quote.ID, transport.UpdateStatusRequest{Status: transport.QuoteStatusAccepted})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != transport.QuoteStatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	// Terminal states stay terminal.
	if _, err := svc.UpdateStatus(ctx, quote.ID, transport.UpdateStatusRequest{Status: transport.QuoteStatusRejected}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error leaving accepted state, got %v", err)
	}
}
