package service

import (
	"context"
	"encoding/json"
	"testing"

	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/internal/drafts/transport"
	"forwarding_portal_backend/platform/apperr"
	"forwarding_portal_backend/platform/logger"
	"forwarding_portal_backend/platform/validator"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	drafts  map[uuid.UUID]repository.Draft
	options map[uuid.UUID][]repository.Option
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		drafts:  map[uuid.UUID]repository.Draft{},
		options: map[uuid.UUID][]repository.Option{},
	}
}

func (f *fakeStore) CreateDraft(_ context.Context, draft repository.Draft) error {
	f.drafts[draft.ID] = draft
	return nil
}

func (f *fakeStore) GetDraft(_ context.Context, id uuid.UUID) (repository.Draft, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return repository.Draft{}, apperr.NotFound("draft not found")
	}
	return draft, nil
}

func (f *fakeStore) ListDrafts(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	var items []repository.Draft
	for _, d := range f.drafts {
		if params.Status == "" || d.Status == params.Status {
			items = append(items, d)
		}
	}
	return repository.ListResult{Items: items, Total: len(items), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeStore) DeleteDraft(_ context.Context, id uuid.UUID) error {
	if _, ok := f.drafts[id]; !ok {
		return apperr.NotFound("draft not found")
	}
	delete(f.drafts, id)
	delete(f.options, id)
	return nil
}

func (f *fakeStore) UpdateStepPayload(_ context.Context, id uuid.UUID, step string, payload []byte, expectedVersion int) (int, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return 0, apperr.NotFound("draft not found")
	}
	if draft.Version != expectedVersion {
		return 0, apperr.Conflict("draft was modified concurrently")
	}
	switch step {
	case transport.StepCustomer:
		draft.Customer = payload
	case transport.StepShipment:
		draft.Shipment = payload
	case transport.StepHaulage:
		draft.Haulage = payload
	case transport.StepSeafreight:
		draft.Seafreight = payload
	case transport.StepMisc:
		draft.Misc = payload
	case "wizard":
		draft.WizardState = payload
	}
	draft.Version++
	draft.Dirty = true
	f.drafts[id] = draft
	return draft.Version, nil
}

func (f *fakeStore) ReplaceStepPayloads(_ context.Context, id uuid.UUID, payloads map[string][]byte) (int, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return 0, apperr.NotFound("draft not found")
	}
	for step, payload := range payloads {
		switch step {
		case transport.StepCustomer:
			draft.Customer = payload
		case transport.StepShipment:
			draft.Shipment = payload
		case transport.StepHaulage:
			draft.Haulage = payload
		case transport.StepSeafreight:
			draft.Seafreight = payload
		case transport.StepMisc:
			draft.Misc = payload
		}
	}
	draft.Version++
	f.drafts[id] = draft
	return draft.Version, nil
}

func (f *fakeStore) SetRemoteID(_ context.Context, id uuid.UUID, remoteID string) error {
	draft, ok := f.drafts[id]
	if !ok {
		return apperr.NotFound("draft not found")
	}
	draft.RemoteID = remoteID
	f.drafts[id] = draft
	return nil
}

func (f *fakeStore) MarkDirty(_ context.Context, id uuid.UUID) error {
	draft, ok := f.drafts[id]
	if !ok {
		return apperr.NotFound("draft not found")
	}
	draft.Dirty = true
	f.drafts[id] = draft
	return nil
}

func (f *fakeStore) ClearDirty(_ context.Context, id uuid.UUID, version int) error {
	draft, ok := f.drafts[id]
	if !ok {
		return nil
	}
	if draft.Version == version {
		draft.Dirty = false
		f.drafts[id] = draft
	}
	return nil
}

func (f *fakeStore) ListDirtyDrafts(_ context.Context, limit int) ([]repository.Draft, error) {
	var items []repository.Draft
	for _, d := range f.drafts {
		if d.Dirty && d.Status == string(transport.DraftStatusOpen) {
			items = append(items, d)
		}
	}
	return items, nil
}

func (f *fakeStore) SetDraftStatus(_ context.Context, id uuid.UUID, status string) error {
	draft, ok := f.drafts[id]
	if !ok {
		return apperr.NotFound("draft not found")
	}
	draft.Status = status
	f.drafts[id] = draft
	return nil
}

func (f *fakeStore) ListOptions(_ context.Context, draftID uuid.UUID) ([]repository.Option, error) {
	return f.options[draftID], nil
}

func (f *fakeStore) GetOption(_ context.Context, draftID, optionID uuid.UUID) (repository.Option, error) {
	for _, opt := range f.options[draftID] {
		if opt.ID == optionID {
			return opt, nil
		}
	}
	return repository.Option{}, apperr.NotFound("option not found")
}

func (f *fakeStore) CountOptions(_ context.Context, draftID uuid.UUID) (int, error) {
	return len(f.options[draftID]), nil
}

func (f *fakeStore) InsertOption(_ context.Context, option repository.Option) error {
	if len(f.options[option.DraftID]) >= repository.MaxOptionsPerDraft {
		return apperr.Validation("a draft may carry at most 3 options")
	}
	f.options[option.DraftID] = append(f.options[option.DraftID], option)
	return nil
}

func (f *fakeStore) UpdateOption(_ context.Context, option repository.Option) error {
	opts := f.options[option.DraftID]
	for i, opt := range opts {
		if opt.ID == option.ID {
			opts[i] = option
			return nil
		}
	}
	return apperr.NotFound("option not found")
}

func (f *fakeStore) DeleteOption(_ context.Context, draftID, optionID uuid.UUID) error {
	opts := f.options[draftID]
	for i, opt := range opts {
		if opt.ID == optionID {
			f.options[draftID] = append(opts[:i], opts[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("option not found")
}

func (f *fakeStore) SetPreferredOption(_ context.Context, draftID, optionID uuid.UUID) error {
	opts := f.options[draftID]
	found := false
	for i := range opts {
		if opts[i].ID == optionID {
			found = true
		}
	}
	if !found {
		return apperr.NotFound("option not found")
	}
	for i := range opts {
		opts[i].IsPreferred = opts[i].ID == optionID
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return New(store, validator.New(), logger.New("development")), store
}

func createDraft(t *testing.T, svc *Service) transport.DraftResponse {
	t.Helper()
	draft, err := svc.Create(context.Background(), transport.CreateDraftRequest{
		RequestID: "REQ-1001",
		Customer:  &transport.CustomerStep{CompanyName: "Acme Logistics"},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return draft
}

func TestCreate_DefaultsAndCustomerPrefill(t *testing.T) {
	svc, store := newTestService(t)

	draft := createDraft(t, svc)

	if draft.Currency != "EUR" {
		t.Fatalf("expected default currency EUR, got %q", draft.Currency)
	}
	if draft.Status != transport.DraftStatusOpen {
		t.Fatalf("expected open draft, got %q", draft.Status)
	}
	if draft.Version != 1 {
		t.Fatalf("expected version 1, got %d", draft.Version)
	}
	if !draft.Dirty {
		t.Fatal("new draft should be dirty until first push")
	}
	if draft.RemoteState != "unsaved" {
		t.Fatalf("expected unsaved remote state, got %q", draft.RemoteState)
	}
	if draft.Customer == nil || draft.Customer.CompanyName != "Acme Logistics" {
		t.Fatalf("customer prefill lost: %+v", draft.Customer)
	}
	if len(store.drafts) != 1 {
		t.Fatalf("expected 1 stored draft, got %d", len(store.drafts))
	}
}

func TestUpdateStep_ShallowMergePreservesSiblingKeys(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	// First patch fills mode and origin.
	updated, err := svc.UpdateStep(context.Background(), draft.ID, transport.StepShipment, transport.UpdateStepRequest{
		ExpectedVersion: 1,
		Patch: map[string]json.RawMessage{
			"mode":       json.RawMessage(`"sea"`),
			"originPort": json.RawMessage(`"NLRTM"`),
		},
	})
	if err != nil {
		t.Fatalf("first patch: %v", err)
	}

	// Second patch touches only the destination; origin must survive.
	updated, err = svc.UpdateStep(context.Background(), draft.ID, transport.StepShipment, transport.UpdateStepRequest{
		ExpectedVersion: updated.Version,
		Patch: map[string]json.RawMessage{
			"destinationPort": json.RawMessage(`"SGSIN"`),
		},
	})
	if err != nil {
		t.Fatalf("second patch: %v", err)
	}

	if updated.Shipment == nil {
		t.Fatal("shipment step missing after patches")
	}
	if updated.Shipment.OriginPort != "NLRTM" {
		t.Fatalf("shallow merge dropped originPort, got %q", updated.Shipment.OriginPort)
	}
	if updated.Shipment.DestinationPort != "SGSIN" {
		t.Fatalf("destinationPort not applied, got %q", updated.Shipment.DestinationPort)
	}
	if updated.Shipment.Mode != "sea" {
		t.Fatalf("mode dropped, got %q", updated.Shipment.Mode)
	}
}

func TestUpdateStep_StaleVersionConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	first, err := svc.UpdateStep(context.Background(), draft.ID, transport.StepShipment, transport.UpdateStepRequest{
		ExpectedVersion: 1,
		Patch:           map[string]json.RawMessage{"mode": json.RawMessage(`"sea"`)},
	})
	if err != nil {
		t.Fatalf("first patch: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", first.Version)
	}

	// Replaying with the original version must be rejected.
	_, err = svc.UpdateStep(context.Background(), draft.ID, transport.StepShipment, transport.UpdateStepRequest{
		ExpectedVersion: 1,
		Patch:           map[string]json.RawMessage{"mode": json.RawMessage(`"air"`)},
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateStep_RejectsUnknownStepAndBadPayload(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	_, err := svc.UpdateStep(context.Background(), draft.ID, "billing", transport.UpdateStepRequest{
		ExpectedVersion: 1,
		Patch:           map[string]json.RawMessage{"x": json.RawMessage(`1`)},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown step, got %v", err)
	}

	_, err = svc.UpdateStep(context.Background(), draft.ID, transport.StepShipment, transport.UpdateStepRequest{
		ExpectedVersion: 1,
		Patch:           map[string]json.RawMessage{"mode": json.RawMessage(`"teleport"`)},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for bad mode, got %v", err)
	}
}

func TestAddOption_LimitOfThree(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	for i := 0; i < MaxOptionsPerDraft; i++ {
		if _, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{
			Description: "option",
			OptionPricingInput: transport.OptionPricingInput{
				Haulage: []transport.HaulageLeg{{UnitPriceCents: 100}},
			},
		}); err != nil {
			t.Fatalf("add option %d: %v", i, err)
		}
	}

	_, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "one too many"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error at the option cap, got %v", err)
	}
}

// interleavedStore lands a concurrent option between the service's count and
// its insert, the window where two simultaneous AddOption calls could race.
type interleavedStore struct {
	*fakeStore
	interleaved bool
}

func (s *interleavedStore) CountOptions(ctx context.Context, draftID uuid.UUID) (int, error) {
	count, err := s.fakeStore.CountOptions(ctx, draftID)
	if err == nil && !s.interleaved {
		s.interleaved = true
		if err := s.fakeStore.InsertOption(ctx, repository.Option{ID: uuid.New(), DraftID: draftID}); err != nil {
			return 0, err
		}
	}
	return count, err
}

func TestAddOption_CapHoldsWhenCountRacesInsert(t *testing.T) {
	base := newFakeStore()
	store := &interleavedStore{fakeStore: base}
	svc := New(store, validator.New(), logger.New("development"))
	draft := createDraft(t, svc)

	for i := 0; i < 2; i++ {
		if err := base.InsertOption(context.Background(), repository.Option{ID: uuid.New(), DraftID: draft.ID}); err != nil {
			t.Fatalf("seed option %d: %v", i, err)
		}
	}

	// The service observes 2 options, a concurrent request lands a 3rd, and
	// the guarded insert must refuse the 4th.
	_, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "racing"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error from the guarded insert, got %v", err)
	}
	if got := len(base.options[draft.ID]); got != repository.MaxOptionsPerDraft {
		t.Fatalf("expected %d options after the race, got %d", repository.MaxOptionsPerDraft, got)
	}
}

func TestAddOption_FirstOptionBecomesPreferred(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	first, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "a"})
	if err != nil {
		t.Fatalf("add first option: %v", err)
	}
	second, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "b"})
	if err != nil {
		t.Fatalf("add second option: %v", err)
	}

	if !first.IsPreferred {
		t.Fatal("first option should be preferred")
	}
	if second.IsPreferred {
		t.Fatal("second option must not steal the preferred flag")
	}
}

func TestSetPreferred_IsExclusive(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	first, _ := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "a"})
	second, _ := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "b"})

	if err := svc.SetPreferred(context.Background(), draft.ID, second.ID); err != nil {
		t.Fatalf("set preferred: %v", err)
	}

	full, err := svc.Get(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}

	preferredCount := 0
	for _, opt := range full.Options {
		if opt.IsPreferred {
			preferredCount++
			if opt.ID != second.ID {
				t.Fatalf("wrong preferred option %s", opt.ID)
			}
		}
		if opt.ID == first.ID && opt.IsPreferred {
			t.Fatal("old preferred flag not cleared")
		}
	}
	if preferredCount != 1 {
		t.Fatalf("expected exactly one preferred option, got %d", preferredCount)
	}
}

func TestRemoveOption_PreferredLeavesNonePromoted(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	first, _ := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "a"})
	svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "b"})

	if err := svc.RemoveOption(context.Background(), draft.ID, first.ID); err != nil {
		t.Fatalf("remove option: %v", err)
	}

	full, err := svc.Get(context.Background(), draft.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if len(full.Options) != 1 {
		t.Fatalf("expected 1 remaining option, got %d", len(full.Options))
	}
	if full.Options[0].IsPreferred {
		t.Fatal("no option should be promoted after removing the preferred one")
	}
}

func TestUpdateOption_RecomputesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)

	opt, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{
		Description: "a",
		OptionPricingInput: transport.OptionPricingInput{
			Haulage: []transport.HaulageLeg{{UnitPriceCents: 100}},
		},
	})
	if err != nil {
		t.Fatalf("add option: %v", err)
	}
	if opt.Breakdown.GrandTotalCents != 100 {
		t.Fatalf("expected grand total 100, got %d", opt.Breakdown.GrandTotalCents)
	}

	updated, err := svc.UpdateOption(context.Background(), draft.ID, opt.ID, transport.UpdateOptionRequest{
		Pricing: &transport.OptionPricingInput{
			Haulage:     []transport.HaulageLeg{{UnitPriceCents: 200}},
			MarginType:  transport.MarginPercentage,
			MarginValue: 10,
		},
	})
	if err != nil {
		t.Fatalf("update option: %v", err)
	}
	if updated.Breakdown.GrandTotalCents != 220 {
		t.Fatalf("expected recomputed grand total 220, got %d", updated.Breakdown.GrandTotalCents)
	}
	if updated.Breakdown.MarginAmountCents != 20 {
		t.Fatalf("expected margin 20, got %d", updated.Breakdown.MarginAmountCents)
	}
}

func TestFinalizedDraftIsImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	draft := createDraft(t, svc)
	opt, _ := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "a"})

	if err := svc.Finalize(context.Background(), draft.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err := svc.UpdateStep(context.Background(), draft.ID, transport.StepShipment, transport.UpdateStepRequest{
		ExpectedVersion: draft.Version,
		Patch:           map[string]json.RawMessage{"mode": json.RawMessage(`"sea"`)},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error editing finalized draft, got %v", err)
	}

	if _, err := svc.AddOption(context.Background(), draft.ID, transport.AddOptionRequest{Description: "b"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error adding option to finalized draft, got %v", err)
	}
	if err := svc.RemoveOption(context.Background(), draft.ID, opt.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error removing option from finalized draft, got %v", err)
	}
	if err := svc.Delete(context.Background(), draft.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error deleting finalized draft, got %v", err)
	}
}

func TestGet_UnknownDraftNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
