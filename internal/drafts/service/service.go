package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forwarding_portal_backend/internal/drafts/draftid"
	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/internal/drafts/transport"
	"forwarding_portal_backend/platform/apperr"
	"forwarding_portal_backend/platform/logger"
	"forwarding_portal_backend/platform/validator"

	"github.com/google/uuid"
)

// SyncRequester enqueues a background push for a draft. The sync package
// implements it; the service only signals that local state changed.
type SyncRequester interface {
	RequestPush(ctx context.Context, draftID uuid.UUID)
}

// Service implements draft quote business logic.
type Service struct {
	store    repository.Store
	validate *validator.Validator
	log      *logger.Logger
	sync     SyncRequester
}

// New creates a new drafts service.
func New(store repository.Store, validate *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, validate: validate, log: log}
}

// SetSyncRequester wires the background sync trigger. Optional; without it
// drafts stay dirty until the periodic flush picks them up.
func (s *Service) SetSyncRequester(sync SyncRequester) {
	s.sync = sync
}

const defaultCurrency = "EUR"

// Create starts a new draft quote, optionally pre-filled with customer data
// from an inbound request or email.
func (s *Service) Create(ctx context.Context, req transport.CreateDraftRequest) (transport.DraftResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.DraftResponse{}, apperr.Validation(err.Error())
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	now := time.Now().UTC()
	draft := repository.Draft{
		ID:        uuid.New(),
		RequestID: req.RequestID,
		EmailUser: req.EmailUser,
		Currency:  currency,
		Status:    string(transport.DraftStatusOpen),
		Version:   1,
		Dirty:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Customer != nil {
		payload, err := json.Marshal(req.Customer)
		if err != nil {
			return transport.DraftResponse{}, fmt.Errorf("marshal customer: %w", err)
		}
		draft.Customer = payload
	}

	if err := s.store.CreateDraft(ctx, draft); err != nil {
		return transport.DraftResponse{}, err
	}

	s.requestPush(ctx, draft.ID)
	return s.toResponse(draft, nil)
}

// Get returns a draft with its options.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.DraftResponse, error) {
	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	options, err := s.store.ListOptions(ctx, id)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	return s.toResponse(draft, options)
}

// List returns a paginated draft listing. Options are not expanded here.
func (s *Service) List(ctx context.Context, req transport.ListDraftsRequest) (transport.ListDraftsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.ListDraftsResponse{}, apperr.Validation(err.Error())
	}

	result, err := s.store.ListDrafts(ctx, repository.ListParams{
		Status:   req.Status,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return transport.ListDraftsResponse{}, err
	}

	items := make([]transport.DraftResponse, 0, len(result.Items))
	for _, draft := range result.Items {
		resp, err := s.toResponse(draft, nil)
		if err != nil {
			return transport.ListDraftsResponse{}, err
		}
		items = append(items, resp)
	}

	return transport.ListDraftsResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Delete removes an open draft. Finalized drafts are immutable.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return err
	}
	if draft.Status == string(transport.DraftStatusFinalized) {
		return apperr.Validation("finalized drafts cannot be deleted")
	}
	return s.store.DeleteDraft(ctx, id)
}

// UpdateStep shallow-merges a patch into one wizard step. Only the top-level
// keys present in the patch are replaced; sibling keys survive. The write is
// guarded by the draft version, so a concurrent edit surfaces as a conflict
// rather than a silent overwrite.
func (s *Service) UpdateStep(ctx context.Context, id uuid.UUID, step string, req transport.UpdateStepRequest) (transport.DraftResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.DraftResponse{}, apperr.Validation(err.Error())
	}
	if _, ok := repository.StepColumn(step); !ok {
		return transport.DraftResponse{}, apperr.Validation("unknown wizard step: " + step)
	}

	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	if draft.Status == string(transport.DraftStatusFinalized) {
		return transport.DraftResponse{}, apperr.Validation("finalized drafts cannot be edited")
	}

	merged, err := mergeStepPayload(stepPayload(draft, step), req.Patch)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	if err := s.validateStep(step, merged); err != nil {
		return transport.DraftResponse{}, err
	}

	newVersion, err := s.store.UpdateStepPayload(ctx, id, step, merged, req.ExpectedVersion)
	if err != nil {
		return transport.DraftResponse{}, err
	}

	s.requestPush(ctx, id)

	draft, err = s.store.GetDraft(ctx, id)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	draft.Version = newVersion
	options, err := s.store.ListOptions(ctx, id)
	if err != nil {
		return transport.DraftResponse{}, err
	}
	return s.toResponse(draft, options)
}

// Finalize marks a draft as finalized. Callers enforce option preconditions.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) error {
	return s.store.SetDraftStatus(ctx, id, string(transport.DraftStatusFinalized))
}

func (s *Service) requestPush(ctx context.Context, id uuid.UUID) {
	if s.sync != nil {
		s.sync.RequestPush(ctx, id)
	}
}

// mergeStepPayload merges patch keys over the existing step object. Keys
// with a JSON null value are removed.
func mergeStepPayload(existing []byte, patch map[string]json.RawMessage) ([]byte, error) {
	base := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, fmt.Errorf("decode existing step: %w", err)
		}
	}
	for key, value := range patch {
		if string(value) == "null" {
			delete(base, key)
			continue
		}
		base[key] = value
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode merged step: %w", err)
	}
	return merged, nil
}

// validateStep decodes the merged payload into its typed step struct so
// malformed patches are rejected before they reach storage.
func (s *Service) validateStep(step string, payload []byte) error {
	var target interface{}
	switch step {
	case transport.StepCustomer:
		target = &transport.CustomerStep{}
	case transport.StepShipment:
		target = &transport.ShipmentStep{}
	case transport.StepHaulage:
		target = &transport.HaulageStep{}
	case transport.StepSeafreight:
		target = &transport.SeafreightStep{}
	case transport.StepMisc:
		target = &transport.MiscStep{}
	case "wizard":
		target = &transport.WizardState{}
	default:
		return apperr.Validation("unknown wizard step: " + step)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return apperr.Validation("invalid " + step + " payload: " + err.Error())
	}
	if err := s.validate.Struct(target); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

func stepPayload(draft repository.Draft, step string) []byte {
	switch step {
	case transport.StepCustomer:
		return draft.Customer
	case transport.StepShipment:
		return draft.Shipment
	case transport.StepHaulage:
		return draft.Haulage
	case transport.StepSeafreight:
		return draft.Seafreight
	case transport.StepMisc:
		return draft.Misc
	case "wizard":
		return draft.WizardState
	}
	return nil
}

// remoteState classifies the upstream identity of a draft for the response.
func remoteState(remoteID string) string {
	switch {
	case draftid.IsRemoteID(remoteID):
		return "persisted"
	case draftid.IsPlaceholderID(remoteID):
		return "placeholder"
	default:
		return "unsaved"
	}
}

func (s *Service) toResponse(draft repository.Draft, options []repository.Option) (transport.DraftResponse, error) {
	resp := transport.DraftResponse{
		ID:          draft.ID,
		RequestID:   draft.RequestID,
		EmailUser:   draft.EmailUser,
		RemoteID:    draft.RemoteID,
		RemoteState: remoteState(draft.RemoteID),
		Currency:    draft.Currency,
		Status:      transport.DraftStatus(draft.Status),
		Version:     draft.Version,
		Dirty:       draft.Dirty,
		Options:     make([]transport.OptionResponse, 0, len(options)),
		CreatedAt:   draft.CreatedAt,
		UpdatedAt:   draft.UpdatedAt,
	}

	if err := decodeStep(draft.Customer, &resp.Customer); err != nil {
		return transport.DraftResponse{}, err
	}
	if err := decodeStep(draft.Shipment, &resp.Shipment); err != nil {
		return transport.DraftResponse{}, err
	}
	if err := decodeStep(draft.Haulage, &resp.Haulage); err != nil {
		return transport.DraftResponse{}, err
	}
	if err := decodeStep(draft.Seafreight, &resp.Seafreight); err != nil {
		return transport.DraftResponse{}, err
	}
	if err := decodeStep(draft.Misc, &resp.Misc); err != nil {
		return transport.DraftResponse{}, err
	}
	if err := decodeStep(draft.WizardState, &resp.WizardState); err != nil {
		return transport.DraftResponse{}, err
	}

	for _, opt := range options {
		resp.Options = append(resp.Options, toOptionResponse(opt))
	}
	return resp, nil
}

// decodeStep unmarshals a stored step payload into **T, leaving the target
// nil when the step was never filled in.
func decodeStep[T any](payload []byte, target **T) error {
	if len(payload) == 0 {
		return nil
	}
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return fmt.Errorf("decode step payload: %w", err)
	}
	*target = &value
	return nil
}

func toOptionResponse(opt repository.Option) transport.OptionResponse {
	return transport.OptionResponse{
		ID:          opt.ID,
		Description: opt.Description,
		MarginType:  transport.MarginType(opt.MarginType),
		MarginValue: opt.MarginValue,
		Breakdown: transport.OptionBreakdown{
			HaulageTotalCents:    opt.HaulageTotalCents,
			SeafreightTotalCents: opt.SeafreightTotalCents,
			MiscTotalCents:       opt.MiscTotalCents,
			SubtotalCents:        opt.SubtotalCents,
			MarginAmountCents:    opt.MarginAmountCents,
			GrandTotalCents:      opt.GrandTotalCents,
		},
		Status:      transport.OptionStatus(opt.Status),
		IsPreferred: opt.IsPreferred,
		SortOrder:   opt.SortOrder,
		CreatedAt:   opt.CreatedAt,
		UpdatedAt:   opt.UpdatedAt,
	}
}
