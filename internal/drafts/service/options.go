package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/internal/drafts/transport"
	"forwarding_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// MaxOptionsPerDraft mirrors the storage-level option cap for callers of
// this package. The service check below is a fast path; the store enforces
// the cap again under lock on insert.
const MaxOptionsPerDraft = repository.MaxOptionsPerDraft

// AddOption attaches a priced option to a draft. The first option on a draft
// becomes preferred automatically; later ones do not.
func (s *Service) AddOption(ctx context.Context, draftID uuid.UUID, req transport.AddOptionRequest) (transport.OptionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.OptionResponse{}, apperr.Validation(err.Error())
	}

	draft, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return transport.OptionResponse{}, err
	}
	if draft.Status == string(transport.DraftStatusFinalized) {
		return transport.OptionResponse{}, apperr.Validation("finalized drafts cannot be edited")
	}

	count, err := s.store.CountOptions(ctx, draftID)
	if err != nil {
		return transport.OptionResponse{}, err
	}
	if count >= MaxOptionsPerDraft {
		return transport.OptionResponse{}, apperr.Validation(
			fmt.Sprintf("a draft may carry at most %d options", MaxOptionsPerDraft))
	}

	selections, err := json.Marshal(req.OptionPricingInput)
	if err != nil {
		return transport.OptionResponse{}, fmt.Errorf("marshal selections: %w", err)
	}

	breakdown := ComputeOptionTotals(req.OptionPricingInput)
	marginType := req.MarginType
	if marginType == "" {
		marginType = transport.MarginAmount
	}

	now := time.Now().UTC()
	option := repository.Option{
		ID:                   uuid.New(),
		DraftID:              draftID,
		Description:          req.Description,
		MarginType:           string(marginType),
		MarginValue:          req.MarginValue,
		Selections:           selections,
		HaulageTotalCents:    breakdown.HaulageTotalCents,
		SeafreightTotalCents: breakdown.SeafreightTotalCents,
		MiscTotalCents:       breakdown.MiscTotalCents,
		SubtotalCents:        breakdown.SubtotalCents,
		MarginAmountCents:    breakdown.MarginAmountCents,
		GrandTotalCents:      breakdown.GrandTotalCents,
		Status:               string(transport.OptionStatusDraft),
		IsPreferred:          count == 0,
		SortOrder:            count,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.store.InsertOption(ctx, option); err != nil {
		return transport.OptionResponse{}, err
	}
	if err := s.store.MarkDirty(ctx, draftID); err != nil {
		return transport.OptionResponse{}, err
	}

	s.requestPush(ctx, draftID)
	return toOptionResponse(option), nil
}

// UpdateOption edits an option's description, status, or pricing. Totals are
// recomputed from the stored selections whenever pricing changes, so clients
// can never write inconsistent totals.
func (s *Service) UpdateOption(ctx context.Context, draftID, optionID uuid.UUID, req transport.UpdateOptionRequest) (transport.OptionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.OptionResponse{}, apperr.Validation(err.Error())
	}

	draft, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return transport.OptionResponse{}, err
	}
	if draft.Status == string(transport.DraftStatusFinalized) {
		return transport.OptionResponse{}, apperr.Validation("finalized drafts cannot be edited")
	}

	option, err := s.store.GetOption(ctx, draftID, optionID)
	if err != nil {
		return transport.OptionResponse{}, err
	}

	if req.Description != nil {
		option.Description = *req.Description
	}
	if req.Status != nil {
		option.Status = string(*req.Status)
	}
	if req.Pricing != nil {
		selections, err := json.Marshal(req.Pricing)
		if err != nil {
			return transport.OptionResponse{}, fmt.Errorf("marshal selections: %w", err)
		}
		breakdown := ComputeOptionTotals(*req.Pricing)
		marginType := req.Pricing.MarginType
		if marginType == "" {
			marginType = transport.MarginAmount
		}

		option.Selections = selections
		option.MarginType = string(marginType)
		option.MarginValue = req.Pricing.MarginValue
		option.HaulageTotalCents = breakdown.HaulageTotalCents
		option.SeafreightTotalCents = breakdown.SeafreightTotalCents
		option.MiscTotalCents = breakdown.MiscTotalCents
		option.SubtotalCents = breakdown.SubtotalCents
		option.MarginAmountCents = breakdown.MarginAmountCents
		option.GrandTotalCents = breakdown.GrandTotalCents
	}
	option.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateOption(ctx, option); err != nil {
		return transport.OptionResponse{}, err
	}
	if err := s.store.MarkDirty(ctx, draftID); err != nil {
		return transport.OptionResponse{}, err
	}

	s.requestPush(ctx, draftID)
	return toOptionResponse(option), nil
}

// RemoveOption deletes an option. Removing the preferred option leaves the
// draft with no preferred one; nothing is promoted implicitly.
func (s *Service) RemoveOption(ctx context.Context, draftID, optionID uuid.UUID) error {
	draft, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status == string(transport.DraftStatusFinalized) {
		return apperr.Validation("finalized drafts cannot be edited")
	}

	if err := s.store.DeleteOption(ctx, draftID, optionID); err != nil {
		return err
	}
	if err := s.store.MarkDirty(ctx, draftID); err != nil {
		return err
	}

	s.requestPush(ctx, draftID)
	return nil
}

// SetPreferred marks one option as the preferred choice, clearing the flag
// on every sibling.
func (s *Service) SetPreferred(ctx context.Context, draftID, optionID uuid.UUID) error {
	draft, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if draft.Status == string(transport.DraftStatusFinalized) {
		return apperr.Validation("finalized drafts cannot be edited")
	}

	if err := s.store.SetPreferredOption(ctx, draftID, optionID); err != nil {
		return err
	}
	if err := s.store.MarkDirty(ctx, draftID); err != nil {
		return err
	}

	s.requestPush(ctx, draftID)
	return nil
}
