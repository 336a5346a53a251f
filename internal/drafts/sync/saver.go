package sync

import (
	"context"
	"encoding/json"
	"sync"

	"forwarding_portal_backend/internal/drafts/draftid"
	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/internal/drafts/transport"
	"forwarding_portal_backend/internal/events"
	"forwarding_portal_backend/platform/apperr"
	"forwarding_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Sync directions as exposed over the API.
const (
	DirectionPush = "to-db"
	DirectionPull = "from-db"
	DirectionBoth = "both"
)

// Saver serializes pushes per draft. Each draft has at most one push in
// flight; requests arriving during a push set a rerun flag and coalesce into
// a single follow-up push instead of queueing.
type Saver struct {
	store   repository.Store
	adapter *Adapter
	status  *StatusStore
	bus     events.Bus
	log     *logger.Logger

	mu      sync.Mutex
	flights map[uuid.UUID]*flight
}

type flight struct {
	rerun bool
}

// NewSaver creates the per-draft sync coordinator.
func NewSaver(store repository.Store, adapter *Adapter, status *StatusStore, bus events.Bus, log *logger.Logger) *Saver {
	return &Saver{
		store:   store,
		adapter: adapter,
		status:  status,
		bus:     bus,
		log:     log,
		flights: map[uuid.UUID]*flight{},
	}
}

// RequestPush schedules a background push for the draft. When a push is
// already running the request is absorbed into its rerun flag; the latest
// draft state is re-read before each push, so no intermediate state is lost.
func (s *Saver) RequestPush(_ context.Context, draftID uuid.UUID) {
	s.mu.Lock()
	if f, ok := s.flights[draftID]; ok {
		f.rerun = true
		s.mu.Unlock()
		return
	}
	f := &flight{}
	s.flights[draftID] = f
	s.mu.Unlock()

	go s.runFlight(draftID, f)
}

func (s *Saver) runFlight(draftID uuid.UUID, f *flight) {
	ctx := context.Background()
	for {
		if err := s.Push(ctx, draftID); err != nil {
			// Push already recorded the failure; the rerun flag still
			// coalesces any edits made meanwhile.
			s.log.DatabaseError("sync.push", err)
		}

		s.mu.Lock()
		if f.rerun {
			f.rerun = false
			s.mu.Unlock()
			continue
		}
		delete(s.flights, draftID)
		s.mu.Unlock()
		return
	}
}

// Push saves the draft upstream once. On success the upstream-assigned id is
// recorded and the dirty flag is cleared, unless the draft changed while the
// push was in flight.
func (s *Saver) Push(ctx context.Context, draftID uuid.UUID) error {
	draft, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// Deleted while queued; nothing to push.
			return nil
		}
		return err
	}

	if err := s.status.MarkSyncing(ctx, draftID, true); err != nil {
		s.log.DatabaseError("sync.status", err)
	}

	doc, err := s.buildDocument(ctx, draft)
	if err != nil {
		return s.fail(ctx, draft, DirectionPush, "build_failed", err)
	}

	candidate := ""
	if draftid.IsRemoteID(draft.RemoteID) {
		candidate = draft.RemoteID
	}

	remoteID, err := s.adapter.Save(ctx, candidate, doc)
	if err != nil {
		return s.fail(ctx, draft, DirectionPush, errorCode(err), err)
	}

	if remoteID != draft.RemoteID && draftid.CanTransition(draft.RemoteID, remoteID) {
		if err := s.store.SetRemoteID(ctx, draftID, remoteID); err != nil {
			return s.fail(ctx, draft, DirectionPush, "persist_failed", err)
		}
	}
	if err := s.store.ClearDirty(ctx, draftID, draft.Version); err != nil {
		return s.fail(ctx, draft, DirectionPush, "persist_failed", err)
	}

	if err := s.status.RecordSuccess(ctx, draftID, DirectionPush); err != nil {
		s.log.DatabaseError("sync.status", err)
	}
	s.log.SyncEvent(draftID.String(), DirectionPush, true, "")
	return nil
}

// Pull replaces the local step payloads with the authoritative upstream copy.
// Requires the draft to already have an upstream identity.
func (s *Saver) Pull(ctx context.Context, draftID uuid.UUID) error {
	draft, err := s.store.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}

	if err := s.status.MarkSyncing(ctx, draftID, true); err != nil {
		s.log.DatabaseError("sync.status", err)
	}

	doc, err := s.adapter.Fetch(ctx, draft.RemoteID)
	if err != nil {
		return s.fail(ctx, draft, DirectionPull, errorCode(err), err)
	}

	payloads := map[string][]byte{}
	if len(doc.Customer) > 0 {
		payloads[transport.StepCustomer] = doc.Customer
	}
	if len(doc.Shipment) > 0 {
		payloads[transport.StepShipment] = doc.Shipment
	}
	if len(doc.Haulage) > 0 {
		payloads[transport.StepHaulage] = doc.Haulage
	}
	if len(doc.Seafreight) > 0 {
		payloads[transport.StepSeafreight] = doc.Seafreight
	}
	if len(doc.Misc) > 0 {
		payloads[transport.StepMisc] = doc.Misc
	}

	if len(payloads) > 0 {
		newVersion, err := s.store.ReplaceStepPayloads(ctx, draftID, payloads)
		if err != nil {
			return s.fail(ctx, draft, DirectionPull, "persist_failed", err)
		}
		if err := s.store.ClearDirty(ctx, draftID, newVersion); err != nil {
			return s.fail(ctx, draft, DirectionPull, "persist_failed", err)
		}
	}

	if err := s.status.RecordSuccess(ctx, draftID, DirectionPull); err != nil {
		s.log.DatabaseError("sync.status", err)
	}
	s.log.SyncEvent(draftID.String(), DirectionPull, true, "")
	return nil
}

// Sync runs a manual sync in the requested direction. "both" pushes local
// changes first so they are not clobbered by the pull.
func (s *Saver) Sync(ctx context.Context, draftID uuid.UUID, direction string) error {
	switch direction {
	case DirectionPush:
		return s.Push(ctx, draftID)
	case DirectionPull:
		return s.Pull(ctx, draftID)
	case DirectionBoth:
		if err := s.Push(ctx, draftID); err != nil {
			return err
		}
		return s.Pull(ctx, draftID)
	default:
		return apperr.Validation("unknown sync direction: " + direction)
	}
}

func (s *Saver) buildDocument(ctx context.Context, draft repository.Draft) (DraftDocument, error) {
	options, err := s.store.ListOptions(ctx, draft.ID)
	if err != nil {
		return DraftDocument{}, err
	}

	doc := DraftDocument{
		RequestID:  draft.RequestID,
		Currency:   draft.Currency,
		Customer:   json.RawMessage(draft.Customer),
		Shipment:   json.RawMessage(draft.Shipment),
		Haulage:    json.RawMessage(draft.Haulage),
		Seafreight: json.RawMessage(draft.Seafreight),
		Misc:       json.RawMessage(draft.Misc),
	}
	for _, opt := range options {
		doc.Options = append(doc.Options, OptionDocument{
			Description:     opt.Description,
			MarginType:      opt.MarginType,
			MarginValue:     opt.MarginValue,
			Selections:      json.RawMessage(opt.Selections),
			GrandTotalCents: opt.GrandTotalCents,
			IsPreferred:     opt.IsPreferred,
			Status:          opt.Status,
		})
	}
	return doc, nil
}

func (s *Saver) fail(ctx context.Context, draft repository.Draft, direction, code string, err error) error {
	if statusErr := s.status.RecordFailure(ctx, draft.ID, code, err.Error()); statusErr != nil {
		s.log.DatabaseError("sync.status", statusErr)
	}
	s.log.SyncEvent(draft.ID.String(), direction, false, err.Error())
	s.bus.Publish(ctx, events.DraftSyncFailed{
		BaseEvent: events.NewBaseEvent(),
		DraftID:   draft.ID,
		RemoteID:  draft.RemoteID,
		Direction: direction,
		Reason:    err.Error(),
	})
	return err
}

func errorCode(err error) string {
	if syncErr, ok := err.(*Error); ok {
		return syncErr.Code
	}
	return "sync_failed"
}
