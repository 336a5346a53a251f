package repository

import (
	"context"

	"github.com/google/uuid"
)

// Store abstracts draft persistence so the service layer can be tested
// without a database.
type Store interface {
	CreateDraft(ctx context.Context, draft Draft) error
	GetDraft(ctx context.Context, id uuid.UUID) (Draft, error)
	ListDrafts(ctx context.Context, params ListParams) (ListResult, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) error

	// UpdateStepPayload replaces one wizard step's JSON payload, guarded by
	// the optimistic-concurrency version. Returns the new version.
	UpdateStepPayload(ctx context.Context, id uuid.UUID, step string, payload []byte, expectedVersion int) (int, error)
	// ReplaceStepPayloads overwrites all step payloads at once (pull sync).
	ReplaceStepPayloads(ctx context.Context, id uuid.UUID, payloads map[string][]byte) (int, error)

	SetRemoteID(ctx context.Context, id uuid.UUID, remoteID string) error
	MarkDirty(ctx context.Context, id uuid.UUID) error
	// ClearDirty resets the dirty flag only when the draft version still
	// matches, so edits made during an in-flight push stay pending.
	ClearDirty(ctx context.Context, id uuid.UUID, version int) error
	ListDirtyDrafts(ctx context.Context, limit int) ([]Draft, error)
	SetDraftStatus(ctx context.Context, id uuid.UUID, status string) error

	ListOptions(ctx context.Context, draftID uuid.UUID) ([]Option, error)
	GetOption(ctx context.Context, draftID, optionID uuid.UUID) (Option, error)
	CountOptions(ctx context.Context, draftID uuid.UUID) (int, error)
	// InsertOption appends an option, enforcing MaxOptionsPerDraft
	// atomically against concurrent inserts on the same draft.
	InsertOption(ctx context.Context, option Option) error
	UpdateOption(ctx context.Context, option Option) error
	DeleteOption(ctx context.Context, draftID, optionID uuid.UUID) error
	// SetPreferredOption clears the preferred flag on every other option of
	// the draft and sets it on the target, atomically.
	SetPreferredOption(ctx context.Context, draftID, optionID uuid.UUID) error
}
