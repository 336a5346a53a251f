// Package scheduler runs the background sync machinery: a periodic autosave
// flush that pushes every dirty draft, and on-demand push tasks.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeAutosaveFlush = "drafts:autosave_flush"
	TypeDraftSyncPush = "drafts:sync_push"
)

// DraftSyncPushPayload identifies the draft to push.
type DraftSyncPushPayload struct {
	DraftID uuid.UUID `json:"draftId"`
}

// NewAutosaveFlushTask creates the periodic flush task.
func NewAutosaveFlushTask() *asynq.Task {
	return asynq.NewTask(TypeAutosaveFlush, nil)
}

// NewDraftSyncPushTask creates a push task for one draft.
func NewDraftSyncPushTask(draftID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(DraftSyncPushPayload{DraftID: draftID})
	if err != nil {
		return nil, fmt.Errorf("marshal push payload: %w", err)
	}
	return asynq.NewTask(TypeDraftSyncPush, payload), nil
}
