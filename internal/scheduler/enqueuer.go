package scheduler

import (
	"context"

	"forwarding_portal_backend/internal/drafts/service"
	"forwarding_portal_backend/platform/config"
	"forwarding_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// pushMaxRetry bounds asynq retries for one enqueued push; the periodic
// flush picks the draft up again anyway as long as it stays dirty.
const pushMaxRetry = 3

// Enqueuer schedules draft pushes through asynq, so a push requested by the
// API survives a restart and is retried by the worker instead of dying with
// the process.
type Enqueuer struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

var _ service.SyncRequester = (*Enqueuer)(nil)

// NewEnqueuer creates an enqueuer on the shared asynq client.
func NewEnqueuer(client *asynq.Client, cfg config.SchedulerConfig, log *logger.Logger) *Enqueuer {
	return &Enqueuer{client: client, queue: cfg.GetAsynqQueueName(), log: log}
}

// RequestPush enqueues a sync push for the draft. Enqueue failures are only
// logged; the draft stays dirty and the next autosave flush retries it.
func (e *Enqueuer) RequestPush(ctx context.Context, draftID uuid.UUID) {
	task, err := NewDraftSyncPushTask(draftID)
	if err != nil {
		e.log.Error("enqueue_push_failed", "draft_id", draftID.String(), "error", err.Error())
		return
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(e.queue), asynq.MaxRetry(pushMaxRetry))
	if err != nil {
		e.log.Error("enqueue_push_failed", "draft_id", draftID.String(), "error", err.Error())
	}
}
