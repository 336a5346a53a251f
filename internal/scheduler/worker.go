package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/internal/drafts/sync"
	"forwarding_portal_backend/platform/config"
	"forwarding_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// flushBatchSize caps how many dirty drafts one flush pass picks up.
const flushBatchSize = 100

// flushParallelism caps concurrent upstream pushes during a flush.
const flushParallelism = 4

// Pusher pushes one draft to the upstream service. Satisfied by sync.Saver.
type Pusher interface {
	Push(ctx context.Context, draftID uuid.UUID) error
}

// Worker processes background sync tasks.
type Worker struct {
	store  repository.Store
	pusher Pusher
	log    *logger.Logger
}

// NewWorker creates the task handler set.
func NewWorker(store repository.Store, pusher Pusher, log *logger.Logger) *Worker {
	return &Worker{store: store, pusher: pusher, log: log}
}

// Mux returns the asynq mux with all handlers registered.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAutosaveFlush, w.HandleAutosaveFlush)
	mux.HandleFunc(TypeDraftSyncPush, w.HandleDraftSyncPush)
	return mux
}

// HandleAutosaveFlush pushes every dirty open draft. Failures are recorded
// per draft by the saver; the flush itself only fails on listing errors so
// one bad draft cannot stall the rest.
func (w *Worker) HandleAutosaveFlush(ctx context.Context, _ *asynq.Task) error {
	drafts, err := w.store.ListDirtyDrafts(ctx, flushBatchSize)
	if err != nil {
		return fmt.Errorf("list dirty drafts: %w", err)
	}
	if len(drafts) == 0 {
		return nil
	}

	w.log.Info("autosave_flush", "dirty_drafts", len(drafts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(flushParallelism)
	for _, draft := range drafts {
		g.Go(func() error {
			if err := w.pusher.Push(ctx, draft.ID); err != nil {
				w.log.SyncEvent(draft.ID.String(), sync.DirectionPush, false, err.Error())
			}
			return nil
		})
	}
	return g.Wait()
}

// HandleDraftSyncPush pushes one draft. The error is returned so asynq
// retries with backoff.
func (w *Worker) HandleDraftSyncPush(ctx context.Context, task *asynq.Task) error {
	var payload DraftSyncPushPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode push payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.pusher.Push(ctx, payload.DraftID)
}

// NewServer creates the asynq worker server.
func NewServer(cfg config.SchedulerConfig, log *logger.Logger) (*asynq.Server, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error("task_failed",
				"type", task.Type(),
				"error", err.Error(),
			)
		}),
	}), nil
}
