package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	stdsync "sync"
	"testing"

	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// fakeDraftLister serves the dirty-draft listing; every other Store method
// panics if touched.
type fakeDraftLister struct {
	repository.Store
	drafts []repository.Draft
}

func (f *fakeDraftLister) ListDirtyDrafts(_ context.Context, limit int) ([]repository.Draft, error) {
	if len(f.drafts) > limit {
		return f.drafts[:limit], nil
	}
	return f.drafts, nil
}

type fakePusher struct {
	mu     stdsync.Mutex
	pushed []uuid.UUID
	fail   map[uuid.UUID]error
}

func (f *fakePusher) Push(_ context.Context, draftID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, draftID)
	return f.fail[draftID]
}

func TestHandleDraftSyncPush_PushesDecodedDraft(t *testing.T) {
	draftID := uuid.New()
	pusher := &fakePusher{}
	worker := NewWorker(&fakeDraftLister{}, pusher, logger.New("development"))

	task, err := NewDraftSyncPushTask(draftID)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TypeDraftSyncPush {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	var payload DraftSyncPushPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.DraftID != draftID {
		t.Fatalf("payload carries %s, want %s", payload.DraftID, draftID)
	}

	if err := worker.HandleDraftSyncPush(context.Background(), task); err != nil {
		t.Fatalf("handle push: %v", err)
	}
	if len(pusher.pushed) != 1 || pusher.pushed[0] != draftID {
		t.Fatalf("expected one push for %s, got %v", draftID, pusher.pushed)
	}
}

func TestHandleDraftSyncPush_BadPayloadSkipsRetry(t *testing.T) {
	pusher := &fakePusher{}
	worker := NewWorker(&fakeDraftLister{}, pusher, logger.New("development"))

	task := asynq.NewTask(TypeDraftSyncPush, []byte("not json"))
	err := worker.HandleDraftSyncPush(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for a malformed payload, got %v", err)
	}
	if len(pusher.pushed) != 0 {
		t.Fatal("malformed payload must not trigger a push")
	}
}

func TestHandleAutosaveFlush_OneFailureDoesNotStallOthers(t *testing.T) {
	dirty := []repository.Draft{
		{ID: uuid.New()},
		{ID: uuid.New()},
		{ID: uuid.New()},
	}
	pusher := &fakePusher{
		fail: map[uuid.UUID]error{dirty[1].ID: errors.New("upstream down")},
	}
	worker := NewWorker(&fakeDraftLister{drafts: dirty}, pusher, logger.New("development"))

	if err := worker.HandleAutosaveFlush(context.Background(), NewAutosaveFlushTask()); err != nil {
		t.Fatalf("flush must not fail on a per-draft push error: %v", err)
	}

	want := []string{dirty[0].ID.String(), dirty[1].ID.String(), dirty[2].ID.String()}
	got := make([]string, 0, len(pusher.pushed))
	for _, id := range pusher.pushed {
		got = append(got, id.String())
	}
	sort.Strings(want)
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("expected %d pushes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("push set mismatch: got %v, want %v", got, want)
		}
	}
}
