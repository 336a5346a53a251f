package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Status is the ephemeral sync state of one draft. It lives in Redis with a
// TTL and resets naturally; it is UI state, not a durable record.
type Status struct {
	IsSyncing         bool        `json:"isSyncing"`
	LastSyncedAt      *time.Time  `json:"lastSyncedAt,omitempty"`
	LastSyncDirection string      `json:"lastSyncDirection,omitempty"`
	Errors            []SyncError `json:"errors,omitempty"`
}

// SyncError is one recorded failure. Only the most recent few are kept.
type SyncError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	statusKeyPrefix = "drafts:sync:status:"
	statusTTL       = 24 * time.Hour
	maxKeptErrors   = 5
)

// StatusStore persists per-draft sync status in Redis.
type StatusStore struct {
	client *redis.Client
}

// NewStatusStore creates a Redis-backed status store.
func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{client: client}
}

func statusKey(draftID uuid.UUID) string {
	return statusKeyPrefix + draftID.String()
}

// Get returns the current sync status, zero-valued when none is recorded.
func (s *StatusStore) Get(ctx context.Context, draftID uuid.UUID) (Status, error) {
	data, err := s.client.Get(ctx, statusKey(draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("get sync status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return Status{}, fmt.Errorf("decode sync status: %w", err)
	}
	return status, nil
}

// MarkSyncing flips the in-flight flag.
func (s *StatusStore) MarkSyncing(ctx context.Context, draftID uuid.UUID, syncing bool) error {
	return s.update(ctx, draftID, func(status *Status) {
		status.IsSyncing = syncing
	})
}

// RecordSuccess stamps a completed sync and clears recorded errors.
func (s *StatusStore) RecordSuccess(ctx context.Context, draftID uuid.UUID, direction string) error {
	now := time.Now().UTC()
	return s.update(ctx, draftID, func(status *Status) {
		status.IsSyncing = false
		status.LastSyncedAt = &now
		status.LastSyncDirection = direction
		status.Errors = nil
	})
}

// RecordFailure appends a failure, keeping only the most recent entries.
func (s *StatusStore) RecordFailure(ctx context.Context, draftID uuid.UUID, code, message string) error {
	return s.update(ctx, draftID, func(status *Status) {
		status.IsSyncing = false
		status.Errors = append(status.Errors, SyncError{
			Code:       code,
			Message:    message,
			OccurredAt: time.Now().UTC(),
		})
		if len(status.Errors) > maxKeptErrors {
			status.Errors = status.Errors[len(status.Errors)-maxKeptErrors:]
		}
	})
}

// Clear removes the status entry, e.g. when a draft is deleted.
func (s *StatusStore) Clear(ctx context.Context, draftID uuid.UUID) error {
	if err := s.client.Del(ctx, statusKey(draftID)).Err(); err != nil {
		return fmt.Errorf("clear sync status: %w", err)
	}
	return nil
}

func (s *StatusStore) update(ctx context.Context, draftID uuid.UUID, apply func(*Status)) error {
	status, err := s.Get(ctx, draftID)
	if err != nil {
		return err
	}
	apply(&status)

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode sync status: %w", err)
	}
	if err := s.client.Set(ctx, statusKey(draftID), data, statusTTL).Err(); err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}
