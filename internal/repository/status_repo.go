package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pictura/imagegen/internal/model"
)

const statusKeyPrefix = "gen:status:"

// StatusRepository tracks generation status records by request ID.
type StatusRepository interface {
	// Create inserts a pending record unless the request ID is already tracked.
	Create(ctx context.Context, status *model.GenerationStatus) (bool, error)
	// Get returns nil when the request ID is unknown or expired.
	Get(ctx context.Context, requestID string) (*model.GenerationStatus, error)
	// Save overwrites a tracked record, keeping its retention deadline.
	Save(ctx context.Context, status *model.GenerationStatus) error
}

type stateStatusRepository struct {
	store     StateStore
	retention time.Duration
}

func NewStatusRepository(store StateStore, retention time.Duration) StatusRepository {
	return &stateStatusRepository{store: store, retention: retention}
}

func statusKey(requestID string) string { return statusKeyPrefix + requestID }

func (r *stateStatusRepository) Create(ctx context.Context, status *model.GenerationStatus) (bool, error) {
	b, err := json.Marshal(status)
	if err != nil {
		return false, fmt.Errorf("encode status: %w", err)
	}
	return r.store.SetNX(ctx, statusKey(status.RequestID), b, r.retention)
}

func (r *stateStatusRepository) Get(ctx context.Context, requestID string) (*model.GenerationStatus, error) {
	b, err := r.store.Get(ctx, statusKey(requestID))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	var status model.GenerationStatus
	if err := json.Unmarshal(b, &status); err != nil {
		return nil, fmt.Errorf("decode status %s: %w", requestID, err)
	}
	return &status, nil
}

func (r *stateStatusRepository) Save(ctx context.Context, status *model.GenerationStatus) error {
	b, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	ok, err := r.store.Update(ctx, statusKey(status.RequestID), b)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStatusNotFound
	}
	return nil
}
