// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
)

// Queue admits requests into the persistent queue.
//
// Admission is deduplicated within the process by an in-memory pending set
// and by the fulfilled store. Rows that get past a second process are
// caught at drain time by the fulfilled check and the conditional
// queued -> submitting transition.
type Queue struct {
	store      Store
	fulfilled  FulfilledStore
	seasonMode string
	now        func() time.Time

	mu      sync.Mutex
	pending map[models.ItemKey]struct{}
}

// New creates a queue. Call Load to seed the pending set from the store.
func New(store Store, fulfilled FulfilledStore, seasonMode string) *Queue {
	return &Queue{
		store:      store,
		fulfilled:  fulfilled,
		seasonMode: seasonMode,
		now:        time.Now,
		pending:    make(map[models.ItemKey]struct{}),
	}
}

// Load adds every active row in the store to the pending set.
func (q *Queue) Load(ctx context.Context) error {
	keys, err := q.store.ActiveKeys(ctx)
	if err != nil {
		return fmt.Errorf("load pending requests: %w", err)
	}

	q.mu.Lock()
	for _, k := range keys {
		q.pending[k] = struct{}{}
	}
	q.mu.Unlock()

	logging.Ctx(ctx).Info().Int("pending", len(keys)).Msg("Request queue loaded")
	return nil
}

// Request queues item. It returns false without writing when the item is
// already pending in this process, already fulfilled, or already active in
// the store.
func (q *Queue) Request(ctx context.Context, item *models.CandidateItem, meta RequestMeta) (bool, error) {
	key := item.Key()
	if !key.Kind.Valid() || key.CatalogID <= 0 {
		return false, fmt.Errorf("%w: invalid request key %s", models.ErrValidation, key)
	}

	if !q.reserve(key) {
		metrics.RecordAdmission(string(key.Kind), "pending")
		return false, nil
	}

	done, err := q.fulfilled.IsFulfilled(ctx, key)
	if err != nil {
		q.Release(key)
		return false, fmt.Errorf("check fulfilled %s: %w", key, err)
	}
	if done {
		q.Release(key)
		metrics.RecordAdmission(string(key.Kind), "fulfilled")
		return false, nil
	}

	payload := BuildPayload(item, meta, q.seasonMode)
	data, err := payload.Encode()
	if err != nil {
		q.Release(key)
		return false, fmt.Errorf("encode payload %s: %w", key, err)
	}

	now := q.now()
	inserted, err := q.store.Enqueue(ctx, &models.PendingRequest{
		Kind:          key.Kind,
		CatalogID:     key.CatalogID,
		Payload:       data,
		Status:        models.RequestQueued,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		q.Release(key)
		return false, fmt.Errorf("enqueue %s: %w", key, err)
	}
	if !inserted {
		// Another process queued it; keep the reservation.
		metrics.RecordAdmission(string(key.Kind), "pending")
		return false, nil
	}

	metrics.RecordAdmission(string(key.Kind), "queued")
	logging.Ctx(ctx).Debug().
		Str("item", key.String()).
		Str("title", item.Title).
		Bool("anime", payload.Meta.Anime).
		Msg("Request queued")
	return true, nil
}

// reserve adds key to the pending set, reporting false if it was present.
func (q *Queue) reserve(key models.ItemKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[key]; ok {
		return false
	}
	q.pending[key] = struct{}{}
	return true
}

// Release removes key from the pending set. The drainer calls it when a row
// reaches a terminal state.
func (q *Queue) Release(key models.ItemKey) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

// Pending reports whether key is in the pending set.
func (q *Queue) Pending(key models.ItemKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}

// Stats returns row counts by status and updates the queue depth gauge.
func (q *Queue) Stats(ctx context.Context) (models.QueueStats, error) {
	stats, err := q.store.Stats(ctx)
	if err != nil {
		return models.QueueStats{}, err
	}
	metrics.UpdateQueueDepth(int64(stats.Queued), int64(stats.Submitting), int64(stats.Submitted), int64(stats.Failed))
	return stats, nil
}

// List returns rows with the given status ("" for all), newest first.
func (q *Queue) List(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.PendingRequest, error) {
	return q.store.List(ctx, status, limit, offset)
}

// Get returns one row.
func (q *Queue) Get(ctx context.Context, id int64) (*models.PendingRequest, error) {
	return q.store.Get(ctx, id)
}
