// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package queue

import (
	"context"
	"time"

	"github.com/tomtom215/curator/internal/models"
)

// Store persists PendingRequest rows. database.QueueStore implements it.
type Store interface {
	// Enqueue inserts a queued row unless an active (queued or submitting)
	// row already exists for the same key. It reports whether a row was written.
	Enqueue(ctx context.Context, req *models.PendingRequest) (bool, error)

	// ActiveKeys lists the keys of queued and submitting rows.
	ActiveKeys(ctx context.Context) ([]models.ItemKey, error)

	// ResetStale moves submitting rows last updated before cutoff back to queued.
	ResetStale(ctx context.Context, cutoff, now time.Time) (int, error)

	// DueBatch returns up to limit queued rows with next_attempt_at <= now,
	// oldest next_attempt_at first.
	DueBatch(ctx context.Context, now time.Time, limit int) ([]models.PendingRequest, error)

	// MarkSubmitting moves a row from queued to submitting. It reports false
	// when the row is no longer queued.
	MarkSubmitting(ctx context.Context, id int64, now time.Time) (bool, error)

	MarkSubmitted(ctx context.Context, id int64, now time.Time) error
	MarkFailed(ctx context.Context, id int64, retryCount int, lastErr string, now time.Time) error
	Reschedule(ctx context.Context, id int64, retryCount int, next time.Time, lastErr string, now time.Time) error

	Stats(ctx context.Context) (models.QueueStats, error)
	List(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.PendingRequest, error)
	Get(ctx context.Context, id int64) (*models.PendingRequest, error)
}

// FulfilledStore is the canonical fulfilled-requests store.
// database.RequestStore implements it.
type FulfilledStore interface {
	IsFulfilled(ctx context.Context, key models.ItemKey) (bool, error)
	// RecordFulfilled inserts the row; an existing row for the key is kept.
	RecordFulfilled(ctx context.Context, req *models.FulfilledRequest) error
}
