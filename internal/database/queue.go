// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/curator/internal/models"
)

// QueueStore persists the request queue. It implements queue.Store.
type QueueStore struct {
	db *DB
}

const pendingColumns = `id, media_type, catalog_id, payload, status, retry_count, next_attempt_at,
	last_error, created_at, updated_at`

func scanPending(row rowScanner) (models.PendingRequest, error) {
	var (
		r       models.PendingRequest
		lastErr sql.NullString
	)
	err := row.Scan(&r.ID, &r.Kind, &r.CatalogID, &r.Payload, &r.Status, &r.RetryCount,
		&r.NextAttemptAt, &lastErr, &r.CreatedAt, &r.UpdatedAt)
	r.LastError = lastErr.String
	return r, err
}

// Enqueue inserts req unless a queued or submitting row exists for its key.
func (s *QueueStore) Enqueue(ctx context.Context, req *models.PendingRequest) (_ bool, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("insert", "pending_requests")(&err)

	var inserted bool
	err = retryConflict(ctx, func() error {
		var txErr error
		inserted, txErr = s.enqueueTx(ctx, req)
		return txErr
	})
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", req.Key(), err)
	}
	return inserted, nil
}

func (s *QueueStore) enqueueTx(ctx context.Context, req *models.PendingRequest) (bool, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pending_requests
		WHERE media_type = ? AND catalog_id = ? AND status IN (?, ?)`,
		string(req.Kind), req.CatalogID, string(models.RequestQueued), string(models.RequestSubmitting),
	).Scan(&active)
	if err != nil {
		return false, err
	}
	if active > 0 {
		return false, nil
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO pending_requests (media_type, catalog_id, payload, status, retry_count,
			next_attempt_at, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		string(req.Kind), req.CatalogID, req.Payload, string(req.Status), req.RetryCount,
		req.NextAttemptAt.UTC(), nullString(req.LastError), req.CreatedAt.UTC(), req.UpdatedAt.UTC(),
	).Scan(&req.ID)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ActiveKeys lists the keys of queued and submitting rows.
func (s *QueueStore) ActiveKeys(ctx context.Context) (_ []models.ItemKey, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "pending_requests")(&err)

	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT DISTINCT media_type, catalog_id FROM pending_requests WHERE status IN (?, ?)`,
		string(models.RequestQueued), string(models.RequestSubmitting))
	if err != nil {
		return nil, fmt.Errorf("list active keys: %w", err)
	}
	defer closeWithLog(rows, "active key rows")

	var keys []models.ItemKey
	for rows.Next() {
		var key models.ItemKey
		if err := rows.Scan(&key.Kind, &key.CatalogID); err != nil {
			return nil, fmt.Errorf("scan active key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ResetStale moves submitting rows last updated before cutoff back to queued.
func (s *QueueStore) ResetStale(ctx context.Context, cutoff, now time.Time) (_ int, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "pending_requests")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE pending_requests SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`,
		string(models.RequestQueued), now.UTC(), string(models.RequestSubmitting), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("reset stale requests: %w", err)
	}
	return affected(res)
}

// DueBatch returns up to limit queued rows due at now, oldest due first.
func (s *QueueStore) DueBatch(ctx context.Context, now time.Time, limit int) (_ []models.PendingRequest, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "pending_requests")(&err)

	return s.query(ctx, `
		SELECT `+pendingColumns+` FROM pending_requests
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?`,
		string(models.RequestQueued), now.UTC(), limit)
}

// MarkSubmitting locks a queued row for submission. It reports false when
// the row is no longer queued.
func (s *QueueStore) MarkSubmitting(ctx context.Context, id int64, now time.Time) (_ bool, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "pending_requests")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE pending_requests SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(models.RequestSubmitting), now.UTC(), id, string(models.RequestQueued))
	if err != nil {
		return false, fmt.Errorf("lock request %d: %w", id, err)
	}
	n, err := affected(res)
	return n == 1, err
}

// MarkSubmitted records a successful submission.
func (s *QueueStore) MarkSubmitted(ctx context.Context, id int64, now time.Time) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "pending_requests")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE pending_requests SET status = ?, last_error = NULL, updated_at = ? WHERE id = ?`,
		string(models.RequestSubmitted), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark request %d submitted: %w", id, err)
	}
	return requireRow(res, "request", id)
}

// MarkFailed records a terminal failure.
func (s *QueueStore) MarkFailed(ctx context.Context, id int64, retryCount int, lastErr string, now time.Time) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "pending_requests")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE pending_requests SET status = ?, retry_count = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(models.RequestFailed), retryCount, nullString(lastErr), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark request %d failed: %w", id, err)
	}
	return requireRow(res, "request", id)
}

// Reschedule returns a row to the queue for another attempt at next.
func (s *QueueStore) Reschedule(ctx context.Context, id int64, retryCount int, next time.Time, lastErr string, now time.Time) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "pending_requests")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE pending_requests
		SET status = ?, retry_count = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(models.RequestQueued), retryCount, next.UTC(), nullString(lastErr), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("reschedule request %d: %w", id, err)
	}
	return requireRow(res, "request", id)
}

// Stats counts rows by status.
func (s *QueueStore) Stats(ctx context.Context) (_ models.QueueStats, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "pending_requests")(&err)

	var stats models.QueueStats
	rows, err := s.db.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM pending_requests GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("queue stats: %w", err)
	}
	defer closeWithLog(rows, "queue stats rows")

	for rows.Next() {
		var (
			status models.RequestStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan queue stats: %w", err)
		}
		switch status {
		case models.RequestQueued:
			stats.Queued = n
		case models.RequestSubmitting:
			stats.Submitting = n
		case models.RequestSubmitted:
			stats.Submitted = n
		case models.RequestFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}

// List returns rows newest first. An empty status lists every row.
func (s *QueueStore) List(ctx context.Context, status models.RequestStatus, limit, offset int) (_ []models.PendingRequest, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "pending_requests")(&err)

	if status == "" {
		return s.query(ctx, `SELECT `+pendingColumns+` FROM pending_requests ORDER BY id DESC LIMIT ? OFFSET ?`,
			limit, offset)
	}
	return s.query(ctx, `SELECT `+pendingColumns+` FROM pending_requests WHERE status = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		string(status), limit, offset)
}

// Get returns one row, or models.ErrNotFound.
func (s *QueueStore) Get(ctx context.Context, id int64) (_ *models.PendingRequest, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "pending_requests")(&err)

	r, err := scanPending(s.db.conn.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	return &r, nil
}

func (s *QueueStore) query(ctx context.Context, query string, args ...any) ([]models.PendingRequest, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer closeWithLog(rows, "pending request rows")

	var out []models.PendingRequest
	for rows.Next() {
		r, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
