// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/seer"
)

// memStore is an in-memory Store with the same conditional semantics as
// the DuckDB store.
type memStore struct {
	mu     sync.Mutex
	rows   map[int64]*models.PendingRequest
	nextID int64
	writes int

	// stealLock makes MarkSubmitting report false once, as if another
	// drainer locked the row first.
	stealLock map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]*models.PendingRequest), stealLock: make(map[int64]bool)}
}

func active(s models.RequestStatus) bool {
	return s == models.RequestQueued || s == models.RequestSubmitting
}

func (m *memStore) Enqueue(_ context.Context, req *models.PendingRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Key() == req.Key() && active(r.Status) {
			return false, nil
		}
	}
	m.nextID++
	row := *req
	row.ID = m.nextID
	m.rows[row.ID] = &row
	m.writes++
	return true, nil
}

func (m *memStore) put(row models.PendingRequest) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	row.ID = m.nextID
	m.rows[row.ID] = &row
	return row.ID
}

func (m *memStore) row(id int64) models.PendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memStore) ActiveKeys(context.Context) ([]models.ItemKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []models.ItemKey
	for _, r := range m.rows {
		if active(r.Status) {
			keys = append(keys, r.Key())
		}
	}
	return keys, nil
}

func (m *memStore) ResetStale(_ context.Context, cutoff, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Status == models.RequestSubmitting && r.UpdatedAt.Before(cutoff) {
			r.Status = models.RequestQueued
			r.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *memStore) DueBatch(_ context.Context, now time.Time, limit int) ([]models.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []models.PendingRequest
	for _, r := range m.rows {
		if r.Status == models.RequestQueued && !r.NextAttemptAt.After(now) {
			due = append(due, *r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].NextAttemptAt.Equal(due[j].NextAttemptAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memStore) MarkSubmitting(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stealLock[id] {
		delete(m.stealLock, id)
		m.rows[id].Status = models.RequestSubmitting
		return false, nil
	}
	r := m.rows[id]
	if r == nil || r.Status != models.RequestQueued {
		return false, nil
	}
	r.Status = models.RequestSubmitting
	r.UpdatedAt = now
	return true, nil
}

func (m *memStore) MarkSubmitted(_ context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = models.RequestSubmitted
	m.rows[id].UpdatedAt = now
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id int64, retryCount int, lastErr string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	r.Status = models.RequestFailed
	r.RetryCount = retryCount
	r.LastError = lastErr
	r.UpdatedAt = now
	return nil
}

func (m *memStore) Reschedule(_ context.Context, id int64, retryCount int, next time.Time, lastErr string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	r.Status = models.RequestQueued
	r.RetryCount = retryCount
	r.NextAttemptAt = next
	r.LastError = lastErr
	r.UpdatedAt = now
	return nil
}

func (m *memStore) Stats(context.Context) (models.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.QueueStats
	for _, r := range m.rows {
		switch r.Status {
		case models.RequestQueued:
			s.Queued++
		case models.RequestSubmitting:
			s.Submitting++
		case models.RequestSubmitted:
			s.Submitted++
		case models.RequestFailed:
			s.Failed++
		}
	}
	return s, nil
}

func (m *memStore) List(_ context.Context, status models.RequestStatus, limit, offset int) ([]models.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PendingRequest
	for _, r := range m.rows {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

type memFulfilled struct {
	mu      sync.Mutex
	rows    map[models.ItemKey]*models.FulfilledRequest
	lookups int
	err     error
}

func newMemFulfilled() *memFulfilled {
	return &memFulfilled{rows: make(map[models.ItemKey]*models.FulfilledRequest)}
}

func (f *memFulfilled) IsFulfilled(_ context.Context, key models.ItemKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.rows[key]
	return ok, nil
}

func (f *memFulfilled) RecordFulfilled(_ context.Context, req *models.FulfilledRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.ItemKey{Kind: req.Kind, CatalogID: req.CatalogID}
	if _, ok := f.rows[key]; !ok {
		f.rows[key] = req
	}
	return nil
}

type submitCall struct {
	req   seer.MediaRequest
	anime bool
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []submitCall
	// fail returns the error for a given media id, or nil.
	fail func(id int) error
	// panicOn panics when submitting this media id.
	panicOn int
	times   []time.Time
}

func (f *fakeSubmitter) Submit(_ context.Context, req seer.MediaRequest, anime bool) (*seer.Request, error) {
	f.mu.Lock()
	f.calls = append(f.calls, submitCall{req, anime})
	f.times = append(f.times, time.Now())
	f.mu.Unlock()

	if f.panicOn != 0 && req.MediaID == f.panicOn {
		panic("submitter exploded")
	}
	if f.fail != nil {
		if err := f.fail(req.MediaID); err != nil {
			return nil, err
		}
	}
	return &seer.Request{ID: req.MediaID}, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
