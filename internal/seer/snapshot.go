// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package seer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
)

// maxSnapshotPages bounds a refresh against a server that ignores skip.
const maxSnapshotPages = 1000

// Lister is the part of Client used by Snapshot.
type Lister interface {
	ListRequests(ctx context.Context, take, skip int) (*RequestPage, error)
}

// Snapshot is a point-in-time copy of every (kind, catalog id) known to the
// request-management service. It is fetched in full by paginated batch
// requests and is only refreshed when Refresh or EnsureFresh is called;
// lookups never trigger a fetch.
type Snapshot struct {
	lister   Lister
	pageSize int
	maxAge   time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	keys      map[models.ItemKey]struct{}
	fetchedAt time.Time
}

// NewSnapshot creates an empty snapshot. It is stale until the first Refresh.
func NewSnapshot(lister Lister, pageSize int, maxAge time.Duration) *Snapshot {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Snapshot{
		lister:   lister,
		pageSize: pageSize,
		maxAge:   maxAge,
		now:      time.Now,
		keys:     make(map[models.ItemKey]struct{}),
	}
}

// Refresh replaces the snapshot with a full fetch. On error the previous
// contents are kept.
func (s *Snapshot) Refresh(ctx context.Context) error {
	start := s.now()
	keys := make(map[models.ItemKey]struct{})

	for n, skip := 0, 0; ; n, skip = n+1, skip+s.pageSize {
		if n == maxSnapshotPages {
			return fmt.Errorf("refresh request snapshot: no last page after %d pages", n)
		}
		page, err := s.lister.ListRequests(ctx, s.pageSize, skip)
		if err != nil {
			return fmt.Errorf("refresh request snapshot: %w", err)
		}
		for i := range page.Results {
			r := &page.Results[i]
			if r.Media.TMDBID == 0 || !r.Media.MediaType.Valid() {
				continue
			}
			keys[r.Key()] = struct{}{}
		}
		if lastPage(page, s.pageSize, skip) {
			break
		}
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = start
	s.mu.Unlock()

	logging.Ctx(ctx).Debug().
		Int("requests", len(keys)).
		Dur("duration", s.now().Sub(start)).
		Msg("Request snapshot refreshed")
	return nil
}

// lastPage reports whether page ends the listing. The server's page info is
// trusted when present; a short page always ends it.
func lastPage(page *RequestPage, pageSize, skip int) bool {
	info := page.PageInfo
	switch {
	case len(page.Results) < pageSize:
		return true
	case info.Pages > 0 && info.Page >= info.Pages:
		return true
	case info.Results > 0 && skip+len(page.Results) >= info.Results:
		return true
	}
	return false
}

// EnsureFresh refreshes the snapshot only when it is stale.
func (s *Snapshot) EnsureFresh(ctx context.Context) error {
	if !s.Stale() {
		return nil
	}
	return s.Refresh(ctx)
}

// Contains reports whether key was requested as of FetchedAt.
func (s *Snapshot) Contains(key models.ItemKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok
}

// Add records a request made by this process since the last refresh.
func (s *Snapshot) Add(key models.ItemKey) {
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
}

// Keys returns a copy of the current key set. Later refreshes and Add calls
// do not affect it.
func (s *Snapshot) Keys() map[models.ItemKey]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.ItemKey]struct{}, len(s.keys))
	for k := range s.keys {
		out[k] = struct{}{}
	}
	return out
}

// FetchedAt returns when the current contents were fetched (zero if never).
func (s *Snapshot) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Stale reports whether the snapshot was never fetched or is older than MaxAge.
func (s *Snapshot) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchedAt.IsZero() {
		return true
	}
	return s.now().Sub(s.fetchedAt) > s.maxAge
}

// MaxAge returns the staleness window.
func (s *Snapshot) MaxAge() time.Duration {
	return s.maxAge
}

// Len returns the number of known requests.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
