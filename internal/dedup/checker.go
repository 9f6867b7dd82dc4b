// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package dedup

import (
	"context"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
)

// FulfilledLookup reads the canonical fulfilled-requests store.
type FulfilledLookup interface {
	IsFulfilled(ctx context.Context, key models.ItemKey) (bool, error)
}

// RequestSnapshot is the point-in-time set of existing downstream requests.
// seer.Snapshot implements it.
type RequestSnapshot interface {
	Contains(key models.ItemKey) bool
}

// RequestSet is a fixed set of requested keys, taken once per run.
type RequestSet map[models.ItemKey]struct{}

// Contains reports whether key is in the set.
func (r RequestSet) Contains(key models.ItemKey) bool {
	_, ok := r[key]
	return ok
}

// ProviderFilter reports streaming-provider exclusion. filter.Engine implements it.
type ProviderFilter interface {
	ProviderExcluded(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) bool
}

// Checker decides whether a candidate should be skipped because it was
// already requested, is already downloaded or is excluded.
type Checker struct {
	fulfilled FulfilledLookup
	library   *LibraryIndex
	snapshot  RequestSnapshot
	providers ProviderFilter
}

// NewChecker creates a checker. Any collaborator may be nil, which disables
// its check.
func NewChecker(fulfilled FulfilledLookup, library *LibraryIndex, snapshot RequestSnapshot, providers ProviderFilter) *Checker {
	return &Checker{
		fulfilled: fulfilled,
		library:   library,
		snapshot:  snapshot,
		providers: providers,
	}
}

// ShouldSkip runs the checks in order: fulfilled store, library index,
// request snapshot, provider exclusion. The first match wins.
func (c *Checker) ShouldSkip(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) (bool, models.SkipReason) {
	key := item.Key()

	if c.fulfilled != nil {
		done, err := c.fulfilled.IsFulfilled(ctx, key)
		if err != nil {
			// Queue admission checks the store again.
			logging.Ctx(ctx).Warn().Err(err).Str("item", key.String()).Msg("Fulfilled lookup failed")
		} else if done {
			return true, models.SkipFulfilled
		}
	}

	if c.library.Contains(item) {
		return true, models.SkipInLibrary
	}

	if c.snapshot != nil && c.snapshot.Contains(key) {
		return true, models.SkipRequested
	}

	if c.providers != nil && cfg != nil && c.providers.ProviderExcluded(ctx, item, cfg) {
		return true, models.SkipProvider
	}

	return false, models.SkipNone
}
