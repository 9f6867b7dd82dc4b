// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package dedup

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
)

// LibrarySource lists the items already present on a media server.
// mediaserver.Source implements it.
type LibrarySource interface {
	Name() string
	LibraryItems(ctx context.Context) ([]models.LibraryItem, error)
}

// LibraryIndex is the "already downloaded" set built from every configured
// media server. Items are matched by (kind, TMDB id), falling back to
// (kind, IMDb id) for library items without a TMDB id.
type LibraryIndex struct {
	catalog map[models.ItemKey]struct{}
	imdb    map[string]struct{}
	builtAt time.Time
	failed  []string
}

// BuildLibraryIndex lists every source concurrently. A source that fails is
// logged and left out, so the index may be partial; Failed names them.
func BuildLibraryIndex(ctx context.Context, sources []LibrarySource) *LibraryIndex {
	idx := &LibraryIndex{
		catalog: make(map[models.ItemKey]struct{}),
		imdb:    make(map[string]struct{}),
		builtAt: time.Now(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, src := range sources {
		g.Go(func() error {
			items, err := src.LibraryItems(gctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("server", src.Name()).Msg("Library listing failed, index is partial")
				idx.failed = append(idx.failed, src.Name())
				return nil
			}
			for i := range items {
				idx.add(&items[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	logging.Ctx(ctx).Debug().
		Int("items", len(idx.catalog)+len(idx.imdb)).
		Int("sources", len(sources)).
		Int("failed", len(idx.failed)).
		Msg("Library index built")
	return idx
}

func (idx *LibraryIndex) add(item *models.LibraryItem) {
	if id, err := strconv.Atoi(item.IDs.TMDB); err == nil && id > 0 {
		idx.catalog[models.ItemKey{Kind: item.Kind, CatalogID: id}] = struct{}{}
	}
	if item.IDs.IMDb != "" {
		idx.imdb[string(item.Kind)+":"+item.IDs.IMDb] = struct{}{}
	}
}

// Contains reports whether the candidate is already in a library.
func (idx *LibraryIndex) Contains(item *models.CandidateItem) bool {
	if idx == nil {
		return false
	}
	if _, ok := idx.catalog[item.Key()]; ok {
		return true
	}
	if item.IMDbID != "" {
		_, ok := idx.imdb[string(item.Kind)+":"+item.IMDbID]
		return ok
	}
	return false
}

// Len returns the number of indexed catalog ids.
func (idx *LibraryIndex) Len() int {
	return len(idx.catalog)
}

// BuiltAt returns when the index was built.
func (idx *LibraryIndex) BuiltAt() time.Time {
	return idx.builtAt
}

// Failed lists the sources left out of the index.
func (idx *LibraryIndex) Failed() []string {
	return idx.failed
}
