// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/curator/internal/filter"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/mediaserver"
	"github.com/tomtom215/curator/internal/models"
)

func discoverJob(maxResults int) *models.JobDefinition {
	return &models.JobDefinition{
		ID:         7,
		Name:       "popular movies",
		JobType:    models.JobTypeDiscover,
		MediaKind:  models.MediaMovie,
		MaxResults: maxResults,
	}
}

func TestRunDiscover_StopsAtCapWhilePagesRemain(t *testing.T) {
	h := newHarness()
	for page := 1; page <= 5; page++ {
		h.catalog.pages[page] = moviePage(page, 5, page*100, 10)
	}

	res, err := h.pipeline().RunDiscover(context.Background(), discoverJob(20))
	require.NoError(t, err)

	assert.Equal(t, 20, res.ResultsCount)
	assert.Equal(t, 20, res.RequestedCount)
	assert.Equal(t, []int{1, 2}, h.catalog.discoverPages())
	assert.Len(t, h.queue.admitted, 20)
	for _, ad := range h.queue.admitted {
		assert.Equal(t, int64(7), ad.meta.JobID)
		assert.Nil(t, ad.meta.Source)
	}
}

func TestRunDiscover_MaxPages(t *testing.T) {
	h := newHarness()
	for page := 1; page <= 5; page++ {
		h.catalog.pages[page] = moviePage(page, 5, page*100, 10)
	}
	job := discoverJob(100)
	job.Filters.MaxPages = 2

	res, err := h.pipeline().RunDiscover(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 20, res.ResultsCount)
	assert.Equal(t, []int{1, 2}, h.catalog.discoverPages())
}

func TestRunDiscover_StopsAfterLastPage(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 2, 100, 4)
	h.catalog.pages[2] = moviePage(2, 2, 200, 3)

	res, err := h.pipeline().RunDiscover(context.Background(), discoverJob(50))
	require.NoError(t, err)

	assert.Equal(t, 7, res.ResultsCount)
	assert.Equal(t, []int{1, 2}, h.catalog.discoverPages())
}

func TestRunDiscover_PageErrorEndsRun(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 3, 100, 5)
	h.catalog.discoverErr[2] = errUpstream

	res, err := h.pipeline().RunDiscover(context.Background(), discoverJob(50))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstream)
	assert.Contains(t, err.Error(), "page 2")

	// Items already yielded stay queued.
	assert.Equal(t, 5, res.ResultsCount)
	assert.Equal(t, []int{1, 2}, h.catalog.discoverPages())
}

func TestDiscover_IsLazy(t *testing.T) {
	h := newHarness()
	for page := 1; page <= 3; page++ {
		h.catalog.pages[page] = moviePage(page, 3, page*100, 10)
	}
	p := h.pipeline()

	var got []int
	for item, err := range p.Discover(context.Background(), discoverJob(20)) {
		require.NoError(t, err)
		got = append(got, item.CatalogID)
		if len(got) == 3 {
			break
		}
	}

	assert.Equal(t, []int{100, 101, 102}, got)
	assert.Equal(t, []int{1}, h.catalog.discoverPages())
	assert.Empty(t, h.queue.admitted)

	// A second iteration starts over at page 1.
	got = got[:0]
	for item, err := range p.Discover(context.Background(), discoverJob(2)) {
		require.NoError(t, err)
		got = append(got, item.CatalogID)
	}
	assert.Equal(t, []int{100, 101}, got)
	assert.Equal(t, []int{1, 1}, h.catalog.discoverPages())
}

func TestRunDiscover_SkipsFilteredAndKnownItems(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 2, 1, 10)
	page2 := moviePage(2, 2, 11, 9)
	page2.Items = append(page2.Items, movie(1, "Movie 1"))
	h.catalog.pages[2] = page2

	h.filter.reject[2] = filter.CheckLanguage
	h.done[models.ItemKey{Kind: models.MediaMovie, CatalogID: 3}] = true
	h.sources = []mediaserver.Source{&fakeSource{
		name:    "jellyfin",
		library: []models.LibraryItem{{Kind: models.MediaMovie, IDs: models.ExternalIDs{TMDB: "4"}}},
	}}
	h.snapshot.keys[models.ItemKey{Kind: models.MediaMovie, CatalogID: 5}] = true
	h.filter.excluded[6] = true
	h.queue.pending[models.ItemKey{Kind: models.MediaMovie, CatalogID: 7}] = true

	res, err := h.pipeline().RunDiscover(context.Background(), discoverJob(100))
	require.NoError(t, err)

	// 7 is already queued: it counts as a result but is not requested again.
	assert.Equal(t, 14, res.ResultsCount)
	assert.Equal(t, 13, res.RequestedCount)
	assert.Equal(t, []int{1, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, h.queue.ids())
}

func TestRunDiscover_SnapshotRefreshFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 1, 1, 3)
	h.snapshot.refreshErr = errUpstream
	h.snapshot.keys[models.ItemKey{Kind: models.MediaMovie, CatalogID: 2}] = true

	res, err := h.pipeline().RunDiscover(context.Background(), discoverJob(10))
	require.NoError(t, err)

	assert.Equal(t, 1, h.snapshot.refreshed)
	assert.Equal(t, []int{1, 3}, h.queue.ids())
	assert.Equal(t, 2, res.RequestedCount)
}

func TestPrepare_RunKeepsItsOwnRequestSnapshot(t *testing.T) {
	h := newHarness()
	early := movie(1, "Early")
	late := movie(2, "Late")
	h.snapshot.keys[early.Key()] = true

	ctx := context.Background()
	p := h.pipeline()
	job := discoverJob(10)
	first := p.prepare(ctx, job)

	// Another run refreshes the shared snapshot while the first is active.
	delete(h.snapshot.keys, early.Key())
	h.snapshot.keys[late.Key()] = true
	second := p.prepare(ctx, job)

	skip, reason := first.checker.ShouldSkip(ctx, &early, &job.Filters)
	assert.True(t, skip)
	assert.Equal(t, models.SkipRequested, reason)
	skip, _ = first.checker.ShouldSkip(ctx, &late, &job.Filters)
	assert.False(t, skip, "keys added after the run started are not seen")

	skip, _ = second.checker.ShouldSkip(ctx, &early, &job.Filters)
	assert.False(t, skip)
	skip, reason = second.checker.ShouldSkip(ctx, &late, &job.Filters)
	assert.True(t, skip)
	assert.Equal(t, models.SkipRequested, reason)
}

func TestPrepare_LogsDedupCoverage(t *testing.T) {
	h := newHarness()
	one := movie(1, "One")
	h.snapshot.keys[one.Key()] = true
	h.sources = []mediaserver.Source{
		&fakeSource{name: "jellyfin", library: []models.LibraryItem{
			{Kind: models.MediaMovie, IDs: models.ExternalIDs{TMDB: "5"}},
		}},
		&fakeSource{name: "emby", libraryErr: errUpstream},
	}

	var buf bytes.Buffer
	ctx := logging.ContextWithLogger(context.Background(), logging.NewTestLogger(&buf))
	r := h.pipeline().prepare(ctx, discoverJob(10))

	item := movie(5, "Five")
	skip, reason := r.checker.ShouldSkip(ctx, &item, &r.job.Filters)
	assert.True(t, skip)
	assert.Equal(t, models.SkipInLibrary, reason)

	var snapshotLine, libraryLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.Contains(line, "Request snapshot taken for run"):
			snapshotLine = line
		case strings.Contains(line, "Library index is partial for this run"):
			libraryLine = line
		}
	}
	require.NotEmpty(t, snapshotLine)
	assert.Contains(t, snapshotLine, `"requests":1`)
	assert.Contains(t, snapshotLine, `"max_age":`)
	assert.NotContains(t, snapshotLine, "fetched_at", "never fetched")

	require.NotEmpty(t, libraryLine)
	assert.Contains(t, libraryLine, `"failed_sources":["emby"]`)
	assert.Contains(t, libraryLine, `"items":1`)
	assert.Contains(t, libraryLine, `"built_at":`)
}

func TestRunDiscover_QueueErrorCountsResultOnly(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 1, 1, 2)
	h.queue.err = errors.New("database is locked")

	res, err := h.pipeline().RunDiscover(context.Background(), discoverJob(10))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ResultsCount)
	assert.Zero(t, res.RequestedCount)
}

func TestDiscover_RejectsBothKind(t *testing.T) {
	h := newHarness()
	job := discoverJob(10)
	job.MediaKind = models.MediaBoth

	_, err := h.pipeline().RunDiscover(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, h.catalog.discoverPages())
}

func TestRunDiscover_CancelledContext(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 3, 1, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline().RunDiscover(ctx, discoverJob(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.catalog.discoverPages())
}

func TestRunDiscover_SubmissionDelaySpacesAdmissions(t *testing.T) {
	h := newHarness()
	h.catalog.pages[1] = moviePage(1, 1, 1, 3)
	h.cfg.SubmissionDelay = 40 * time.Millisecond

	_, err := h.pipeline().RunDiscover(context.Background(), discoverJob(10))
	require.NoError(t, err)

	require.Len(t, h.queue.admitted, 3)
	spread := h.queue.admitted[2].at.Sub(h.queue.admitted[0].at)
	assert.GreaterOrEqual(t, spread, 70*time.Millisecond)
}

func TestDiscoverParams(t *testing.T) {
	tests := []struct {
		name    string
		filters models.FilterConfig
		check   func(t *testing.T, f models.FilterConfig)
	}{
		{
			name:    "defaults",
			filters: models.FilterConfig{MinRating: 6.5, MinVotes: 100},
			check: func(t *testing.T, f models.FilterConfig) {
				p := discoverParams(&f)
				assert.Equal(t, defaultSortBy, p.SortBy)
				assert.Equal(t, 6.5, p.MinRating)
				assert.Equal(t, 100, p.MinVotes)
				assert.Empty(t, p.Language)
			},
		},
		{
			name:    "unrated items keep rating prefilter off",
			filters: models.FilterConfig{MinRating: 6.5, MinVotes: 100, IncludeNoRating: true},
			check: func(t *testing.T, f models.FilterConfig) {
				p := discoverParams(&f)
				assert.Zero(t, p.MinRating)
				assert.Zero(t, p.MinVotes)
			},
		},
		{
			name:    "external rating keeps rating prefilter off",
			filters: models.FilterConfig{MinRating: 7, RatingSource: models.RatingExternal},
			check: func(t *testing.T, f models.FilterConfig) {
				assert.Zero(t, discoverParams(&f).MinRating)
			},
		},
		{
			name:    "single language and browse fields",
			filters: models.FilterConfig{Languages: []string{"ja"}, SortBy: "vote_average.desc", WithGenres: []int{16}, MinYear: 2010, MinRuntime: 80},
			check: func(t *testing.T, f models.FilterConfig) {
				p := discoverParams(&f)
				assert.Equal(t, "ja", p.Language)
				assert.Equal(t, "vote_average.desc", p.SortBy)
				assert.Equal(t, []int{16}, p.WithGenres)
				assert.Equal(t, 2010, p.MinYear)
				assert.Equal(t, 80, p.MinRuntime)
			},
		},
		{
			name:    "several languages filter locally",
			filters: models.FilterConfig{Languages: []string{"en", "fr"}},
			check: func(t *testing.T, f models.FilterConfig) {
				assert.Empty(t, discoverParams(&f).Language)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.filters)
		})
	}
}
