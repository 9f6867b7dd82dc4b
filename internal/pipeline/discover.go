// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package pipeline

import (
	"context"
	"fmt"
	"iter"

	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
)

// maxDiscoverPages is the deepest page the catalog serves.
const maxDiscoverPages = 500

const defaultSortBy = "popularity.desc"

// discoverParams maps a job's filters to discover query parameters. Rating
// prefilters are only pushed to the catalog when the catalog rating alone
// decides and unrated items are excluded anyway.
func discoverParams(f *models.FilterConfig) catalog.DiscoverParams {
	p := catalog.DiscoverParams{
		SortBy:       f.SortBy,
		WithGenres:   f.WithGenres,
		WithKeywords: f.WithKeywords,
		MinYear:      f.MinYear,
		MinRuntime:   f.MinRuntime,
	}
	if p.SortBy == "" {
		p.SortBy = defaultSortBy
	}
	if len(f.Languages) == 1 {
		p.Language = f.Languages[0]
	}
	if f.EffectiveRatingSource() == models.RatingCatalog && !f.IncludeNoRating {
		p.MinRating = f.MinRating
		p.MinVotes = f.MinVotes
	}
	return p
}

// Discover yields qualifying catalog items for job in page order. Pages are
// fetched lazily; iteration stops after job.MaxResults items, after the last
// page, or after filters.max_pages pages. A page fetch error is yielded once
// and ends the sequence. Each iteration is a new run starting at page 1.
func (p *Pipeline) Discover(ctx context.Context, job *models.JobDefinition) iter.Seq2[models.CandidateItem, error] {
	return func(yield func(models.CandidateItem, error) bool) {
		if !job.MediaKind.Valid() {
			yield(models.CandidateItem{}, models.NewValidationError(
				fmt.Sprintf("media_type: discover jobs require movie or tv, got %q", job.MediaKind)))
			return
		}

		r := p.prepare(ctx, job)
		params := discoverParams(&job.Filters)
		maxPages := job.Filters.MaxPages
		if maxPages <= 0 || maxPages > maxDiscoverPages {
			maxPages = maxDiscoverPages
		}
		logger := logging.Ctx(ctx)

		for page := 1; page <= maxPages; page++ {
			if err := ctx.Err(); err != nil {
				yield(models.CandidateItem{}, err)
				return
			}

			params.Page = page
			res, err := p.Catalog.Discover(ctx, job.MediaKind, params)
			if err != nil {
				yield(models.CandidateItem{}, fmt.Errorf("discover page %d: %w", page, err))
				return
			}

			verdicts := p.evaluateAll(ctx, r, res.Items)
			for i := range res.Items {
				ok, full := r.take(&res.Items[i], verdicts[i])
				if ok && !yield(res.Items[i], nil) {
					return
				}
				if full {
					logger.Debug().Int("page", page).Int("results", r.taken).Msg("Discover result cap reached")
					return
				}
			}

			if !res.HasMore() {
				return
			}
		}
	}
}

// RunDiscover executes a discover job: every item yielded by Discover counts
// as a result and is admitted into the queue.
func (p *Pipeline) RunDiscover(ctx context.Context, job *models.JobDefinition) (models.ExecutionResult, error) {
	var result models.ExecutionResult
	for item, err := range p.Discover(ctx, job) {
		if err != nil {
			return result, err
		}
		result.ResultsCount++
		if p.admit(ctx, job, &item, queue.RequestMeta{}) {
			result.RequestedCount++
		}
	}
	return result, nil
}
