// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package filter

import (
	"context"
	"slices"
	"strings"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/ratings"
)

// Check names a filter step. The zero value means the item passed.
type Check string

const (
	CheckPassed        Check = ""
	CheckMissingRating Check = "missing_rating"
	CheckRating        Check = "rating"
	CheckLanguage      Check = "language"
	CheckGenre         Check = "genre"
	CheckYear          Check = "year"
	CheckRuntime       Check = "runtime"
	CheckProvider      Check = "provider"
)

// CatalogLookup is the part of the catalog client the engine needs.
// Both calls are cached by the catalog.
type CatalogLookup interface {
	Details(ctx context.Context, kind models.MediaKind, id int) (*models.CandidateItem, error)
	WatchProviders(ctx context.Context, kind models.MediaKind, id int, region string) ([]int, error)
}

// RatingLookup returns the secondary (IMDb) rating of a title.
type RatingLookup interface {
	Lookup(ctx context.Context, imdbID string) (ratings.Rating, bool, error)
}

// Engine evaluates candidates against a job's FilterConfig.
//
// Evaluation does not modify the item. The only I/O goes through the cached
// catalog and rating lookups, so evaluating the same item twice gives the
// same answer.
type Engine struct {
	catalog CatalogLookup
	ratings RatingLookup
}

// New creates an engine. ratings may be nil when no secondary rating source
// is configured; external thresholds then see no data.
func New(catalog CatalogLookup, ratings RatingLookup) *Engine {
	return &Engine{catalog: catalog, ratings: ratings}
}

// Passes reports whether item satisfies every check in cfg.
func (e *Engine) Passes(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) bool {
	return e.Evaluate(ctx, item, cfg) == CheckPassed
}

// Evaluate runs the checks in order and returns the first that fails.
func (e *Engine) Evaluate(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) Check {
	if check := e.checkRating(ctx, item, cfg); check != CheckPassed {
		return check
	}
	if !languageAllowed(item, cfg) {
		return CheckLanguage
	}
	if genreExcluded(item, cfg) {
		return CheckGenre
	}
	if cfg.MinYear > 0 && item.Year() < cfg.MinYear {
		return CheckYear
	}
	if !e.runtimeAllowed(ctx, item, cfg) {
		return CheckRuntime
	}
	if e.ProviderExcluded(ctx, item, cfg) {
		return CheckProvider
	}
	return CheckPassed
}

type ratingSample struct {
	value float64
	votes int
}

func (s ratingSample) meets(cfg *models.FilterConfig) bool {
	return s.value >= cfg.MinRating && s.votes >= cfg.MinVotes
}

// checkRating applies the missing-rating policy and then the threshold to
// every selected source that has data.
func (e *Engine) checkRating(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) Check {
	source := cfg.EffectiveRatingSource()

	var samples []ratingSample
	if source == models.RatingCatalog || source == models.RatingBoth {
		if item.VoteCount > 0 {
			samples = append(samples, ratingSample{item.VoteAverage, item.VoteCount})
		}
	}
	if source == models.RatingExternal || source == models.RatingBoth {
		if r, ok := e.externalRating(ctx, item); ok {
			samples = append(samples, ratingSample{r.Value, r.Votes})
		}
	}

	if len(samples) == 0 {
		if cfg.IncludeNoRating {
			return CheckPassed
		}
		return CheckMissingRating
	}
	for _, s := range samples {
		if !s.meets(cfg) {
			return CheckRating
		}
	}
	return CheckPassed
}

func (e *Engine) externalRating(ctx context.Context, item *models.CandidateItem) (ratings.Rating, bool) {
	if e.ratings == nil {
		return ratings.Rating{}, false
	}

	imdbID := item.IMDbID
	if imdbID == "" {
		details, err := e.catalog.Details(ctx, item.Kind, item.CatalogID)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Int("catalog_id", item.CatalogID).Msg("Details lookup failed, no external rating")
			return ratings.Rating{}, false
		}
		imdbID = details.IMDbID
	}
	if imdbID == "" {
		return ratings.Rating{}, false
	}

	r, found, err := e.ratings.Lookup(ctx, imdbID)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("imdb_id", imdbID).Msg("External rating lookup failed")
		return ratings.Rating{}, false
	}
	return r, found
}

func languageAllowed(item *models.CandidateItem, cfg *models.FilterConfig) bool {
	if len(cfg.Languages) == 0 {
		return true
	}
	return slices.ContainsFunc(cfg.Languages, func(lang string) bool {
		return strings.EqualFold(lang, item.OriginalLanguage)
	})
}

func genreExcluded(item *models.CandidateItem, cfg *models.FilterConfig) bool {
	return slices.ContainsFunc(cfg.ExcludeGenres, item.HasGenre)
}

// runtimeAllowed looks the runtime up when the listing carries none. An
// unknown runtime passes.
func (e *Engine) runtimeAllowed(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) bool {
	if cfg.MinRuntime <= 0 {
		return true
	}

	runtime := item.Runtime
	if runtime == 0 {
		details, err := e.catalog.Details(ctx, item.Kind, item.CatalogID)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Int("catalog_id", item.CatalogID).Msg("Runtime lookup failed, treating as unknown")
			return true
		}
		runtime = details.Runtime
	}
	return runtime == 0 || runtime >= cfg.MinRuntime
}

// ProviderExcluded reports whether item streams on an excluded provider in
// cfg.Region. A failed lookup does not exclude.
func (e *Engine) ProviderExcluded(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) bool {
	if len(cfg.ExcludeProviders) == 0 || cfg.Region == "" {
		return false
	}

	providers, err := e.catalog.WatchProviders(ctx, item.Kind, item.CatalogID, cfg.Region)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("catalog_id", item.CatalogID).Msg("Watch provider lookup failed")
		return false
	}
	for _, p := range providers {
		if slices.Contains(cfg.ExcludeProviders, p) {
			return true
		}
	}
	return false
}
