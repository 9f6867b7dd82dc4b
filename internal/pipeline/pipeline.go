// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/dedup"
	"github.com/tomtom215/curator/internal/filter"
	"github.com/tomtom215/curator/internal/llm"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/mediaserver"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
)

const (
	defaultMaxResults     = 20
	defaultMaxConcurrency = 4
	defaultHistoryLimit   = 50
	defaultSimilarPerSeed = 20
)

// Catalog is the part of the catalog client the pipeline uses.
type Catalog interface {
	Similar(ctx context.Context, kind models.MediaKind, id, page int) (*catalog.Page, error)
	Discover(ctx context.Context, kind models.MediaKind, p catalog.DiscoverParams) (*catalog.Page, error)
	Search(ctx context.Context, kind models.MediaKind, title string, year int) (*catalog.Page, error)
	ResolveID(ctx context.Context, kind models.MediaKind, ids models.ExternalIDs) (int, error)
}

// Filter evaluates candidates. filter.Engine implements it.
type Filter interface {
	Evaluate(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) filter.Check
	ProviderExcluded(ctx context.Context, item *models.CandidateItem, cfg *models.FilterConfig) bool
}

// Snapshot is the downstream request snapshot. seer.Snapshot implements it.
// Keys must return a copy.
type Snapshot interface {
	EnsureFresh(ctx context.Context) error
	Keys() map[models.ItemKey]struct{}
	FetchedAt() time.Time
	MaxAge() time.Duration
}

// Admitter queues a request. queue.Queue implements it.
type Admitter interface {
	Request(ctx context.Context, item *models.CandidateItem, meta queue.RequestMeta) (bool, error)
}

// Recommender proposes titles from a watch history. llm.Client implements it.
type Recommender interface {
	Recommend(ctx context.Context, history []llm.HistoryEntry, kind models.MediaKind, count int) ([]llm.Suggestion, error)
}

// Deps are the collaborators of a Pipeline. LLM may be nil.
type Deps struct {
	Catalog   Catalog
	Filter    Filter
	Fulfilled dedup.FulfilledLookup
	Snapshot  Snapshot
	Queue     Admitter
	Sources   []mediaserver.Source
	LLM       Recommender
}

// Pipeline runs discover and recommendation jobs.
type Pipeline struct {
	Deps
	maxConcurrency int
	historyLimit   int
	similarPerSeed int
	llmSuggestions int

	admitMu sync.Mutex
	limiter *rate.Limiter
}

// New creates a pipeline.
func New(deps Deps, cfg config.PipelineConfig) *Pipeline {
	p := &Pipeline{
		Deps:           deps,
		maxConcurrency: cfg.MaxConcurrency,
		historyLimit:   cfg.HistoryLimit,
		similarPerSeed: cfg.MaxSimilarPerSeed,
		llmSuggestions: cfg.LLMSuggestions,
	}
	if p.maxConcurrency <= 0 {
		p.maxConcurrency = defaultMaxConcurrency
	}
	if p.historyLimit <= 0 {
		p.historyLimit = defaultHistoryLimit
	}
	if p.similarPerSeed <= 0 {
		p.similarPerSeed = defaultSimilarPerSeed
	}
	if cfg.SubmissionDelay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(cfg.SubmissionDelay), 1)
	}
	return p
}

// verdict is the outcome of evaluating one candidate.
type verdict struct {
	check filter.Check
	skip  models.SkipReason
}

func (v verdict) qualifies() bool {
	return v.check == filter.CheckPassed && v.skip == models.SkipNone
}

func (v verdict) outcome() string {
	switch {
	case v.check != filter.CheckPassed:
		return "filtered_" + string(v.check)
	case v.skip != models.SkipNone:
		return string(v.skip)
	default:
		return "qualified"
	}
}

// run holds the state prepared once per execution.
type run struct {
	job     *models.JobDefinition
	checker *dedup.Checker
	cap     int
	seen    map[models.ItemKey]struct{}
	taken   int
}

// prepare refreshes the request snapshot if stale, copies its keys for this
// run and builds the library index. Failures degrade dedup coverage but
// never abort the run.
func (p *Pipeline) prepare(ctx context.Context, job *models.JobDefinition) *run {
	logger := logging.Ctx(ctx)

	var snapshot dedup.RequestSnapshot
	if p.Snapshot != nil {
		if err := p.Snapshot.EnsureFresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("Request snapshot refresh failed, using previous contents")
		}
		requested := dedup.RequestSet(p.Snapshot.Keys())
		snapshot = requested

		event := logger.Info().
			Int("requests", len(requested)).
			Dur("max_age", p.Snapshot.MaxAge())
		if fetched := p.Snapshot.FetchedAt(); !fetched.IsZero() {
			event = event.Time("fetched_at", fetched)
		}
		event.Msg("Request snapshot taken for run")
	}

	librarySources := make([]dedup.LibrarySource, len(p.Sources))
	for i, src := range p.Sources {
		librarySources[i] = src
	}
	library := dedup.BuildLibraryIndex(ctx, librarySources)
	if failed := library.Failed(); len(failed) > 0 {
		logger.Warn().
			Strs("failed_sources", failed).
			Int("items", library.Len()).
			Time("built_at", library.BuiltAt()).
			Msg("Library index is partial for this run")
	}

	var providers dedup.ProviderFilter
	if p.Filter != nil {
		providers = p.Filter
	}

	limit := job.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	return &run{
		job:     job,
		checker: dedup.NewChecker(p.Fulfilled, library, snapshot, providers),
		cap:     limit,
		seen:    make(map[models.ItemKey]struct{}),
	}
}

// evaluate runs the filter and dedup checks for one candidate. It has no
// side effects besides cached lookups.
func (p *Pipeline) evaluate(ctx context.Context, r *run, item *models.CandidateItem) verdict {
	if ctx.Err() != nil {
		return verdict{skip: models.SkipFiltered}
	}
	if check := p.Filter.Evaluate(ctx, item, &r.job.Filters); check != filter.CheckPassed {
		return verdict{check: check}
	}
	if skip, reason := r.checker.ShouldSkip(ctx, item, &r.job.Filters); skip {
		return verdict{skip: reason}
	}
	return verdict{}
}

// evaluateAll evaluates items concurrently and returns verdicts in input order.
func (p *Pipeline) evaluateAll(ctx context.Context, r *run, items []models.CandidateItem) []verdict {
	verdicts := make([]verdict, len(items))
	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)
	for i := range items {
		g.Go(func() error {
			verdicts[i] = p.evaluate(ctx, r, &items[i])
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}

// take records an evaluated candidate in run order. It reports whether the
// item counts towards the result and whether the cap is now reached.
func (r *run) take(item *models.CandidateItem, v verdict) (ok, full bool) {
	if r.taken >= r.cap {
		return false, true
	}
	metrics.RecordCandidate(string(r.job.JobType), v.outcome())
	if !v.qualifies() {
		return false, false
	}
	key := item.Key()
	if _, dup := r.seen[key]; dup {
		return false, false
	}
	r.seen[key] = struct{}{}
	r.taken++
	return true, r.taken >= r.cap
}

// admit queues one qualifying item. Admissions are serialized and spaced by
// the configured submission delay.
func (p *Pipeline) admit(ctx context.Context, job *models.JobDefinition, item *models.CandidateItem, meta queue.RequestMeta) bool {
	p.admitMu.Lock()
	defer p.admitMu.Unlock()

	logger := logging.Ctx(ctx).With().Str("item", item.Key().String()).Str("title", item.Title).Logger()
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Msg("Admission cancelled")
			return false
		}
	}

	meta.JobID = job.ID
	queued, err := p.Queue.Request(ctx, item, meta)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to queue request")
		metrics.RecordCandidate(string(job.JobType), "queue_error")
		return false
	case !queued:
		metrics.RecordCandidate(string(job.JobType), string(models.SkipPendingQueued))
		return false
	default:
		metrics.RecordCandidate(string(job.JobType), "requested")
		logger.Info().Msg("Candidate queued for request")
		return true
	}
}
