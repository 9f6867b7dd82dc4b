// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/mediaserver"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
)

// ErrNoHistorySource is returned when no media server could be read.
var ErrNoHistorySource = errors.New("no media server history available")

// target is one history to read: a user on a server, or the server-wide
// history when the server cannot scope history per user.
type target struct {
	source mediaserver.Source
	user   *models.MediaUser
}

func (t target) userID() string {
	if t.user == nil {
		return ""
	}
	return t.user.ID
}

// watched is a history entry with the target it came from.
type watched struct {
	item   models.WatchedItem
	target target
}

func (w *watched) kind() models.MediaKind {
	if w.item.Type == models.WatchedEpisode {
		return models.MediaTV
	}
	return models.MediaMovie
}

// seed is a watched title resolved to its catalog identity.
type seed struct {
	watched
	key models.ItemKey
}

func (s *seed) source() *models.SourceRef {
	return &models.SourceRef{CatalogID: s.key.CatalogID, Title: s.item.SeedTitle()}
}

func userSelected(ids []string, u *models.MediaUser) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == u.ID || strings.EqualFold(id, u.Name) {
			return true
		}
	}
	return false
}

// targets lists the histories a job reads.
func (p *Pipeline) targets(ctx context.Context, job *models.JobDefinition) ([]target, error) {
	logger := logging.Ctx(ctx)
	var out []target
	failed := 0
	for _, src := range p.Sources {
		if !src.SupportsUserHistory() {
			out = append(out, target{source: src})
			continue
		}
		users, err := src.Users(ctx)
		if err != nil {
			failed++
			logger.Warn().Err(err).Str("server", src.Name()).Msg("Failed to list media server users")
			continue
		}
		for i := range users {
			if userSelected(job.UserIDs, &users[i]) {
				out = append(out, target{source: src, user: &users[i]})
			}
		}
	}
	if len(p.Sources) == 0 || (failed == len(p.Sources)) {
		return nil, ErrNoHistorySource
	}
	return out, nil
}

// history reads every target concurrently. Episodes of one series and repeat
// watches collapse to the first (most recent) entry. Entries outside the
// job's media kind are dropped.
func (p *Pipeline) history(ctx context.Context, job *models.JobDefinition, targets []target) ([]watched, error) {
	perTarget := make([][]models.WatchedItem, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)
	for i, t := range targets {
		g.Go(func() error {
			perTarget[i], errs[i] = t.source.RecentlyWatched(ctx, t.userID(), p.historyLimit)
			return nil
		})
	}
	_ = g.Wait()

	logger := logging.Ctx(ctx)
	failed := 0
	seen := make(map[string]struct{})
	var out []watched
	for i, t := range targets {
		if errs[i] != nil {
			failed++
			logger.Warn().Err(errs[i]).Str("server", t.source.Name()).Str("user_id", t.userID()).Msg("Failed to read watch history")
			continue
		}
		for _, item := range perTarget[i] {
			w := watched{item: item, target: t}
			if !job.MediaKind.Includes(w.kind()) {
				continue
			}
			key := t.source.Name() + "|" + item.SeedKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, w)
		}
	}
	if len(targets) > 0 && failed == len(targets) {
		return nil, fmt.Errorf("%w: every history read failed", ErrNoHistorySource)
	}
	return out, nil
}

// resolve finds the catalog id of a watched title. Episodes resolve to their
// series, fetching series ids from the server when the entry lacks them.
func (p *Pipeline) resolve(ctx context.Context, w *watched) (models.ItemKey, bool) {
	kind := w.kind()
	ids := w.item.IDs
	if kind == models.MediaTV {
		ids = w.item.SeriesIDs
		if ids.Empty() && w.item.SeriesID != "" {
			var err error
			ids, err = w.target.source.SeriesIDs(ctx, w.item.SeriesID)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("series_id", w.item.SeriesID).Msg("Failed to fetch series ids")
				return models.ItemKey{}, false
			}
		}
	}
	if ids.Empty() {
		return models.ItemKey{}, false
	}
	id, err := p.Catalog.ResolveID(ctx, kind, ids)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("title", w.item.SeedTitle()).Msg("Failed to resolve watched title")
		return models.ItemKey{}, false
	}
	return models.ItemKey{Kind: kind, CatalogID: id}, true
}

// seeds resolves history entries concurrently and returns the distinct
// catalog titles in history order. A series watched on two servers, or by
// two users, is expanded once.
func (p *Pipeline) seeds(ctx context.Context, history []watched) []seed {
	keys := make([]models.ItemKey, len(history))
	ok := make([]bool, len(history))

	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)
	for i := range history {
		g.Go(func() error {
			keys[i], ok[i] = p.resolve(ctx, &history[i])
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[models.ItemKey]struct{})
	out := make([]seed, 0, len(history))
	for i := range history {
		if !ok[i] {
			continue
		}
		if _, dup := seen[keys[i]]; dup {
			continue
		}
		seen[keys[i]] = struct{}{}
		out = append(out, seed{watched: history[i], key: keys[i]})
	}
	return out
}

// candidate is an evaluated suggestion with its attribution.
type candidate struct {
	item      models.CandidateItem
	verdict   verdict
	source    *models.SourceRef
	requester *models.MediaUser
	rationale string
}

// RunRecommendation executes a recommendation job.
func (p *Pipeline) RunRecommendation(ctx context.Context, job *models.JobDefinition) (models.ExecutionResult, error) {
	var result models.ExecutionResult
	logger := logging.Ctx(ctx)

	targets, err := p.targets(ctx, job)
	if err != nil {
		return result, err
	}
	history, err := p.history(ctx, job, targets)
	if err != nil {
		return result, err
	}
	if len(history) == 0 {
		logger.Info().Int("targets", len(targets)).Msg("No watch history to expand")
		return result, nil
	}

	r := p.prepare(ctx, job)

	var candidates []candidate
	if job.UseLLM && p.LLM != nil {
		candidates, err = p.llmCandidates(ctx, r, history, targets)
		if err != nil {
			return result, err
		}
	} else {
		if job.UseLLM {
			logger.Warn().Msg("Job requests the language model but none is configured, using similar titles")
		}
		candidates = p.similarCandidates(ctx, r, p.seeds(ctx, history))
	}

	start := time.Now()
	for i := range candidates {
		c := &candidates[i]
		ok, full := r.take(&c.item, c.verdict)
		if ok {
			result.ResultsCount++
			meta := queue.RequestMeta{Source: c.source, Requester: c.requester, Rationale: c.rationale}
			if p.admit(ctx, job, &c.item, meta) {
				result.RequestedCount++
			}
		}
		if full {
			break
		}
	}
	logger.Debug().
		Int("history", len(history)).
		Int("candidates", len(candidates)).
		Dur("admission", time.Since(start)).
		Msg("Recommendation candidates processed")
	return result, nil
}

// similarCandidates expands each seed through the catalog's similar titles.
// Seeds are expanded concurrently; the result keeps seed order, then the
// catalog's order within a seed.
func (p *Pipeline) similarCandidates(ctx context.Context, r *run, seeds []seed) []candidate {
	perSeed := make([][]candidate, len(seeds))

	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)
	for i := range seeds {
		s := &seeds[i]
		g.Go(func() error {
			page, err := p.Catalog.Similar(ctx, s.key.Kind, s.key.CatalogID, 1)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("seed", s.key.String()).Msg("Failed to fetch similar titles")
				return nil
			}
			items := page.Items
			if len(items) > p.similarPerSeed {
				items = items[:p.similarPerSeed]
			}
			out := make([]candidate, 0, len(items))
			for j := range items {
				out = append(out, candidate{
					item:      items[j],
					verdict:   p.evaluate(ctx, r, &items[j]),
					source:    s.source(),
					requester: s.target.user,
				})
			}
			perSeed[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var all []candidate
	for _, cs := range perSeed {
		all = append(all, cs...)
	}
	return all
}

// lockedSeeds resolves matched seeds at most once when suggestions are
// evaluated concurrently.
type lockedSeeds struct {
	mu       sync.Mutex
	resolved map[int]seedResult
}

type seedResult struct {
	key models.ItemKey
	ok  bool
}

func (l *lockedSeeds) resolve(ctx context.Context, p *Pipeline, idx int, w *watched) (models.ItemKey, bool) {
	l.mu.Lock()
	if res, done := l.resolved[idx]; done {
		l.mu.Unlock()
		return res.key, res.ok
	}
	l.mu.Unlock()

	key, ok := p.resolve(ctx, w)

	l.mu.Lock()
	l.resolved[idx] = seedResult{key: key, ok: ok}
	l.mu.Unlock()
	return key, ok
}
