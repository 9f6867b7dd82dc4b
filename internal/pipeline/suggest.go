// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/curator/internal/llm"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
)

// normalizeTitle lowercases a title and reduces it to letters, digits and
// single spaces.
func normalizeTitle(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "&", " and ")
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case !space && b.Len() > 0:
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// titleDistance is the fuzzy distance between two normalized titles, trying
// each as the subsequence of the other. It returns -1 when neither matches
// or the titles differ by more than half the longer one.
func titleDistance(a, b string) int {
	if a == "" || b == "" {
		return -1
	}
	d := fuzzy.RankMatchNormalizedFold(a, b)
	if d < 0 {
		d = fuzzy.RankMatchNormalizedFold(b, a)
	}
	if d < 0 {
		return -1
	}
	longer := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if d > longer/2 {
		return -1
	}
	return d
}

// bestMatch picks the search result closest to title, preferring results
// released within a year of year.
func bestMatch(title string, year int, items []models.CandidateItem) (models.CandidateItem, bool) {
	want := normalizeTitle(title)
	best, bestScore := -1, 0
	for i := range items {
		d := titleDistance(want, normalizeTitle(items[i].Title))
		if d < 0 && items[i].OriginalTitle != "" {
			d = titleDistance(want, normalizeTitle(items[i].OriginalTitle))
		}
		if d < 0 {
			continue
		}
		score := d
		if y := items[i].Year(); year > 0 && y > 0 {
			diff := y - year
			if diff < 0 {
				diff = -diff
			}
			if diff > 1 {
				score += 100
			} else {
				score += diff
			}
		}
		if best < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return models.CandidateItem{}, false
	}
	return items[best], true
}

// matchSource finds the history entry a suggestion claims as its source.
// It returns -1 when the claimed title matches nothing actually watched.
func matchSource(sourceTitle string, titles []string) int {
	want := normalizeTitle(sourceTitle)
	best, bestDist := -1, 0
	for i, t := range titles {
		d := titleDistance(want, t)
		if d < 0 {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func suggestionKinds(jobKind, suggested models.MediaKind) []models.MediaKind {
	if jobKind.Valid() {
		return []models.MediaKind{jobKind}
	}
	if suggested.Valid() {
		return []models.MediaKind{suggested}
	}
	return []models.MediaKind{models.MediaMovie, models.MediaTV}
}

// resolveSuggestion searches the catalog for a suggested title. A search
// restricted to the suggested year that finds nothing is retried without it.
func (p *Pipeline) resolveSuggestion(ctx context.Context, job *models.JobDefinition, s *llm.Suggestion) (models.CandidateItem, bool) {
	for _, kind := range suggestionKinds(job.MediaKind, s.MediaType) {
		years := []int{s.Year}
		if s.Year > 0 {
			years = append(years, 0)
		}
		for _, year := range years {
			page, err := p.Catalog.Search(ctx, kind, s.Title, year)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("title", s.Title).Msg("Catalog search failed")
				break
			}
			if item, ok := bestMatch(s.Title, s.Year, page.Items); ok {
				return item, true
			}
		}
	}
	return models.CandidateItem{}, false
}

// llmCandidates asks the language model for titles based on the history,
// resolves each suggestion in the catalog and attributes it to the watched
// title it names. A suggestion whose source cannot be matched keeps the item
// but loses the source.
func (p *Pipeline) llmCandidates(ctx context.Context, r *run, history []watched, targets []target) ([]candidate, error) {
	entries := make([]llm.HistoryEntry, 0, len(history))
	titles := make([]string, len(history))
	listed := make(map[string]struct{})
	for i := range history {
		w := &history[i]
		titles[i] = normalizeTitle(w.item.SeedTitle())
		if _, dup := listed[titles[i]]; dup {
			continue
		}
		listed[titles[i]] = struct{}{}
		entries = append(entries, llm.HistoryEntry{Title: w.item.SeedTitle(), Year: w.item.Year, Kind: w.kind()})
	}

	count := p.llmSuggestions
	if count <= 0 {
		count = r.cap * 2
	}
	suggestions, err := p.LLM.Recommend(ctx, entries, r.job.MediaKind, count)
	if err != nil {
		return nil, fmt.Errorf("language model recommendations: %w", err)
	}

	var single *models.MediaUser
	if len(targets) == 1 {
		single = targets[0].user
	}
	sources := &lockedSeeds{resolved: make(map[int]seedResult)}
	out := make([]candidate, len(suggestions))
	found := make([]bool, len(suggestions))

	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)
	for i := range suggestions {
		s := &suggestions[i]
		g.Go(func() error {
			item, ok := p.resolveSuggestion(ctx, r.job, s)
			if !ok {
				logging.Ctx(ctx).Debug().Str("title", s.Title).Int("year", s.Year).Msg("Suggestion not found in catalog")
				return nil
			}
			c := candidate{item: item, requester: single, rationale: s.Rationale}
			if idx := matchSource(s.SourceTitle, titles); idx >= 0 {
				w := &history[idx]
				c.requester = w.target.user
				c.source = &models.SourceRef{Title: w.item.SeedTitle()}
				if key, ok := sources.resolve(ctx, p, idx, w); ok {
					c.source.CatalogID = key.CatalogID
				}
			}
			c.verdict = p.evaluate(ctx, r, &c.item)
			out[i], found[i] = c, true
			return nil
		})
	}
	_ = g.Wait()

	resolved := out[:0]
	for i := range out {
		if found[i] {
			resolved = append(resolved, out[i])
		}
	}
	logging.Ctx(ctx).Debug().Int("suggested", len(suggestions)).Int("resolved", len(resolved)).Msg("Language model suggestions resolved")
	return resolved, nil
}
