// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/filter"
	"github.com/tomtom215/curator/internal/llm"
	"github.com/tomtom215/curator/internal/mediaserver"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
)

var errUpstream = errors.New("upstream unavailable")

func movie(id int, title string) models.CandidateItem {
	return models.CandidateItem{CatalogID: id, Kind: models.MediaMovie, Title: title, VoteAverage: 7.5, VoteCount: 500}
}

func series(id int, title string) models.CandidateItem {
	return models.CandidateItem{CatalogID: id, Kind: models.MediaTV, Title: title, VoteAverage: 8, VoteCount: 900}
}

func released(item models.CandidateItem, year int) models.CandidateItem {
	item.ReleaseDate = time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
	return item
}

// moviePage builds a discover page of n movies with ids starting at first.
func moviePage(page, totalPages, first, n int) *catalog.Page {
	items := make([]models.CandidateItem, n)
	for i := range items {
		id := first + i
		items[i] = movie(id, "Movie "+strconv.Itoa(id))
	}
	return &catalog.Page{Page: page, TotalPages: totalPages, TotalResults: totalPages * n, Items: items}
}

type fakeCatalog struct {
	mu sync.Mutex

	pages       map[int]*catalog.Page
	discoverErr map[int]error
	discovered  []int
	params      []catalog.DiscoverParams

	similar      map[int][]models.CandidateItem
	similarCalls []int

	search   map[string][]models.CandidateItem
	searches []string

	imdb     map[string]int
	resolved []models.ExternalIDs
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		pages:       make(map[int]*catalog.Page),
		discoverErr: make(map[int]error),
		similar:     make(map[int][]models.CandidateItem),
		search:      make(map[string][]models.CandidateItem),
		imdb:        make(map[string]int),
	}
}

func (f *fakeCatalog) Discover(_ context.Context, _ models.MediaKind, p catalog.DiscoverParams) (*catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovered = append(f.discovered, p.Page)
	f.params = append(f.params, p)
	if err := f.discoverErr[p.Page]; err != nil {
		return nil, err
	}
	if page, ok := f.pages[p.Page]; ok {
		return page, nil
	}
	return &catalog.Page{Page: p.Page, TotalPages: p.Page}, nil
}

func (f *fakeCatalog) Similar(_ context.Context, _ models.MediaKind, id, page int) (*catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.similarCalls = append(f.similarCalls, id)
	items, ok := f.similar[id]
	if !ok {
		return nil, errUpstream
	}
	return &catalog.Page{Page: page, TotalPages: 1, Items: items}, nil
}

func (f *fakeCatalog) Search(_ context.Context, _ models.MediaKind, title string, year int) (*catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, title+"|"+strconv.Itoa(year))
	var items []models.CandidateItem
	for _, item := range f.search[strings.ToLower(title)] {
		if year == 0 || item.Year() == year {
			items = append(items, item)
		}
	}
	return &catalog.Page{Page: 1, TotalPages: 1, Items: items}, nil
}

func (f *fakeCatalog) ResolveID(_ context.Context, _ models.MediaKind, ids models.ExternalIDs) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, ids)
	if id, err := strconv.Atoi(ids.TMDB); err == nil {
		return id, nil
	}
	if id, ok := f.imdb[ids.IMDb]; ok {
		return id, nil
	}
	return 0, errUpstream
}

func (f *fakeCatalog) discoverPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.discovered...)
}

// fakeFilter rejects catalog ids listed in reject.
type fakeFilter struct {
	reject   map[int]filter.Check
	excluded map[int]bool
}

func (f *fakeFilter) Evaluate(_ context.Context, item *models.CandidateItem, _ *models.FilterConfig) filter.Check {
	return f.reject[item.CatalogID]
}

func (f *fakeFilter) ProviderExcluded(_ context.Context, item *models.CandidateItem, _ *models.FilterConfig) bool {
	return f.excluded[item.CatalogID]
}

type keySet map[models.ItemKey]bool

func (s keySet) IsFulfilled(_ context.Context, key models.ItemKey) (bool, error) {
	return s[key], nil
}

type fakeSnapshot struct {
	keys       keySet
	refreshErr error
	refreshed  int
}

func (s *fakeSnapshot) EnsureFresh(context.Context) error {
	s.refreshed++
	return s.refreshErr
}

func (s *fakeSnapshot) Keys() map[models.ItemKey]struct{} {
	out := make(map[models.ItemKey]struct{}, len(s.keys))
	for k, ok := range s.keys {
		if ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s *fakeSnapshot) FetchedAt() time.Time { return time.Time{} }

func (s *fakeSnapshot) MaxAge() time.Duration { return 15 * time.Minute }

type admission struct {
	item models.CandidateItem
	meta queue.RequestMeta
	at   time.Time
}

type fakeAdmitter struct {
	mu       sync.Mutex
	admitted []admission
	pending  keySet
	err      error
}

func (a *fakeAdmitter) Request(_ context.Context, item *models.CandidateItem, meta queue.RequestMeta) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return false, a.err
	}
	if a.pending[item.Key()] {
		return false, nil
	}
	a.admitted = append(a.admitted, admission{item: *item, meta: meta, at: time.Now()})
	return true, nil
}

func (a *fakeAdmitter) ids() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]int, len(a.admitted))
	for i, ad := range a.admitted {
		ids[i] = ad.item.CatalogID
	}
	return ids
}

type fakeSource struct {
	name       string
	perUser    bool
	users      []models.MediaUser
	usersErr   error
	history    map[string][]models.WatchedItem
	historyErr map[string]error
	library    []models.LibraryItem
	libraryErr error
	seriesIDs  map[string]models.ExternalIDs

	mu    sync.Mutex
	reads []string
}

var _ mediaserver.Source = (*fakeSource)(nil)

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) SupportsUserHistory() bool { return s.perUser }

func (s *fakeSource) Users(context.Context) ([]models.MediaUser, error) {
	return s.users, s.usersErr
}

func (s *fakeSource) Libraries(context.Context) ([]models.Library, error) {
	return nil, nil
}

func (s *fakeSource) RecentlyWatched(_ context.Context, userID string, limit int) ([]models.WatchedItem, error) {
	s.mu.Lock()
	s.reads = append(s.reads, userID)
	s.mu.Unlock()
	if err := s.historyErr[userID]; err != nil {
		return nil, err
	}
	items := s.history[userID]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *fakeSource) SeriesIDs(_ context.Context, seriesID string) (models.ExternalIDs, error) {
	ids, ok := s.seriesIDs[seriesID]
	if !ok {
		return models.ExternalIDs{}, errUpstream
	}
	return ids, nil
}

func (s *fakeSource) LibraryItems(context.Context) ([]models.LibraryItem, error) {
	return s.library, s.libraryErr
}

func (s *fakeSource) readUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reads...)
}

type fakeLLM struct {
	suggestions []llm.Suggestion
	err         error

	history []llm.HistoryEntry
	kind    models.MediaKind
	count   int
}

func (f *fakeLLM) Recommend(_ context.Context, history []llm.HistoryEntry, kind models.MediaKind, count int) ([]llm.Suggestion, error) {
	f.history, f.kind, f.count = history, kind, count
	return f.suggestions, f.err
}

func episode(id, seriesID, seriesTitle string, seriesIDs models.ExternalIDs) models.WatchedItem {
	return models.WatchedItem{
		ID:          id,
		Type:        models.WatchedEpisode,
		Title:       "Episode " + id,
		SeriesID:    seriesID,
		SeriesTitle: seriesTitle,
		SeriesIDs:   seriesIDs,
	}
}

func watchedMovie(id, title string, tmdb int) models.WatchedItem {
	return models.WatchedItem{
		ID:    id,
		Type:  models.WatchedMovie,
		Title: title,
		IDs:   models.ExternalIDs{TMDB: strconv.Itoa(tmdb)},
	}
}

type harness struct {
	catalog  *fakeCatalog
	filter   *fakeFilter
	done     keySet
	snapshot *fakeSnapshot
	queue    *fakeAdmitter
	sources  []mediaserver.Source
	llm      Recommender
	cfg      config.PipelineConfig
}

func newHarness() *harness {
	return &harness{
		catalog:  newFakeCatalog(),
		filter:   &fakeFilter{reject: map[int]filter.Check{}, excluded: map[int]bool{}},
		done:     keySet{},
		snapshot: &fakeSnapshot{keys: keySet{}},
		queue:    &fakeAdmitter{pending: keySet{}},
	}
}

func (h *harness) pipeline() *Pipeline {
	return New(Deps{
		Catalog:   h.catalog,
		Filter:    h.filter,
		Fulfilled: h.done,
		Snapshot:  h.snapshot,
		Queue:     h.queue,
		Sources:   h.sources,
		LLM:       h.llm,
	}, h.cfg)
}
