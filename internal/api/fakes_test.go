// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/jobs"
	"github.com/tomtom215/curator/internal/mediaserver"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
	"github.com/tomtom215/curator/internal/seer"
)

var errStorage = errors.New("database is locked")

// fakeJobs is an in-memory JobService.
type fakeJobs struct {
	mu      sync.Mutex
	jobs    map[int64]*models.JobDefinition
	nextID  int64
	running map[int64]bool
	next    map[int64]time.Time
	history map[int64][]models.ExecutionHistory

	runResult models.ExecutionResult
	runErr    error
	listErr   error
	toggled   []bool
	limits    []int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		jobs:    map[int64]*models.JobDefinition{},
		nextID:  1,
		running: map[int64]bool{},
		next:    map[int64]time.Time{},
		history: map[int64][]models.ExecutionHistory{},
	}
}

func (f *fakeJobs) add(job models.JobDefinition) *models.JobDefinition {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.ID = f.nextID
	f.nextID++
	f.jobs[job.ID] = &job
	return &job
}

func (f *fakeJobs) Create(_ context.Context, job *models.JobDefinition) (*models.JobDefinition, error) {
	if job.Name == "" {
		return nil, models.NewValidationError("name is required")
	}
	return f.add(*job), nil
}

func (f *fakeJobs) Get(_ context.Context, id int64) (*models.JobDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *job
	return &c, nil
}

func (f *fakeJobs) List(context.Context) ([]models.JobDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.JobDefinition, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeJobs) Update(ctx context.Context, id int64, job *models.JobDefinition) (*models.JobDefinition, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job.ID = id
	c := *job
	f.jobs[id] = &c
	return job, nil
}

func (f *fakeJobs) Delete(ctx context.Context, id int64) error {
	job, err := f.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.IsSystem {
		return models.ErrSystemJob
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	return nil
}

func (f *fakeJobs) Toggle(ctx context.Context, id int64, enabled bool) (*models.JobDefinition, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, enabled)
	f.jobs[id].Enabled = enabled
	c := *f.jobs[id]
	return &c, nil
}

func (f *fakeJobs) RunNow(ctx context.Context, id int64) (models.ExecutionResult, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return models.ExecutionResult{ErrorMessage: err.Error()}, err
	}
	return f.runResult, f.runErr
}

func (f *fakeJobs) Running(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[id]
}

func (f *fakeJobs) NextRun(id int64) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.next[id]
	return t, ok
}

func (f *fakeJobs) History(ctx context.Context, id int64, limit int) ([]models.ExecutionHistory, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	return f.history[id], nil
}

// fakeQueue serves fixed rows.
type fakeQueue struct {
	rows     []models.PendingRequest
	stats    models.QueueStats
	statsErr error
	listed   []models.RequestStatus
}

func (q *fakeQueue) Stats(context.Context) (models.QueueStats, error) {
	return q.stats, q.statsErr
}

func (q *fakeQueue) List(_ context.Context, status models.RequestStatus, limit, offset int) ([]models.PendingRequest, error) {
	q.listed = append(q.listed, status)
	var out []models.PendingRequest
	for _, row := range q.rows {
		if status == "" || row.Status == status {
			out = append(out, row)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *fakeQueue) Get(_ context.Context, id int64) (*models.PendingRequest, error) {
	for i := range q.rows {
		if q.rows[i].ID == id {
			return &q.rows[i], nil
		}
	}
	return nil, models.ErrNotFound
}

type fakeDrainer struct {
	report queue.DrainReport
	err    error
	calls  int
}

func (d *fakeDrainer) Drain(context.Context) (queue.DrainReport, error) {
	d.calls++
	return d.report, d.err
}

type fakeFulfilled struct {
	rows []models.FulfilledRequest
	args [][2]int
}

func (f *fakeFulfilled) ListFulfilled(_ context.Context, limit, offset int) ([]models.FulfilledRequest, error) {
	f.args = append(f.args, [2]int{limit, offset})
	return f.rows, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// fakeCatalog serves fixed reference lists and records the arguments it saw.
type fakeCatalog struct {
	genres    map[models.MediaKind][]catalog.Genre
	languages []catalog.Language
	regions   []catalog.Region
	providers map[string][]catalog.Provider
	err       error

	kinds   []models.MediaKind
	regionQ []string
}

func (c *fakeCatalog) Genres(_ context.Context, kind models.MediaKind) ([]catalog.Genre, error) {
	c.kinds = append(c.kinds, kind)
	return c.genres[kind], c.err
}

func (c *fakeCatalog) Languages(context.Context) ([]catalog.Language, error) {
	return c.languages, c.err
}

func (c *fakeCatalog) Regions(context.Context) ([]catalog.Region, error) {
	return c.regions, c.err
}

func (c *fakeCatalog) ProviderList(_ context.Context, kind models.MediaKind, region string) ([]catalog.Provider, error) {
	c.kinds = append(c.kinds, kind)
	c.regionQ = append(c.regionQ, region)
	return c.providers[region], c.err
}

type fakeCounter struct {
	counts seer.RequestCounts
	err    error
}

func (c *fakeCounter) CountRequests(context.Context) (*seer.RequestCounts, error) {
	if c.err != nil {
		return nil, c.err
	}
	counts := c.counts
	return &counts, nil
}

type fakeLibraries struct {
	name string
	libs []models.Library
	err  error
}

func (f *fakeLibraries) Name() string { return f.name }

func (f *fakeLibraries) Libraries(context.Context) ([]models.Library, error) {
	return f.libs, f.err
}

// testAPI bundles the fakes behind a real router.
type testAPI struct {
	jobs      *fakeJobs
	queue     *fakeQueue
	drainer   *fakeDrainer
	fulfilled *fakeFulfilled
	catalog   *fakeCatalog
	seer      *fakeCounter
	sources   []LibraryLister
	router    http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	a := &testAPI{
		jobs:      newFakeJobs(),
		queue:     &fakeQueue{},
		drainer:   &fakeDrainer{},
		fulfilled: &fakeFulfilled{},
		catalog:   &fakeCatalog{},
		seer:      &fakeCounter{},
	}
	a.build()
	return a
}

// build wires the current fakes into a fresh router. Tests that replace
// sources call it again.
func (a *testAPI) build() {
	h := NewHandler(HandlerDeps{
		Jobs:      a.jobs,
		Queue:     a.queue,
		Drainer:   a.drainer,
		Fulfilled: a.fulfilled,
		DB:        fakePinger{},
		Catalog:   a.catalog,
		Seer:      a.seer,
		Sources:   a.sources,
		Version:   "test",
	})
	a.router = NewRouter(h, NewMiddleware(&MiddlewareConfig{RateLimitDisabled: true}))
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// envelope mirrors models.APIResponse with a raw data field.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int) envelope {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body: %s", err, w.Body.String())
	}
	if env.Metadata.Timestamp.IsZero() {
		t.Error("metadata.timestamp missing")
	}
	return env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v; data: %s", err, env.Data)
	}
}

func sampleJob(name string) models.JobDefinition {
	return models.JobDefinition{
		Name:          name,
		JobType:       models.JobTypeDiscover,
		MediaKind:     models.MediaMovie,
		ScheduleType:  models.SchedulePreset,
		ScheduleValue: "daily",
		MaxResults:    20,
		Enabled:       true,
	}
}

var _ JobService = (*jobs.Service)(nil)
var _ QueueInspector = (*queue.Queue)(nil)
var _ Drainer = (*queue.Drainer)(nil)
var _ CatalogLookup = (*catalog.Client)(nil)
var _ RequestCounter = (*seer.Client)(nil)
var _ LibraryLister = (mediaserver.Source)(nil)
