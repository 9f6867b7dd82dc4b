// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"time"

	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
	"github.com/tomtom215/curator/internal/seer"
)

// JobService is the job management surface. *jobs.Service implements it.
type JobService interface {
	Create(ctx context.Context, job *models.JobDefinition) (*models.JobDefinition, error)
	Get(ctx context.Context, id int64) (*models.JobDefinition, error)
	List(ctx context.Context) ([]models.JobDefinition, error)
	Update(ctx context.Context, id int64, job *models.JobDefinition) (*models.JobDefinition, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64, enabled bool) (*models.JobDefinition, error)
	RunNow(ctx context.Context, id int64) (models.ExecutionResult, error)
	Running(id int64) bool
	NextRun(id int64) (time.Time, bool)
	History(ctx context.Context, id int64, limit int) ([]models.ExecutionHistory, error)
}

// QueueInspector reads the request queue. *queue.Queue implements it.
type QueueInspector interface {
	Stats(ctx context.Context) (models.QueueStats, error)
	List(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.PendingRequest, error)
	Get(ctx context.Context, id int64) (*models.PendingRequest, error)
}

// Drainer runs one drain cycle on demand. *queue.Drainer implements it.
type Drainer interface {
	Drain(ctx context.Context) (queue.DrainReport, error)
}

// FulfilledLister lists the canonical fulfilled requests.
type FulfilledLister interface {
	ListFulfilled(ctx context.Context, limit, offset int) ([]models.FulfilledRequest, error)
}

// CatalogLookup serves the catalog reference lists used when writing job
// filters. *catalog.Client implements it.
type CatalogLookup interface {
	Genres(ctx context.Context, kind models.MediaKind) ([]catalog.Genre, error)
	Languages(ctx context.Context) ([]catalog.Language, error)
	Regions(ctx context.Context) ([]catalog.Region, error)
	ProviderList(ctx context.Context, kind models.MediaKind, region string) ([]catalog.Provider, error)
}

// RequestCounter reports request totals on the request manager. *seer.Client implements it.
type RequestCounter interface {
	CountRequests(ctx context.Context) (*seer.RequestCounts, error)
}

// LibraryLister lists the libraries of one media server. mediaserver.Source implements it.
type LibraryLister interface {
	Name() string
	Libraries(ctx context.Context) ([]models.Library, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the ops API.
type Handler struct {
	jobs      JobService
	queue     QueueInspector
	drainer   Drainer
	fulfilled FulfilledLister
	db        Pinger
	catalog   CatalogLookup
	seer      RequestCounter
	sources   []LibraryLister

	version   string
	startTime time.Time
}

// HandlerDeps groups the Handler collaborators.
type HandlerDeps struct {
	Jobs      JobService
	Queue     QueueInspector
	Drainer   Drainer
	Fulfilled FulfilledLister
	DB        Pinger
	Catalog   CatalogLookup
	Seer      RequestCounter
	Sources   []LibraryLister
	Version   string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		jobs:      deps.Jobs,
		queue:     deps.Queue,
		drainer:   deps.Drainer,
		fulfilled: deps.Fulfilled,
		db:        deps.DB,
		catalog:   deps.Catalog,
		seer:      deps.Seer,
		sources:   deps.Sources,
		version:   deps.Version,
		startTime: time.Now(),
	}
}
