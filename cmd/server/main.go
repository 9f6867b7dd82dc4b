// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/curator/internal/api"
	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/database"
	"github.com/tomtom215/curator/internal/dedup"
	"github.com/tomtom215/curator/internal/filter"
	"github.com/tomtom215/curator/internal/jobs"
	"github.com/tomtom215/curator/internal/llm"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/mediaserver"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/pipeline"
	"github.com/tomtom215/curator/internal/queue"
	"github.com/tomtom215/curator/internal/ratings"
	"github.com/tomtom215/curator/internal/seer"
	"github.com/tomtom215/curator/internal/supervisor"
	"github.com/tomtom215/curator/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cachePruneInterval is how often expired metadata cache rows are removed.
const cachePruneInterval = time.Hour

// Compile-time wiring checks.
var (
	_ queue.Submitter       = (*seer.Client)(nil)
	_ seer.Lister           = (*seer.Client)(nil)
	_ pipeline.Catalog      = (*catalog.Client)(nil)
	_ filter.RatingLookup   = (*ratings.Client)(nil)
	_ pipeline.Recommender  = (*llm.Client)(nil)
	_ pipeline.Admitter     = (*queue.Queue)(nil)
	_ services.Drainer      = (*queue.Drainer)(nil)
	_ services.Pruner       = (*database.MetadataStore)(nil)
	_ api.FulfilledLister   = (*database.RequestStore)(nil)
	_ api.Pinger            = (*database.DB)(nil)
	_ api.CatalogLookup     = (*catalog.Client)(nil)
	_ api.RequestCounter    = (*seer.Client)(nil)
	_ dedup.FulfilledLookup = (*database.RequestStore)(nil)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Curator with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("seer_url", cfg.Seer.URL).
		Bool("ratings_enabled", cfg.Ratings.Enabled).
		Bool("llm_enabled", cfg.LLM.Enabled).
		Msg("Configuration loaded")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Curator stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // Sequential startup wiring
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Executions left running by a previous process can never finish.
	if n, err := db.Executions().FailInterrupted(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to mark interrupted executions")
	} else if n > 0 {
		logging.Warn().Int("count", n).Msg("Marked interrupted executions as failed")
	}

	// Upstream clients.
	catalogClient := catalog.New(cfg.Catalog, cfg.Upstream, db.Metadata())
	seerClient := seer.New(cfg.Seer, cfg.Upstream)
	snapshot := seer.NewSnapshot(seerClient, cfg.Seer.PageSize, cfg.Seer.SnapshotMaxAge)

	var ratingLookup filter.RatingLookup
	if cfg.Ratings.Enabled {
		ratingLookup = ratings.New(cfg.Ratings, cfg.Upstream, db.Metadata())
		logging.Info().Msg("Secondary rating source enabled")
	}

	var recommender pipeline.Recommender
	if cfg.LLM.Enabled {
		recommender = llm.New(cfg.LLM, cfg.Upstream)
		logging.Info().Str("model", cfg.LLM.Model).Msg("LLM recommender enabled")
	}

	sources := mediaserver.FromConfig(cfg)
	for _, src := range sources {
		logging.Info().Str("source", src.Name()).Msg("Media server configured")
	}
	if len(sources) == 0 {
		logging.Warn().Msg("No media servers configured; recommendation jobs will find no history")
	}

	// Request queue.
	requestQueue := queue.New(db.Queue(), db.Requests(), cfg.Queue.SeasonMode)
	if err := requestQueue.Load(ctx); err != nil {
		return err
	}
	drainer := queue.NewDrainer(db.Queue(), db.Requests(), seerClient, cfg.Queue,
		queue.WithSubmissionDelay(cfg.Pipeline.SubmissionDelay),
		queue.WithQueue(requestQueue),
		queue.WithOnSubmitted(snapshot.Add),
	)

	// Jobs.
	pipe := pipeline.New(pipeline.Deps{
		Catalog:   catalogClient,
		Filter:    filter.New(catalogClient, ratingLookup),
		Fulfilled: db.Requests(),
		Snapshot:  snapshot,
		Queue:     requestQueue,
		Sources:   sources,
		LLM:       recommender,
	}, cfg.Pipeline)

	registry, err := jobs.NewRegistry(map[models.JobType]jobs.Executor{
		models.JobTypeDiscover:       jobs.ExecutorFunc(pipe.RunDiscover),
		models.JobTypeRecommendation: jobs.ExecutorFunc(pipe.RunRecommendation),
	})
	if err != nil {
		return err
	}

	jobService := jobs.NewService(db.Jobs(), db.Executions(), registry, cfg.Scheduler)
	defer jobService.Close()

	if legacy, err := jobService.MigrateLegacy(ctx, cfg.Legacy); err != nil {
		logging.Error().Err(err).Msg("Failed to migrate legacy recommendation job")
	} else if legacy != nil {
		logging.Info().Int64("job_id", legacy.ID).Msg("Legacy recommendation job present")
	}
	if _, err := jobService.Bootstrap(ctx); err != nil {
		return err
	}

	// Supervisor tree.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}

	tree.AddDataService(services.NewDrainService(drainer, cfg.Queue.DrainInterval))
	tree.AddDataService(services.NewCachePruneService(db.Metadata(), cachePruneInterval))
	tree.AddSchedulingService(jobService.Scheduler())

	libraryListers := make([]api.LibraryLister, len(sources))
	for i, src := range sources {
		libraryListers[i] = src
	}
	handler := api.NewHandler(api.HandlerDeps{
		Jobs:      jobService,
		Queue:     requestQueue,
		Drainer:   drainer,
		Fulfilled: db.Requests(),
		DB:        db,
		Catalog:   catalogClient,
		Seer:      seerClient,
		Sources:   libraryListers,
		Version:   version,
	})
	mw := api.NewMiddleware(api.MiddlewareConfigFromServer(cfg.Server))
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel delivers exactly one result and is never closed.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		stop()
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}
