// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/validation"
)

// Store persists job definitions.
type Store interface {
	CreateJob(ctx context.Context, job *models.JobDefinition) error
	GetJob(ctx context.Context, id int64) (*models.JobDefinition, error)
	ListJobs(ctx context.Context) ([]models.JobDefinition, error)
	UpdateJob(ctx context.Context, job *models.JobDefinition) error
	DeleteJob(ctx context.Context, id int64) error
	SetJobEnabled(ctx context.Context, id int64, enabled bool) error
	// SystemJob returns the is_system job, or models.ErrNotFound.
	SystemJob(ctx context.Context) (*models.JobDefinition, error)
}

const (
	defaultExecutionTimeout = 30 * time.Minute
	defaultHistoryLimit     = 20
	maxHistoryLimit         = 500

	legacyJobName    = "Legacy recommendations"
	legacyDefaultCap = 20
)

// Service manages job definitions and connects them to the scheduler and runner.
type Service struct {
	store      Store
	executions ExecutionStore
	registry   *Registry
	runner     *Runner
	scheduler  *Scheduler
	timeout    time.Duration
	now        func() time.Time

	// base is the parent of every scheduled execution context; it is
	// cancelled by Close.
	base   context.Context
	cancel context.CancelFunc
}

// NewService wires a scheduler whose triggers dispatch through the runner.
func NewService(store Store, executions ExecutionStore, registry *Registry, cfg config.SchedulerConfig) *Service {
	timeout := cfg.ExecutionTimeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:      store,
		executions: executions,
		registry:   registry,
		runner:     NewRunner(registry, executions, cfg.HistoryRetention),
		timeout:    timeout,
		now:        time.Now,
		base:       base,
		cancel:     cancel,
	}
	s.scheduler = NewScheduler(cfg.Location(), s.dispatch)
	return s
}

// Scheduler returns the cron scheduler, to be run by the supervisor.
func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}

// Close cancels in-flight scheduled executions and waits for them to finish.
func (s *Service) Close() {
	s.cancel()
	s.runner.Wait()
}

// dispatch is the trigger trampoline. It runs on the cron goroutine of the
// firing, gives the execution its own context and never panics.
func (s *Service) dispatch(jobID int64) {
	ctx := logging.ContextWithNewCorrelationID(s.base)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := logging.Ctx(ctx).With().Int64("job_id", jobID).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("Recovered panic in job dispatch")
		}
	}()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		metrics.RecordDispatchSkipped("load_failed")
		if errors.Is(err, models.ErrNotFound) {
			logger.Warn().Msg("Scheduled job no longer exists, removing trigger")
			s.scheduler.Unschedule(jobID)
			return
		}
		logger.Error().Err(err).Msg("Failed to load scheduled job")
		return
	}
	if !job.Enabled {
		metrics.RecordDispatchSkipped("disabled")
		s.scheduler.Unschedule(jobID)
		return
	}
	if _, ok := s.registry.Lookup(job.JobType); !ok {
		metrics.RecordDispatchSkipped("unknown_type")
		logger.Error().Str("job_type", string(job.JobType)).Msg("Scheduled job has an unregistered type")
		return
	}

	if _, err := s.runner.Run(ctx, job, TriggerSchedule); errors.Is(err, ErrJobRunning) {
		logger.Warn().Msg("Previous execution still running, skipping trigger")
	}
}

// validate normalizes job and checks it against the struct rules, the
// schedule parser and the per-type constraints.
func (s *Service) validate(job *models.JobDefinition) error {
	job.Name = strings.TrimSpace(job.Name)
	job.ScheduleValue = strings.TrimSpace(job.ScheduleValue)
	for i, lang := range job.Filters.Languages {
		job.Filters.Languages[i] = strings.ToLower(strings.TrimSpace(lang))
	}
	job.Filters.Region = strings.ToUpper(job.Filters.Region)

	if verr := validation.ValidateStruct(job); verr != nil {
		return verr.ModelError()
	}
	if _, err := ParseSchedule(job.ScheduleType, job.ScheduleValue); err != nil {
		return err
	}

	var fields []string
	if job.JobType == models.JobTypeDiscover {
		if !job.MediaKind.Valid() {
			fields = append(fields, "media_type: discover jobs require movie or tv")
		}
		if job.UseLLM {
			fields = append(fields, "use_llm: only recommendation jobs can use the language model")
		}
		if len(job.UserIDs) > 0 {
			fields = append(fields, "user_ids: discover jobs are not scoped to users")
		}
	}
	if len(job.Filters.ExcludeProviders) > 0 && job.Filters.Region == "" {
		fields = append(fields, "region: required when exclude_providers is set")
	}
	if len(fields) > 0 {
		return models.NewValidationError(fields...)
	}
	return nil
}

// Create validates and stores a new job, scheduling it when enabled.
func (s *Service) Create(ctx context.Context, job *models.JobDefinition) (*models.JobDefinition, error) {
	job.IsSystem = false
	if err := s.validate(job); err != nil {
		return nil, err
	}
	now := s.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := s.scheduler.Schedule(job); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Int64("job_id", job.ID).Str("job_name", job.Name).Msg("Job created")
	return job, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.JobDefinition, error) {
	return s.store.GetJob(ctx, id)
}

// List returns every job.
func (s *Service) List(ctx context.Context) ([]models.JobDefinition, error) {
	return s.store.ListJobs(ctx)
}

// Update replaces a job's definition. The id, system flag and creation time
// are kept from the stored row.
func (s *Service) Update(ctx context.Context, id int64, job *models.JobDefinition) (*models.JobDefinition, error) {
	existing, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job.ID = existing.ID
	job.IsSystem = existing.IsSystem
	job.CreatedAt = existing.CreatedAt
	if err := s.validate(job); err != nil {
		return nil, err
	}
	job.UpdatedAt = s.now()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job %d: %w", id, err)
	}
	if err := s.scheduler.Schedule(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete removes a job and its trigger. The system job cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.IsSystem {
		return models.ErrSystemJob
	}
	if err := s.store.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	s.scheduler.Unschedule(id)
	logging.Ctx(ctx).Info().Int64("job_id", id).Msg("Job deleted")
	return nil
}

// Toggle enables or disables a job. Toggling to the current state is a no-op.
func (s *Service) Toggle(ctx context.Context, id int64, enabled bool) (*models.JobDefinition, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Enabled != enabled {
		if err := s.store.SetJobEnabled(ctx, id, enabled); err != nil {
			return nil, fmt.Errorf("toggle job %d: %w", id, err)
		}
		job.Enabled = enabled
		job.UpdatedAt = s.now()
	}
	if err := s.scheduler.Schedule(job); err != nil {
		return nil, err
	}
	return job, nil
}

// RunNow executes a job immediately, regardless of its enabled flag, and waits
// for the result. The execution is detached from ctx's cancellation so a
// dropped client connection does not abort it.
func (s *Service) RunNow(ctx context.Context, id int64) (models.ExecutionResult, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return models.ExecutionResult{ErrorMessage: err.Error()}, err
	}

	runCtx := context.WithoutCancel(ctx)
	if logging.CorrelationIDFromContext(runCtx) == "" {
		runCtx = logging.ContextWithNewCorrelationID(runCtx)
	}
	runCtx, cancel := context.WithTimeout(runCtx, s.timeout)
	defer cancel()

	return s.runner.Run(runCtx, job, TriggerManual)
}

// Running reports whether the job has an execution in flight.
func (s *Service) Running(id int64) bool {
	return s.runner.Running(id)
}

// NextRun returns the next scheduled firing of a job.
func (s *Service) NextRun(id int64) (time.Time, bool) {
	return s.scheduler.NextRun(id)
}

// History returns the most recent executions of a job, newest first.
func (s *Service) History(ctx context.Context, id int64, limit int) ([]models.ExecutionHistory, error) {
	if _, err := s.store.GetJob(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.executions.ListExecutions(ctx, id, limit)
}

// Bootstrap schedules every enabled job. Jobs with an unknown type or an
// invalid schedule are logged and skipped. It returns the number scheduled.
func (s *Service) Bootstrap(ctx context.Context) (int, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}

	logger := logging.Ctx(ctx)
	scheduled := 0
	for i := range jobs {
		job := &jobs[i]
		if !job.Enabled {
			continue
		}
		if _, ok := s.registry.Lookup(job.JobType); !ok {
			logger.Error().Int64("job_id", job.ID).Str("job_type", string(job.JobType)).Msg("Skipping job with unregistered type")
			continue
		}
		if err := s.scheduler.Schedule(job); err != nil {
			logger.Error().Err(err).Int64("job_id", job.ID).Msg("Skipping job with invalid schedule")
			continue
		}
		scheduled++
	}
	logger.Info().Int("scheduled", scheduled).Int("total", len(jobs)).Msg("Jobs bootstrapped")
	return scheduled, nil
}

// MigrateLegacy creates the system recommendation job from the legacy
// single-job configuration. It does nothing when the legacy section is
// disabled or a system job already exists. The job is scheduled by Bootstrap.
func (s *Service) MigrateLegacy(ctx context.Context, legacy config.LegacyConfig) (*models.JobDefinition, error) {
	if !legacy.Enabled {
		return nil, nil
	}
	existing, err := s.store.SystemJob(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("look up system job: %w", err)
	}

	job := &models.JobDefinition{
		Name:          legacyJobName,
		JobType:       models.JobTypeRecommendation,
		MediaKind:     models.MediaKind(legacy.MediaKind),
		Filters:       legacy.Filters(),
		ScheduleType:  models.ScheduleCron,
		ScheduleValue: legacy.Cron,
		MaxResults:    legacy.MaxResults,
		UserIDs:       legacy.UserIDs,
		UseLLM:        legacy.UseLLM,
		Enabled:       true,
	}
	if job.MediaKind == "" {
		job.MediaKind = models.MediaBoth
	}
	if job.ScheduleValue == "" {
		job.ScheduleType = models.SchedulePreset
		job.ScheduleValue = "daily"
	}
	if job.MaxResults <= 0 {
		job.MaxResults = legacyDefaultCap
	}
	if err := s.validate(job); err != nil {
		return nil, fmt.Errorf("legacy configuration: %w", err)
	}

	job.IsSystem = true
	now := s.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create system job: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("job_id", job.ID).Msg("Migrated legacy configuration to system job")
	return job, nil
}
