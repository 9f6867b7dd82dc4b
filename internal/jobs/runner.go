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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
)

// ErrJobRunning is returned when a job is started while an execution of the
// same job is still in flight.
var ErrJobRunning = errors.New("job is already running")

// Trigger values recorded on ExecutionHistory.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// finishTimeout bounds the write that closes an execution, which runs even
// when the execution context has already expired.
const finishTimeout = 10 * time.Second

// ExecutionStore persists execution history.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *models.ExecutionHistory) error
	FinishExecution(ctx context.Context, exec *models.ExecutionHistory) error
	ListExecutions(ctx context.Context, jobID int64, limit int) ([]models.ExecutionHistory, error)
	PruneExecutions(ctx context.Context, jobID int64, keep int) (int, error)
}

// Runner executes jobs. Executions of the same job never overlap; different
// jobs run concurrently.
type Runner struct {
	registry   *Registry
	executions ExecutionStore
	retention  int
	now        func() time.Time

	mu       sync.Mutex
	inFlight map[int64]struct{}
	wg       sync.WaitGroup
}

// NewRunner creates a runner. retention is the number of executions kept per
// job; 0 keeps everything.
func NewRunner(registry *Registry, executions ExecutionStore, retention int) *Runner {
	return &Runner{
		registry:   registry,
		executions: executions,
		retention:  retention,
		now:        time.Now,
		inFlight:   make(map[int64]struct{}),
	}
}

func (r *Runner) acquire(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[jobID]; busy {
		return false
	}
	r.inFlight[jobID] = struct{}{}
	r.wg.Add(1)
	return true
}

func (r *Runner) release(jobID int64) {
	r.mu.Lock()
	delete(r.inFlight, jobID)
	r.mu.Unlock()
	r.wg.Done()
}

// Running reports whether jobID has an execution in flight.
func (r *Runner) Running(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inFlight[jobID]
	return busy
}

// Wait blocks until every in-flight execution has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Run executes job and records its execution history. The returned result is
// also populated on failure. ErrJobRunning is returned without recording
// anything when the job is already in flight.
func (r *Runner) Run(ctx context.Context, job *models.JobDefinition, trigger string) (models.ExecutionResult, error) {
	if !r.acquire(job.ID) {
		metrics.RecordDispatchSkipped("in_flight")
		return models.ExecutionResult{ErrorMessage: ErrJobRunning.Error()}, ErrJobRunning
	}
	defer r.release(job.ID)

	exec := &models.ExecutionHistory{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		StartedAt: r.now(),
		Status:    models.ExecutionRunning,
		Trigger:   trigger,
	}
	if err := r.executions.CreateExecution(ctx, exec); err != nil {
		err = fmt.Errorf("create execution record: %w", err)
		return models.ExecutionResult{ErrorMessage: err.Error()}, err
	}

	ctx = logging.ContextWithJob(ctx, job.ID, exec.ID)
	logger := logging.Ctx(ctx)
	logger.Info().Str("job_name", job.Name).Str("job_type", string(job.JobType)).Str("trigger", trigger).Msg("Job execution started")

	result, runErr := r.execute(ctx, job)

	finished := r.now()
	exec.FinishedAt = &finished
	exec.ResultsCount = result.ResultsCount
	exec.RequestedCount = result.RequestedCount
	if runErr != nil {
		exec.Status = models.ExecutionFailed
		exec.ErrorMessage = runErr.Error()
	} else {
		exec.Status = models.ExecutionCompleted
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := r.executions.FinishExecution(finishCtx, exec); err != nil {
		logger.Error().Err(err).Msg("Failed to close execution record")
	}
	if r.retention > 0 {
		if n, err := r.executions.PruneExecutions(finishCtx, job.ID, r.retention); err != nil {
			logger.Warn().Err(err).Msg("Failed to prune execution history")
		} else if n > 0 {
			logger.Debug().Int("pruned", n).Msg("Pruned execution history")
		}
	}

	duration := finished.Sub(exec.StartedAt)
	metrics.RecordJobExecution(string(job.JobType), string(exec.Status), duration)

	result.ExecutionID = exec.ID
	result.Success = runErr == nil
	result.ErrorMessage = exec.ErrorMessage

	event := logger.Info()
	if runErr != nil {
		event = logger.Error().Err(runErr)
	}
	event.
		Int("results", result.ResultsCount).
		Int("requested", result.RequestedCount).
		Dur("duration", duration).
		Msg("Job execution finished")

	return result, runErr
}

// execute resolves the executor and runs it, converting a panic into an error.
func (r *Runner) execute(ctx context.Context, job *models.JobDefinition) (result models.ExecutionResult, err error) {
	exec, ok := r.registry.Lookup(job.JobType)
	if !ok {
		return result, fmt.Errorf("no executor for job type %q", job.JobType)
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Recovered panic in job executor")
			err = fmt.Errorf("executor panic: %v", rec)
		}
	}()
	return exec.Execute(ctx, job)
}
