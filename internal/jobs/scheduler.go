// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
)

// DispatchFunc is called by a trigger with the id of the job that is due.
// It must not block the cron loop for longer than it takes to hand off.
type DispatchFunc func(jobID int64)

type entry struct {
	id       cron.EntryID
	schedule cron.Schedule
	expr     string
}

// Scheduler keeps at most one cron trigger per job id.
type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	dispatch DispatchFunc
	now      func() time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	entries map[int64]entry
}

// NewScheduler creates a scheduler evaluating cron expressions in loc.
func NewScheduler(loc *time.Location, dispatch DispatchFunc) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := logging.WithComponent("scheduler")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(cronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		loc:      loc,
		dispatch: dispatch,
		now:      time.Now,
		logger:   logger,
		entries:  make(map[int64]entry),
	}
}

// Schedule registers or replaces the trigger for job. Disabled jobs are
// unscheduled. An invalid schedule leaves any existing trigger untouched.
func (s *Scheduler) Schedule(job *models.JobDefinition) error {
	if !job.Enabled {
		s.Unschedule(job.ID)
		return nil
	}

	sched, err := ParseSchedule(job.ScheduleType, job.ScheduleValue)
	if err != nil {
		return err
	}
	expr, _ := Expression(job.ScheduleType, job.ScheduleValue)

	jobID := job.ID
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[jobID]; ok {
		s.cron.Remove(old.id)
	}
	id := s.cron.Schedule(sched, cron.FuncJob(func() { s.dispatch(jobID) }))
	s.entries[jobID] = entry{id: id, schedule: sched, expr: expr}
	metrics.JobsScheduled.Set(float64(len(s.entries)))

	s.logger.Info().
		Int64("job_id", jobID).
		Str("job_name", job.Name).
		Str("cron", expr).
		Time("next_run", sched.Next(s.now().In(s.loc))).
		Msg("Job scheduled")
	return nil
}

// Unschedule removes the trigger for jobID. It is a no-op when none exists.
func (s *Scheduler) Unschedule(jobID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[jobID]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, jobID)
		metrics.JobsScheduled.Set(float64(len(s.entries)))
		s.logger.Info().Int64("job_id", jobID).Msg("Job unscheduled")
	}
}

// NextRun returns the next firing time of jobID after now.
func (s *Scheduler) NextRun(jobID int64) (time.Time, bool) {
	return s.NextRunAfter(jobID, s.now())
}

// NextRunAfter returns the next firing time of jobID strictly after t,
// evaluated in the scheduler's location.
func (s *Scheduler) NextRunAfter(jobID int64, t time.Time) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return e.schedule.Next(t.In(s.loc)), true
}

// Expression returns the cron expression registered for jobID.
func (s *Scheduler) Expression(jobID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	return e.expr, ok
}

// Scheduled returns the ids of all jobs with a trigger, sorted.
func (s *Scheduler) Scheduled() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Serve runs the cron loop until ctx is cancelled. It implements suture.Service.
// Dispatched executions are not awaited here; the runner owns them.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.Scheduled())).Str("timezone", s.loc.String()).Msg("Scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *Scheduler) String() string {
	return "job-scheduler"
}
