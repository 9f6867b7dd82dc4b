// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tomtom215/curator/internal/models"
)

type memJobStore struct {
	mu     sync.Mutex
	jobs   map[int64]models.JobDefinition
	nextID int64
	getErr error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[int64]models.JobDefinition)}
}

func (m *memJobStore) CreateJob(_ context.Context, job *models.JobDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobStore) GetJob(_ context.Context, id int64) (*models.JobDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &job, nil
}

func (m *memJobStore) ListJobs(context.Context) ([]models.JobDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.JobDefinition, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memJobStore) UpdateJob(_ context.Context, job *models.JobDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return models.ErrNotFound
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobStore) DeleteJob(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memJobStore) SetJobEnabled(_ context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.ErrNotFound
	}
	job.Enabled = enabled
	m.jobs[id] = job
	return nil
}

func (m *memJobStore) SystemJob(context.Context) (*models.JobDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.IsSystem {
			return &job, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memJobStore) put(job models.JobDefinition) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	m.jobs[job.ID] = job
	return job.ID
}

type memExecStore struct {
	mu        sync.Mutex
	execs     []models.ExecutionHistory
	finished  int
	pruneKeep int
	createErr error
}

func (m *memExecStore) CreateExecution(_ context.Context, exec *models.ExecutionHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.execs = append(m.execs, *exec)
	return nil
}

func (m *memExecStore) FinishExecution(_ context.Context, exec *models.ExecutionHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.execs {
		if m.execs[i].ID == exec.ID {
			if m.execs[i].Status != models.ExecutionRunning {
				return errors.New("execution closed twice")
			}
			m.execs[i] = *exec
			m.finished++
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memExecStore) ListExecutions(_ context.Context, jobID int64, limit int) ([]models.ExecutionHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExecutionHistory
	for i := len(m.execs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.execs[i].JobID == jobID {
			out = append(out, m.execs[i])
		}
	}
	return out, nil
}

func (m *memExecStore) PruneExecutions(_ context.Context, jobID int64, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneKeep = keep
	seen := 0
	kept := make([]models.ExecutionHistory, 0, len(m.execs))
	pruned := 0
	for i := len(m.execs) - 1; i >= 0; i-- {
		e := m.execs[i]
		if e.JobID == jobID {
			seen++
			if seen > keep {
				pruned++
				continue
			}
		}
		kept = append(kept, e)
	}
	// kept was filled newest first.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	m.execs = kept
	return pruned, nil
}

func (m *memExecStore) all() []models.ExecutionHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ExecutionHistory(nil), m.execs...)
}

// recordingExecutor captures the jobs it ran and returns a canned result.
type recordingExecutor struct {
	mu     sync.Mutex
	ran    []int64
	ctxs   []context.Context
	result models.ExecutionResult
	err    error
	block  chan struct{}
	start  chan struct{}
	panics bool
}

func (e *recordingExecutor) Execute(ctx context.Context, job *models.JobDefinition) (models.ExecutionResult, error) {
	e.mu.Lock()
	e.ran = append(e.ran, job.ID)
	e.ctxs = append(e.ctxs, ctx)
	e.mu.Unlock()

	if e.start != nil {
		close(e.start)
	}
	if e.block != nil {
		<-e.block
	}
	if e.panics {
		panic("executor blew up")
	}
	return e.result, e.err
}

func (e *recordingExecutor) runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ran)
}

func newTestRegistry(discover, recommend Executor) *Registry {
	r, err := NewRegistry(map[models.JobType]Executor{
		models.JobTypeDiscover:       discover,
		models.JobTypeRecommendation: recommend,
	})
	if err != nil {
		panic(err)
	}
	return r
}
