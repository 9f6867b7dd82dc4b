// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package jobs

import (
	"context"
	"fmt"
	"slices"

	"github.com/tomtom215/curator/internal/models"
)

// Executor runs one job and reports how many candidates qualified and how many
// were admitted into the request queue.
type Executor interface {
	Execute(ctx context.Context, job *models.JobDefinition) (models.ExecutionResult, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job *models.JobDefinition) (models.ExecutionResult, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, job *models.JobDefinition) (models.ExecutionResult, error) {
	return f(ctx, job)
}

// Registry resolves job types to executors.
type Registry struct {
	executors map[models.JobType]Executor
}

// NewRegistry builds a registry covering exactly models.JobTypes.
func NewRegistry(executors map[models.JobType]Executor) (*Registry, error) {
	for t, exec := range executors {
		if !slices.Contains(models.JobTypes, t) {
			return nil, fmt.Errorf("unknown job type %q", t)
		}
		if exec == nil {
			return nil, fmt.Errorf("nil executor for job type %q", t)
		}
	}
	for _, t := range models.JobTypes {
		if _, ok := executors[t]; !ok {
			return nil, fmt.Errorf("no executor registered for job type %q", t)
		}
	}

	r := &Registry{executors: make(map[models.JobType]Executor, len(executors))}
	for t, exec := range executors {
		r.executors[t] = exec
	}
	return r, nil
}

// Lookup returns the executor for t.
func (r *Registry) Lookup(t models.JobType) (Executor, bool) {
	exec, ok := r.executors[t]
	return exec, ok
}
