// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
)

func discoverJob(id int64) *models.JobDefinition {
	return &models.JobDefinition{ID: id, Name: "Discover", JobType: models.JobTypeDiscover, MediaKind: models.MediaMovie}
}

func TestRunner_Success(t *testing.T) {
	exec := &recordingExecutor{result: models.ExecutionResult{ResultsCount: 12, RequestedCount: 5}}
	store := &memExecStore{}
	r := NewRunner(newTestRegistry(exec, exec), store, 0)

	res, err := r.Run(context.Background(), discoverJob(4), TriggerManual)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 12, res.ResultsCount)
	assert.Equal(t, 5, res.RequestedCount)
	assert.NotEmpty(t, res.ExecutionID)

	execs := store.all()
	require.Len(t, execs, 1)
	e := execs[0]
	assert.Equal(t, res.ExecutionID, e.ID)
	assert.Equal(t, int64(4), e.JobID)
	assert.Equal(t, models.ExecutionCompleted, e.Status)
	assert.Equal(t, TriggerManual, e.Trigger)
	require.NotNil(t, e.FinishedAt)
	assert.False(t, e.FinishedAt.Before(e.StartedAt))
	assert.Equal(t, 12, e.ResultsCount)
	assert.Equal(t, 5, e.RequestedCount)

	// The executor sees the job and execution on its context.
	jobID, execID, ok := logging.JobFromContext(exec.ctxs[0])
	require.True(t, ok)
	assert.Equal(t, int64(4), jobID)
	assert.Equal(t, res.ExecutionID, execID)
}

func TestRunner_FailureKeepsPartialCounts(t *testing.T) {
	exec := &recordingExecutor{
		result: models.ExecutionResult{ResultsCount: 3, RequestedCount: 1},
		err:    errors.New("catalog unavailable"),
	}
	store := &memExecStore{}
	r := NewRunner(newTestRegistry(exec, exec), store, 0)

	res, err := r.Run(context.Background(), discoverJob(1), TriggerSchedule)
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "catalog unavailable", res.ErrorMessage)
	assert.Equal(t, 1, res.RequestedCount)

	e := store.all()[0]
	assert.Equal(t, models.ExecutionFailed, e.Status)
	assert.Equal(t, "catalog unavailable", e.ErrorMessage)
	assert.Equal(t, 3, e.ResultsCount)
	assert.Equal(t, 1, store.finished, "closed exactly once")
}

func TestRunner_PanicRecorded(t *testing.T) {
	exec := &recordingExecutor{panics: true}
	store := &memExecStore{}
	r := NewRunner(newTestRegistry(exec, exec), store, 0)

	res, err := r.Run(context.Background(), discoverJob(1), TriggerSchedule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor blew up")
	assert.False(t, res.Success)
	assert.Equal(t, models.ExecutionFailed, store.all()[0].Status)
	assert.False(t, r.Running(1), "in-flight slot released after panic")
}

func TestRunner_NoOverlapForSameJob(t *testing.T) {
	exec := &recordingExecutor{block: make(chan struct{}), start: make(chan struct{})}
	store := &memExecStore{}
	r := NewRunner(newTestRegistry(exec, exec), store, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.Run(context.Background(), discoverJob(1), TriggerSchedule)
	}()
	<-exec.start
	assert.True(t, r.Running(1))

	_, err := r.Run(context.Background(), discoverJob(1), TriggerManual)
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.Len(t, store.all(), 1, "rejected run records no history")

	close(exec.block)
	wg.Wait()
	r.Wait()
	assert.False(t, r.Running(1))
	assert.Equal(t, 1, exec.runs())
}

func TestRunner_DifferentJobsOverlap(t *testing.T) {
	blocker := &recordingExecutor{block: make(chan struct{}), start: make(chan struct{})}
	quick := &recordingExecutor{}
	r := NewRunner(newTestRegistry(blocker, quick), &memExecStore{}, 0)

	go func() { _, _ = r.Run(context.Background(), discoverJob(1), TriggerSchedule) }()
	<-blocker.start

	rec := &models.JobDefinition{ID: 2, JobType: models.JobTypeRecommendation}
	_, err := r.Run(context.Background(), rec, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, quick.runs())

	close(blocker.block)
	r.Wait()
}

func TestRunner_Retention(t *testing.T) {
	exec := &recordingExecutor{}
	store := &memExecStore{}
	r := NewRunner(newTestRegistry(exec, exec), store, 2)

	for i := 0; i < 4; i++ {
		_, err := r.Run(context.Background(), discoverJob(1), TriggerSchedule)
		require.NoError(t, err)
	}
	assert.Len(t, store.all(), 2)
	assert.Equal(t, 2, store.pruneKeep)
}

func TestRunner_CreateExecutionFails(t *testing.T) {
	exec := &recordingExecutor{}
	store := &memExecStore{createErr: errors.New("disk full")}
	r := NewRunner(newTestRegistry(exec, exec), store, 0)

	_, err := r.Run(context.Background(), discoverJob(1), TriggerSchedule)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 0, exec.runs())
	assert.False(t, r.Running(1))
}

func TestRunner_UnknownType(t *testing.T) {
	exec := &recordingExecutor{}
	store := &memExecStore{}
	r := NewRunner(newTestRegistry(exec, exec), store, 0)

	job := &models.JobDefinition{ID: 1, JobType: "popular"}
	_, err := r.Run(context.Background(), job, TriggerSchedule)
	assert.ErrorContains(t, err, "popular")
	assert.Equal(t, models.ExecutionFailed, store.all()[0].Status)
}
