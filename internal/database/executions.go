// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/curator/internal/models"
)

// ExecutionStore persists the bounded execution history. It implements
// jobs.ExecutionStore.
type ExecutionStore struct {
	db *DB
}

// CreateExecution records a started execution.
func (s *ExecutionStore) CreateExecution(ctx context.Context, exec *models.ExecutionHistory) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("insert", "job_executions")(&err)

	_, err = s.db.exec(ctx, `
		INSERT INTO job_executions (id, job_id, started_at, finished_at, status, results_count,
			requested_count, error_message, trigger_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.JobID, exec.StartedAt.UTC(), nullTime(exec.FinishedAt), string(exec.Status),
		exec.ResultsCount, exec.RequestedCount, nullString(exec.ErrorMessage), exec.Trigger)
	if err != nil {
		return fmt.Errorf("insert execution %s: %w", exec.ID, err)
	}
	return nil
}

// FinishExecution closes an execution with its final status and counts.
func (s *ExecutionStore) FinishExecution(ctx context.Context, exec *models.ExecutionHistory) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "job_executions")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE job_executions SET finished_at = ?, status = ?, results_count = ?, requested_count = ?,
			error_message = ?
		WHERE id = ?`,
		nullTime(exec.FinishedAt), string(exec.Status), exec.ResultsCount, exec.RequestedCount,
		nullString(exec.ErrorMessage), exec.ID)
	if err != nil {
		return fmt.Errorf("finish execution %s: %w", exec.ID, err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("execution %s: %w", exec.ID, models.ErrNotFound)
	}
	return nil
}

// ListExecutions returns the newest executions of a job first.
func (s *ExecutionStore) ListExecutions(ctx context.Context, jobID int64, limit int) (_ []models.ExecutionHistory, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "job_executions")(&err)

	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, job_id, started_at, finished_at, status, results_count, requested_count,
			error_message, trigger_source
		FROM job_executions
		WHERE job_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions of job %d: %w", jobID, err)
	}
	defer closeWithLog(rows, "execution rows")

	var out []models.ExecutionHistory
	for rows.Next() {
		var (
			e        models.ExecutionHistory
			finished sql.NullTime
			errMsg   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.JobID, &e.StartedAt, &finished, &e.Status, &e.ResultsCount,
			&e.RequestedCount, &errMsg, &e.Trigger); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			e.FinishedAt = &t
		}
		e.ErrorMessage = errMsg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneExecutions keeps the newest keep executions of a job and deletes the
// rest. keep <= 0 disables pruning.
func (s *ExecutionStore) PruneExecutions(ctx context.Context, jobID int64, keep int) (_ int, err error) {
	if keep <= 0 {
		return 0, nil
	}
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("delete", "job_executions")(&err)

	res, err := s.db.exec(ctx, `
		DELETE FROM job_executions
		WHERE job_id = ? AND id NOT IN (
			SELECT id FROM job_executions
			WHERE job_id = ?
			ORDER BY started_at DESC, id DESC
			LIMIT ?
		)`, jobID, jobID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune executions of job %d: %w", jobID, err)
	}
	return affected(res)
}

// FailInterrupted closes executions left running by a previous process.
func (s *ExecutionStore) FailInterrupted(ctx context.Context) (_ int, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "job_executions")(&err)

	res, err := s.db.exec(ctx, `
		UPDATE job_executions SET status = ?, finished_at = ?, error_message = ?
		WHERE status = ?`,
		string(models.ExecutionFailed), s.db.now().UTC(), "interrupted by shutdown", string(models.ExecutionRunning))
	if err != nil {
		return 0, fmt.Errorf("fail interrupted executions: %w", err)
	}
	return affected(res)
}
