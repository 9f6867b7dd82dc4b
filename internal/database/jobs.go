// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/models"
)

// JobStore persists job definitions. It implements jobs.Store.
type JobStore struct {
	db *DB
}

const jobColumns = `id, name, job_type, media_type, filters, schedule_type, schedule_value,
	max_results, user_ids, use_llm, enabled, is_system, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.JobDefinition, error) {
	var (
		job     models.JobDefinition
		filters string
		userIDs string
	)
	err := row.Scan(&job.ID, &job.Name, &job.JobType, &job.MediaKind, &filters, &job.ScheduleType,
		&job.ScheduleValue, &job.MaxResults, &userIDs, &job.UseLLM, &job.Enabled, &job.IsSystem,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(filters), &job.Filters); err != nil {
		return nil, fmt.Errorf("decode filters of job %d: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(userIDs), &job.UserIDs); err != nil {
		return nil, fmt.Errorf("decode user ids of job %d: %w", job.ID, err)
	}
	return &job, nil
}

func encodeJob(job *models.JobDefinition) (filters, userIDs string, err error) {
	f, err := json.Marshal(job.Filters)
	if err != nil {
		return "", "", fmt.Errorf("encode filters: %w", err)
	}
	ids := job.UserIDs
	if ids == nil {
		ids = []string{}
	}
	u, err := json.Marshal(ids)
	if err != nil {
		return "", "", fmt.Errorf("encode user ids: %w", err)
	}
	return string(f), string(u), nil
}

// CreateJob inserts job and sets its ID.
func (s *JobStore) CreateJob(ctx context.Context, job *models.JobDefinition) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("insert", "jobs")(&err)

	filters, userIDs, err := encodeJob(job)
	if err != nil {
		return err
	}
	err = s.db.conn.QueryRowContext(ctx, `
		INSERT INTO jobs (name, job_type, media_type, filters, schedule_type, schedule_value,
			max_results, user_ids, use_llm, enabled, is_system, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		job.Name, string(job.JobType), string(job.MediaKind), filters, string(job.ScheduleType), job.ScheduleValue,
		job.MaxResults, userIDs, job.UseLLM, job.Enabled, job.IsSystem, job.CreatedAt.UTC(), job.UpdatedAt.UTC(),
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob returns models.ErrNotFound when no job has the id.
func (s *JobStore) GetJob(ctx context.Context, id int64) (_ *models.JobDefinition, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "jobs")(&err)

	job, err := scanJob(s.db.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

// ListJobs returns every job ordered by id.
func (s *JobStore) ListJobs(ctx context.Context) (_ []models.JobDefinition, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "jobs")(&err)

	rows, err := s.db.conn.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer closeWithLog(rows, "job rows")

	var jobs []models.JobDefinition
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// UpdateJob replaces every column of an existing job.
func (s *JobStore) UpdateJob(ctx context.Context, job *models.JobDefinition) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "jobs")(&err)

	filters, userIDs, err := encodeJob(job)
	if err != nil {
		return err
	}
	res, err := s.db.exec(ctx, `
		UPDATE jobs SET name = ?, job_type = ?, media_type = ?, filters = ?, schedule_type = ?,
			schedule_value = ?, max_results = ?, user_ids = ?, use_llm = ?, enabled = ?, is_system = ?,
			updated_at = ?
		WHERE id = ?`,
		job.Name, string(job.JobType), string(job.MediaKind), filters, string(job.ScheduleType),
		job.ScheduleValue, job.MaxResults, userIDs, job.UseLLM, job.Enabled, job.IsSystem,
		job.UpdatedAt.UTC(), job.ID)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	return requireRow(res, "job", job.ID)
}

// DeleteJob removes a job and its execution history.
func (s *JobStore) DeleteJob(ctx context.Context, id int64) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("delete", "jobs")(&err)

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete job %d: begin: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM job_executions WHERE job_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete executions of job %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	if err = requireRow(res, "job", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("delete job %d: commit: %w", id, err)
	}
	return nil
}

// SetJobEnabled flips the enabled flag.
func (s *JobStore) SetJobEnabled(ctx context.Context, id int64, enabled bool) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("update", "jobs")(&err)

	res, err := s.db.exec(ctx, `UPDATE jobs SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, s.db.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set enabled on job %d: %w", id, err)
	}
	return requireRow(res, "job", id)
}

// SystemJob returns the job created from legacy configuration.
func (s *JobStore) SystemJob(ctx context.Context) (_ *models.JobDefinition, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "jobs")(&err)

	job, err := scanJob(s.db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE is_system ORDER BY id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("system job: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get system job: %w", err)
	}
	return job, nil
}

func requireRow(res sql.Result, what string, id int64) error {
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return nil
}
