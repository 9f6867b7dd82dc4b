// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/seer"
)

// ErrDrainInProgress is returned when Drain is called while a cycle runs.
var ErrDrainInProgress = errors.New("drain already in progress")

const (
	backoffBase = 30 * time.Second
	backoffMax  = time.Hour
)

// Backoff returns the retry delay for a row whose retry count is n:
// 30s * 2^n, capped at one hour. The count is incremented before the delay
// is computed, so the first retry waits Backoff(1).
func Backoff(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n >= 7 { // 30s * 2^7 > 1h
		return backoffMax
	}
	return backoffBase << n
}

// Submitter sends a request downstream. seer.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, req seer.MediaRequest, anime bool) (*seer.Request, error)
}

// Drain outcomes, also used as metric labels.
const (
	OutcomeSubmitted = "submitted"
	OutcomeFulfilled = "already_fulfilled"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
	OutcomePoisoned  = "poisoned"
	OutcomeLockLost  = "lock_lost"
	OutcomeDeferred  = "deferred"
)

// DrainReport summarizes one drain cycle.
type DrainReport struct {
	StaleReset       int `json:"stale_reset"`
	Selected         int `json:"selected"`
	Submitted        int `json:"submitted"`
	AlreadyFulfilled int `json:"already_fulfilled"`
	Retried          int `json:"retried"`
	Failed           int `json:"failed"`
	Poisoned         int `json:"poisoned"`
	LockLost         int `json:"lock_lost"`
	Deferred         int `json:"deferred"`
}

func (r *DrainReport) add(outcome string) {
	switch outcome {
	case OutcomeSubmitted:
		r.Submitted++
	case OutcomeFulfilled:
		r.AlreadyFulfilled++
	case OutcomeRetried:
		r.Retried++
	case OutcomeFailed:
		r.Failed++
	case OutcomePoisoned:
		r.Poisoned++
	case OutcomeLockLost:
		r.LockLost++
	case OutcomeDeferred:
		r.Deferred++
	}
}

// Drainer moves queued rows downstream with retries. At most one cycle runs
// at a time per Drainer.
type Drainer struct {
	store     Store
	fulfilled FulfilledStore
	submitter Submitter
	queue     *Queue

	batchSize  int
	maxRetries int
	staleAfter time.Duration
	limiter    *rate.Limiter

	now     func() time.Time
	running atomic.Bool

	// onSubmitted is called with each submitted key (e.g. to update the
	// request snapshot).
	onSubmitted func(models.ItemKey)
}

// DrainerOption configures a Drainer.
type DrainerOption func(*Drainer)

// WithSubmissionDelay spaces consecutive submissions by at least d.
func WithSubmissionDelay(d time.Duration) DrainerOption {
	return func(dr *Drainer) {
		if d > 0 {
			dr.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithQueue releases keys from q's pending set when rows become terminal.
func WithQueue(q *Queue) DrainerOption {
	return func(dr *Drainer) { dr.queue = q }
}

// WithOnSubmitted registers a callback for successful submissions.
func WithOnSubmitted(fn func(models.ItemKey)) DrainerOption {
	return func(dr *Drainer) { dr.onSubmitted = fn }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) DrainerOption {
	return func(dr *Drainer) { dr.now = now }
}

// NewDrainer creates a drainer.
func NewDrainer(store Store, fulfilled FulfilledStore, submitter Submitter, cfg config.QueueConfig, opts ...DrainerOption) *Drainer {
	d := &Drainer{
		store:      store,
		fulfilled:  fulfilled,
		submitter:  submitter,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		staleAfter: cfg.StaleAfter,
		now:        time.Now,
	}
	if d.batchSize <= 0 {
		d.batchSize = 20
	}
	if d.maxRetries <= 0 {
		d.maxRetries = 5
	}
	if d.staleAfter <= 0 {
		d.staleAfter = 10 * time.Minute
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Drain runs one cycle: reset stale submitting rows, select a due batch and
// process each row. A failing row never aborts the batch; the returned error
// covers only the reset and select steps.
func (d *Drainer) Drain(ctx context.Context) (DrainReport, error) {
	var report DrainReport
	if !d.running.CompareAndSwap(false, true) {
		return report, ErrDrainInProgress
	}
	defer d.running.Store(false)

	start := time.Now()
	logger := logging.Ctx(ctx)

	now := d.now()
	reset, err := d.store.ResetStale(ctx, now.Add(-d.staleAfter), now)
	if err != nil {
		return report, fmt.Errorf("reset stale requests: %w", err)
	}
	report.StaleReset = reset
	if reset > 0 {
		logger.Warn().Int("count", reset).Dur("stale_after", d.staleAfter).Msg("Reset stale submitting requests")
	}

	rows, err := d.store.DueBatch(ctx, now, d.batchSize)
	if err != nil {
		return report, fmt.Errorf("select due requests: %w", err)
	}
	report.Selected = len(rows)

	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		outcome := d.processSafe(ctx, &rows[i])
		report.add(outcome)
		metrics.RecordDrainItem(outcome)
	}

	metrics.RecordDrainCycle(time.Since(start), report.StaleReset)
	if report.Selected > 0 {
		logger.Info().
			Int("selected", report.Selected).
			Int("submitted", report.Submitted).
			Int("already_fulfilled", report.AlreadyFulfilled).
			Int("retried", report.Retried).
			Int("failed", report.Failed).
			Int("poisoned", report.Poisoned).
			Dur("duration", time.Since(start)).
			Msg("Drain cycle complete")
	}
	return report, nil
}

// Running reports whether a cycle is in progress.
func (d *Drainer) Running() bool {
	return d.running.Load()
}

// processSafe isolates a panic in one row from the rest of the batch.
func (d *Drainer) processSafe(ctx context.Context, row *models.PendingRequest) (outcome string) {
	locked := false
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while draining request %d: %v", row.ID, r)
			logging.Ctx(ctx).Error().Err(err).Str("item", row.Key().String()).Msg("Recovered panic in drain")
			if locked {
				outcome = d.retryOrFail(ctx, row, err)
			} else {
				outcome = OutcomeDeferred
			}
		}
	}()
	return d.process(ctx, row, &locked)
}

func (d *Drainer) process(ctx context.Context, row *models.PendingRequest, locked *bool) string {
	logger := logging.Ctx(ctx).With().Int64("request_id", row.ID).Str("item", row.Key().String()).Logger()

	payload, err := DecodePayload(row.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("Undecodable request payload, marking failed")
		if err := d.store.MarkFailed(ctx, row.ID, row.RetryCount, err.Error(), d.now()); err != nil {
			logger.Error().Err(err).Msg("Failed to mark poison request")
		}
		d.release(row.Key())
		return OutcomePoisoned
	}

	done, err := d.fulfilled.IsFulfilled(ctx, row.Key())
	if err != nil {
		// Without the check a duplicate could be submitted; try next cycle.
		logger.Warn().Err(err).Msg("Fulfilled lookup failed, leaving request queued")
		return OutcomeDeferred
	}
	if done {
		if err := d.store.MarkSubmitted(ctx, row.ID, d.now()); err != nil {
			logger.Error().Err(err).Msg("Failed to mark fulfilled request submitted")
		}
		d.release(row.Key())
		return OutcomeFulfilled
	}

	ok, err := d.store.MarkSubmitting(ctx, row.ID, d.now())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to lock request")
		return OutcomeDeferred
	}
	if !ok {
		logger.Debug().Msg("Request no longer queued, another drainer has it")
		return OutcomeLockLost
	}
	*locked = true

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return d.retryOrFail(ctx, row, err)
		}
	}

	if _, err := d.submitter.Submit(ctx, payload.MediaRequest, payload.Meta.Anime); err != nil {
		return d.retryOrFail(ctx, row, err)
	}

	fulfilled := payload.Fulfilled()
	fulfilled.RequestedAt = d.now()
	if err := d.fulfilled.RecordFulfilled(ctx, fulfilled); err != nil {
		// Downstream has the request; the snapshot catches re-requests.
		logger.Error().Err(err).Msg("Submitted but failed to record fulfilled request")
	}
	if err := d.store.MarkSubmitted(ctx, row.ID, d.now()); err != nil {
		logger.Error().Err(err).Msg("Failed to mark request submitted")
	}

	d.release(row.Key())
	if d.onSubmitted != nil {
		d.onSubmitted(row.Key())
	}
	logger.Info().Str("title", payload.Meta.Title).Str("requester", payload.Meta.RequesterName).Msg("Request submitted")
	return OutcomeSubmitted
}

// retryOrFail records a failed attempt on a locked row.
func (d *Drainer) retryOrFail(ctx context.Context, row *models.PendingRequest, cause error) string {
	logger := logging.Ctx(ctx).With().Int64("request_id", row.ID).Str("item", row.Key().String()).Logger()
	retries := row.RetryCount + 1
	now := d.now()

	if errors.Is(cause, models.ErrAuthRejected) {
		logger.Error().Err(cause).Msg("Request-management service rejected credentials")
	}

	if retries >= d.maxRetries {
		msg := fmt.Errorf("%w: %v", models.ErrRetryBudgetExhausted, cause).Error()
		if err := d.store.MarkFailed(ctx, row.ID, retries, msg, now); err != nil {
			logger.Error().Err(err).Msg("Failed to mark request failed")
		}
		d.release(row.Key())
		logger.Error().Err(cause).Int("retries", retries).Msg("Request failed permanently")
		return OutcomeFailed
	}

	next := now.Add(Backoff(retries))
	if err := d.store.Reschedule(ctx, row.ID, retries, next, cause.Error(), now); err != nil {
		logger.Error().Err(err).Msg("Failed to reschedule request")
	}
	logger.Warn().Err(cause).Int("retries", retries).Time("next_attempt_at", next).Msg("Request submission failed, will retry")
	return OutcomeRetried
}

func (d *Drainer) release(key models.ItemKey) {
	if d.queue != nil {
		d.queue.Release(key)
	}
}
