// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package services

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/queue"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// PeriodicService runs a task once at start and then on every tick.
//
// A task error is logged and the loop keeps going; the service only returns
// when ctx is cancelled, so suture never counts a bad cycle as a crash.
// A panicking task is recovered the same way.
type PeriodicService struct {
	name     string
	interval time.Duration
	task     Task
}

// NewPeriodicService creates a periodic service. interval must be positive.
func NewPeriodicService(name string, interval time.Duration, task Task) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (s *PeriodicService) Serve(ctx context.Context) error {
	logger := logging.WithComponent(s.name)
	logger.Info().Dur("interval", s.interval).Msg("Periodic service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			logger.Info().Msg("Periodic service stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *PeriodicService) runOnce(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx).With().Str("component", s.name).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("Recovered panic in periodic task")
		}
	}()

	if err := s.task(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Periodic task failed")
	}
}

// String implements fmt.Stringer for suture logging.
func (s *PeriodicService) String() string {
	return s.name
}

// Drainer runs one queue drain cycle. *queue.Drainer implements it.
type Drainer interface {
	Drain(ctx context.Context) (queue.DrainReport, error)
}

// NewDrainService drains the request queue every interval. A cycle that
// overlaps a manually triggered one is skipped.
func NewDrainService(drainer Drainer, interval time.Duration) *PeriodicService {
	return NewPeriodicService("queue-drain", interval, func(ctx context.Context) error {
		_, err := drainer.Drain(ctx)
		if errors.Is(err, queue.ErrDrainInProgress) {
			logging.Ctx(ctx).Debug().Msg("Drain already running, skipping tick")
			return nil
		}
		return err
	})
}

// Pruner deletes expired rows and reports how many went.
type Pruner interface {
	PruneExpired(ctx context.Context) (int, error)
}

// NewCachePruneService removes expired metadata cache entries every interval.
func NewCachePruneService(pruner Pruner, interval time.Duration) *PeriodicService {
	return NewPeriodicService("metadata-cache-prune", interval, func(ctx context.Context) error {
		n, err := pruner.PruneExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logging.Ctx(ctx).Info().Int("removed", n).Msg("Pruned expired metadata cache entries")
		}
		return nil
	})
}
