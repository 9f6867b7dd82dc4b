// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	jobIDKey         contextKey = "job_id"
	executionIDKey   contextKey = "execution_id"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID returns the first 8 characters of a new UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a context carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context carrying a fresh correlation id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithJob tags ctx with the job and execution being run.
func ContextWithJob(ctx context.Context, jobID int64, executionID string) context.Context {
	ctx = context.WithValue(ctx, jobIDKey, jobID)
	return context.WithValue(ctx, executionIDKey, executionID)
}

// JobFromContext returns the job id and execution id stored by ContextWithJob.
func JobFromContext(ctx context.Context) (jobID int64, executionID string, ok bool) {
	jobID, ok = ctx.Value(jobIDKey).(int64)
	if !ok {
		return 0, "", false
	}
	executionID, _ = ctx.Value(executionIDKey).(string)
	return jobID, executionID, true
}

// ContextWithLogger stores a logger on ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored on ctx, or the global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the correlation, job and execution ids of ctx attached.
//
//	logging.Ctx(ctx).Info().Msg("Processing page")
//	// {"level":"info","correlation_id":"abc12345","job_id":3,"execution_id":"...","message":"Processing page"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)
	lc := logger.With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	if jobID, execID, ok := JobFromContext(ctx); ok {
		lc = lc.Int64("job_id", jobID)
		if execID != "" {
			lc = lc.Str("execution_id", execID)
		}
	}

	l := lc.Logger()
	return &l
}
