// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package logging provides the zerolog-based structured logger used throughout Curator.
//
// A single global logger is configured once from main with Init and accessed through the
// level helpers (Info, Warn, Error, ...), through WithComponent for long-lived component
// loggers, or through Ctx for request- and run-scoped logging. Ctx adds the correlation id,
// job id and execution id stored on the context, so every line written during a job run can
// be tied back to its ExecutionHistory row.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Msg("Curator starting")
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithJob(ctx, job.ID, execID)
//	logging.Ctx(ctx).Info().Int("requested", n).Msg("Run finished")
//
// Always terminate a chain with Msg or Send; an unterminated event is never written.
//
// # slog bridge
//
// Suture's event hook (sutureslog) requires a *slog.Logger. NewSlogLogger returns one that
// writes through zerolog so supervisor events share the same output and format.
package logging
