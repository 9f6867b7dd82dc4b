// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package services adapts Curator components to suture's Serve(ctx) error model.

  - HTTPServerService: ListenAndServe / Shutdown with a shutdown timeout.
  - PeriodicService: runs a task at start and on every tick, logging failures
    and recovering panics. NewDrainService and NewCachePruneService build the
    queue drain worker and the metadata cache pruner on top of it.

The job scheduler implements suture.Service itself and needs no wrapper.
*/
package services
