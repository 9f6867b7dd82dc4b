// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package supervisor runs Curator's long-lived services under a suture v4 tree.

# Overview

Services are grouped into three layers that fail and restart independently:

	RootSupervisor ("curator")
	├── DataSupervisor ("data-layer")
	│   ├── queue-drain           (services.NewDrainService)
	│   └── metadata-cache-prune  (services.NewCachePruneService)
	├── SchedulingSupervisor ("scheduling-layer")
	│   └── job-scheduler         (*jobs.Scheduler)
	└── APISupervisor ("api-layer")
	    └── http-server           (services.HTTPServerService)

Supervisor events (start, failure, backoff) are logged through sutureslog
into the zerolog bridge from internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewDrainService(drainer, cfg.Queue.DrainInterval))
	tree.AddSchedulingService(jobService.Scheduler())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	errCh := tree.ServeBackground(ctx)

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Past FailureThreshold the supervisor waits FailureBackoff before the next
restart. Periodic services never return an error for a failed cycle, so
only a genuine crash of the loop counts.

DuckDB is not supervised: it is an embedded library owned by the database
package and closed by main after the tree stops.
*/
package supervisor
