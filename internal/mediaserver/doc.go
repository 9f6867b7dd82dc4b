// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package mediaserver provides read-only clients for the media servers whose
watch history seeds recommendations and whose libraries feed the
"already downloaded" index.

Jellyfin and Emby share a REST API and are served by EmbyClient; Plex is
served by PlexClient. Both implement Source and are built from configuration
with FromConfig, one client per configured server:

	for _, src := range mediaserver.FromConfig(cfg) {
	    users, err := src.Users(ctx)
	    ...
	}

All requests go through upstream.Client, so each server gets its own
circuit breaker named after Source.Name.
*/
package mediaserver
