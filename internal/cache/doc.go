// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package cache provides a bounded, generic in-process LRU cache with
// per-entry TTL.
//
// It fronts slow upstream lookups that are repeated within and across
// pipeline runs: OMDb ratings, catalog watch providers and details. The
// persistent metadata_cache table sits behind it for entries that should
// survive a restart.
//
//	c := cache.New[Rating](5000, 24*time.Hour)
//	if r, ok := c.Get(imdbID); ok {
//	    return r, nil
//	}
package cache
