// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package dedup keeps the pipeline from requesting titles that were already
// requested, are already in a media library, or stream on an excluded
// provider. The library index and the request snapshot are both built once
// at the start of a run and never refreshed implicitly during it.
package dedup
