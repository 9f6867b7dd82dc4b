// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package catalog is the TMDB client behind candidate generation: similar
// titles, discover browsing, title search and id resolution, plus the
// details and watch-provider lookups used by the filter engine.
//
// Lookups whose results change slowly (details, watch providers, external
// ids, genres, languages, regions, provider lists) are cached in memory
// and, when a MetadataCache is supplied, in the metadata_cache table for
// CatalogConfig.CacheTTL. Listing endpoints (similar, discover, search) are
// never cached.
package catalog
