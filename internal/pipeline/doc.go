// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package pipeline generates candidates for a job and admits the qualifying
// ones into the request queue.
//
// Two generation modes exist:
//
//   - Discover browses catalog discover pages with the job's static filters.
//     Discover returns an iter.Seq2 that fetches pages lazily and stops once
//     max_results qualifying items have been yielded.
//   - Recommendation reads recent watch history from every configured media
//     server and expands each watched title (episodes collapse to their
//     series) through the catalog's similar-titles endpoint, or through the
//     language model when the job sets use_llm.
//
// Every candidate passes filter.Engine, then dedup.Checker, then
// queue.Queue.Request. The request snapshot and library index are prepared
// once at the start of a run and never refreshed mid-run.
//
// Lookups fan out concurrently, bounded by pipeline.max_concurrency, and are
// joined before admission. Admission itself is sequential and follows page
// (or seed) order, so the result cap is exact.
package pipeline
