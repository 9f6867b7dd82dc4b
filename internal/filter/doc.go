// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package filter decides whether a catalog candidate satisfies a job's
FilterConfig.

Checks run in a fixed order and the first failure wins:

 1. missing rating: none of the selected rating sources has data
 2. rating threshold and minimum votes
 3. original language allow-list
 4. genre exclude-list
 5. minimum release year
 6. minimum runtime (unknown runtime passes)
 7. excluded streaming providers in the configured region

A value exactly equal to a threshold passes. With rating_source "both",
every source that has data must meet the threshold.
*/
package filter
