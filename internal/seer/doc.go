// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package seer is the client for the request-management service
// (Jellyseerr or Overseerr). The drain worker submits through Client.Submit;
// each pipeline run refreshes the shared Snapshot of existing requests when
// it is stale and then checks against its own copy of the keys.
package seer
