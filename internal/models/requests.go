// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package models

import "time"

// RequestStatus is the state of a queued request.
//
// queued -> submitting -> submitted | queued (retry) | failed
type RequestStatus string

const (
	RequestQueued     RequestStatus = "queued"
	RequestSubmitting RequestStatus = "submitting"
	RequestSubmitted  RequestStatus = "submitted"
	RequestFailed     RequestStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RequestStatus) Terminal() bool {
	return s == RequestSubmitted || s == RequestFailed
}

// PendingRequest is one row of the persistent request queue.
type PendingRequest struct {
	ID            int64         `json:"id"`
	Kind          MediaKind     `json:"media_type"`
	CatalogID     int           `json:"catalog_id"`
	Payload       []byte        `json:"-"`
	Status        RequestStatus `json:"status"`
	RetryCount    int           `json:"retry_count"`
	NextAttemptAt time.Time     `json:"next_attempt_at"`
	LastError     string        `json:"last_error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Key returns the queue identity of the row.
func (p *PendingRequest) Key() ItemKey {
	return ItemKey{Kind: p.Kind, CatalogID: p.CatalogID}
}

// FulfilledRequest is a row of the canonical fulfilled-requests store. It is written after a
// successful submission and read back by the dedup layer on later runs.
type FulfilledRequest struct {
	ID            int64     `json:"id"`
	Kind          MediaKind `json:"media_type"`
	CatalogID     int       `json:"catalog_id"`
	Title         string    `json:"title,omitempty"`
	SourceID      int       `json:"source_id,omitempty"`
	SourceTitle   string    `json:"source_title,omitempty"`
	RequesterID   string    `json:"requester_id,omitempty"`
	RequesterName string    `json:"requester_name,omitempty"`
	Rationale     string    `json:"rationale,omitempty"`
	Anime         bool      `json:"anime"`
	JobID         int64     `json:"job_id,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

// QueueStats summarizes queue contents by status.
type QueueStats struct {
	Queued     int `json:"queued"`
	Submitting int `json:"submitting"`
	Submitted  int `json:"submitted"`
	Failed     int `json:"failed"`
}
