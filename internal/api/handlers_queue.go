// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/queue"
)

// QueueItemView is one queued row with its decoded payload. A row whose
// payload does not decode carries PayloadError instead.
type QueueItemView struct {
	models.PendingRequest
	Payload      *queue.Payload `json:"payload,omitempty"`
	PayloadError string         `json:"payload_error,omitempty"`
}

func queueItemView(row *models.PendingRequest) QueueItemView {
	v := QueueItemView{PendingRequest: *row}
	p, err := queue.DecodePayload(row.Payload)
	if err != nil {
		v.PayloadError = err.Error()
		return v
	}
	v.Payload = &p
	return v
}

var queueStatuses = map[models.RequestStatus]bool{
	models.RequestQueued:     true,
	models.RequestSubmitting: true,
	models.RequestSubmitted:  true,
	models.RequestFailed:     true,
}

// QueueStats handles GET /api/v1/queue/stats.
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, stats, start)
}

// ListQueue handles GET /api/v1/queue?status=&limit=&offset=.
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := models.RequestStatus(r.URL.Query().Get("status"))
	if status != "" && !queueStatuses[status] {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation,
			"status must be one of: queued, submitting, submitted, failed", nil)
		return
	}
	page, ok := pageParams(w, r, 50)
	if !ok {
		return
	}
	rows, err := h.queue.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	views := make([]QueueItemView, 0, len(rows))
	for i := range rows {
		views = append(views, queueItemView(&rows[i]))
	}
	respondSuccess(w, http.StatusOK, views, start)
}

// GetQueueItem handles GET /api/v1/queue/{id}.
func (h *Handler) GetQueueItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	row, err := h.queue.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, queueItemView(row), start)
}

// DrainQueue handles POST /api/v1/queue/drain: one cycle, run synchronously.
func (h *Handler) DrainQueue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.drainer.Drain(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int("selected", report.Selected).Msg("Manual drain cycle finished")
	respondSuccess(w, http.StatusOK, report, start)
}

// ListRequests handles GET /api/v1/requests: the fulfilled requests, newest first.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, ok := pageParams(w, r, 50)
	if !ok {
		return
	}
	rows, err := h.fulfilled.ListFulfilled(r.Context(), page.Limit, page.Offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.FulfilledRequest{}
	}
	respondSuccess(w, http.StatusOK, rows, start)
}
