// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/curator/internal/models"
)

const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string             `json:"status"` // "healthy" or "degraded"
	Version           string             `json:"version,omitempty"`
	DatabaseConnected bool               `json:"database_connected"`
	Queue             *models.QueueStats `json:"queue,omitempty"`
	Uptime            float64            `json:"uptime_seconds"`
}

func (h *Handler) databaseUp(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return h.db.Ping(ctx) == nil
}

// Health handles GET /api/v1/health. It always answers 200; the status field
// says whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		DatabaseConnected: h.databaseUp(r.Context()),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if !health.DatabaseConnected {
		health.Status = "degraded"
	} else if h.queue != nil {
		if stats, err := h.queue.Stats(r.Context()); err == nil {
			health.Queue = &stats
		}
	}
	respondSuccess(w, http.StatusOK, health, start)
}

// HealthLive handles GET /api/v1/health/live. 200 whenever the process serves.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready. 503 until the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.databaseUp(r.Context()) {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Database is not reachable", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"ready": true}, time.Now())
}
