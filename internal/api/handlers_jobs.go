// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/curator/internal/jobs"
	"github.com/tomtom215/curator/internal/models"
)

// JobView is a job definition plus its live scheduling state.
type JobView struct {
	models.JobDefinition
	NextRun *time.Time `json:"next_run,omitempty"`
	Running bool       `json:"running"`
}

func (h *Handler) view(job *models.JobDefinition) JobView {
	v := JobView{JobDefinition: *job, Running: h.jobs.Running(job.ID)}
	if next, ok := h.jobs.NextRun(job.ID); ok {
		v.NextRun = &next
	}
	return v
}

// ListJobs handles GET /api/v1/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	list, err := h.jobs.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	views := make([]JobView, 0, len(list))
	for i := range list {
		views = append(views, h.view(&list[i]))
	}
	respondSuccess(w, http.StatusOK, views, start)
}

// GetJob handles GET /api/v1/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.view(job), start)
}

// CreateJob handles POST /api/v1/jobs.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var job models.JobDefinition
	if !decodeBody(w, r, &job) {
		return
	}
	created, err := h.jobs.Create(r.Context(), &job)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, h.view(created), start)
}

// UpdateJob handles PUT /api/v1/jobs/{id}.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var job models.JobDefinition
	if !decodeBody(w, r, &job) {
		return
	}
	updated, err := h.jobs.Update(r.Context(), id, &job)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.view(updated), start)
}

// DeleteJob handles DELETE /api/v1/jobs/{id}. The system job answers 400.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"deleted": id}, start)
}

// ToggleJob handles POST /api/v1/jobs/{id}/toggle with {"enabled": bool}.
func (h *Handler) ToggleJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if !decodeBody(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}
	job, err := h.jobs.Toggle(r.Context(), id, *req.Enabled)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.view(job), start)
}

// RunJob handles POST /api/v1/jobs/{id}/run. It blocks until the execution
// finishes. A failed execution is still a 200 carrying success=false; only a
// run that could not start is an error.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.jobs.RunNow(r.Context(), id)
	if err != nil && (result.ExecutionID == "" || errors.Is(err, jobs.ErrJobRunning)) {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// JobHistory handles GET /api/v1/jobs/{id}/history?limit=N.
func (h *Handler) JobHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	page, ok := pageParams(w, r, 20)
	if !ok {
		return
	}
	history, err := h.jobs.History(r.Context(), id, page.Limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, history, start)
}
