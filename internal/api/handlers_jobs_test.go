// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/curator/internal/jobs"
	"github.com/tomtom215/curator/internal/models"
)

func TestListJobs(t *testing.T) {
	a := newTestAPI(t)
	first := a.jobs.add(sampleJob("Weekly anime"))
	a.jobs.add(sampleJob("Daily movies"))
	next := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	a.jobs.next[first.ID] = next
	a.jobs.running[first.ID] = true

	env := decode(t, a.do(t, http.MethodGet, "/api/v1/jobs", ""), http.StatusOK)
	if env.Status != "success" {
		t.Errorf("status = %q", env.Status)
	}
	var views []JobView
	decodeData(t, env, &views)
	if len(views) != 2 {
		t.Fatalf("got %d jobs, want 2", len(views))
	}
	if views[0].Name != "Weekly anime" || !views[0].Running {
		t.Errorf("first job = %+v", views[0])
	}
	if views[0].NextRun == nil || !views[0].NextRun.Equal(next) {
		t.Errorf("next_run = %v, want %v", views[0].NextRun, next)
	}
	if views[1].NextRun != nil || views[1].Running {
		t.Errorf("second job should be idle and unscheduled: %+v", views[1])
	}
}

func TestListJobs_StorageError(t *testing.T) {
	a := newTestAPI(t)
	a.jobs.listErr = errStorage

	env := decode(t, a.do(t, http.MethodGet, "/api/v1/jobs", ""), http.StatusInternalServerError)
	if env.Error == nil || env.Error.Code != ErrCodeDatabase {
		t.Fatalf("error = %+v", env.Error)
	}
	if env.Error.Message == errStorage.Error() {
		t.Error("storage error text must not reach the client")
	}
}

func TestGetJob(t *testing.T) {
	a := newTestAPI(t)
	job := a.jobs.add(sampleJob("Daily movies"))

	tests := []struct {
		path string
		want int
		code string
	}{
		{fmt.Sprintf("/api/v1/jobs/%d", job.ID), http.StatusOK, ""},
		{"/api/v1/jobs/99", http.StatusNotFound, ErrCodeNotFound},
		{"/api/v1/jobs/abc", http.StatusBadRequest, ErrCodeBadRequest},
		{"/api/v1/jobs/0", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			env := decode(t, a.do(t, http.MethodGet, tt.path, ""), tt.want)
			if tt.code == "" {
				var view JobView
				decodeData(t, env, &view)
				if view.ID != job.ID {
					t.Errorf("id = %d, want %d", view.ID, job.ID)
				}
				return
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestCreateJob(t *testing.T) {
	a := newTestAPI(t)

	body := `{"name":"Sci-fi","job_type":"discover","media_type":"movie","schedule_type":"preset",
		"schedule_value":"weekly","max_results":10,"enabled":true,"filters":{"min_rating":7,"with_genres":[878]}}`
	env := decode(t, a.do(t, http.MethodPost, "/api/v1/jobs", body), http.StatusCreated)

	var view JobView
	decodeData(t, env, &view)
	if view.ID == 0 || view.Name != "Sci-fi" || view.Filters.MinRating != 7 {
		t.Errorf("created = %+v", view)
	}
	if len(view.Filters.WithGenres) != 1 || view.Filters.WithGenres[0] != 878 {
		t.Errorf("with_genres = %v", view.Filters.WithGenres)
	}
}

func TestCreateJob_BadBodies(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", "", ErrCodeBadRequest},
		{"malformed json", `{"name":`, ErrCodeBadRequest},
		{"unknown field", `{"name":"x","cron":"* * * * *"}`, ErrCodeBadRequest},
		{"service validation", `{"name":""}`, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decode(t, a.do(t, http.MethodPost, "/api/v1/jobs", tt.body), http.StatusBadRequest)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want %s", env.Error, tt.code)
			}
		})
	}
}

func TestCreateJob_ValidationDetails(t *testing.T) {
	a := newTestAPI(t)
	env := decode(t, a.do(t, http.MethodPost, "/api/v1/jobs", `{"name":""}`), http.StatusBadRequest)
	fields, ok := env.Error.Details["fields"].([]interface{})
	if !ok || len(fields) != 1 || fields[0] != "name is required" {
		t.Errorf("details = %#v", env.Error.Details)
	}
}

func TestUpdateJob(t *testing.T) {
	a := newTestAPI(t)
	job := a.jobs.add(sampleJob("Old name"))

	body := `{"name":"New name","job_type":"discover","media_type":"tv","schedule_type":"cron","schedule_value":"0 3 * * *","max_results":5}`
	env := decode(t, a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/jobs/%d", job.ID), body), http.StatusOK)
	var view JobView
	decodeData(t, env, &view)
	if view.ID != job.ID || view.Name != "New name" || view.MediaKind != models.MediaTV {
		t.Errorf("updated = %+v", view)
	}

	decode(t, a.do(t, http.MethodPut, "/api/v1/jobs/42", body), http.StatusNotFound)
}

func TestDeleteJob(t *testing.T) {
	a := newTestAPI(t)
	job := a.jobs.add(sampleJob("Disposable"))
	system := sampleJob("Legacy recommendations")
	system.IsSystem = true
	sys := a.jobs.add(system)

	decode(t, a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/jobs/%d", job.ID), ""), http.StatusOK)
	if _, ok := a.jobs.jobs[job.ID]; ok {
		t.Error("job was not deleted")
	}

	env := decode(t, a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/jobs/%d", sys.ID), ""), http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != ErrCodeValidation {
		t.Errorf("system job delete error = %+v", env.Error)
	}
}

func TestToggleJob(t *testing.T) {
	a := newTestAPI(t)
	job := a.jobs.add(sampleJob("Toggle me"))
	path := fmt.Sprintf("/api/v1/jobs/%d/toggle", job.ID)

	env := decode(t, a.do(t, http.MethodPost, path, `{"enabled":false}`), http.StatusOK)
	var view JobView
	decodeData(t, env, &view)
	if view.Enabled {
		t.Error("job still enabled")
	}

	// enabled is required; an explicit false must not be confused with a missing field.
	env = decode(t, a.do(t, http.MethodPost, path, `{}`), http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != ErrCodeValidation {
		t.Errorf("missing enabled error = %+v", env.Error)
	}
	if len(a.jobs.toggled) != 1 || a.jobs.toggled[0] {
		t.Errorf("toggle calls = %v, want [false]", a.jobs.toggled)
	}
}

func TestRunJob(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		a := newTestAPI(t)
		job := a.jobs.add(sampleJob("Run me"))
		a.jobs.runResult = models.ExecutionResult{Success: true, ResultsCount: 14, RequestedCount: 12, ExecutionID: "exec-1"}

		env := decode(t, a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/run", job.ID), ""), http.StatusOK)
		var result models.ExecutionResult
		decodeData(t, env, &result)
		if !result.Success || result.ResultsCount != 14 || result.RequestedCount != 12 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("failed execution is reported in the body", func(t *testing.T) {
		a := newTestAPI(t)
		job := a.jobs.add(sampleJob("Broken"))
		a.jobs.runResult = models.ExecutionResult{ExecutionID: "exec-2", ErrorMessage: "catalog unavailable"}
		a.jobs.runErr = models.ErrUpstreamUnavailable

		env := decode(t, a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/run", job.ID), ""), http.StatusOK)
		var result models.ExecutionResult
		decodeData(t, env, &result)
		if result.Success || result.ErrorMessage != "catalog unavailable" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("already running", func(t *testing.T) {
		a := newTestAPI(t)
		job := a.jobs.add(sampleJob("Busy"))
		a.jobs.runResult = models.ExecutionResult{ErrorMessage: jobs.ErrJobRunning.Error()}
		a.jobs.runErr = jobs.ErrJobRunning

		env := decode(t, a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/run", job.ID), ""), http.StatusConflict)
		if env.Error == nil || env.Error.Code != ErrCodeConflict {
			t.Errorf("error = %+v", env.Error)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		a := newTestAPI(t)
		decode(t, a.do(t, http.MethodPost, "/api/v1/jobs/7/run", ""), http.StatusNotFound)
	})
}

func TestJobHistory(t *testing.T) {
	a := newTestAPI(t)
	job := a.jobs.add(sampleJob("With history"))
	a.jobs.history[job.ID] = []models.ExecutionHistory{
		{ID: "b", JobID: job.ID, Status: models.ExecutionFailed, ErrorMessage: "timeout", Trigger: "schedule"},
		{ID: "a", JobID: job.ID, Status: models.ExecutionCompleted, ResultsCount: 3, Trigger: "manual"},
	}

	env := decode(t, a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d/history?limit=5", job.ID), ""), http.StatusOK)
	var history []models.ExecutionHistory
	decodeData(t, env, &history)
	if len(history) != 2 || history[0].ID != "b" || history[1].ResultsCount != 3 {
		t.Errorf("history = %+v", history)
	}

	decode(t, a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d/history", job.ID), ""), http.StatusOK)
	if len(a.jobs.limits) != 2 || a.jobs.limits[0] != 5 || a.jobs.limits[1] != 20 {
		t.Errorf("limits = %v, want [5 20]", a.jobs.limits)
	}

	env = decode(t, a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d/history?limit=1000", job.ID), ""), http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != ErrCodeValidation {
		t.Errorf("oversized limit error = %+v", env.Error)
	}
}
