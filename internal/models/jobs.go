// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package models

import "time"

// JobType selects the candidate generation mode of a job.
type JobType string

const (
	// JobTypeDiscover browses the catalog with static filters; no watch history.
	JobTypeDiscover JobType = "discover"
	// JobTypeRecommendation expands one or more users' watch history.
	JobTypeRecommendation JobType = "recommendation"
)

// JobTypes lists every job type, in registration order.
var JobTypes = []JobType{JobTypeDiscover, JobTypeRecommendation}

// ScheduleType selects how ScheduleValue is interpreted.
type ScheduleType string

const (
	SchedulePreset ScheduleType = "preset"
	ScheduleCron   ScheduleType = "cron"
)

// RatingSource selects which rating the filter thresholds are evaluated against.
type RatingSource string

const (
	RatingCatalog  RatingSource = "catalog"
	RatingExternal RatingSource = "external"
	RatingBoth     RatingSource = "both"
)

// FilterConfig is the per-job filter configuration. It is stored as JSON on the job row.
type FilterConfig struct {
	IncludeNoRating bool         `json:"include_no_rating"`
	RatingSource    RatingSource `json:"rating_source,omitempty" validate:"omitempty,oneof=catalog external both"`
	MinRating       float64      `json:"min_rating,omitempty" validate:"gte=0,lte=10"`
	MinVotes        int          `json:"min_votes,omitempty" validate:"gte=0"`

	Languages     []string `json:"languages,omitempty" validate:"dive,langcode"`
	ExcludeGenres []int    `json:"exclude_genres,omitempty" validate:"dive,gt=0"`
	MinYear       int      `json:"min_year,omitempty" validate:"omitempty,gte=1870,lte=2200"`
	MinRuntime    int      `json:"min_runtime,omitempty" validate:"gte=0"`

	// Streaming providers (catalog provider ids) to exclude in Region.
	ExcludeProviders []int  `json:"exclude_providers,omitempty"`
	Region           string `json:"region,omitempty" validate:"omitempty,region"`

	// Discover-only browse parameters
	SortBy       string `json:"sort_by,omitempty"`
	WithGenres   []int  `json:"with_genres,omitempty"`
	WithKeywords []int  `json:"with_keywords,omitempty"`
	MaxPages     int    `json:"max_pages,omitempty" validate:"gte=0,lte=500"`
}

// EffectiveRatingSource defaults an empty source to the catalog rating.
func (f *FilterConfig) EffectiveRatingSource() RatingSource {
	if f.RatingSource == "" {
		return RatingCatalog
	}
	return f.RatingSource
}

// JobDefinition is a persisted, schedulable pipeline job.
type JobDefinition struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name" validate:"required,max=120"`
	JobType       JobType      `json:"job_type" validate:"required,oneof=discover recommendation"`
	MediaKind     MediaKind    `json:"media_type" validate:"required,oneof=movie tv both"`
	Filters       FilterConfig `json:"filters"`
	ScheduleType  ScheduleType `json:"schedule_type" validate:"required,oneof=preset cron"`
	ScheduleValue string       `json:"schedule_value" validate:"required"`
	MaxResults    int          `json:"max_results" validate:"gte=1,lte=1000"`
	UserIDs       []string     `json:"user_ids,omitempty"`
	UseLLM        bool         `json:"use_llm"`
	Enabled       bool         `json:"enabled"`
	IsSystem      bool         `json:"is_system"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// ExecutionStatus is the lifecycle state of one job execution.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ExecutionHistory is one row of the bounded execution log. It is created when a run
// starts and closed exactly once.
type ExecutionHistory struct {
	ID             string          `json:"id"`
	JobID          int64           `json:"job_id"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	Status         ExecutionStatus `json:"status"`
	ResultsCount   int             `json:"results_count"`
	RequestedCount int             `json:"requested_count"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	Trigger        string          `json:"trigger"` // "schedule" or "manual"
}

// ExecutionResult is returned to run-now callers.
type ExecutionResult struct {
	Success        bool   `json:"success"`
	ResultsCount   int    `json:"results_count"`
	RequestedCount int    `json:"requested_count"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ExecutionID    string `json:"execution_id,omitempty"`
}
