// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation marks a malformed job configuration. It is returned before scheduling.
	ErrValidation = errors.New("validation failed")

	// ErrUpstreamUnavailable marks any collaborator network or HTTP failure, including
	// timeouts and an open circuit breaker.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrAuthRejected marks rejected credentials on an upstream service.
	ErrAuthRejected = errors.New("upstream rejected credentials")

	// ErrSkip is not a failure: the candidate is a duplicate, already downloaded or excluded.
	ErrSkip = errors.New("candidate skipped")

	// ErrPoisonPayload marks a queued payload that cannot be deserialized. Never retried.
	ErrPoisonPayload = errors.New("poison payload")

	// ErrRetryBudgetExhausted marks a queued item that failed terminally after max retries.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSystemJob is returned when deleting the auto-migrated system job.
	ErrSystemJob = fmt.Errorf("%w: system job cannot be deleted", ErrValidation)
)

// ValidationError carries per-field messages and unwraps to ErrValidation.
type ValidationError struct {
	Fields []string
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UpstreamError describes a failed call to an external collaborator.
// It unwraps to ErrAuthRejected for 401/403 responses and ErrUpstreamUnavailable otherwise,
// and to the transport error when there is one.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	default:
		return e.Service + " request failed"
	}
}

func (e *UpstreamError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		errs = append(errs, ErrAuthRejected)
	} else {
		errs = append(errs, ErrUpstreamUnavailable)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// SkipReason names the check that excluded a candidate.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipFulfilled     SkipReason = "already_requested"
	SkipInLibrary     SkipReason = "already_downloaded"
	SkipRequested     SkipReason = "pending_downstream"
	SkipProvider      SkipReason = "excluded_provider"
	SkipFiltered      SkipReason = "filtered"
	SkipPendingQueued SkipReason = "already_queued"
)

// SkipError wraps ErrSkip with the reason.
type SkipError struct {
	Reason SkipReason
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSkip.Error(), e.Reason)
}

func (e *SkipError) Unwrap() error {
	return ErrSkip
}
