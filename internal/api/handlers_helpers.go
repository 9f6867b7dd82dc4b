// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/validation"
)

const maxBodyBytes = 1 << 20

// PageRequest carries limit/offset query parameters.
type PageRequest struct {
	Limit  int `json:"limit" validate:"min=1,max=500"`
	Offset int `json:"offset" validate:"min=0"`
}

// ToggleRequest is the body of POST /jobs/{id}/toggle.
type ToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// getIntParam reads an integer query parameter, falling back to defaultValue
// when it is absent or malformed.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// pageParams parses and validates limit/offset. It writes the error response
// itself and reports false on failure.
func pageParams(w http.ResponseWriter, r *http.Request, defaultLimit int) (PageRequest, bool) {
	req := PageRequest{
		Limit:  getIntParam(r, "limit", defaultLimit),
		Offset: getIntParam(r, "offset", 0),
	}
	if !validateRequest(w, r, &req) {
		return req, false
	}
	return req, true
}

// idParam parses the {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, err)
		return false
	}
	return true
}

// validateRequest runs the struct validator and writes a VALIDATION_ERROR
// response on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	respondErrorDetails(w, r, http.StatusBadRequest, &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}, nil)
	return false
}
