// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package validation wraps go-playground/validator v10 with a singleton
// instance, Curator's custom tags and human-readable messages.
//
// Custom tags:
//   - langcode: two lowercase letters (ISO 639-1), used on filter language lists
//   - region: two letters (ISO 3166-1 alpha-2), used on the provider region
//
// Field names in messages come from the json tag, so errors name the fields
// the ops API accepts:
//
//	if verr := validation.ValidateStruct(&job); verr != nil {
//	    return verr.ModelError() // unwraps to models.ErrValidation
//	}
//
// ToAPIError renders the same failures as a VALIDATION_ERROR payload for HTTP
// responses.
package validation
