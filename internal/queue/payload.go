// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package queue

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/seer"
)

// RequestMeta is the bookkeeping attached to a queued request. It is stored
// in the payload and never sent downstream.
type RequestMeta struct {
	Source    *models.SourceRef
	Requester *models.MediaUser
	Rationale string
	JobID     int64
}

// Meta is the private part of a payload.
type Meta struct {
	Title         string `json:"title,omitempty"`
	SourceID      int    `json:"source_id,omitempty"`
	SourceTitle   string `json:"source_title,omitempty"`
	RequesterID   string `json:"requester_id,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
	Rationale     string `json:"rationale,omitempty"`
	Anime         bool   `json:"anime"`
	JobID         int64  `json:"job_id,omitempty"`
}

// Payload is the serialized form of a queued request: the public submission
// fields plus private bookkeeping under "_meta".
type Payload struct {
	seer.MediaRequest
	Meta Meta `json:"_meta"`
}

// BuildPayload creates the canonical payload for item. TV seasons are "all"
// or the explicit list 1..N depending on seasonMode.
func BuildPayload(item *models.CandidateItem, meta RequestMeta, seasonMode string) Payload {
	p := Payload{
		MediaRequest: seer.MediaRequest{
			MediaType: item.Kind,
			MediaID:   item.CatalogID,
		},
		Meta: Meta{
			Title:     item.Title,
			Rationale: meta.Rationale,
			Anime:     item.IsAnime(),
			JobID:     meta.JobID,
		},
	}

	if item.Kind == models.MediaTV {
		if seasonMode == config.SeasonModeExplicit && item.NumberOfSeasons > 0 {
			p.Seasons = seer.SeasonRange(item.NumberOfSeasons)
		} else {
			p.Seasons = seer.AllSeasons()
		}
	}

	if meta.Source != nil {
		p.Meta.SourceID = meta.Source.CatalogID
		p.Meta.SourceTitle = meta.Source.Title
	}
	if meta.Requester != nil {
		p.Meta.RequesterID = meta.Requester.ID
		p.Meta.RequesterName = meta.Requester.Name
	}
	return p
}

// Encode serializes p.
func (p *Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload parses a stored payload. Any failure wraps ErrPoisonPayload.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", models.ErrPoisonPayload, err)
	}
	if !p.MediaType.Valid() || p.MediaID <= 0 {
		return Payload{}, fmt.Errorf("%w: missing media type or id", models.ErrPoisonPayload)
	}
	return p, nil
}

// Fulfilled builds the fulfilled-store row recorded after a successful submission.
func (p *Payload) Fulfilled() *models.FulfilledRequest {
	return &models.FulfilledRequest{
		Kind:          p.MediaType,
		CatalogID:     p.MediaID,
		Title:         p.Meta.Title,
		SourceID:      p.Meta.SourceID,
		SourceTitle:   p.Meta.SourceTitle,
		RequesterID:   p.Meta.RequesterID,
		RequesterName: p.Meta.RequesterName,
		Rationale:     p.Meta.Rationale,
		Anime:         p.Meta.Anime,
		JobID:         p.Meta.JobID,
	}
}
