// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package seer

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/models"
)

// Seasons is the seasons field of a TV request: either "all" or an explicit
// list of season numbers. The zero value marshals as null and is omitted
// for movies.
type Seasons struct {
	All     bool
	Numbers []int
}

// AllSeasons requests every season.
func AllSeasons() *Seasons {
	return &Seasons{All: true}
}

// SeasonRange requests seasons 1..n.
func SeasonRange(n int) *Seasons {
	nums := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		nums = append(nums, i)
	}
	return &Seasons{Numbers: nums}
}

// MarshalJSON implements json.Marshaler.
func (s Seasons) MarshalJSON() ([]byte, error) {
	if s.All {
		return []byte(`"all"`), nil
	}
	if s.Numbers == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Numbers)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seasons) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v != "all" {
			return fmt.Errorf("invalid seasons value %q", v)
		}
		*s = Seasons{All: true}
		return nil
	}

	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return fmt.Errorf("invalid seasons value: %w", err)
	}
	*s = Seasons{Numbers: nums}
	return nil
}

// MediaRequest is the public body of a request submission.
type MediaRequest struct {
	MediaType models.MediaKind `json:"mediaType"`
	MediaID   int              `json:"mediaId"`
	Seasons   *Seasons         `json:"seasons,omitempty"`
}

// Key returns the (kind, catalog id) identity of the request.
func (r *MediaRequest) Key() models.ItemKey {
	return models.ItemKey{Kind: r.MediaType, CatalogID: r.MediaID}
}

// submitBody adds server-side overrides to a MediaRequest.
type submitBody struct {
	MediaRequest
	Is4K       bool   `json:"is4k,omitempty"`
	ServerID   int    `json:"serverId,omitempty"`
	ProfileID  int    `json:"profileId,omitempty"`
	RootFolder string `json:"rootFolder,omitempty"`
}

// Request is a request row as reported by the request-management service.
type Request struct {
	ID     int          `json:"id"`
	Status int          `json:"status"`
	Type   string       `json:"type"`
	Media  RequestMedia `json:"media"`
}

// RequestMedia is the media attached to a Request.
type RequestMedia struct {
	ID        int              `json:"id"`
	TMDBID    int              `json:"tmdbId"`
	MediaType models.MediaKind `json:"mediaType"`
	Status    int              `json:"status"`
}

// Key returns the (kind, catalog id) identity of the request's media.
func (r *Request) Key() models.ItemKey {
	return models.ItemKey{Kind: r.Media.MediaType, CatalogID: r.Media.TMDBID}
}

// PageInfo describes one page of ListRequests.
type PageInfo struct {
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
	Page     int `json:"page"`
}

// RequestPage is one page of requests.
type RequestPage struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Results  []Request `json:"results"`
}

// RequestCounts is the response of the request count endpoint.
type RequestCounts struct {
	Total      int `json:"total"`
	Movie      int `json:"movie"`
	TV         int `json:"tv"`
	Pending    int `json:"pending"`
	Approved   int `json:"approved"`
	Declined   int `json:"declined"`
	Processing int `json:"processing"`
	Available  int `json:"available"`
}
