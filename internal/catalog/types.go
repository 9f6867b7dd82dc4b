// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package catalog

import (
	"time"

	"github.com/tomtom215/curator/internal/models"
)

// Page is one page of catalog results.
type Page struct {
	Page         int                    `json:"page"`
	TotalPages   int                    `json:"total_pages"`
	TotalResults int                    `json:"total_results"`
	Items        []models.CandidateItem `json:"items"`
}

// HasMore reports whether a later page exists.
func (p *Page) HasMore() bool {
	return p.Page < p.TotalPages
}

// DiscoverParams are the browse parameters of a discover query.
type DiscoverParams struct {
	Page         int
	SortBy       string
	WithGenres   []int
	WithKeywords []int

	// Server-side prefilters. The filter engine still evaluates every item.
	Language   string
	MinVotes   int
	MinRating  float64
	MinYear    int
	MinRuntime int
}

// Genre is a catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Language is an ISO 639-1 language known to the catalog.
type Language struct {
	Code        string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

// Region is an ISO 3166-1 country known to the catalog.
type Region struct {
	Code        string `json:"iso_3166_1"`
	EnglishName string `json:"english_name"`
}

// Provider is a streaming provider available in a region.
type Provider struct {
	ID       int    `json:"provider_id"`
	Name     string `json:"provider_name"`
	Priority int    `json:"display_priority"`
}

// ExternalSource names the id namespace of a find lookup.
type ExternalSource string

const (
	SourceIMDb ExternalSource = "imdb_id"
	SourceTVDB ExternalSource = "tvdb_id"
)

// tmdbItem is the union of movie and tv list/details payloads.
type tmdbItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	OriginalTitle    string  `json:"original_title"`
	OriginalName     string  `json:"original_name"`
	OriginalLanguage string  `json:"original_language"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	GenreIDs         []int   `json:"genre_ids"`
	Genres           []Genre `json:"genres"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`

	// details only
	Runtime         int                  `json:"runtime"`
	EpisodeRunTime  []int                `json:"episode_run_time"`
	NumberOfSeasons int                  `json:"number_of_seasons"`
	IMDbID          string               `json:"imdb_id"`
	ExternalIDs     *tmdbExternalIDsBody `json:"external_ids"`
}

type tmdbListResponse struct {
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
	Results      []tmdbItem `json:"results"`
}

type tmdbExternalIDsBody struct {
	IMDbID string `json:"imdb_id"`
	TVDBID int    `json:"tvdb_id"`
}

type tmdbFindResponse struct {
	MovieResults []tmdbItem `json:"movie_results"`
	TVResults    []tmdbItem `json:"tv_results"`
}

type tmdbProvidersResponse struct {
	Results map[string]struct {
		Flatrate []Provider `json:"flatrate"`
		Free     []Provider `json:"free"`
		Ads      []Provider `json:"ads"`
	} `json:"results"`
}

func (t *tmdbItem) toCandidate(kind models.MediaKind) models.CandidateItem {
	c := models.CandidateItem{
		CatalogID:        t.ID,
		Kind:             kind,
		Title:            t.Title,
		OriginalTitle:    t.OriginalTitle,
		OriginalLanguage: t.OriginalLanguage,
		VoteAverage:      t.VoteAverage,
		VoteCount:        t.VoteCount,
		GenreIDs:         t.GenreIDs,
		Runtime:          t.Runtime,
		NumberOfSeasons:  t.NumberOfSeasons,
		IMDbID:           t.IMDbID,
		ReleaseDate:      parseDate(t.ReleaseDate),
	}

	if kind == models.MediaTV {
		c.Title = t.Name
		c.OriginalTitle = t.OriginalName
		c.ReleaseDate = parseDate(t.FirstAirDate)
		if len(t.EpisodeRunTime) > 0 {
			c.Runtime = t.EpisodeRunTime[0]
		}
	}

	if len(c.GenreIDs) == 0 && len(t.Genres) > 0 {
		c.GenreIDs = make([]int, 0, len(t.Genres))
		for _, g := range t.Genres {
			c.GenreIDs = append(c.GenreIDs, g.ID)
		}
	}
	if c.IMDbID == "" && t.ExternalIDs != nil {
		c.IMDbID = t.ExternalIDs.IMDbID
	}
	return c
}

func (r *tmdbListResponse) toPage(kind models.MediaKind) *Page {
	p := &Page{
		Page:         r.Page,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
		Items:        make([]models.CandidateItem, 0, len(r.Results)),
	}
	for i := range r.Results {
		p.Items = append(p.Items, r.Results[i].toCandidate(kind))
	}
	return p
}

// parseDate parses a catalog date. Empty or malformed dates are zero.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
