// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package models

import (
	"fmt"
	"strconv"
	"time"
)

// MediaKind identifies the catalog namespace of an item.
type MediaKind string

const (
	MediaMovie MediaKind = "movie"
	MediaTV    MediaKind = "tv"
	// MediaBoth is only valid on recommendation jobs, whose watch history spans movies and series.
	MediaBoth MediaKind = "both"
)

// Valid reports whether k names a concrete catalog namespace.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaTV
}

// Includes reports whether a job scoped to k covers items of kind other.
func (k MediaKind) Includes(other MediaKind) bool {
	return k == MediaBoth || k == other
}

// AnimationGenreID is the catalog genre id for animation, shared by movies and series.
const AnimationGenreID = 16

// SourceRef identifies the watched item that produced a suggestion.
type SourceRef struct {
	CatalogID int    `json:"catalog_id"`
	Title     string `json:"title"`
}

// CandidateItem is a catalog item proposed for request. It is created per pipeline run
// and never persisted directly.
type CandidateItem struct {
	CatalogID     int       `json:"catalog_id"`
	Kind          MediaKind `json:"kind"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title,omitempty"`

	// Catalog (0-10) rating and vote count
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`

	IMDbID           string    `json:"imdb_id,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	GenreIDs         []int     `json:"genre_ids,omitempty"`
	ReleaseDate      time.Time `json:"release_date,omitempty"`
	Runtime          int       `json:"runtime,omitempty"` // minutes, 0 when unknown
	NumberOfSeasons  int       `json:"number_of_seasons,omitempty"`

	Source    *SourceRef `json:"source,omitempty"`
	Rationale string     `json:"rationale,omitempty"`
}

// Key returns the identity used by dedup sets and the request queue.
func (c *CandidateItem) Key() ItemKey {
	return ItemKey{Kind: c.Kind, CatalogID: c.CatalogID}
}

// Year returns the release year, or 0 when the release date is unknown.
func (c *CandidateItem) Year() int {
	if c.ReleaseDate.IsZero() {
		return 0
	}
	return c.ReleaseDate.Year()
}

// HasGenre reports whether the item is tagged with the given genre id.
func (c *CandidateItem) HasGenre(id int) bool {
	for _, g := range c.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// IsAnime reports whether the item should be requested with the anime profile.
func (c *CandidateItem) IsAnime() bool {
	return c.OriginalLanguage == "ja" && c.HasGenre(AnimationGenreID)
}

// ItemKey is the (media kind, catalog id) identity of a requestable item.
type ItemKey struct {
	Kind      MediaKind
	CatalogID int
}

func (k ItemKey) String() string {
	return string(k.Kind) + ":" + strconv.Itoa(k.CatalogID)
}

// WatchedType is the type of a watch-history entry.
type WatchedType string

const (
	WatchedMovie   WatchedType = "movie"
	WatchedEpisode WatchedType = "episode"
)

// ExternalIDs holds provider identifiers reported by a media server.
type ExternalIDs struct {
	TMDB string `json:"tmdb,omitempty"`
	IMDb string `json:"imdb,omitempty"`
	TVDB string `json:"tvdb,omitempty"`
}

// Empty reports whether no identifier is known.
func (e ExternalIDs) Empty() bool {
	return e.TMDB == "" && e.IMDb == "" && e.TVDB == ""
}

// WatchedItem is a recently watched movie or episode. Episodes carry their parent series
// linkage so the pipeline can expand a series only once per run.
type WatchedItem struct {
	ID        string      `json:"id"`
	Type      WatchedType `json:"type"`
	Title     string      `json:"title"`
	Year      int         `json:"year,omitempty"`
	IDs       ExternalIDs `json:"ids"`
	WatchedAt time.Time   `json:"watched_at,omitempty"`

	// Episode only
	SeriesID    string      `json:"series_id,omitempty"`
	SeriesTitle string      `json:"series_title,omitempty"`
	SeriesIDs   ExternalIDs `json:"series_ids,omitempty"`
}

// SeedKey identifies the title a watched item contributes as a recommendation seed.
// Episodes of the same series share one key.
func (w *WatchedItem) SeedKey() string {
	if w.Type == WatchedEpisode && w.SeriesID != "" {
		return "series:" + w.SeriesID
	}
	return fmt.Sprintf("%s:%s", w.Type, w.ID)
}

// SeedTitle returns the title used when describing the seed (series title for episodes).
func (w *WatchedItem) SeedTitle() string {
	if w.Type == WatchedEpisode && w.SeriesTitle != "" {
		return w.SeriesTitle
	}
	return w.Title
}

// MediaUser is a user account on a media server.
type MediaUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Server string `json:"server"`
}

// Library is a media server library section.
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// LibraryItem is an item already present in a media server library.
type LibraryItem struct {
	Kind MediaKind   `json:"kind"`
	IDs  ExternalIDs `json:"ids"`
}
