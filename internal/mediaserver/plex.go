// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package mediaserver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/upstream"
)

// PlexClient talks to a Plex Media Server.
//
// Plex watch history is read from the server-wide history endpoint, so it is
// not scoped per user (SupportsUserHistory returns false).
type PlexClient struct {
	serverID string
	client   *upstream.Client
}

// NewPlexClient creates a Plex client. cfg.APIKey carries the X-Plex-Token.
func NewPlexClient(cfg config.MediaServerConfig, opts ...upstream.Option) *PlexClient {
	serverID := cfg.ServerID
	if serverID == "" {
		serverID = config.GenerateServerID("plex", cfg.URL)
	}

	all := append([]upstream.Option{
		upstream.WithHeader("X-Plex-Token", cfg.APIKey),
		upstream.WithHeader("X-Plex-Client-Identifier", "curator"),
		upstream.WithHeader("X-Plex-Product", "Curator"),
	}, opts...)

	return &PlexClient{
		serverID: serverID,
		client:   upstream.New("plex:"+serverID, cfg.URL, all...),
	}
}

type plexAccountsResponse struct {
	MediaContainer struct {
		Account []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"Account"`
	} `json:"MediaContainer"`
}

type plexSectionsResponse struct {
	MediaContainer struct {
		Directory []plexDirectory `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexDirectory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"` // movie, show, artist, photo
}

type plexMetadataResponse struct {
	MediaContainer struct {
		Size      int            `json:"size"`
		TotalSize int            `json:"totalSize"`
		Metadata  []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexMetadata struct {
	RatingKey            string     `json:"ratingKey"`
	Type                 string     `json:"type"` // movie, show, episode
	Title                string     `json:"title"`
	Year                 int        `json:"year"`
	GrandparentTitle     string     `json:"grandparentTitle"`
	GrandparentRatingKey string     `json:"grandparentRatingKey"`
	ViewedAt             int64      `json:"viewedAt"`
	Guid                 []plexGUID `json:"Guid"` //nolint:revive // Plex API field name
}

type plexGUID struct {
	ID string `json:"id"` // e.g. "tmdb://603"
}

// Name returns plex:server_id.
func (c *PlexClient) Name() string {
	return "plex:" + c.serverID
}

// SupportsUserHistory is false; see PlexClient.
func (c *PlexClient) SupportsUserHistory() bool {
	return false
}

// Users lists accounts known to the server. The empty system account is skipped.
func (c *PlexClient) Users(ctx context.Context) ([]models.MediaUser, error) {
	var resp plexAccountsResponse
	if err := c.client.GetJSON(ctx, "/accounts", nil, &resp); err != nil {
		return nil, fmt.Errorf("plex accounts request failed: %w", err)
	}

	out := make([]models.MediaUser, 0, len(resp.MediaContainer.Account))
	for _, a := range resp.MediaContainer.Account {
		if a.Name == "" {
			continue
		}
		out = append(out, models.MediaUser{ID: strconv.Itoa(a.ID), Name: a.Name, Server: c.Name()})
	}
	return out, nil
}

// Libraries lists library sections.
func (c *PlexClient) Libraries(ctx context.Context) ([]models.Library, error) {
	dirs, err := c.sections(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Library, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, models.Library{ID: d.Key, Name: d.Title, Type: d.Type})
	}
	return out, nil
}

func (c *PlexClient) sections(ctx context.Context) ([]plexDirectory, error) {
	var resp plexSectionsResponse
	if err := c.client.GetJSON(ctx, "/library/sections", nil, &resp); err != nil {
		return nil, fmt.Errorf("plex sections request failed: %w", err)
	}
	return resp.MediaContainer.Directory, nil
}

// RecentlyWatched returns server-wide history, most recent first. Movie GUIDs
// are resolved from item metadata since the history endpoint omits them.
func (c *PlexClient) RecentlyWatched(ctx context.Context, _ string, limit int) ([]models.WatchedItem, error) {
	query := url.Values{
		"sort":                   {"viewedAt:desc"},
		"X-Plex-Container-Start": {"0"},
		"X-Plex-Container-Size":  {strconv.Itoa(limit)},
	}

	var resp plexMetadataResponse
	if err := c.client.GetJSON(ctx, "/status/sessions/history/all", query, &resp); err != nil {
		return nil, fmt.Errorf("plex history request failed: %w", err)
	}

	out := make([]models.WatchedItem, 0, len(resp.MediaContainer.Metadata))
	for i := range resp.MediaContainer.Metadata {
		m := &resp.MediaContainer.Metadata[i]
		w := models.WatchedItem{
			ID:    m.RatingKey,
			Title: m.Title,
			Year:  m.Year,
		}
		if m.ViewedAt > 0 {
			w.WatchedAt = time.Unix(m.ViewedAt, 0).UTC()
		}

		switch m.Type {
		case "movie":
			w.Type = models.WatchedMovie
			ids, err := c.metadataIDs(ctx, m.RatingKey)
			if err != nil {
				// Items removed from the library still appear in history.
				logging.Ctx(ctx).Debug().Err(err).Str("rating_key", m.RatingKey).Msg("Plex movie metadata unavailable")
			}
			w.IDs = ids
		case "episode":
			w.Type = models.WatchedEpisode
			w.SeriesID = m.GrandparentRatingKey
			w.SeriesTitle = m.GrandparentTitle
		default:
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// SeriesIDs resolves a show's GUIDs from its metadata.
func (c *PlexClient) SeriesIDs(ctx context.Context, seriesID string) (models.ExternalIDs, error) {
	return c.metadataIDs(ctx, seriesID)
}

func (c *PlexClient) metadataIDs(ctx context.Context, ratingKey string) (models.ExternalIDs, error) {
	var resp plexMetadataResponse
	path := "/library/metadata/" + url.PathEscape(ratingKey)
	if err := c.client.GetJSON(ctx, path, url.Values{"includeGuids": {"1"}}, &resp); err != nil {
		return models.ExternalIDs{}, fmt.Errorf("plex metadata request failed: %w", err)
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return models.ExternalIDs{}, fmt.Errorf("plex metadata %s: %w", ratingKey, models.ErrNotFound)
	}
	return parseGUIDs(resp.MediaContainer.Metadata[0].Guid), nil
}

// LibraryItems pages through every movie and show section.
func (c *PlexClient) LibraryItems(ctx context.Context) ([]models.LibraryItem, error) {
	dirs, err := c.sections(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.LibraryItem
	for _, d := range dirs {
		var kind models.MediaKind
		switch d.Type {
		case "movie":
			kind = models.MediaMovie
		case "show":
			kind = models.MediaTV
		default:
			continue
		}

		items, err := c.sectionItems(ctx, d.Key, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (c *PlexClient) sectionItems(ctx context.Context, key string, kind models.MediaKind) ([]models.LibraryItem, error) {
	var out []models.LibraryItem
	path := "/library/sections/" + url.PathEscape(key) + "/all"

	for start := 0; ; start += libraryPageSize {
		query := url.Values{
			"includeGuids":           {"1"},
			"X-Plex-Container-Start": {strconv.Itoa(start)},
			"X-Plex-Container-Size":  {strconv.Itoa(libraryPageSize)},
		}

		var resp plexMetadataResponse
		if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
			return nil, fmt.Errorf("plex section %s request failed: %w", key, err)
		}

		for i := range resp.MediaContainer.Metadata {
			ids := parseGUIDs(resp.MediaContainer.Metadata[i].Guid)
			if ids.Empty() {
				continue
			}
			out = append(out, models.LibraryItem{Kind: kind, IDs: ids})
		}

		n := len(resp.MediaContainer.Metadata)
		total := resp.MediaContainer.TotalSize
		if total == 0 {
			total = resp.MediaContainer.Size
		}
		if n == 0 || start+n >= total {
			return out, nil
		}
	}
}

// parseGUIDs maps Plex agent GUIDs ("tmdb://603", "imdb://tt0133093", "tvdb://81189").
func parseGUIDs(guids []plexGUID) models.ExternalIDs {
	var ids models.ExternalIDs
	for _, g := range guids {
		scheme, value, ok := strings.Cut(g.ID, "://")
		if !ok || value == "" {
			continue
		}
		switch scheme {
		case "tmdb":
			ids.TMDB = value
		case "imdb":
			ids.IMDb = value
		case "tvdb":
			ids.TVDB = value
		}
	}
	return ids
}
