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
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/upstream"
)

// libraryPageSize is the page size used when listing library contents.
const libraryPageSize = 500

// EmbyClient talks to the REST API shared by Jellyfin and Emby.
//
// API Reference: https://api.jellyfin.org/
type EmbyClient struct {
	platform string
	serverID string
	client   *upstream.Client
}

// NewJellyfinClient creates a client for a Jellyfin server.
func NewJellyfinClient(cfg config.MediaServerConfig, opts ...upstream.Option) *EmbyClient {
	return newEmbyFamilyClient("jellyfin", cfg, opts...)
}

// NewEmbyClient creates a client for an Emby server.
func NewEmbyClient(cfg config.MediaServerConfig, opts ...upstream.Option) *EmbyClient {
	return newEmbyFamilyClient("emby", cfg, opts...)
}

func newEmbyFamilyClient(platform string, cfg config.MediaServerConfig, opts ...upstream.Option) *EmbyClient {
	serverID := cfg.ServerID
	if serverID == "" {
		serverID = config.GenerateServerID(platform, cfg.URL)
	}

	all := append([]upstream.Option{
		upstream.WithHeader("X-Emby-Token", cfg.APIKey),
		upstream.WithHeader("X-Emby-Client", "Curator"),
	}, opts...)

	return &EmbyClient{
		platform: platform,
		serverID: serverID,
		client:   upstream.New(platform+":"+serverID, cfg.URL, all...),
	}
}

// embyUser represents a Jellyfin/Emby user
type embyUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type embyVirtualFolder struct {
	Name           string `json:"Name"`
	ItemID         string `json:"ItemId"`
	CollectionType string `json:"CollectionType"`
}

type embyItemsResponse struct {
	Items            []embyItem `json:"Items"`
	TotalRecordCount int        `json:"TotalRecordCount"`
}

type embyItem struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"` // Movie, Episode, Series
	ProductionYear int               `json:"ProductionYear"`
	ProviderIDs    map[string]string `json:"ProviderIds"`
	SeriesID       string            `json:"SeriesId"`
	SeriesName     string            `json:"SeriesName"`
	UserData       *embyUserData     `json:"UserData"`
}

type embyUserData struct {
	Played         bool      `json:"Played"`
	LastPlayedDate time.Time `json:"LastPlayedDate"`
}

// Name returns platform:server_id.
func (c *EmbyClient) Name() string {
	return c.platform + ":" + c.serverID
}

// SupportsUserHistory is true: played state is tracked per user.
func (c *EmbyClient) SupportsUserHistory() bool {
	return true
}

// Users lists the server's user accounts.
func (c *EmbyClient) Users(ctx context.Context) ([]models.MediaUser, error) {
	var users []embyUser
	if err := c.client.GetJSON(ctx, "/Users", nil, &users); err != nil {
		return nil, fmt.Errorf("%s users request failed: %w", c.platform, err)
	}

	out := make([]models.MediaUser, 0, len(users))
	for _, u := range users {
		out = append(out, models.MediaUser{ID: u.ID, Name: u.Name, Server: c.Name()})
	}
	return out, nil
}

// Libraries lists the server's virtual folders.
func (c *EmbyClient) Libraries(ctx context.Context) ([]models.Library, error) {
	var folders []embyVirtualFolder
	if err := c.client.GetJSON(ctx, "/Library/VirtualFolders", nil, &folders); err != nil {
		return nil, fmt.Errorf("%s libraries request failed: %w", c.platform, err)
	}

	out := make([]models.Library, 0, len(folders))
	for _, f := range folders {
		out = append(out, models.Library{ID: f.ItemID, Name: f.Name, Type: f.CollectionType})
	}
	return out, nil
}

// RecentlyWatched returns the user's played movies and episodes, most recent first.
func (c *EmbyClient) RecentlyWatched(ctx context.Context, userID string, limit int) ([]models.WatchedItem, error) {
	query := url.Values{
		"Recursive":        {"true"},
		"IncludeItemTypes": {"Movie,Episode"},
		"Filters":          {"IsPlayed"},
		"SortBy":           {"DatePlayed"},
		"SortOrder":        {"Descending"},
		"Fields":           {"ProviderIds"},
		"Limit":            {strconv.Itoa(limit)},
	}

	var resp embyItemsResponse
	path := "/Users/" + url.PathEscape(userID) + "/Items"
	if err := c.client.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("%s history request failed: %w", c.platform, err)
	}

	out := make([]models.WatchedItem, 0, len(resp.Items))
	for i := range resp.Items {
		item := &resp.Items[i]
		w := models.WatchedItem{
			ID:    item.ID,
			Title: item.Name,
			Year:  item.ProductionYear,
			IDs:   providerIDs(item.ProviderIDs),
		}
		if item.UserData != nil {
			w.WatchedAt = item.UserData.LastPlayedDate
		}
		switch item.Type {
		case "Movie":
			w.Type = models.WatchedMovie
		case "Episode":
			w.Type = models.WatchedEpisode
			w.SeriesID = item.SeriesID
			w.SeriesTitle = item.SeriesName
		default:
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// SeriesIDs returns the provider ids of a series item.
func (c *EmbyClient) SeriesIDs(ctx context.Context, seriesID string) (models.ExternalIDs, error) {
	query := url.Values{
		"Ids":    {seriesID},
		"Fields": {"ProviderIds"},
	}

	var resp embyItemsResponse
	if err := c.client.GetJSON(ctx, "/Items", query, &resp); err != nil {
		return models.ExternalIDs{}, fmt.Errorf("%s series request failed: %w", c.platform, err)
	}
	if len(resp.Items) == 0 {
		return models.ExternalIDs{}, fmt.Errorf("%s series %s: %w", c.platform, seriesID, models.ErrNotFound)
	}
	return providerIDs(resp.Items[0].ProviderIDs), nil
}

// LibraryItems pages through every movie and series on the server.
func (c *EmbyClient) LibraryItems(ctx context.Context) ([]models.LibraryItem, error) {
	var out []models.LibraryItem

	for start := 0; ; start += libraryPageSize {
		query := url.Values{
			"Recursive":        {"true"},
			"IncludeItemTypes": {"Movie,Series"},
			"Fields":           {"ProviderIds"},
			"StartIndex":       {strconv.Itoa(start)},
			"Limit":            {strconv.Itoa(libraryPageSize)},
		}

		var resp embyItemsResponse
		if err := c.client.GetJSON(ctx, "/Items", query, &resp); err != nil {
			return nil, fmt.Errorf("%s library request failed: %w", c.platform, err)
		}

		for i := range resp.Items {
			kind := models.MediaMovie
			if resp.Items[i].Type == "Series" {
				kind = models.MediaTV
			}
			ids := providerIDs(resp.Items[i].ProviderIDs)
			if ids.Empty() {
				continue
			}
			out = append(out, models.LibraryItem{Kind: kind, IDs: ids})
		}

		if len(resp.Items) == 0 || start+len(resp.Items) >= resp.TotalRecordCount {
			return out, nil
		}
	}
}

// providerIDs maps the ProviderIds object. Key case differs between
// server versions ("Tmdb" vs "TMDB").
func providerIDs(m map[string]string) models.ExternalIDs {
	var ids models.ExternalIDs
	for k, v := range m {
		switch strings.ToLower(k) {
		case "tmdb":
			ids.TMDB = v
		case "imdb":
			ids.IMDb = v
		case "tvdb":
			ids.TVDB = v
		}
	}
	return ids
}
