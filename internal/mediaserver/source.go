// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package mediaserver

import (
	"context"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/upstream"
)

// Source is a media server that can report users, watch history and the
// contents of its libraries. Jellyfin, Emby and Plex implement it.
type Source interface {
	// Name identifies the server in logs and on MediaUser.Server.
	Name() string

	Users(ctx context.Context) ([]models.MediaUser, error)
	Libraries(ctx context.Context) ([]models.Library, error)

	// RecentlyWatched returns up to limit played movies and episodes, most
	// recent first. userID is ignored when SupportsUserHistory is false.
	RecentlyWatched(ctx context.Context, userID string, limit int) ([]models.WatchedItem, error)

	// SeriesIDs returns the provider ids of the series an episode belongs to.
	SeriesIDs(ctx context.Context, seriesID string) (models.ExternalIDs, error)

	// LibraryItems lists every movie and series in the server's libraries.
	LibraryItems(ctx context.Context) ([]models.LibraryItem, error)

	// SupportsUserHistory reports whether history can be scoped per user.
	SupportsUserHistory() bool
}

var (
	_ Source = (*EmbyClient)(nil)
	_ Source = (*PlexClient)(nil)
)

// FromConfig builds a Source for every enabled media server in cfg.
func FromConfig(cfg *config.Config) []Source {
	opts := []upstream.Option{
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithBreaker(cfg.Upstream.BreakerEnabled),
	}

	var sources []Source
	for _, srv := range cfg.GetJellyfinServers() {
		sources = append(sources, NewJellyfinClient(srv, opts...))
	}
	for _, srv := range cfg.GetEmbyServers() {
		sources = append(sources, NewEmbyClient(srv, opts...))
	}
	for _, srv := range cfg.GetPlexServers() {
		sources = append(sources, NewPlexClient(srv, opts...))
	}
	return sources
}
