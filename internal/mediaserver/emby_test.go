// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package mediaserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/models"
)

func newTestJellyfin(t *testing.T, handler http.HandlerFunc) *EmbyClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewJellyfinClient(config.MediaServerConfig{
		Enabled:  true,
		ServerID: "jf-" + t.Name(),
		URL:      server.URL,
		APIKey:   "test-token",
	})
}

func TestEmbyClient_Users(t *testing.T) {
	c := newTestJellyfin(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users" {
			t.Errorf("path = %s, want /Users", r.URL.Path)
		}
		if r.Header.Get("X-Emby-Token") != "test-token" {
			t.Errorf("missing X-Emby-Token header")
		}
		_, _ = w.Write([]byte(`[{"Id":"u1","Name":"alice"},{"Id":"u2","Name":"bob"}]`))
	})

	users, err := c.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users[0].ID != "u1" || users[0].Name != "alice" {
		t.Errorf("users[0] = %+v", users[0])
	}
	if users[1].Server != c.Name() {
		t.Errorf("Server = %q, want %q", users[1].Server, c.Name())
	}
}

func TestEmbyClient_Libraries(t *testing.T) {
	c := newTestJellyfin(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"Name":"Movies","ItemId":"lib1","CollectionType":"movies"}]`))
	})

	libs, err := c.Libraries(context.Background())
	if err != nil {
		t.Fatalf("Libraries() error = %v", err)
	}
	if len(libs) != 1 || libs[0].ID != "lib1" || libs[0].Type != "movies" {
		t.Errorf("Libraries() = %+v", libs)
	}
}

func TestEmbyClient_RecentlyWatched(t *testing.T) {
	c := newTestJellyfin(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users/u1/Items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("Filters") != "IsPlayed" || q.Get("SortBy") != "DatePlayed" || q.Get("Limit") != "25" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"Items":[
			{"Id":"m1","Name":"The Matrix","Type":"Movie","ProductionYear":1999,
			 "ProviderIds":{"Tmdb":"603","Imdb":"tt0133093"},
			 "UserData":{"Played":true,"LastPlayedDate":"2026-01-02T03:04:05Z"}},
			{"Id":"e1","Name":"Pilot","Type":"Episode","SeriesId":"s1","SeriesName":"Severance",
			 "ProviderIds":{"TVDB":"371980"}},
			{"Id":"x1","Name":"Song","Type":"Audio"}
		],"TotalRecordCount":3}`))
	})

	items, err := c.RecentlyWatched(context.Background(), "u1", 25)
	if err != nil {
		t.Fatalf("RecentlyWatched() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (audio skipped)", len(items))
	}

	movie := items[0]
	if movie.Type != models.WatchedMovie || movie.IDs.TMDB != "603" || movie.IDs.IMDb != "tt0133093" {
		t.Errorf("movie = %+v", movie)
	}
	if movie.WatchedAt.Year() != 2026 {
		t.Errorf("WatchedAt = %v", movie.WatchedAt)
	}

	ep := items[1]
	if ep.Type != models.WatchedEpisode || ep.SeriesID != "s1" || ep.SeriesTitle != "Severance" {
		t.Errorf("episode = %+v", ep)
	}
	if ep.IDs.TVDB != "371980" {
		t.Errorf("provider id keys should be case-insensitive, got %+v", ep.IDs)
	}
	if ep.SeedKey() != "series:s1" {
		t.Errorf("SeedKey() = %q", ep.SeedKey())
	}
}

func TestEmbyClient_SeriesIDs(t *testing.T) {
	c := newTestJellyfin(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Ids") == "missing" {
			_, _ = w.Write([]byte(`{"Items":[],"TotalRecordCount":0}`))
			return
		}
		_, _ = w.Write([]byte(`{"Items":[{"Id":"s1","Type":"Series","ProviderIds":{"Tmdb":"95396"}}],"TotalRecordCount":1}`))
	})

	ids, err := c.SeriesIDs(context.Background(), "s1")
	if err != nil {
		t.Fatalf("SeriesIDs() error = %v", err)
	}
	if ids.TMDB != "95396" {
		t.Errorf("TMDB = %q, want 95396", ids.TMDB)
	}

	_, err = c.SeriesIDs(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("SeriesIDs(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEmbyClient_LibraryItemsPaginates(t *testing.T) {
	const total = libraryPageSize + 2
	var calls int
	c := newTestJellyfin(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		start, _ := strconv.Atoi(r.URL.Query().Get("StartIndex"))
		n := libraryPageSize
		if start+n > total {
			n = total - start
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"TotalRecordCount":` + strconv.Itoa(total) + `,"Items":[`))
		for i := 0; i < n; i++ {
			if i > 0 {
				_, _ = w.Write([]byte(","))
			}
			id := start + i
			typ := "Movie"
			if id%2 == 1 {
				typ = "Series"
			}
			providers := `{"Tmdb":"` + strconv.Itoa(id) + `"}`
			if id == 0 {
				providers = `{}`
			}
			_, _ = w.Write([]byte(`{"Id":"i` + strconv.Itoa(id) + `","Type":"` + typ + `","ProviderIds":` + providers + `}`))
		}
		_, _ = w.Write([]byte(`]}`))
	})

	items, err := c.LibraryItems(context.Background())
	if err != nil {
		t.Fatalf("LibraryItems() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	// item 0 has no provider ids
	if len(items) != total-1 {
		t.Errorf("got %d items, want %d", len(items), total-1)
	}
	if items[0].Kind != models.MediaTV || items[0].IDs.TMDB != "1" {
		t.Errorf("items[0] = %+v", items[0])
	}
}

func TestEmbyClient_AuthRejected(t *testing.T) {
	c := newTestJellyfin(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	})

	_, err := c.Users(context.Background())
	if !errors.Is(err, models.ErrAuthRejected) {
		t.Errorf("Users() error = %v, want ErrAuthRejected", err)
	}
}

func TestNewEmbyClient_Name(t *testing.T) {
	c := NewEmbyClient(config.MediaServerConfig{URL: "http://emby:8096", ServerID: "den"})
	if c.Name() != "emby:den" {
		t.Errorf("Name() = %q", c.Name())
	}
	if !c.SupportsUserHistory() {
		t.Error("Emby should support per-user history")
	}

	generated := NewEmbyClient(config.MediaServerConfig{URL: "http://emby:8096"})
	if generated.Name() != "emby:"+config.GenerateServerID("emby", "http://emby:8096") {
		t.Errorf("generated Name() = %q", generated.Name())
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		JellyfinServers: []config.MediaServerConfig{
			{Enabled: true, ServerID: "a", URL: "http://a", APIKey: "k"},
			{Enabled: false, ServerID: "b", URL: "http://b", APIKey: "k"},
		},
		PlexServers: []config.MediaServerConfig{
			{Enabled: true, ServerID: "p", URL: "http://p", APIKey: "t"},
		},
	}
	cfg.Upstream.BreakerEnabled = true

	sources := FromConfig(cfg)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Name() != "jellyfin:a" || sources[1].Name() != "plex:p" {
		t.Errorf("names = %s, %s", sources[0].Name(), sources[1].Name())
	}
}
