// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/cache"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/upstream"
)

// memoryCacheSize bounds the in-process layer in front of MetadataCache.
const memoryCacheSize = 5000

// MetadataCache persists catalog lookups across restarts.
// database.MetadataStore implements it.
type MetadataCache interface {
	GetMetadata(ctx context.Context, key string) ([]byte, bool, error)
	SetMetadata(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client is a TMDB v3 API client.
//
// API Reference: https://developer.themoviedb.org/reference
type Client struct {
	http     *upstream.Client
	language string
	ttl      time.Duration
	store    MetadataCache
	memory   *cache.Cache[[]byte]
}

// New creates a catalog client. store may be nil, in which case lookups are
// cached in memory only.
func New(cfg config.CatalogConfig, up config.UpstreamConfig, store MetadataCache, opts ...upstream.Option) *Client {
	base := []upstream.Option{
		upstream.WithTimeout(up.Timeout),
		upstream.WithBreaker(up.BreakerEnabled),
		upstream.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	}

	// v4 read access tokens are JWTs and go in the Authorization header;
	// v3 keys go in the query string.
	if strings.HasPrefix(cfg.APIKey, "eyJ") {
		base = append(base, upstream.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	} else {
		base = append(base, upstream.WithQueryParam("api_key", cfg.APIKey))
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Client{
		http:     upstream.New("tmdb", cfg.BaseURL, append(base, opts...)...),
		language: cfg.Language,
		ttl:      ttl,
		store:    store,
		memory:   cache.New[[]byte](memoryCacheSize, ttl),
	}
}

func kindPath(kind models.MediaKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: media kind %q", models.ErrValidation, kind)
	}
	return string(kind), nil
}

func (c *Client) query(extra url.Values) url.Values {
	q := url.Values{}
	if c.language != "" {
		q.Set("language", c.language)
	}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

func (c *Client) getPage(ctx context.Context, kind models.MediaKind, path string, q url.Values) (*Page, error) {
	var resp tmdbListResponse
	if err := c.http.GetJSON(ctx, path, c.query(q), &resp); err != nil {
		return nil, err
	}
	return resp.toPage(kind), nil
}

// cached returns the value under key from memory, then the persistent store,
// then fetch. Cache failures are logged and never fail the lookup.
func cached[T any](ctx context.Context, c *Client, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok := c.memory.Get(key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	if c.store != nil {
		raw, ok, err := c.store.GetMetadata(ctx, key)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Metadata cache read failed")
		} else if ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				c.memory.Set(key, raw)
				return v, nil
			}
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	c.memory.Set(key, raw)
	if c.store != nil {
		if err := c.store.SetMetadata(ctx, key, raw, c.ttl); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Metadata cache write failed")
		}
	}
	return v, nil
}

// Similar returns titles similar to the given catalog item.
func (c *Client) Similar(ctx context.Context, kind models.MediaKind, id, page int) (*Page, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/%s/%d/similar", kp, id)
	return c.getPage(ctx, kind, path, url.Values{"page": {strconv.Itoa(max(page, 1))}})
}

// Discover browses the catalog with the given parameters.
func (c *Client) Discover(ctx context.Context, kind models.MediaKind, p DiscoverParams) (*Page, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"page":          {strconv.Itoa(max(p.Page, 1))},
		"include_adult": {"false"},
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if len(p.WithGenres) > 0 {
		q.Set("with_genres", joinInts(p.WithGenres, ","))
	}
	if len(p.WithKeywords) > 0 {
		q.Set("with_keywords", joinInts(p.WithKeywords, "|"))
	}
	if p.Language != "" {
		q.Set("with_original_language", p.Language)
	}
	if p.MinVotes > 0 {
		q.Set("vote_count.gte", strconv.Itoa(p.MinVotes))
	}
	if p.MinRating > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(p.MinRating, 'f', -1, 64))
	}
	if p.MinRuntime > 0 {
		q.Set("with_runtime.gte", strconv.Itoa(p.MinRuntime))
	}
	if p.MinYear > 0 {
		from := fmt.Sprintf("%04d-01-01", p.MinYear)
		if kind == models.MediaTV {
			q.Set("first_air_date.gte", from)
		} else {
			q.Set("primary_release_date.gte", from)
		}
	}

	return c.getPage(ctx, kind, "/discover/"+kp, q)
}

// Search finds titles by name. year narrows the search when > 0.
func (c *Client) Search(ctx context.Context, kind models.MediaKind, title string, year int) (*Page, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}

	q := url.Values{"query": {title}, "include_adult": {"false"}}
	if year > 0 {
		if kind == models.MediaTV {
			q.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			q.Set("year", strconv.Itoa(year))
		}
	}
	return c.getPage(ctx, kind, "/search/"+kp, q)
}

// Details returns the full record of a title, including runtime, season
// count and IMDb id.
func (c *Client) Details(ctx context.Context, kind models.MediaKind, id int) (*models.CandidateItem, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tmdb:details:%s:%d:%s", kp, id, c.language)
	item, err := cached(ctx, c, key, func(ctx context.Context) (tmdbItem, error) {
		var raw tmdbItem
		path := fmt.Sprintf("/%s/%d", kp, id)
		err := c.http.GetJSON(ctx, path, c.query(url.Values{"append_to_response": {"external_ids"}}), &raw)
		return raw, err
	})
	if err != nil {
		return nil, err
	}

	candidate := item.toCandidate(kind)
	return &candidate, nil
}

// WatchProviders returns the ids of providers streaming the title in region
// (subscription, free and ad-supported offers).
func (c *Client) WatchProviders(ctx context.Context, kind models.MediaKind, id int, region string) ([]int, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	region = strings.ToUpper(region)

	key := fmt.Sprintf("tmdb:providers:%s:%d:%s", kp, id, region)
	return cached(ctx, c, key, func(ctx context.Context) ([]int, error) {
		var resp tmdbProvidersResponse
		if err := c.http.GetJSON(ctx, fmt.Sprintf("/%s/%d/watch/providers", kp, id), nil, &resp); err != nil {
			return nil, err
		}

		offers, ok := resp.Results[region]
		if !ok {
			return []int{}, nil
		}
		seen := make(map[int]bool)
		ids := []int{}
		for _, group := range [][]Provider{offers.Flatrate, offers.Free, offers.Ads} {
			for _, p := range group {
				if !seen[p.ID] {
					seen[p.ID] = true
					ids = append(ids, p.ID)
				}
			}
		}
		return ids, nil
	})
}

// ExternalIDs returns the IMDb and TVDB ids of a title.
func (c *Client) ExternalIDs(ctx context.Context, kind models.MediaKind, id int) (models.ExternalIDs, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return models.ExternalIDs{}, err
	}

	key := fmt.Sprintf("tmdb:external_ids:%s:%d", kp, id)
	body, err := cached(ctx, c, key, func(ctx context.Context) (tmdbExternalIDsBody, error) {
		var resp tmdbExternalIDsBody
		err := c.http.GetJSON(ctx, fmt.Sprintf("/%s/%d/external_ids", kp, id), nil, &resp)
		return resp, err
	})
	if err != nil {
		return models.ExternalIDs{}, err
	}

	ids := models.ExternalIDs{TMDB: strconv.Itoa(id), IMDb: body.IMDbID}
	if body.TVDBID > 0 {
		ids.TVDB = strconv.Itoa(body.TVDBID)
	}
	return ids, nil
}

// FindByExternalID maps an IMDb or TVDB id to a catalog id of the given kind.
// It returns models.ErrNotFound when the catalog has no match.
func (c *Client) FindByExternalID(ctx context.Context, kind models.MediaKind, externalID string, source ExternalSource) (int, error) {
	if _, err := kindPath(kind); err != nil {
		return 0, err
	}

	key := fmt.Sprintf("tmdb:find:%s:%s", source, externalID)
	resp, err := cached(ctx, c, key, func(ctx context.Context) (tmdbFindResponse, error) {
		var r tmdbFindResponse
		err := c.http.GetJSON(ctx, "/find/"+url.PathEscape(externalID),
			url.Values{"external_source": {string(source)}}, &r)
		return r, err
	})
	if err != nil {
		return 0, err
	}

	results := resp.MovieResults
	if kind == models.MediaTV {
		results = resp.TVResults
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("find %s %s: %w", source, externalID, models.ErrNotFound)
	}
	return results[0].ID, nil
}

// ResolveID returns the catalog id for a media server item: the TMDB
// provider id when present, otherwise a find by IMDb then TVDB id.
func (c *Client) ResolveID(ctx context.Context, kind models.MediaKind, ids models.ExternalIDs) (int, error) {
	if ids.TMDB != "" {
		if id, err := strconv.Atoi(ids.TMDB); err == nil && id > 0 {
			return id, nil
		}
	}

	var lastErr error = models.ErrNotFound
	lookups := []struct {
		id     string
		source ExternalSource
	}{
		{ids.IMDb, SourceIMDb},
		{ids.TVDB, SourceTVDB},
	}
	for _, l := range lookups {
		if l.id == "" {
			continue
		}
		id, err := c.FindByExternalID(ctx, kind, l.id, l.source)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return 0, err
		}
		lastErr = err
	}
	return 0, lastErr
}

// Genres lists the catalog genres for kind.
func (c *Client) Genres(ctx context.Context, kind models.MediaKind) ([]Genre, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tmdb:genres:%s:%s", kp, c.language)
	return cached(ctx, c, key, func(ctx context.Context) ([]Genre, error) {
		var resp struct {
			Genres []Genre `json:"genres"`
		}
		err := c.http.GetJSON(ctx, "/genre/"+kp+"/list", c.query(nil), &resp)
		return resp.Genres, err
	})
}

// Languages lists the languages known to the catalog.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	return cached(ctx, c, "tmdb:languages", func(ctx context.Context) ([]Language, error) {
		var langs []Language
		err := c.http.GetJSON(ctx, "/configuration/languages", nil, &langs)
		return langs, err
	})
}

// Regions lists the countries that have watch-provider data.
func (c *Client) Regions(ctx context.Context) ([]Region, error) {
	key := "tmdb:regions:" + c.language
	return cached(ctx, c, key, func(ctx context.Context) ([]Region, error) {
		var resp struct {
			Results []Region `json:"results"`
		}
		err := c.http.GetJSON(ctx, "/watch/providers/regions", c.query(nil), &resp)
		return resp.Results, err
	})
}

// ProviderList lists the streaming providers available for kind in region.
func (c *Client) ProviderList(ctx context.Context, kind models.MediaKind, region string) ([]Provider, error) {
	kp, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	region = strings.ToUpper(region)

	key := fmt.Sprintf("tmdb:provider_list:%s:%s", kp, region)
	return cached(ctx, c, key, func(ctx context.Context) ([]Provider, error) {
		var resp struct {
			Results []Provider `json:"results"`
		}
		err := c.http.GetJSON(ctx, "/watch/providers/"+kp, c.query(url.Values{"watch_region": {region}}), &resp)
		return resp.Results, err
	})
}

func joinInts(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}
