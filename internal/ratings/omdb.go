// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package ratings looks up secondary (IMDb) ratings through the OMDb API.
package ratings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/cache"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/upstream"
)

// Rating is an IMDb rating as reported by OMDb.
type Rating struct {
	Value float64 `json:"value"` // 0-10
	Votes int     `json:"votes"`
}

// MetadataCache persists lookups across restarts.
type MetadataCache interface {
	GetMetadata(ctx context.Context, key string) ([]byte, bool, error)
	SetMetadata(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cachedRating records misses too, so titles OMDb has no rating for are
// not looked up again until the TTL expires.
type cachedRating struct {
	Rating Rating `json:"rating"`
	Found  bool   `json:"found"`
}

// Client is an OMDb client.
//
// API Reference: https://www.omdbapi.com/
type Client struct {
	http   *upstream.Client
	ttl    time.Duration
	store  MetadataCache
	memory *cache.Cache[cachedRating]
}

// New creates an OMDb client. store may be nil.
func New(cfg config.RatingsConfig, up config.UpstreamConfig, store MetadataCache, opts ...upstream.Option) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	base := []upstream.Option{
		upstream.WithTimeout(up.Timeout),
		upstream.WithBreaker(up.BreakerEnabled),
		upstream.WithQueryParam("apikey", cfg.APIKey),
	}
	return &Client{
		http:   upstream.New("omdb", cfg.BaseURL, append(base, opts...)...),
		ttl:    ttl,
		store:  store,
		memory: cache.New[cachedRating](20000, ttl),
	}
}

type omdbResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	IMDbRating string `json:"imdbRating"`
	IMDbVotes  string `json:"imdbVotes"`
}

// Lookup returns the IMDb rating of imdbID. found is false when OMDb has
// no rating for the title; err is only set for upstream failures.
func (c *Client) Lookup(ctx context.Context, imdbID string) (Rating, bool, error) {
	if imdbID == "" {
		return Rating{}, false, nil
	}

	key := "omdb:" + imdbID
	if hit, ok := c.memory.Get(key); ok {
		return hit.Rating, hit.Found, nil
	}
	if hit, ok := c.fromStore(ctx, key); ok {
		c.memory.Set(key, hit)
		return hit.Rating, hit.Found, nil
	}

	var resp omdbResponse
	if err := c.http.GetJSON(ctx, "/", url.Values{"i": {imdbID}}, &resp); err != nil {
		return Rating{}, false, fmt.Errorf("omdb lookup %s: %w", imdbID, err)
	}

	result := cachedRating{}
	if strings.EqualFold(resp.Response, "True") {
		result.Rating, result.Found = parseRating(resp.IMDbRating, resp.IMDbVotes)
	}

	c.memory.Set(key, result)
	c.toStore(ctx, key, result)
	return result.Rating, result.Found, nil
}

func (c *Client) fromStore(ctx context.Context, key string) (cachedRating, bool) {
	if c.store == nil {
		return cachedRating{}, false
	}
	raw, ok, err := c.store.GetMetadata(ctx, key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Rating cache read failed")
		return cachedRating{}, false
	}
	if !ok {
		return cachedRating{}, false
	}
	var v cachedRating
	if err := json.Unmarshal(raw, &v); err != nil {
		return cachedRating{}, false
	}
	return v, true
}

func (c *Client) toStore(ctx context.Context, key string, v cachedRating) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.SetMetadata(ctx, key, raw, c.ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Rating cache write failed")
	}
}

// parseRating parses OMDb's string fields ("7.4", "1,234,567"). "N/A" means
// no rating.
func parseRating(rating, votes string) (Rating, bool) {
	value, err := strconv.ParseFloat(rating, 64)
	if err != nil {
		return Rating{}, false
	}

	var n int
	if v := strings.ReplaceAll(votes, ",", ""); v != "" && v != "N/A" {
		n, _ = strconv.Atoi(v)
	}
	return Rating{Value: value, Votes: n}, true
}
