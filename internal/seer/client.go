// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package seer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/upstream"
)

// Client talks to Jellyseerr or Overseerr (the API is shared).
//
// API Reference: https://api-docs.overseerr.dev/
type Client struct {
	http *upstream.Client
	cfg  config.SeerConfig
}

// New creates a request-management client.
func New(cfg config.SeerConfig, up config.UpstreamConfig, opts ...upstream.Option) *Client {
	base := []upstream.Option{
		upstream.WithTimeout(up.Timeout),
		upstream.WithBreaker(up.BreakerEnabled),
		upstream.WithHeader("X-Api-Key", cfg.APIKey),
	}
	return &Client{
		http: upstream.New("seer", cfg.URL, append(base, opts...)...),
		cfg:  cfg,
	}
}

// Submit creates a request. Anime items are routed to the configured anime
// server, profile and root folder when set. Credentials rejected by the
// service surface as models.ErrAuthRejected.
func (c *Client) Submit(ctx context.Context, req MediaRequest, anime bool) (*Request, error) {
	body := submitBody{MediaRequest: req, Is4K: c.cfg.Is4K}
	if anime {
		body.ServerID = c.cfg.AnimeServerID
		body.ProfileID = c.cfg.AnimeProfileID
		body.RootFolder = c.cfg.AnimeRootFolder
	}

	var created Request
	if err := c.http.PostJSON(ctx, "/api/v1/request", body, &created); err != nil {
		return nil, fmt.Errorf("submit %s: %w", req.Key(), err)
	}
	return &created, nil
}

// ListRequests returns one page of requests, newest first.
func (c *Client) ListRequests(ctx context.Context, take, skip int) (*RequestPage, error) {
	q := url.Values{
		"take":   {strconv.Itoa(take)},
		"skip":   {strconv.Itoa(skip)},
		"filter": {"all"},
		"sort":   {"added"},
	}

	var page RequestPage
	if err := c.http.GetJSON(ctx, "/api/v1/request", q, &page); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return &page, nil
}

// CountRequests returns request totals by type and status.
func (c *Client) CountRequests(ctx context.Context) (*RequestCounts, error) {
	var counts RequestCounts
	if err := c.http.GetJSON(ctx, "/api/v1/request/count", nil, &counts); err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	return &counts, nil
}
