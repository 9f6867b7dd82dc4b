// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package llm asks an OpenAI-compatible chat completion endpoint for title
// suggestions based on a user's watch history.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/upstream"
)

// ErrBadReply is returned when the model's reply is not a JSON suggestion list.
var ErrBadReply = errors.New("unparseable model reply")

// HistoryEntry is one watched title given to the model.
type HistoryEntry struct {
	Title string
	Year  int
	Kind  models.MediaKind
}

// Suggestion is one title proposed by the model.
type Suggestion struct {
	Title       string           `json:"title"`
	Year        int              `json:"year,omitempty"`
	MediaType   models.MediaKind `json:"media_type,omitempty"`
	Rationale   string           `json:"rationale,omitempty"`
	SourceTitle string           `json:"source_title,omitempty"`
}

// Client is an OpenAI-compatible chat completions client.
type Client struct {
	http        *upstream.Client
	model       string
	maxTokens   int
	temperature float64
}

// New creates a client. Any endpoint implementing /chat/completions works
// (OpenAI, Ollama, LM Studio, vLLM).
func New(cfg config.LLMConfig, up config.UpstreamConfig, opts ...upstream.Option) *Client {
	base := []upstream.Option{
		upstream.WithTimeout(up.Timeout),
		upstream.WithBreaker(up.BreakerEnabled),
	}
	if cfg.APIKey != "" {
		base = append(base, upstream.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	}
	return &Client{
		http:        upstream.New("llm", cfg.BaseURL, append(base, opts...)...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `You recommend movies and TV series. Reply with only a JSON array, no prose. ` +
	`Each element is {"title": string, "year": number, "media_type": "movie" or "tv", ` +
	`"rationale": one sentence, "source_title": the watched title that inspired it}. ` +
	`Never suggest a title from the watch history.`

// Recommend asks for up to count suggestions of kind (movie, tv or both)
// based on history.
func (c *Client) Recommend(ctx context.Context, history []HistoryEntry, kind models.MediaKind, count int) ([]Suggestion, error) {
	if len(history) == 0 || count <= 0 {
		return nil, nil
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(history, kind, count)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var resp chatResponse
	if err := c.http.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return nil, fmt.Errorf("llm recommend: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrBadReply)
	}

	suggestions, err := parseSuggestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(suggestions) > count {
		suggestions = suggestions[:count]
	}
	return suggestions, nil
}

func buildPrompt(history []HistoryEntry, kind models.MediaKind, count int) string {
	var b strings.Builder

	what := "movies or TV series"
	switch kind {
	case models.MediaMovie:
		what = "movies"
	case models.MediaTV:
		what = "TV series"
	}
	fmt.Fprintf(&b, "Suggest %d %s for someone who recently watched:\n", count, what)

	for _, h := range history {
		b.WriteString("- ")
		b.WriteString(h.Title)
		if h.Year > 0 {
			fmt.Fprintf(&b, " (%d)", h.Year)
		}
		if h.Kind != "" {
			fmt.Fprintf(&b, " [%s]", h.Kind)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// parseSuggestions accepts a bare JSON array, an object wrapping one under
// any key, and either of those inside a markdown code fence.
func parseSuggestions(content string) ([]Suggestion, error) {
	content = stripCodeFence(content)
	data := []byte(content)

	var list []Suggestion
	if err := json.Unmarshal(data, &list); err == nil {
		return cleanSuggestions(list), nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err == nil {
		for _, raw := range wrapped {
			if err := json.Unmarshal(raw, &list); err == nil {
				return cleanSuggestions(list), nil
			}
		}
	}

	// Some models add prose around the array.
	if start, end := bytes.IndexByte(data, '['), bytes.LastIndexByte(data, ']'); start >= 0 && end > start {
		if err := json.Unmarshal(data[start:end+1], &list); err == nil {
			return cleanSuggestions(list), nil
		}
	}

	return nil, fmt.Errorf("%w: %.80q", ErrBadReply, content)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cleanSuggestions(in []Suggestion) []Suggestion {
	out := in[:0]
	for _, s := range in {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}
		if s.MediaType != "" && !s.MediaType.Valid() {
			s.MediaType = ""
		}
		out = append(out, s)
	}
	return out
}
