// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/curator/internal/catalog"
	"github.com/tomtom215/curator/internal/models"
)

// KindRequest selects a catalog namespace.
type KindRequest struct {
	Kind string `json:"kind" validate:"required,oneof=movie tv"`
}

// ProviderListRequest selects the provider list of one region.
type ProviderListRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=movie tv"`
	Region string `json:"region" validate:"required,region"`
}

// SourceView is one media server and its libraries. A server that could not
// be listed carries Error instead.
type SourceView struct {
	Name      string           `json:"name"`
	Libraries []models.Library `json:"libraries"`
	Error     string           `json:"error,omitempty"`
}

func kindQuery(r *http.Request) string {
	if kind := r.URL.Query().Get("kind"); kind != "" {
		return kind
	}
	return string(models.MediaMovie)
}

// CatalogGenres handles GET /api/v1/catalog/genres?kind=movie|tv.
func (h *Handler) CatalogGenres(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := KindRequest{Kind: kindQuery(r)}
	if !validateRequest(w, r, &req) {
		return
	}
	genres, err := h.catalog.Genres(r.Context(), models.MediaKind(req.Kind))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if genres == nil {
		genres = []catalog.Genre{}
	}
	respondSuccess(w, http.StatusOK, genres, start)
}

// CatalogLanguages handles GET /api/v1/catalog/languages.
func (h *Handler) CatalogLanguages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	langs, err := h.catalog.Languages(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if langs == nil {
		langs = []catalog.Language{}
	}
	respondSuccess(w, http.StatusOK, langs, start)
}

// CatalogRegions handles GET /api/v1/catalog/regions.
func (h *Handler) CatalogRegions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	regions, err := h.catalog.Regions(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if regions == nil {
		regions = []catalog.Region{}
	}
	respondSuccess(w, http.StatusOK, regions, start)
}

// CatalogProviders handles GET /api/v1/catalog/providers?kind=&region=.
func (h *Handler) CatalogProviders(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := ProviderListRequest{
		Kind:   kindQuery(r),
		Region: strings.ToUpper(r.URL.Query().Get("region")),
	}
	if !validateRequest(w, r, &req) {
		return
	}
	providers, err := h.catalog.ProviderList(r.Context(), models.MediaKind(req.Kind), req.Region)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if providers == nil {
		providers = []catalog.Provider{}
	}
	respondSuccess(w, http.StatusOK, providers, start)
}

// SeerCounts handles GET /api/v1/seer/count.
func (h *Handler) SeerCounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	counts, err := h.seer.CountRequests(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, counts, start)
}

// ListSources handles GET /api/v1/sources. A failing server is reported in
// its entry and does not fail the response.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	views := make([]SourceView, 0, len(h.sources))
	for _, src := range h.sources {
		v := SourceView{Name: src.Name(), Libraries: []models.Library{}}
		libs, err := src.Libraries(r.Context())
		if err != nil {
			v.Error = err.Error()
		} else if libs != nil {
			v.Libraries = libs
		}
		views = append(views, v)
	}
	respondSuccess(w, http.StatusOK, views, start)
}
