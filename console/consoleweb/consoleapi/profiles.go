// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package consoleapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
)

const maxTimelineLimit = 200

// Profiles manages profiles, profile timelines and filters.
type Profiles struct {
	log       *zap.Logger
	service   *console.Service
	assembler *assemble.Service
}

// NewProfiles creates a profiles handler.
func NewProfiles(log *zap.Logger, service *console.Service, assembler *assemble.Service) *Profiles {
	return &Profiles{log: log, service: service, assembler: assembler}
}

// List returns all profiles of the authenticated user.
func (h *Profiles) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}

	profiles, err := h.service.GetProfiles(ctx, user)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"profiles": profiles})
}

// Create adds a profile.
func (h *Profiles) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}

	var req console.CreateProfile
	if err := decodeBody(r, &req); err != nil {
		serveError(h.log, w, err)
		return
	}

	profile, err := h.service.CreateProfile(ctx, user, req)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusCreated, profile)
}

// Update modifies profile fields.
func (h *Profiles) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	profileID, err := pathID(chi.URLParam(r, "profileID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	var updates console.UpdateProfile
	if err := decodeBody(r, &updates); err != nil {
		serveError(h.log, w, err)
		return
	}
	if err := h.service.UpdateProfile(ctx, user, profileID, updates); err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"updated": true})
}

// Delete removes a profile and its accounts.
func (h *Profiles) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	profileID, err := pathID(chi.URLParam(r, "profileID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	if err := h.service.DeleteProfile(ctx, user, profileID); err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"deleted": true})
}

// Timeline assembles a profile-scoped timeline on demand, applying the
// profile's filter set and the optional limit/before window.
func (h *Profiles) Timeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfileBySlug(ctx, user, chi.URLParam(r, "slug"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	window := &assemble.Window{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxTimelineLimit {
			serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Parameter limit must be between 1 and 200")
			return
		}
		window.Limit = limit
	}
	if raw := r.URL.Query().Get("before"); raw != "" {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Parameter before must be an ISO-8601 date")
			return
		}
		window.Before = raw
	}

	payload, err := h.assembler.AssembleProfile(ctx, profile, window)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, payload)
}

// ListFilters returns the filter set of a profile.
func (h *Profiles) ListFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	profileID, err := pathID(chi.URLParam(r, "profileID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	filters, err := h.service.GetFilters(ctx, user, profileID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"filters": filters})
}

// CreateFilter adds one filter to a profile.
func (h *Profiles) CreateFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	profileID, err := pathID(chi.URLParam(r, "profileID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	var req console.CreateFilter
	if err := decodeBody(r, &req); err != nil {
		serveError(h.log, w, err)
		return
	}

	filter, err := h.service.CreateFilter(ctx, user, profileID, req)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusCreated, filter)
}

// DeleteFilter removes one filter from a profile.
func (h *Profiles) DeleteFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	profileID, err := pathID(chi.URLParam(r, "profileID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	filterID, err := pathID(chi.URLParam(r, "filterID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	if err := h.service.DeleteFilter(ctx, user, profileID, filterID); err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"deleted": true})
}
