// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package consoleapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/platforms"
)

// Credentials manages per-profile OAuth app credentials.
type Credentials struct {
	log     *zap.Logger
	service *console.Service
}

// NewCredentials creates a credentials handler.
func NewCredentials(log *zap.Logger, service *console.Service) *Credentials {
	return &Credentials{log: log, service: service}
}

// Get returns stored credentials for a platform. The secret is never
// included.
func (h *Credentials) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, profileID, platform, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	credentials, err := h.service.GetCredentials(ctx, user, profileID, platform)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, credentials)
}

// Put stores or replaces credentials for a platform, encrypting the
// client secret.
func (h *Credentials) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, profileID, platform, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	var req console.UpsertCredentials
	if err := decodeBody(r, &req); err != nil {
		serveError(h.log, w, err)
		return
	}

	credentials, err := h.service.UpsertCredentials(ctx, user, profileID, platform, req)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, credentials)
}

// Delete removes stored credentials for a platform.
func (h *Credentials) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, profileID, platform, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCredentials(ctx, user, profileID, platform); err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"deleted": true})
}

// requestScope extracts the user, profile id and platform shared by all
// credential endpoints.
func (h *Credentials) requestScope(w http.ResponseWriter, r *http.Request) (*console.User, uuid.UUID, platforms.Platform, bool) {
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return nil, uuid.UUID{}, "", false
	}

	rawProfileID := r.URL.Query().Get("profile_id")
	if rawProfileID == "" {
		serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Missing required parameter: profile_id")
		return nil, uuid.UUID{}, "", false
	}
	profileID, err := pathID(rawProfileID)
	if err != nil {
		serveError(h.log, w, err)
		return nil, uuid.UUID{}, "", false
	}

	platform, err := platforms.Parse(chi.URLParam(r, "platform"))
	if err != nil {
		serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Unknown platform")
		return nil, uuid.UUID{}, "", false
	}
	return user, profileID, platform, true
}
