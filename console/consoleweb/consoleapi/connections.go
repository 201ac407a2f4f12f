// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package consoleapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/refresh"
)

// Connections manages platform accounts and their refreshes.
type Connections struct {
	log       *zap.Logger
	service   *console.Service
	assembler *assemble.Service
	refresher *refresh.Service
}

// NewConnections creates a connections handler.
func NewConnections(log *zap.Logger, service *console.Service, assembler *assemble.Service, refresher *refresh.Service) *Connections {
	return &Connections{log: log, service: service, assembler: assembler, refresher: refresher}
}

// List returns the accounts of an owned profile.
func (h *Connections) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}

	rawProfileID := r.URL.Query().Get("profile_id")
	if rawProfileID == "" {
		serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Missing required parameter: profile_id")
		return
	}
	profileID, err := pathID(rawProfileID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	includeSettings := r.URL.Query().Get("include_settings") == "true"
	accounts, err := h.service.GetAccounts(ctx, user, profileID, includeSettings)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Create connects a new platform account to a profile.
func (h *Connections) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}

	var req console.CreateAccount
	if err := decodeBody(r, &req); err != nil {
		serveError(h.log, w, err)
		return
	}

	account, err := h.service.CreateAccount(ctx, user, req)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusCreated, map[string]any{
		"account_id": account.ID,
		"profile_id": account.ProfileID,
	})
}

// Update toggles account fields.
func (h *Connections) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	accountID, err := pathID(chi.URLParam(r, "accountID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	var updates console.UpdateAccount
	if err := decodeBody(r, &updates); err != nil {
		serveError(h.log, w, err)
		return
	}
	if err := h.service.UpdateAccount(ctx, user, accountID, updates); err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"updated": true})
}

// Delete removes an account with its full cascade and reports what was
// deleted.
func (h *Connections) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	accountID, err := pathID(chi.URLParam(r, "accountID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	result, err := h.service.DeleteAccount(ctx, user, accountID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, result)
}

// Refresh refreshes one account on demand.
func (h *Connections) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	accountID, err := pathID(chi.URLParam(r, "accountID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	result, err := h.refresher.RefreshAccount(ctx, user, accountID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, result)
}

// RefreshAll refreshes every active account of the user.
func (h *Connections) RefreshAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}

	result, err := h.refresher.RefreshAll(ctx, user)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, result)
}

// GetSettings returns the key/value settings of an account.
func (h *Connections) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	accountID, err := pathID(chi.URLParam(r, "accountID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	settings, err := h.service.GetAccountSettings(ctx, user, accountID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"settings": settings})
}

// PutSettings upserts each given setting key.
func (h *Connections) PutSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	accountID, err := pathID(chi.URLParam(r, "accountID"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	var settings map[string]string
	if err := decodeBody(r, &settings); err != nil {
		serveError(h.log, w, err)
		return
	}
	if err := h.service.UpdateAccountSettings(ctx, user, accountID, settings); err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"updated": true})
}

// Repos returns the repository list of a GitHub account's latest meta.
func (h *Connections) Repos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.ownedPlatformAccount(w, r, platforms.GitHub)
	if !ok {
		return
	}
	repos, err := h.assembler.GitHubRepos(ctx, account)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"repos": repos})
}

// Subreddits returns the subreddit list of a Reddit account's latest
// meta.
func (h *Connections) Subreddits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.ownedPlatformAccount(w, r, platforms.Reddit)
	if !ok {
		return
	}
	subreddits, err := h.assembler.RedditSubreddits(ctx, account)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, map[string]any{"subreddits": subreddits})
}

// ownedPlatformAccount resolves the path account, checks ownership and
// rejects platform mismatches.
func (h *Connections) ownedPlatformAccount(w http.ResponseWriter, r *http.Request, platform platforms.Platform) (*console.Account, bool) {
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return nil, false
	}
	accountID, err := pathID(chi.URLParam(r, "accountID"))
	if err != nil {
		serveError(h.log, w, err)
		return nil, false
	}
	account, err := h.service.OwnedAccount(r.Context(), user, accountID)
	if err != nil {
		serveError(h.log, w, err)
		return nil, false
	}
	if account.Platform != platform {
		serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Account platform does not support this resource")
		return nil, false
	}
	return account, true
}
