// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package consoleapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
)

// Timeline serves persisted timeline and raw platform snapshots.
type Timeline struct {
	log       *zap.Logger
	service   *console.Service
	assembler *assemble.Service
}

// NewTimeline creates a timeline handler.
func NewTimeline(log *zap.Logger, service *console.Service, assembler *assemble.Service) *Timeline {
	return &Timeline{log: log, service: service, assembler: assembler}
}

// Get returns the latest timeline snapshot of the authenticated user,
// optionally filtered to an inclusive date range.
func (h *Timeline) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "userID") != user.ID.String() {
		serveCustomError(h.log, w, http.StatusForbidden, labelForbidden, "Cannot access other user timelines")
		return
	}

	payload, err := h.assembler.LatestTimeline(ctx, user.ID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, payload)
}

// GetRaw returns the latest stored platform shape of one owned account.
func (h *Timeline) GetRaw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requestUser(h.log, w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "userID") != user.ID.String() {
		serveCustomError(h.log, w, http.StatusForbidden, labelForbidden, "Cannot access other user timelines")
		return
	}

	rawAccountID := r.URL.Query().Get("account_id")
	if rawAccountID == "" {
		serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Missing required parameter: account_id")
		return
	}
	accountID, err := pathID(rawAccountID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}

	account, err := h.service.OwnedAccount(ctx, user, accountID)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	if string(account.Platform) != chi.URLParam(r, "platform") {
		serveCustomError(h.log, w, http.StatusBadRequest, labelBadRequest, "Account platform does not match requested platform")
		return
	}

	data, err := h.assembler.LatestRaw(ctx, account)
	if err != nil {
		serveError(h.log, w, err)
		return
	}
	serveJSON(h.log, w, http.StatusOK, data)
}
