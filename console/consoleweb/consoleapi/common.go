// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package consoleapi implements the JSON handlers of the public API.
package consoleapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/refresh"
)

// Error envelope labels.
const (
	labelUnauthorized = "Unauthorized"
	labelForbidden    = "Forbidden"
	labelBadRequest   = "Bad request"
	labelNotFound     = "Not found"
	labelConflict     = "Conflict"
	labelInternal     = "Internal server error"
)

type contextKey int

const userContextKey contextKey = iota

// WithUser attaches the authenticated user to the request context.
func WithUser(ctx context.Context, user *console.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUser returns the authenticated user from the request context.
func GetUser(ctx context.Context) (*console.User, bool) {
	user, ok := ctx.Value(userContextKey).(*console.User)
	return user, ok
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// serveJSON writes a JSON response.
func serveJSON(log *zap.Logger, w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Error("failed to write json response", zap.Error(err))
	}
}

// serveCustomError writes an explicit error envelope.
func serveCustomError(log *zap.Logger, w http.ResponseWriter, status int, label, message string) {
	serveJSON(log, w, status, errorBody{Error: label, Message: message})
}

// serveError maps a service error onto the envelope. Unknown errors
// become opaque 500s.
func serveError(log *zap.Logger, w http.ResponseWriter, err error) {
	switch {
	case console.ErrUnauthorized.Has(err):
		serveCustomError(log, w, http.StatusUnauthorized, labelUnauthorized, trimClass(err, console.ErrUnauthorized))
	case console.ErrForbidden.Has(err):
		serveCustomError(log, w, http.StatusForbidden, labelForbidden, trimClass(err, console.ErrForbidden))
	case console.ErrValidation.Has(err):
		serveCustomError(log, w, http.StatusBadRequest, labelBadRequest, trimClass(err, console.ErrValidation))
	case refresh.ErrInactive.Has(err):
		serveCustomError(log, w, http.StatusBadRequest, labelBadRequest, "Account is inactive")
	case console.ErrConflict.Has(err):
		serveCustomError(log, w, http.StatusConflict, labelConflict, trimClass(err, console.ErrConflict))
	case console.ErrNotFound.Has(err):
		serveCustomError(log, w, http.StatusNotFound, labelNotFound, "Resource not found: "+trimClass(err, console.ErrNotFound))
	case assemble.ErrNoData.Has(err):
		serveCustomError(log, w, http.StatusNotFound, labelNotFound, "Resource not found: "+trimClass(err, assemble.ErrNoData))
	default:
		log.Error("api handler error", zap.Error(err))
		serveCustomError(log, w, http.StatusInternalServerError, labelInternal, "An unexpected error occurred")
	}
}

// trimClass strips the error class prefix so the envelope carries only
// the human part of the message.
func trimClass(err error, class errs.Class) string {
	return strings.TrimPrefix(err.Error(), string(class)+": ")
}

// decodeBody decodes a JSON request body into value.
func decodeBody(r *http.Request, value any) error {
	if err := json.NewDecoder(r.Body).Decode(value); err != nil {
		return console.ErrValidation.New("Invalid JSON body")
	}
	return nil
}

// pathID parses a UUID path parameter.
func pathID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, console.ErrValidation.New("Invalid identifier %q", raw)
	}
	return id, nil
}
