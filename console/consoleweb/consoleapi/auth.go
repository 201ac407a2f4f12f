// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package consoleapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/console"
)

// Auth returns middleware that resolves the bearer api key and attaches
// the owning user to the request context.
func Auth(log *zap.Logger, service *console.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			secret, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || secret == "" {
				serveCustomError(log, w, http.StatusUnauthorized, labelUnauthorized, "Authentication required")
				return
			}

			user, err := service.AuthenticateKey(r.Context(), secret)
			if err != nil {
				serveError(log, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// requestUser returns the authenticated user or writes a 401.
func requestUser(log *zap.Logger, w http.ResponseWriter, r *http.Request) (*console.User, bool) {
	user, ok := GetUser(r.Context())
	if !ok {
		serveCustomError(log, w, http.StatusUnauthorized, labelUnauthorized, "Authentication required")
		return nil, false
	}
	return user, true
}
