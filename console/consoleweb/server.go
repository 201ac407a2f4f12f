// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package consoleweb wires the public API handlers into an HTTP server.
package consoleweb

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/console/consoleweb/consoleapi"
	"github.com/chroniclehq/chronicle/refresh"
)

var (
	// Error is the default consoleweb error class.
	Error = errs.Class("consoleweb")

	mon = monkit.Package()
)

// Config configures the API server.
type Config struct {
	Address         string        `help:"address to listen on" default:":8080"`
	AllowedOrigins  []string      `help:"allowed CORS origins" default:"*"`
	ShutdownTimeout time.Duration `help:"how long to wait for in-flight requests on shutdown" default:"10s"`
}

// Server serves the public JSON API plus health and metrics endpoints.
//
// architecture: Endpoint
type Server struct {
	log      *zap.Logger
	config   Config
	listener net.Listener
	server   http.Server
}

// NewServer creates the API server on top of an existing listener.
func NewServer(log *zap.Logger, config Config, listener net.Listener, service *console.Service, assembler *assemble.Service, refresher *refresh.Service) *Server {
	server := &Server{
		log:      log,
		config:   config,
		listener: listener,
	}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	timeline := consoleapi.NewTimeline(log.Named("api:timeline"), service, assembler)
	connections := consoleapi.NewConnections(log.Named("api:connections"), service, assembler, refresher)
	profiles := consoleapi.NewProfiles(log.Named("api:profiles"), service, assembler)
	credentials := consoleapi.NewCredentials(log.Named("api:credentials"), service)

	router.Route("/api/v1", func(router chi.Router) {
		router.Use(consoleapi.Auth(log.Named("api:auth"), service))

		router.Get("/timeline/{userID}", timeline.Get)
		router.Get("/timeline/{userID}/raw/{platform}", timeline.GetRaw)

		router.Route("/connections", func(router chi.Router) {
			router.Get("/", connections.List)
			router.Post("/", connections.Create)
			router.Post("/refresh-all", connections.RefreshAll)
			router.Patch("/{accountID}", connections.Update)
			router.Delete("/{accountID}", connections.Delete)
			router.Post("/{accountID}/refresh", connections.Refresh)
			router.Get("/{accountID}/settings", connections.GetSettings)
			router.Put("/{accountID}/settings", connections.PutSettings)
			router.Get("/{accountID}/repos", connections.Repos)
			router.Get("/{accountID}/subreddits", connections.Subreddits)
		})

		router.Route("/profiles", func(router chi.Router) {
			router.Get("/", profiles.List)
			router.Post("/", profiles.Create)
			router.Get("/{slug}/timeline", profiles.Timeline)
			router.Patch("/{profileID}", profiles.Update)
			router.Delete("/{profileID}", profiles.Delete)
			router.Get("/{profileID}/filters", profiles.ListFilters)
			router.Post("/{profileID}/filters", profiles.CreateFilter)
			router.Delete("/{profileID}/filters/{filterID}", profiles.DeleteFilter)
		})

		router.Route("/credentials/{platform}", func(router chi.Router) {
			router.Get("/", credentials.Get)
			router.Post("/", credentials.Put)
			router.Delete("/", credentials.Delete)
		})
	})

	server.server = http.Server{
		Handler: router,
	}
	return server
}

// Run starts the server and shuts it down gracefully when the context
// is canceled.
func (server *Server) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	ctx, cancel := context.WithCancel(ctx)
	var group errgroup.Group

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer shutdownCancel()
		return Error.Wrap(server.server.Shutdown(shutdownCtx))
	})
	group.Go(func() error {
		defer cancel()
		server.log.Info("api server started", zap.String("address", server.listener.Addr().String()))
		err := server.server.Serve(server.listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return Error.Wrap(err)
	})

	return group.Wait()
}

// Close closes the underlying listener.
func (server *Server) Close() error {
	return Error.Wrap(server.server.Close())
}
