// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Chronicle is the activity-aggregation service: it ingests raw
// activity from connected platforms, assembles per-user timelines and
// serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/chronicledb"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/console/consoleweb"
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/corpus/boltback"
	"github.com/chroniclehq/chronicle/corpus/memback"
	"github.com/chroniclehq/chronicle/corpus/s3back"
	"github.com/chroniclehq/chronicle/corpus/sqlindex"
	"github.com/chroniclehq/chronicle/encryption"
	"github.com/chroniclehq/chronicle/ingest"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/bluesky"
	"github.com/chroniclehq/chronicle/platforms/devpad"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/reddit"
	"github.com/chroniclehq/chronicle/platforms/twitter"
	"github.com/chroniclehq/chronicle/platforms/youtube"
	"github.com/chroniclehq/chronicle/refresh"
	"github.com/chroniclehq/chronicle/sweep"
)

func main() {
	root := &cobra.Command{
		Use:   "chronicle",
		Short: "Chronicle activity-aggregation service",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the api server and background chores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context())
		},
	}

	flags := run.Flags()
	flags.String("address", ":8080", "address for the api server to listen on")
	flags.StringSlice("allowed-origins", []string{"*"}, "allowed CORS origins")
	flags.String("database-driver", "sqlite", "relational database driver (sqlite or postgres)")
	flags.String("database-dsn", "file:chronicle.db", "relational database source name")
	flags.String("store-url", "mem://", "snapshot store backend: mem://, bolt:///path or s3://bucket")
	flags.String("store-index-dsn", "file:chronicle-index.db", "snapshot index source name for bolt and s3 backends")
	flags.String("s3-region", "", "S3 region for s3:// store backends")
	flags.String("s3-endpoint", "", "S3 endpoint override for S3-compatible stores")
	flags.String("encryption-key", "", "base64 key encrypting stored tokens (required)")
	flags.Duration("fetch-timeout", 30*time.Second, "timeout for a single provider fetch")
	flags.Duration("sweep-interval", 6*time.Hour, "how often to sweep all active accounts")
	flags.Bool("sweep-enabled", true, "whether the background sweep runs")
	flags.String("log-level", "info", "minimum log level")

	viper.SetEnvPrefix("chronicle")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root.AddCommand(run)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runService(ctx context.Context) (err error) {
	log, err := newLogger(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	key, err := encryption.KeyFromBase64(viper.GetString("encryption-key"))
	if err != nil {
		return errs.New("invalid encryption key: %v", err)
	}

	db, err := chronicledb.Open(viper.GetString("database-driver"), viper.GetString("database-dsn"))
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()

	if err := db.CreateTables(ctx); err != nil {
		return errs.Wrap(err)
	}

	backend, err := openBackend(ctx, viper.GetString("store-url"))
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, backend.Close()) }()

	// Background tasks outlive the requests that queued them but not
	// the process; they are awaited before the final close.
	tasksCtx, cancelTasks := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelTasks()
	var tasks errgroup.Group
	background := func(task func(ctx context.Context)) {
		tasks.Go(func() error {
			task(tasksCtx)
			return nil
		})
	}

	assembler := assemble.NewService(log.Named("assemble"), db, backend)

	reassemble := func(_ context.Context, userID uuid.UUID) {
		background(func(taskCtx context.Context) {
			if _, err := assembler.AssembleUser(taskCtx, userID); err != nil {
				log.Warn("queued reassembly failed", zap.Stringer("user", userID), zap.Error(err))
			}
		})
	}

	service, err := console.NewService(log.Named("console"), db, backend, key, reassemble)
	if err != nil {
		return errs.Wrap(err)
	}

	httpClient := platforms.NewClient(viper.GetDuration("fetch-timeout"), 0)
	ingester := ingest.NewService(log.Named("ingest"),
		ingest.Config{FetchTimeout: viper.GetDuration("fetch-timeout")},
		db, backend, key,
		ingest.Providers{
			GitHub:  github.NewClient(log.Named("github"), httpClient),
			Reddit:  reddit.NewClient(log.Named("reddit"), httpClient),
			Twitter: twitter.NewClient(log.Named("twitter"), httpClient),
			Bluesky: bluesky.NewClient(log.Named("bluesky"), httpClient),
			YouTube: youtube.NewClient(log.Named("youtube"), httpClient),
			Devpad:  devpad.NewClient(log.Named("devpad"), httpClient),
		})

	refresher := refresh.NewService(log.Named("refresh"), db, ingester, assembler, background)
	chore := sweep.NewChore(log.Named("sweep"), db, ingester, assembler, sweep.Config{
		Interval: viper.GetDuration("sweep-interval"),
		Enabled:  viper.GetBool("sweep-enabled"),
	})

	listener, err := net.Listen("tcp", viper.GetString("address"))
	if err != nil {
		return errs.Wrap(err)
	}
	server := consoleweb.NewServer(log.Named("consoleweb"), consoleweb.Config{
		Address:         viper.GetString("address"),
		AllowedOrigins:  viper.GetStringSlice("allowed-origins"),
		ShutdownTimeout: 10 * time.Second,
	}, listener, service, assembler, refresher)

	var group errgroup.Group
	group.Go(func() error { return server.Run(ctx) })
	group.Go(func() error { return chore.Run(ctx) })
	group.Go(func() error {
		<-ctx.Done()
		chore.Loop.Close()
		return nil
	})

	err = group.Wait()
	cancelTasks()
	return errs.Combine(err, tasks.Wait())
}

// openBackend selects the snapshot store backend by URL scheme.
func openBackend(ctx context.Context, storeURL string) (corpus.Backend, error) {
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return nil, errs.New("invalid store url %q: %v", storeURL, err)
	}

	switch parsed.Scheme {
	case "mem":
		return memback.New(), nil

	case "bolt":
		blobs, err := boltback.New(parsed.Path)
		if err != nil {
			return nil, errs.Wrap(err)
		}
		index, err := sqlindex.Open(ctx, viper.GetString("database-driver"), viper.GetString("store-index-dsn"))
		if err != nil {
			return nil, errs.Combine(err, blobs.Close())
		}
		return corpus.NewBackend(blobs, index), nil

	case "s3":
		blobs, err := s3back.New(ctx, s3back.Config{
			Bucket:   parsed.Host,
			Endpoint: viper.GetString("s3-endpoint"),
			Region:   viper.GetString("s3-region"),
		})
		if err != nil {
			return nil, errs.Wrap(err)
		}
		index, err := sqlindex.Open(ctx, viper.GetString("database-driver"), viper.GetString("store-index-dsn"))
		if err != nil {
			return nil, errs.Wrap(err)
		}
		return corpus.NewBackend(blobs, index), nil
	}
	return nil, errs.New("unknown store scheme %q", parsed.Scheme)
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errs.New("invalid log level %q: %v", level, err)
	}
	config.Level = parsed
	return config.Build()
}
