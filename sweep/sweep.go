// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package sweep contains the periodic chore that refreshes every active
// account in the background and keeps user timelines current.
package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/ingest"
	"github.com/chroniclehq/chronicle/internal/sync2"
)

var (
	// Error is the default sweep error class.
	Error = errs.Class("sweep")

	mon = monkit.Package()

	sweptAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_sweep_accounts_total",
		Help: "Accounts ingested by the sweep chore.",
	})
	skippedAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_sweep_accounts_skipped_total",
		Help: "Accounts skipped by the sweep chore because sweeping is disabled.",
	})
	failedAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_sweep_accounts_failed_total",
		Help: "Accounts the sweep chore failed to ingest.",
	})
	reassembledUsers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_sweep_users_reassembled_total",
		Help: "User timelines reassembled after a sweep pass.",
	})
)

// Config configures the sweep chore.
type Config struct {
	Interval time.Duration `help:"how often to sweep all active accounts" default:"6h"`
	PageSize int           `help:"accounts fetched per database page" default:"100"`
	Enabled  bool          `help:"whether the sweep chore runs" default:"true"`
}

// Chore periodically ingests every active account and reassembles the
// timelines of affected users. A failing account never aborts the pass.
//
// architecture: Chore
type Chore struct {
	log       *zap.Logger
	db        console.DB
	ingest    *ingest.Service
	assembler *assemble.Service
	config    Config

	Loop *sync2.Cycle
}

// NewChore creates a sweep chore.
func NewChore(log *zap.Logger, db console.DB, ingestService *ingest.Service, assembler *assemble.Service, config Config) *Chore {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	return &Chore{
		log:       log,
		db:        db,
		ingest:    ingestService,
		assembler: assembler,
		config:    config,
		Loop:      sync2.NewCycle(config.Interval),
	}
}

// Run runs the chore until the context is canceled.
func (chore *Chore) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	if !chore.config.Enabled {
		chore.log.Info("sweep chore disabled")
		return nil
	}
	return chore.Loop.Run(ctx, func(ctx context.Context) error {
		if err := chore.RunOnce(ctx); err != nil {
			chore.log.Error("sweep pass failed", zap.Error(err))
		}
		return nil
	})
}

// Close stops the chore loop.
func (chore *Chore) Close() error {
	chore.Loop.Close()
	return nil
}

// RunOnce sweeps every active account one page at a time, then
// reassembles each affected user's timeline exactly once.
func (chore *Chore) RunOnce(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	start := time.Now()
	affected := map[uuid.UUID]bool{}
	var swept, skipped, failed int

	cursor := console.AccountCursor{Limit: chore.config.PageSize}
	for {
		page, err := chore.db.Accounts().ListActive(ctx, cursor)
		if err != nil {
			return Error.Wrap(err)
		}
		for i := range page.Accounts {
			account := &page.Accounts[i]
			if err := ctx.Err(); err != nil {
				return Error.Wrap(err)
			}

			enabled, err := chore.sweepEnabled(ctx, account.ID)
			if err != nil {
				chore.log.Warn("sweep settings lookup failed",
					zap.Stringer("account", account.ID),
					zap.Error(err))
			}
			if !enabled {
				skipped++
				skippedAccounts.Inc()
				continue
			}

			result, err := chore.ingest.IngestAccount(ctx, account)
			if err != nil {
				failed++
				failedAccounts.Inc()
				chore.log.Warn("sweep ingest failed",
					zap.Stringer("account", account.ID),
					zap.String("platform", string(account.Platform)),
					zap.Error(err))
				continue
			}
			swept++
			sweptAccounts.Inc()

			if !result.Wrote() {
				continue
			}
			owner, err := chore.db.Accounts().Owner(ctx, account.ID)
			if err != nil {
				chore.log.Warn("sweep owner lookup failed",
					zap.Stringer("account", account.ID),
					zap.Error(err))
				continue
			}
			affected[owner] = true
		}
		if page.Next == nil {
			break
		}
		cursor = *page.Next
	}

	for userID := range affected {
		if _, err := chore.assembler.AssembleUser(ctx, userID); err != nil {
			chore.log.Warn("sweep reassembly failed",
				zap.Stringer("user", userID),
				zap.Error(err))
			continue
		}
		reassembledUsers.Inc()
	}

	chore.log.Info("sweep pass finished",
		zap.Int("swept", swept),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("users reassembled", len(affected)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// sweepEnabled checks the per-account opt-out. Missing setting means
// enabled; lookup failure also defaults to enabled.
func (chore *Chore) sweepEnabled(ctx context.Context, accountID uuid.UUID) (bool, error) {
	settings, err := chore.db.AccountSettings().Get(ctx, accountID)
	if err != nil {
		return true, Error.Wrap(err)
	}
	return settings[console.SweepEnabledSetting] != "false", nil
}
