// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chroniclehq/chronicle/assemble"
	"github.com/chroniclehq/chronicle/chronicledb"
	"github.com/chroniclehq/chronicle/chronicledb/chronicledbtest"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/corpus/memback"
	"github.com/chroniclehq/chronicle/encryption"
	"github.com/chroniclehq/chronicle/ingest"
	"github.com/chroniclehq/chronicle/internal/testcontext"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/testplatform"
	"github.com/chroniclehq/chronicle/platforms/twitter"
	"github.com/chroniclehq/chronicle/refresh"
)

type fixture struct {
	db        *chronicledb.DB
	platform  *testplatform.Provider
	assembler *assemble.Service
	tasks     []func(ctx context.Context)
	sealToken func(token string) []byte

	user    *console.User
	profile *console.Profile
}

func newFixture(ctx *testcontext.Context, t *testing.T, db *chronicledb.DB, background bool) (*fixture, *refresh.Service) {
	t.Helper()
	backend := memback.New()
	log := zaptest.NewLogger(t)

	key, err := encryption.NewKey()
	require.NoError(t, err)

	user, err := db.Users().Insert(ctx, &console.User{ID: uuid.New(), Name: "Alice"})
	require.NoError(t, err)
	profile, err := db.Profiles().Insert(ctx, &console.Profile{
		ID:     uuid.New(),
		UserID: user.ID,
		Slug:   "work",
		Name:   "Work",
	})
	require.NoError(t, err)

	platform := testplatform.New()
	platform.SetGitHubMeta(github.Meta{Login: "alice"})
	platform.SetCommits("alice/work-project", []github.Commit{{
		SHA:        "aaa",
		Message:    "initial",
		Branch:     "main",
		AuthorDate: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}})
	platform.SetTwitterMeta(twitter.Meta{UserID: "42", Username: "alice"})
	platform.SetTweets([]twitter.Tweet{{
		ID:        "1",
		Text:      "hello",
		CreatedAt: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}})

	ingester := ingest.NewService(log, ingest.Config{}, db, backend, key, ingest.Providers{
		GitHub:  platform.GitHub(),
		Reddit:  platform.Reddit(),
		Twitter: platform.Twitter(),
		Bluesky: platform.Bluesky(),
		YouTube: platform.YouTube(),
		Devpad:  platform.Devpad(),
	})
	assembler := assemble.NewService(log, db, backend)

	f := &fixture{
		db:        db,
		platform:  platform,
		assembler: assembler,
		user:      user,
		profile:   profile,
	}

	var hook refresh.BackgroundFunc
	if background {
		hook = func(task func(ctx context.Context)) {
			f.tasks = append(f.tasks, task)
		}
	}
	service := refresh.NewService(log, db, ingester, assembler, hook)

	f.sealToken = func(token string) []byte {
		sealed, err := encryption.Encrypt([]byte(token), key)
		require.NoError(t, err)
		return sealed
	}
	return f, service
}

func (f *fixture) addAccount(ctx *testcontext.Context, t *testing.T, platform platforms.Platform, active bool) *console.Account {
	t.Helper()
	account, err := f.db.Accounts().Insert(ctx, &console.Account{
		ID:                   uuid.New(),
		ProfileID:            f.profile.ID,
		Platform:             platform,
		AccessTokenEncrypted: f.sealToken("token"),
		IsActive:             active,
	})
	require.NoError(t, err)
	return account
}

// runTasks executes queued background tasks synchronously.
func (f *fixture) runTasks(ctx *testcontext.Context) {
	for _, task := range f.tasks {
		task(ctx)
	}
	f.tasks = nil
}

func TestRefreshAccountInline(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, true)
		account := f.addAccount(ctx, t, platforms.Twitter, true)

		result, err := service.RefreshAccount(ctx, f.user, account.ID)
		require.NoError(t, err)
		assert.Equal(t, refresh.StatusRefreshed, result.Status)
		assert.Equal(t, platforms.Twitter, result.Platform)
		assert.Empty(t, f.tasks)

		payload, err := f.assembler.LatestTimeline(ctx, f.user.ID, "", "")
		require.NoError(t, err)
		assert.NotEmpty(t, payload.Groups)
	})
}

func TestRefreshAccountCooperativeQueues(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, true)
		account := f.addAccount(ctx, t, platforms.GitHub, true)

		result, err := service.RefreshAccount(ctx, f.user, account.ID)
		require.NoError(t, err)
		assert.Equal(t, refresh.StatusProcessing, result.Status)
		assert.Equal(t, platforms.GitHub, result.Platform)
		require.Len(t, f.tasks, 1)

		f.runTasks(ctx)

		payload, err := f.assembler.LatestTimeline(ctx, f.user.ID, "", "")
		require.NoError(t, err)
		assert.NotEmpty(t, payload.Groups)
	})
}

func TestRefreshAccountCooperativeWithoutHookRunsInline(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, false)
		account := f.addAccount(ctx, t, platforms.GitHub, true)

		result, err := service.RefreshAccount(ctx, f.user, account.ID)
		require.NoError(t, err)
		assert.Equal(t, refresh.StatusRefreshed, result.Status)
	})
}

func TestRefreshAccountSkippedWhenGateClosed(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, true)
		account := f.addAccount(ctx, t, platforms.Twitter, true)

		f.platform.SetSimulateRateLimit(true, time.Hour)
		result, err := service.RefreshAccount(ctx, f.user, account.ID)
		require.NoError(t, err)
		assert.Equal(t, refresh.StatusSkipped, result.Status)

		// gate remains closed until retry-after passes
		f.platform.SetSimulateRateLimit(false, 0)
		result, err = service.RefreshAccount(ctx, f.user, account.ID)
		require.NoError(t, err)
		assert.Equal(t, refresh.StatusSkipped, result.Status)
	})
}

func TestRefreshAccountErrors(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, true)

		_, err := service.RefreshAccount(ctx, f.user, uuid.New())
		assert.True(t, console.ErrNotFound.Has(err))

		inactive := f.addAccount(ctx, t, platforms.Twitter, false)
		_, err = service.RefreshAccount(ctx, f.user, inactive.ID)
		assert.True(t, refresh.ErrInactive.Has(err))

		other := &console.User{ID: uuid.New()}
		active := f.addAccount(ctx, t, platforms.Twitter, true)
		_, err = service.RefreshAccount(ctx, other, active.ID)
		assert.True(t, console.ErrForbidden.Has(err))
	})
}

func TestRefreshAllPartitionsWork(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, true)
		f.addAccount(ctx, t, platforms.GitHub, true)
		f.addAccount(ctx, t, platforms.Twitter, true)
		f.addAccount(ctx, t, platforms.Bluesky, true)

		result, err := service.RefreshAll(ctx, f.user)
		require.NoError(t, err)

		assert.Equal(t, refresh.StatusProcessing, result.Status)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, map[string]int{"github": 1}, result.Queued)

		var queued int
		for _, count := range result.Queued {
			queued += count
		}
		assert.Equal(t, result.Total, result.Succeeded+result.Failed+queued)
	})
}

func TestRefreshAllCompletedWithoutCooperative(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f, service := newFixture(ctx, t, db, true)
		f.addAccount(ctx, t, platforms.Twitter, true)

		result, err := service.RefreshAll(ctx, f.user)
		require.NoError(t, err)
		assert.Equal(t, refresh.StatusCompleted, result.Status)
		assert.Equal(t, 1, result.Succeeded)
		assert.Empty(t, result.Queued)
	})
}
