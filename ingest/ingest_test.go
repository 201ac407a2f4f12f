// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package ingest_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chroniclehq/chronicle/chronicledb"
	"github.com/chroniclehq/chronicle/chronicledb/chronicledbtest"
	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/corpus/memback"
	"github.com/chroniclehq/chronicle/encryption"
	"github.com/chroniclehq/chronicle/ingest"
	"github.com/chroniclehq/chronicle/internal/testcontext"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/testplatform"
)

type fixture struct {
	backend  corpus.Backend
	platform *testplatform.Provider
	service  *ingest.Service
	account  *console.Account
}

func newFixture(ctx *testcontext.Context, t *testing.T, db *chronicledb.DB) *fixture {
	t.Helper()
	backend := memback.New()
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

	sealed, err := encryption.Encrypt([]byte("gh-token"), key)
	require.NoError(t, err)
	account, err := db.Accounts().Insert(ctx, &console.Account{
		ID:                   uuid.New(),
		ProfileID:            profile.ID,
		Platform:             platforms.GitHub,
		AccessTokenEncrypted: sealed,
		IsActive:             true,
	})
	require.NoError(t, err)

	platform := testplatform.New()
	service := ingest.NewService(zaptest.NewLogger(t), ingest.Config{}, db, backend, key, ingest.Providers{
		GitHub: platform.GitHub(),
	})
	return &fixture{backend: backend, platform: platform, service: service, account: account}
}

func TestIngestGitHubWritesShards(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		f.platform.SetGitHubMeta(github.Meta{Login: "alice"})
		f.platform.SetCommits("alice/work-project", []github.Commit{{
			SHA:        "aaa",
			Message:    "initial",
			Branch:     "main",
			AuthorDate: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		}})

		result, err := f.service.IngestAccount(ctx, f.account)
		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.True(t, result.Wrote())

		storeAccount := f.account.ID.String()
		metaStore := corpus.NewStore(f.backend,
			corpus.GitHubMetaStoreID(storeAccount),
			corpus.NewJSONCodec[github.Meta]())
		_, meta, err := metaStore.GetLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", meta.Login)
		assert.Equal(t, []string{"alice/work-project"}, meta.Repos)

		commitStore := corpus.NewStore(f.backend,
			corpus.GitHubCommitsStoreID(storeAccount, "alice", "work-project"),
			corpus.NewJSONCodec[github.CommitHistory]())
		_, history, err := commitStore.GetLatest(ctx)
		require.NoError(t, err)
		require.Len(t, history.Commits, 1)
		assert.Equal(t, "aaa", history.Commits[0].SHA)

		got, err := db.Accounts().Get(ctx, f.account.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.LastFetchedAt)
	})
}

func TestIngestMergesAcrossFetches(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		f.platform.SetGitHubMeta(github.Meta{Login: "alice"})
		f.platform.SetCommits("alice/work-project", []github.Commit{{SHA: "aaa", Branch: "main"}})

		_, err := f.service.IngestAccount(ctx, f.account)
		require.NoError(t, err)

		f.platform.SetCommits("alice/work-project", []github.Commit{{SHA: "bbb", Branch: "main"}})
		result, err := f.service.IngestAccount(ctx, f.account)
		require.NoError(t, err)
		require.True(t, result.Wrote())

		commitStore := corpus.NewStore(f.backend,
			corpus.GitHubCommitsStoreID(f.account.ID.String(), "alice", "work-project"),
			corpus.NewJSONCodec[github.CommitHistory]())
		_, history, err := commitStore.GetLatest(ctx)
		require.NoError(t, err)
		require.Len(t, history.Commits, 2)
		assert.Equal(t, "aaa", history.Commits[0].SHA)
		assert.Equal(t, "bbb", history.Commits[1].SHA)
	})
}

func TestIngestRateLimitClosesGate(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		f.platform.SetSimulateRateLimit(true, time.Hour)

		result, err := f.service.IngestAccount(ctx, f.account)
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, "rate_limited", result.SkipReason)

		state, err := db.RateLimits().Get(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Zero(t, state.Remaining)
		require.NotNil(t, state.ResetAt)
		assert.True(t, state.ResetAt.After(time.Now()))

		// second attempt never reaches the provider
		f.platform.ResetCalls()
		result, err = f.service.IngestAccount(ctx, f.account)
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, "gate closed", result.SkipReason)
		assert.Zero(t, f.platform.CallCount())
	})
}

func TestIngestAuthExpiredOpensCircuitAfterThree(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		f.platform.SetSimulateAuthExpired(true)

		for i := 0; i < 3; i++ {
			result, err := f.service.IngestAccount(ctx, f.account)
			require.NoError(t, err)
			assert.True(t, result.Skipped)
			assert.Equal(t, "auth_expired", result.SkipReason)
		}

		state, err := db.RateLimits().Get(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, state.ConsecutiveFailures)
		require.NotNil(t, state.CircuitOpenUntil)
		assert.True(t, state.CircuitOpenUntil.After(time.Now()))
	})
}
