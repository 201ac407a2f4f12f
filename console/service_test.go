// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console_test

import (
	"context"
	"testing"

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
	"github.com/chroniclehq/chronicle/internal/testcontext"
	"github.com/chroniclehq/chronicle/platforms/github"
)

type fixture struct {
	backend corpus.Backend
	service *console.Service
	user    *console.User

	reassembled []uuid.UUID
}

func newFixture(ctx *testcontext.Context, t *testing.T, db *chronicledb.DB) *fixture {
	t.Helper()
	backend := memback.New()
	key, err := encryption.NewKey()
	require.NoError(t, err)

	f := &fixture{backend: backend}
	service, err := console.NewService(zaptest.NewLogger(t), db, backend, key,
		func(ctx context.Context, userID uuid.UUID) {
			f.reassembled = append(f.reassembled, userID)
		})
	require.NoError(t, err)
	f.service = service

	f.user, err = db.Users().Insert(ctx, &console.User{ID: uuid.New(), Name: "Alice"})
	require.NoError(t, err)
	return f
}

func TestAuthenticateKey(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)

		secret, _, err := f.service.CreateAPIKey(ctx, f.user.ID, "ci")
		require.NoError(t, err)

		user, err := f.service.AuthenticateKey(ctx, secret)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, user.ID)

		_, err = f.service.AuthenticateKey(ctx, "chr_bogus")
		assert.True(t, console.ErrUnauthorized.Has(err))
	})
}

func TestCreateProfileValidation(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)

		profile, err := f.service.CreateProfile(ctx, f.user, console.CreateProfile{
			Slug: "work", Name: "Work",
		})
		require.NoError(t, err)
		assert.Equal(t, "work", profile.Slug)

		_, err = f.service.CreateProfile(ctx, f.user, console.CreateProfile{
			Slug: "work", Name: "Duplicate",
		})
		assert.True(t, console.ErrConflict.Has(err))

		_, err = f.service.CreateProfile(ctx, f.user, console.CreateProfile{
			Slug: "Not Valid!", Name: "Broken",
		})
		assert.True(t, console.ErrValidation.Has(err))

		_, err = f.service.CreateProfile(ctx, f.user, console.CreateProfile{
			Slug: "ab", Name: "Too short",
		})
		assert.True(t, console.ErrValidation.Has(err))
	})
}

func TestCreateAccountEncryptsTokens(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		profile, err := f.service.CreateProfile(ctx, f.user, console.CreateProfile{Slug: "work", Name: "Work"})
		require.NoError(t, err)

		account, err := f.service.CreateAccount(ctx, f.user, console.CreateAccount{
			ProfileID:   profile.ID,
			Platform:    "github",
			AccessToken: "gh-token",
		})
		require.NoError(t, err)
		assert.True(t, account.IsActive)
		assert.NotEqual(t, []byte("gh-token"), account.AccessTokenEncrypted)

		token, err := f.service.DecryptAccessToken(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, "gh-token", token)

		_, err = f.service.CreateAccount(ctx, f.user, console.CreateAccount{
			ProfileID:   profile.ID,
			Platform:    "friendster",
			AccessToken: "token",
		})
		assert.True(t, console.ErrValidation.Has(err))
	})
}

func TestDeleteAccountCascade(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		profile, err := f.service.CreateProfile(ctx, f.user, console.CreateProfile{Slug: "work", Name: "Work"})
		require.NoError(t, err)
		account, err := f.service.CreateAccount(ctx, f.user, console.CreateAccount{
			ProfileID:   profile.ID,
			Platform:    "github",
			AccessToken: "gh-token",
		})
		require.NoError(t, err)

		storeAccount := account.ID.String()
		metaStore := corpus.NewStore(f.backend,
			corpus.GitHubMetaStoreID(storeAccount),
			corpus.NewJSONCodec[github.Meta]())
		_, err = metaStore.Put(ctx, github.Meta{Login: "alice", Repos: []string{"alice/work-project"}}, nil)
		require.NoError(t, err)
		commitStore := corpus.NewStore(f.backend,
			corpus.GitHubCommitsStoreID(storeAccount, "alice", "work-project"),
			corpus.NewJSONCodec[github.CommitHistory]())
		_, err = commitStore.Put(ctx, github.CommitHistory{Repo: "alice/work-project"}, nil)
		require.NoError(t, err)

		require.NoError(t, db.AccountSettings().Upsert(ctx, account.ID, map[string]string{"sweep_enabled": "false"}))
		_, err = db.ProfileFilters().Insert(ctx, &console.ProfileFilter{
			ID:          uuid.New(),
			ProfileID:   profile.ID,
			AccountID:   account.ID,
			FilterType:  console.FilterExclude,
			FilterKey:   console.FilterKeyKeyword,
			FilterValue: "wip",
		})
		require.NoError(t, err)

		result, err := f.service.DeleteAccount(ctx, f.user, account.ID)
		require.NoError(t, err)
		assert.True(t, result.Deleted)
		assert.Equal(t, account.ID, result.AccountID)
		assert.Equal(t, "github", result.Platform)
		assert.Len(t, result.DeletedStores, 2)
		assert.Equal(t, []uuid.UUID{f.user.ID}, result.AffectedUsers)
		assert.Equal(t, []uuid.UUID{f.user.ID}, f.reassembled)

		for _, prefix := range corpus.AccountStorePrefixes("github", storeAccount) {
			ids, err := f.backend.Index().Stores(ctx, prefix)
			require.NoError(t, err)
			assert.Empty(t, ids)
		}

		_, err = db.Accounts().Get(ctx, account.ID)
		assert.True(t, console.ErrNotFound.Has(err))
		settings, err := db.AccountSettings().Get(ctx, account.ID)
		require.NoError(t, err)
		assert.Empty(t, settings)
		filters, err := db.ProfileFilters().ListByProfile(ctx, profile.ID)
		require.NoError(t, err)
		assert.Empty(t, filters)
	})
}

func TestOwnershipChecks(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		profile, err := f.service.CreateProfile(ctx, f.user, console.CreateProfile{Slug: "work", Name: "Work"})
		require.NoError(t, err)

		mallory, err := db.Users().Insert(ctx, &console.User{ID: uuid.New(), Name: "Mallory"})
		require.NoError(t, err)

		_, err = f.service.GetAccounts(ctx, mallory, profile.ID, false)
		assert.True(t, console.ErrForbidden.Has(err))

		_, err = f.service.GetAccounts(ctx, f.user, uuid.New(), false)
		assert.True(t, console.ErrNotFound.Has(err))
	})
}
