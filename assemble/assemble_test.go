// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package assemble_test

import (
	"fmt"
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
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/corpus/memback"
	"github.com/chroniclehq/chronicle/internal/testcontext"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/github"
)

type fixture struct {
	db      *chronicledb.DB
	backend corpus.Backend
	service *assemble.Service

	user    *console.User
	profile *console.Profile
	account *console.Account
}

func newFixture(ctx *testcontext.Context, t *testing.T, db *chronicledb.DB) *fixture {
	t.Helper()
	backend := memback.New()

	user, err := db.Users().Insert(ctx, &console.User{ID: uuid.New(), Name: "Alice"})
	require.NoError(t, err)
	profile, err := db.Profiles().Insert(ctx, &console.Profile{
		ID:     uuid.New(),
		UserID: user.ID,
		Slug:   "work",
		Name:   "Work",
	})
	require.NoError(t, err)
	account, err := db.Accounts().Insert(ctx, &console.Account{
		ID:                   uuid.New(),
		ProfileID:            profile.ID,
		Platform:             platforms.GitHub,
		AccessTokenEncrypted: []byte("sealed"),
		IsActive:             true,
	})
	require.NoError(t, err)

	return &fixture{
		db:      db,
		backend: backend,
		service: assemble.NewService(zaptest.NewLogger(t), db, backend),
		user:    user,
		profile: profile,
		account: account,
	}
}

// seedGitHub writes a meta snapshot plus a commits snapshot per repo.
func (f *fixture) seedGitHub(ctx *testcontext.Context, t *testing.T, commitsByRepo map[string][]github.Commit) {
	t.Helper()
	storeAccount := f.account.ID.String()

	var repos []string
	for repo := range commitsByRepo {
		repos = append(repos, repo)
	}
	metaStore := corpus.NewStore(f.backend,
		corpus.GitHubMetaStoreID(storeAccount),
		corpus.NewJSONCodec[github.Meta]())
	_, err := metaStore.Put(ctx, github.Meta{Login: "alice", Repos: repos}, nil)
	require.NoError(t, err)

	for repo, commits := range commitsByRepo {
		owner, name, ok := splitRepo(repo)
		require.True(t, ok)
		store := corpus.NewStore(f.backend,
			corpus.GitHubCommitsStoreID(storeAccount, owner, name),
			corpus.NewJSONCodec[github.CommitHistory]())
		_, err := store.Put(ctx, github.CommitHistory{Repo: repo, Commits: commits}, nil)
		require.NoError(t, err)
	}
}

func splitRepo(repo string) (string, string, bool) {
	for i := range repo {
		if repo[i] == '/' {
			return repo[:i], repo[i+1:], true
		}
	}
	return "", "", false
}

func commitAt(sha string, at time.Time) github.Commit {
	return github.Commit{
		SHA:        sha,
		Message:    "change " + sha,
		Branch:     "main",
		AuthorDate: at,
		Additions:  1,
	}
}

func TestAssembleProfileIncludeFilter(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		day := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		f.seedGitHub(ctx, t, map[string][]github.Commit{
			"alice/work-project":     {commitAt("aaa", day), commitAt("bbb", day.Add(time.Hour))},
			"alice/personal-project": {commitAt("ccc", day)},
		})

		_, err := db.ProfileFilters().Insert(ctx, &console.ProfileFilter{
			ID:          uuid.New(),
			ProfileID:   f.profile.ID,
			AccountID:   f.account.ID,
			FilterType:  console.FilterInclude,
			FilterKey:   console.FilterKeyRepo,
			FilterValue: "alice/work-project",
		})
		require.NoError(t, err)

		payload, err := f.service.AssembleProfile(ctx, f.profile, nil)
		require.NoError(t, err)
		require.NotEmpty(t, payload.Groups)

		var commits int
		for _, group := range payload.Groups {
			for _, entry := range group.Items {
				require.NotNil(t, entry.Group)
				assert.Equal(t, "alice/work-project", entry.Group.Repo)
				commits += len(entry.Group.Commits)
			}
		}
		assert.Equal(t, 2, commits)
	})
}

func TestAssembleProfileWindow(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		f.seedGitHub(ctx, t, map[string][]github.Commit{
			"alice/work-project": {
				commitAt("aaa", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)),
				commitAt("bbb", time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)),
				commitAt("ccc", time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC)),
			},
		})

		payload, err := f.service.AssembleProfile(ctx, f.profile, &assemble.Window{Before: "2024-01-16"})
		require.NoError(t, err)
		require.Len(t, payload.Groups, 2)
		assert.Equal(t, "2024-01-16", payload.Groups[0].Date)
		assert.Equal(t, "2024-01-15", payload.Groups[1].Date)

		payload, err = f.service.AssembleProfile(ctx, f.profile, &assemble.Window{Limit: 1})
		require.NoError(t, err)
		require.Len(t, payload.Groups, 1)
		assert.Equal(t, "2024-01-17", payload.Groups[0].Date)
	})
}

func TestAssembleUserPersistsLineage(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		f.seedGitHub(ctx, t, map[string][]github.Commit{
			"alice/work-project": {commitAt("aaa", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))},
		})

		_, err := f.service.AssembleUser(ctx, f.user.ID)
		require.NoError(t, err)

		snapshot, err := f.backend.Index().Latest(ctx, corpus.TimelineStoreID(f.user.ID.String()).String())
		require.NoError(t, err)
		require.Len(t, snapshot.Parents, 2)

		parents := map[string]string{}
		for _, parent := range snapshot.Parents {
			parents[parent.StoreID] = parent.Role
		}
		storeAccount := f.account.ID.String()
		assert.Equal(t, "source", parents[corpus.GitHubMetaStoreID(storeAccount).String()])
		assert.Equal(t, "source", parents[corpus.GitHubCommitsStoreID(storeAccount, "alice", "work-project").String()])
	})
}

func TestLatestTimelineDateRange(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)
		var commits []github.Commit
		for day := 1; day <= 5; day++ {
			at := time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC)
			commits = append(commits, commitAt(fmt.Sprintf("sha-%d", day), at))
		}
		f.seedGitHub(ctx, t, map[string][]github.Commit{"alice/work-project": commits})

		_, err := f.service.AssembleUser(ctx, f.user.ID)
		require.NoError(t, err)

		payload, err := f.service.LatestTimeline(ctx, f.user.ID, "2024-01-02", "2024-01-04")
		require.NoError(t, err)

		var dates []string
		for _, group := range payload.Groups {
			dates = append(dates, group.Date)
		}
		assert.Equal(t, []string{"2024-01-04", "2024-01-03", "2024-01-02"}, dates)
	})
}

func TestLatestTimelineNoData(t *testing.T) {
	chronicledbtest.Run(t, func(ctx *testcontext.Context, db *chronicledb.DB) {
		f := newFixture(ctx, t, db)

		_, err := f.service.LatestTimeline(ctx, uuid.New(), "", "")
		assert.True(t, assemble.ErrNoData.Has(err))
	})
}
