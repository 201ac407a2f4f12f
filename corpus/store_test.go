// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package corpus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/corpus/memback"
	"github.com/chroniclehq/chronicle/internal/testcontext"
)

type rawCommits struct {
	Commits []string `json:"commits"`
}

func TestStorePutGetLatest(t *testing.T) {
	ctx := testcontext.New(t)
	backend := memback.New()

	store := corpus.NewStore(backend,
		corpus.RawStoreID("github", "acct-1"),
		corpus.NewJSONCodec[rawCommits]())

	value := rawCommits{Commits: []string{"aaa", "bbb"}}
	snapshot, err := store.Put(ctx, value, nil)
	require.NoError(t, err)
	require.NotEmpty(t, snapshot.Version)

	encoded, err := corpus.NewJSONCodec[rawCommits]().Encode(value)
	require.NoError(t, err)
	require.Equal(t, corpus.HashContent(encoded), snapshot.ContentHash)

	latest, decoded, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, snapshot.Version, latest.Version)
	require.Equal(t, snapshot.ContentHash, latest.ContentHash)
	require.Equal(t, value, decoded)
}

func TestStorePutIsNotDeduplicated(t *testing.T) {
	ctx := testcontext.New(t)
	backend := memback.New()

	store := corpus.NewStore(backend,
		corpus.RawStoreID("github", "acct-1"),
		corpus.NewJSONCodec[rawCommits]())

	value := rawCommits{Commits: []string{"x"}}
	first, err := store.Put(ctx, value, nil)
	require.NoError(t, err)
	second, err := store.Put(ctx, value, nil)
	require.NoError(t, err)

	require.NotEqual(t, first.Version, second.Version)
	require.Equal(t, first.ContentHash, second.ContentHash)

	third, err := store.Put(ctx, rawCommits{Commits: []string{"y"}}, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ContentHash, third.ContentHash)
}

func TestStoreLineage(t *testing.T) {
	ctx := testcontext.New(t)
	backend := memback.New()

	raw := corpus.NewStore(backend,
		corpus.RawStoreID("github", "acct-1"),
		corpus.NewJSONCodec[rawCommits]())
	timeline := corpus.NewStore(backend,
		corpus.TimelineStoreID("user-alice"),
		corpus.NewJSONCodec[map[string]string]())

	source, err := raw.Put(ctx, rawCommits{Commits: []string{"aaa"}}, nil)
	require.NoError(t, err)

	derived, err := timeline.Put(ctx, map[string]string{"user_id": "user-alice"}, &corpus.PutOptions{
		Parents: []corpus.Parent{{
			StoreID: raw.ID().String(),
			Version: source.Version,
			Role:    "source",
		}},
	})
	require.NoError(t, err)

	got, _, err := timeline.Get(ctx, derived.Version)
	require.NoError(t, err)
	require.Equal(t, []corpus.Parent{{
		StoreID: "raw/github/acct-1",
		Version: source.Version,
		Role:    "source",
	}}, got.Parents)
}

func TestStorePutMissingParentFails(t *testing.T) {
	ctx := testcontext.New(t)
	backend := memback.New()

	timeline := corpus.NewStore(backend,
		corpus.TimelineStoreID("user-alice"),
		corpus.NewJSONCodec[map[string]string]())

	_, err := timeline.Put(ctx, map[string]string{}, &corpus.PutOptions{
		Parents: []corpus.Parent{{
			StoreID: "raw/github/missing",
			Version: "does-not-exist",
			Role:    "source",
		}},
	})
	require.Error(t, err)
	require.True(t, corpus.ErrParentMissing.Has(err))

	// failed put must not leave a snapshot behind
	_, _, err = timeline.GetLatest(ctx)
	require.True(t, corpus.ErrNotFound.Has(err))
}

func TestStoreIterateNewestFirst(t *testing.T) {
	ctx := testcontext.New(t)
	backend := memback.New()

	store := corpus.NewStore(backend,
		corpus.RawStoreID("github", "acct-1"),
		corpus.NewJSONCodec[rawCommits]())

	var versions []string
	for i := 0; i < 3; i++ {
		snapshot, err := store.Put(ctx, rawCommits{Commits: []string{string(rune('a' + i))}}, nil)
		require.NoError(t, err)
		versions = append(versions, snapshot.Version)
	}

	var seen []string
	require.NoError(t, store.Iterate(ctx, func(snapshot corpus.Snapshot) bool {
		seen = append(seen, snapshot.Version)
		return true
	}))
	require.Equal(t, []string{versions[2], versions[1], versions[0]}, seen)

	// early stop
	seen = nil
	require.NoError(t, store.Iterate(ctx, func(snapshot corpus.Snapshot) bool {
		seen = append(seen, snapshot.Version)
		return false
	}))
	require.Equal(t, []string{versions[2]}, seen)
}

func TestStoreDeleteAndWipe(t *testing.T) {
	ctx := testcontext.New(t)
	backend := memback.New()

	store := corpus.NewStore(backend,
		corpus.RawStoreID("github", "acct-1"),
		corpus.NewJSONCodec[rawCommits]())

	first, err := store.Put(ctx, rawCommits{Commits: []string{"a"}}, nil)
	require.NoError(t, err)
	second, err := store.Put(ctx, rawCommits{Commits: []string{"b"}}, nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, second.Version))
	latest, _, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, first.Version, latest.Version)

	deleted, err := corpus.WipeStore(ctx, backend, store.ID().String())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	_, _, err = store.GetLatest(ctx)
	require.True(t, corpus.ErrNotFound.Has(err))

	stores, err := backend.Index().Stores(ctx, "raw/")
	require.NoError(t, err)
	require.Empty(t, stores)
}
