// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package corpus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/corpus"
)

func TestParseStoreID(t *testing.T) {
	valid := map[string]corpus.StoreID{
		"raw/github/acct-1":             corpus.RawStoreID("github", "acct-1"),
		"raw/bluesky/acct-2":            corpus.RawStoreID("bluesky", "acct-2"),
		"timeline/user-alice":           corpus.TimelineStoreID("user-alice"),
		"github/acct-1/meta":            corpus.GitHubMetaStoreID("acct-1"),
		"github/acct-1/commits/own/rep": corpus.GitHubCommitsStoreID("acct-1", "own", "rep"),
		"github/acct-1/prs/own/rep":     corpus.GitHubPRsStoreID("acct-1", "own", "rep"),
		"reddit/acct-3/meta":            corpus.RedditMetaStoreID("acct-3"),
		"reddit/acct-3/posts":           corpus.RedditPostsStoreID("acct-3"),
		"reddit/acct-3/comments":        corpus.RedditCommentsStoreID("acct-3"),
		"twitter/acct-4/meta":           corpus.TwitterMetaStoreID("acct-4"),
		"twitter/acct-4/tweets":         corpus.TwitterTweetsStoreID("acct-4"),
	}
	for input, expected := range valid {
		parsed, err := corpus.ParseStoreID(input)
		require.NoError(t, err, input)
		require.Equal(t, expected, parsed, input)
		require.Equal(t, input, parsed.String(), input)
	}

	invalid := []string{
		"",
		"raw",
		"raw/github",
		"raw/myspace/acct",
		"raw/github/acct/extra",
		"timeline",
		"timeline/user/extra",
		"github/acct",
		"github/acct/unknown",
		"github/acct/commits/own",
		"github/acct/commits/own/rep/extra",
		"reddit/acct/tweets",
		"twitter/acct/posts",
		"raw//acct",
		"unknown/foo/bar",
	}
	for _, input := range invalid {
		_, err := corpus.ParseStoreID(input)
		require.Error(t, err, input)
		require.True(t, corpus.ErrStoreID.Has(err), input)
	}
}
