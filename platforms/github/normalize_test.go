// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package github_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/timeline"
)

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, github.Normalize(github.StoredData{}))
	assert.Empty(t, github.Normalize(github.StoredData{
		Repos: map[string]github.RepoActivity{"alice/empty": {}},
	}))
}

func TestNormalizeCommit(t *testing.T) {
	authored := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	items := github.Normalize(github.StoredData{
		Repos: map[string]github.RepoActivity{
			"alice/widget": {
				Commits: []github.Commit{{
					SHA:          "deadbeef",
					Message:      "fix flaky retry\n\nlonger body that must not leak into the title",
					Branch:       "main",
					AuthorDate:   authored,
					URL:          "https://github.com/alice/widget/commit/deadbeef",
					Additions:    10,
					Deletions:    2,
					FilesChanged: 3,
				}},
			},
		},
	})
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "github:commit:deadbeef", item.ID)
	assert.Equal(t, "github", item.Platform)
	assert.Equal(t, timeline.TypeCommit, item.Type)
	assert.Equal(t, authored, item.Timestamp)
	assert.Equal(t, "fix flaky retry", item.Title)

	payload, ok := item.Commit()
	require.True(t, ok)
	assert.Equal(t, "alice/widget", payload.Repo)
	assert.Equal(t, "main", payload.Branch)
	assert.Equal(t, 10, payload.Additions)
	assert.Equal(t, 2, payload.Deletions)
	assert.Equal(t, 3, payload.FilesChanged)
}

func TestNormalizePullRequestTimestamp(t *testing.T) {
	updated := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	merged := time.Date(2024, 3, 12, 17, 45, 0, 0, time.UTC)

	items := github.Normalize(github.StoredData{
		Repos: map[string]github.RepoActivity{
			"alice/widget": {
				PullRequests: []github.PullRequest{
					{Number: 7, Title: "open pr", State: "open", UpdatedAt: updated},
					{Number: 8, Title: "merged pr", State: "merged", UpdatedAt: updated, MergedAt: &merged},
				},
			},
		},
	})
	require.Len(t, items, 2)

	byID := map[string]timeline.Item{}
	for _, item := range items {
		byID[item.ID] = item
	}

	open, ok := byID["github:pull_request:alice/widget:7"]
	require.True(t, ok)
	assert.Equal(t, updated, open.Timestamp)

	mergedItem, ok := byID["github:pull_request:alice/widget:8"]
	require.True(t, ok)
	assert.Equal(t, merged, mergedItem.Timestamp)

	payload, ok := mergedItem.PullRequest()
	require.True(t, ok)
	assert.Equal(t, "alice/widget", payload.Repo)
	assert.Equal(t, 8, payload.Number)
}

func TestNormalizeTitleTruncation(t *testing.T) {
	long := make([]rune, 0, 100)
	for i := 0; i < 100; i++ {
		long = append(long, 'x')
	}
	items := github.Normalize(github.StoredData{
		Repos: map[string]github.RepoActivity{
			"alice/widget": {
				Commits: []github.Commit{{SHA: "abc", Message: string(long)}},
			},
		},
	})
	require.Len(t, items, 1)
	assert.Len(t, []rune(items[0].Title), timeline.TitleLimit)
	assert.Equal(t, "...", items[0].Title[len(items[0].Title)-3:])
}
