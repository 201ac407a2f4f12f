// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package timeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/timeline"
)

func commitItem(id, sha, repo, branch string, at time.Time, additions, deletions, files int) timeline.Item {
	return timeline.Item{
		ID:        id,
		Platform:  "github",
		Type:      timeline.TypeCommit,
		Timestamp: at,
		Title:     "commit " + sha,
		URL:       "https://github.com/" + repo + "/commit/" + sha,
		Payload: timeline.CommitPayload{
			SHA:          sha,
			Message:      "commit " + sha,
			Repo:         repo,
			Branch:       branch,
			Additions:    additions,
			Deletions:    deletions,
			FilesChanged: files,
		},
	}
}

func postItem(id string, at time.Time) timeline.Item {
	return timeline.Item{
		ID:        id,
		Platform:  "twitter",
		Type:      timeline.TypePost,
		Timestamp: at,
		Title:     "post " + id,
		URL:       "https://twitter.com/i/status/" + id,
		Payload:   timeline.PostPayload{Author: "someone", Content: "post " + id},
	}
}

func TestGroupCommitsSameDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	items := []timeline.Item{
		commitItem("github:commit:aaa", "aaa", "user/repo", "main", day, 10, 2, 1),
		commitItem("github:commit:bbb", "bbb", "user/repo", "main", day.Add(2*time.Hour), 5, 5, 2),
		commitItem("github:commit:ccc", "ccc", "user/repo", "main", day.Add(4*time.Hour), 1, 0, 1),
	}

	entries := timeline.GroupCommits(items)
	require.Len(t, entries, 1)

	group := entries[0].Group
	require.NotNil(t, group)
	require.Equal(t, "commit_group", group.Type)
	require.Equal(t, "user/repo", group.Repo)
	require.Equal(t, "main", group.Branch)
	require.Equal(t, "2024-01-15", group.Date)
	require.Equal(t, 16, group.TotalAdditions)
	require.Equal(t, 7, group.TotalDeletions)
	require.Equal(t, 4, group.TotalFilesChanged)

	var shas []string
	for _, commit := range group.Commits {
		payload, ok := commit.Commit()
		require.True(t, ok)
		shas = append(shas, payload.SHA)
	}
	require.Equal(t, []string{"aaa", "bbb", "ccc"}, shas)
}

func TestGroupCommitsKeying(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	items := []timeline.Item{
		commitItem("github:commit:a", "a", "user/repo", "main", day, 1, 0, 1),
		postItem("twitter:post:1", day.Add(time.Minute)),
		commitItem("github:commit:b", "b", "user/repo", "dev", day, 1, 0, 1),
		commitItem("github:commit:c", "c", "user/other", "main", day, 1, 0, 1),
		commitItem("github:commit:d", "d", "user/repo", "main", day.AddDate(0, 0, -1), 1, 0, 1),
		commitItem("github:commit:e", "e", "user/repo", "main", day.Add(time.Hour), 1, 0, 1),
	}

	entries := timeline.GroupCommits(items)
	require.Len(t, entries, 5)

	// passthrough preserved in place
	require.NotNil(t, entries[1].Item)
	require.Equal(t, "twitter:post:1", entries[1].Item.ID)

	// every commit appears in exactly one group and no group spans keys
	total := 0
	for _, entry := range entries {
		if entry.Group == nil {
			continue
		}
		total += len(entry.Group.Commits)
		for _, commit := range entry.Group.Commits {
			payload, ok := commit.Commit()
			require.True(t, ok)
			require.Equal(t, entry.Group.Repo, payload.Repo)
			require.Equal(t, entry.Group.Branch, payload.Branch)
			require.Equal(t, entry.Group.Date, commit.Day())
		}
	}
	require.Equal(t, 5, total)

	// a and e share (repo, branch, day)
	require.NotNil(t, entries[0].Group)
	require.Len(t, entries[0].Group.Commits, 2)
}

func TestCombineTimelines(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	items := []timeline.Item{
		postItem("old", now.AddDate(0, 0, -2)),
		postItem("new", now),
		postItem("mid", now.AddDate(0, 0, -1)),
	}

	combined := timeline.CombineTimelines(items)
	require.Len(t, combined, 3)
	require.Equal(t, "new", combined[0].ID)
	require.Equal(t, "mid", combined[1].ID)
	require.Equal(t, "old", combined[2].ID)

	// input untouched
	require.Equal(t, "old", items[0].ID)

	// ties broken by id ascending
	tied := timeline.CombineTimelines([]timeline.Item{
		postItem("b", now), postItem("a", now), postItem("c", now),
	})
	require.Equal(t, "a", tied[0].ID)
	require.Equal(t, "b", tied[1].ID)
	require.Equal(t, "c", tied[2].ID)
}

func TestCombineTimelinesMonotone(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	var items []timeline.Item
	for i := 0; i < 10; i++ {
		items = append(items, postItem(string(rune('a'+i)), now.Add(time.Duration(i%4)*time.Hour)))
	}

	combined := timeline.CombineTimelines(items)
	require.Len(t, combined, len(items))
	for i := 1; i < len(combined); i++ {
		require.False(t, combined[i].Timestamp.After(combined[i-1].Timestamp))
	}
}

func TestGroupByDate(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)
	jan14 := time.Date(2024, 1, 14, 1, 0, 0, 0, time.UTC)

	entries := []timeline.Entry{
		timeline.ItemEntry(postItem("p1", jan15)),
		timeline.ItemEntry(postItem("p2", jan15.Add(-time.Hour))),
		timeline.ItemEntry(postItem("p3", jan14)),
	}

	groups := timeline.GroupByDate(entries)
	require.Len(t, groups, 2)
	require.Equal(t, "2024-01-15", groups[0].Date)
	require.Len(t, groups[0].Items, 2)
	require.Equal(t, "p1", groups[0].Items[0].Item.ID)
	require.Equal(t, "p2", groups[0].Items[1].Item.ID)
	require.Equal(t, "2024-01-14", groups[1].Date)

	flat := timeline.FlattenGroups(groups)
	require.Len(t, flat, 3)
	require.Equal(t, "p1", flat[0].Item.ID)
}

func TestGroupByDateUsesCommitGroupDate(t *testing.T) {
	day := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	entries := timeline.GroupCommits([]timeline.Item{
		commitItem("github:commit:x", "x", "user/repo", "main", day, 1, 0, 1),
	})
	groups := timeline.GroupByDate(entries)
	require.Len(t, groups, 1)
	require.Equal(t, "2024-03-10", groups[0].Date)
	require.NotNil(t, groups[0].Items[0].Group)
}
