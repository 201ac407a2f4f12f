// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package timeline_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/timeline"
)

func TestMakeTitle(t *testing.T) {
	require.Equal(t, "fix build", timeline.MakeTitle("fix build"))
	require.Equal(t, "fix build", timeline.MakeTitle("fix build\n\ndetails below"))
	require.Equal(t, "a b c", timeline.MakeTitle("  a \t b   c  "))
	require.Equal(t, "", timeline.MakeTitle(""))

	long := strings.Repeat("x", 100)
	title := timeline.MakeTitle(long)
	require.Len(t, []rune(title), 72)
	require.True(t, strings.HasSuffix(title, "..."))
	require.Equal(t, strings.Repeat("x", 69), strings.TrimSuffix(title, "..."))

	exact := strings.Repeat("y", 72)
	require.Equal(t, exact, timeline.MakeTitle(exact))
}

func TestItemJSONRoundtrip(t *testing.T) {
	item := timeline.Item{
		ID:        "github:commit:abc",
		Platform:  "github",
		Type:      timeline.TypeCommit,
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Title:     "fix build",
		URL:       "https://github.com/user/repo/commit/abc",
		Payload: timeline.CommitPayload{
			SHA: "abc", Message: "fix build", Repo: "user/repo", Branch: "main",
			Additions: 3, Deletions: 1, FilesChanged: 2,
		},
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded timeline.Item
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, item, decoded)

	payload, ok := decoded.Commit()
	require.True(t, ok)
	require.Equal(t, "user/repo", payload.Repo)
}

func TestEntryJSONRoundtrip(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	entries := timeline.GroupCommits([]timeline.Item{
		commitItem("github:commit:abc", "abc", "user/repo", "main", at, 1, 1, 1),
		postItem("twitter:post:9", at),
	})
	require.Len(t, entries, 2)

	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.Contains(t, string(data), `"type":"commit_group"`)

	var decoded []timeline.Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	require.NotNil(t, decoded[0].Group)
	require.Equal(t, "user/repo", decoded[0].Group.Repo)
	require.Len(t, decoded[0].Group.Commits, 1)
	require.NotNil(t, decoded[1].Item)
	require.Equal(t, "twitter:post:9", decoded[1].Item.ID)
}

func TestPayloadJSONRoundtrip(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	payload := timeline.Payload{
		UserID:      "user-alice",
		GeneratedAt: at,
		Groups: timeline.GroupByDate(timeline.GroupCommits([]timeline.Item{
			commitItem("github:commit:abc", "abc", "user/repo", "main", at, 1, 1, 1),
		})),
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded timeline.Payload
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "user-alice", decoded.UserID)
	require.Len(t, decoded.Groups, 1)
	require.Equal(t, "2024-01-15", decoded.Groups[0].Date)
}
