// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package github

import (
	"fmt"

	"github.com/chroniclehq/chronicle/timeline"
)

// Normalize maps the latest stored GitHub shape to timeline items: one
// commit item per commit and one pull_request item per pull request.
// Timestamps are the commit author date, and merged_at falling back to
// updated_at for pull requests.
func Normalize(data StoredData) []timeline.Item {
	var items []timeline.Item

	for repo, activity := range data.Repos {
		for _, commit := range activity.Commits {
			items = append(items, timeline.Item{
				ID:        "github:commit:" + commit.SHA,
				Platform:  "github",
				Type:      timeline.TypeCommit,
				Timestamp: commit.AuthorDate.UTC(),
				Title:     timeline.MakeTitle(commit.Message),
				URL:       commit.URL,
				Payload: timeline.CommitPayload{
					SHA:          commit.SHA,
					Message:      commit.Message,
					Repo:         repo,
					Branch:       commit.Branch,
					Additions:    commit.Additions,
					Deletions:    commit.Deletions,
					FilesChanged: commit.FilesChanged,
				},
			})
		}

		for _, pr := range activity.PullRequests {
			timestamp := pr.UpdatedAt
			if pr.MergedAt != nil {
				timestamp = *pr.MergedAt
			}
			items = append(items, timeline.Item{
				ID:        fmt.Sprintf("github:pull_request:%s:%d", repo, pr.Number),
				Platform:  "github",
				Type:      timeline.TypePullRequest,
				Timestamp: timestamp.UTC(),
				Title:     timeline.MakeTitle(pr.Title),
				URL:       pr.URL,
				Payload: timeline.PullRequestPayload{
					Repo:           repo,
					Number:         pr.Number,
					Title:          pr.Title,
					State:          pr.State,
					HeadRef:        pr.HeadRef,
					BaseRef:        pr.BaseRef,
					Additions:      pr.Additions,
					Deletions:      pr.Deletions,
					ChangedFiles:   pr.ChangedFiles,
					CommitSHAs:     pr.CommitSHAs,
					MergeCommitSHA: pr.MergeCommitSHA,
				},
			})
		}
	}

	return items
}
