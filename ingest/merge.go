// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package ingest

import (
	"sort"

	"github.com/chroniclehq/chronicle/platforms/bluesky"
	"github.com/chroniclehq/chronicle/platforms/devpad"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/reddit"
	"github.com/chroniclehq/chronicle/platforms/twitter"
	"github.com/chroniclehq/chronicle/platforms/youtube"
)

// Merges are keyed by each item's natural key. Existing items are
// replaced by their incoming instance so mutable fields (scores, metrics)
// update; unseen items are appended. Commit lists keep discovery order;
// post and tweet lists are resorted newest-first.

func mergeCommits(existing, incoming []github.Commit) (merged []github.Commit, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, commit := range merged {
		index[commit.SHA] = i
	}
	for _, commit := range incoming {
		if i, ok := index[commit.SHA]; ok {
			merged[i] = commit
			continue
		}
		index[commit.SHA] = len(merged)
		merged = append(merged, commit)
		newCount++
	}
	return merged, newCount
}

func mergePullRequests(existing, incoming []github.PullRequest) (merged []github.PullRequest, newCount int) {
	index := make(map[int]int, len(existing))
	merged = append(merged, existing...)
	for i, pr := range merged {
		index[pr.Number] = i
	}
	for _, pr := range incoming {
		if i, ok := index[pr.Number]; ok {
			merged[i] = pr
			continue
		}
		index[pr.Number] = len(merged)
		merged = append(merged, pr)
		newCount++
	}
	return merged, newCount
}

func mergeGitHubMeta(existing, incoming github.Meta) github.Meta {
	merged := incoming
	seen := make(map[string]bool, len(incoming.Repos))
	for _, repo := range incoming.Repos {
		seen[repo] = true
	}
	for _, repo := range existing.Repos {
		if !seen[repo] {
			seen[repo] = true
			merged.Repos = append(merged.Repos, repo)
		}
	}
	sort.Strings(merged.Repos)
	return merged
}

func mergeRedditPosts(existing, incoming []reddit.Post) (merged []reddit.Post, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, post := range merged {
		index[post.ID] = i
	}
	for _, post := range incoming {
		if i, ok := index[post.ID]; ok {
			merged[i] = post
			continue
		}
		index[post.ID] = len(merged)
		merged = append(merged, post)
		newCount++
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, newCount
}

func mergeRedditComments(existing, incoming []reddit.Comment) (merged []reddit.Comment, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, comment := range merged {
		index[comment.ID] = i
	}
	for _, comment := range incoming {
		if i, ok := index[comment.ID]; ok {
			merged[i] = comment
			continue
		}
		index[comment.ID] = len(merged)
		merged = append(merged, comment)
		newCount++
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, newCount
}

func mergeRedditMeta(existing, incoming reddit.Meta) reddit.Meta {
	merged := incoming
	seen := make(map[string]bool, len(incoming.Subreddits))
	for _, sub := range incoming.Subreddits {
		seen[sub] = true
	}
	for _, sub := range existing.Subreddits {
		if !seen[sub] {
			seen[sub] = true
			merged.Subreddits = append(merged.Subreddits, sub)
		}
	}
	sort.Strings(merged.Subreddits)
	return merged
}

func mergeTweets(existing, incoming []twitter.Tweet) (merged []twitter.Tweet, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, tweet := range merged {
		index[tweet.ID] = i
	}
	for _, tweet := range incoming {
		if i, ok := index[tweet.ID]; ok {
			merged[i] = tweet
			continue
		}
		index[tweet.ID] = len(merged)
		merged = append(merged, tweet)
		newCount++
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, newCount
}

func mergeBlueskyPosts(existing, incoming []bluesky.Post) (merged []bluesky.Post, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, post := range merged {
		index[post.URI] = i
	}
	for _, post := range incoming {
		if i, ok := index[post.URI]; ok {
			merged[i] = post
			continue
		}
		index[post.URI] = len(merged)
		merged = append(merged, post)
		newCount++
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, newCount
}

func mergeVideos(existing, incoming []youtube.Video) (merged []youtube.Video, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, video := range merged {
		index[video.ID] = i
	}
	for _, video := range incoming {
		if i, ok := index[video.ID]; ok {
			merged[i] = video
			continue
		}
		index[video.ID] = len(merged)
		merged = append(merged, video)
		newCount++
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	return merged, newCount
}

func mergeTasks(existing, incoming []devpad.Task) (merged []devpad.Task, newCount int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, task := range merged {
		index[task.ID] = i
	}
	for _, task := range incoming {
		if i, ok := index[task.ID]; ok {
			merged[i] = task
			continue
		}
		index[task.ID] = len(merged)
		merged = append(merged, task)
		newCount++
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})
	return merged, newCount
}
