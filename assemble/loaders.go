// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package assemble

import (
	"context"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/bluesky"
	"github.com/chroniclehq/chronicle/platforms/devpad"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/reddit"
	"github.com/chroniclehq/chronicle/platforms/twitter"
	"github.com/chroniclehq/chronicle/platforms/youtube"
	"github.com/chroniclehq/chronicle/timeline"
)

// loadAccount reads the latest per-platform stores of one account,
// normalizes them, and reports the snapshots read as lineage parents.
// Accounts with no stored data yield no items and no parents.
func (s *Service) loadAccount(ctx context.Context, account *console.Account) ([]timeline.Item, []corpus.Parent, error) {
	storeAccount := account.ID.String()

	switch account.Platform {
	case platforms.GitHub:
		return s.loadGitHub(ctx, storeAccount)
	case platforms.Reddit:
		return s.loadReddit(ctx, storeAccount)
	case platforms.Twitter:
		return s.loadTwitter(ctx, storeAccount)
	case platforms.Bluesky:
		data, parent, err := loadLatest[bluesky.Result](ctx, s.backend, corpus.RawStoreID("bluesky", storeAccount))
		if err != nil || parent == nil {
			return nil, nil, err
		}
		return bluesky.Normalize(data), []corpus.Parent{*parent}, nil
	case platforms.YouTube:
		data, parent, err := loadLatest[youtube.Result](ctx, s.backend, corpus.RawStoreID("youtube", storeAccount))
		if err != nil || parent == nil {
			return nil, nil, err
		}
		return youtube.Normalize(data), []corpus.Parent{*parent}, nil
	case platforms.Devpad:
		data, parent, err := loadLatest[devpad.Result](ctx, s.backend, corpus.RawStoreID("devpad", storeAccount))
		if err != nil || parent == nil {
			return nil, nil, err
		}
		return devpad.Normalize(data), []corpus.Parent{*parent}, nil
	}
	return nil, nil, platforms.ErrUnknownPlatform.New("%s", account.Platform)
}

// loadGitHub reassembles StoredData from the meta store and every
// per-repo history store the meta lists.
func (s *Service) loadGitHub(ctx context.Context, storeAccount string) ([]timeline.Item, []corpus.Parent, error) {
	meta, metaParent, err := loadLatest[github.Meta](ctx, s.backend, corpus.GitHubMetaStoreID(storeAccount))
	if err != nil || metaParent == nil {
		return nil, nil, err
	}
	parents := []corpus.Parent{*metaParent}

	data := github.StoredData{Meta: meta, Repos: make(map[string]github.RepoActivity)}
	for _, repo := range meta.Repos {
		owner, name, ok := splitRepo(repo)
		if !ok {
			continue
		}
		activity := github.RepoActivity{}

		commits, parent, err := loadLatest[github.CommitHistory](ctx, s.backend, corpus.GitHubCommitsStoreID(storeAccount, owner, name))
		if err != nil {
			return nil, nil, err
		}
		if parent != nil {
			activity.Commits = commits.Commits
			parents = append(parents, *parent)
		}

		prs, parent, err := loadLatest[github.PullRequestHistory](ctx, s.backend, corpus.GitHubPRsStoreID(storeAccount, owner, name))
		if err != nil {
			return nil, nil, err
		}
		if parent != nil {
			activity.PullRequests = prs.PullRequests
			parents = append(parents, *parent)
		}

		if len(activity.Commits) > 0 || len(activity.PullRequests) > 0 {
			data.Repos[repo] = activity
		}
	}
	return github.Normalize(data), parents, nil
}

func (s *Service) loadReddit(ctx context.Context, storeAccount string) ([]timeline.Item, []corpus.Parent, error) {
	var data reddit.StoredData
	var parents []corpus.Parent

	posts, parent, err := loadLatest[reddit.PostHistory](ctx, s.backend, corpus.RedditPostsStoreID(storeAccount))
	if err != nil {
		return nil, nil, err
	}
	if parent != nil {
		data.Posts = posts.Posts
		parents = append(parents, *parent)
	}

	comments, parent, err := loadLatest[reddit.CommentHistory](ctx, s.backend, corpus.RedditCommentsStoreID(storeAccount))
	if err != nil {
		return nil, nil, err
	}
	if parent != nil {
		data.Comments = comments.Comments
		parents = append(parents, *parent)
	}

	if len(parents) == 0 {
		return nil, nil, nil
	}
	return reddit.Normalize(data), parents, nil
}

func (s *Service) loadTwitter(ctx context.Context, storeAccount string) ([]timeline.Item, []corpus.Parent, error) {
	meta, metaParent, err := loadLatest[twitter.Meta](ctx, s.backend, corpus.TwitterMetaStoreID(storeAccount))
	if err != nil {
		return nil, nil, err
	}

	tweets, tweetsParent, err := loadLatest[twitter.TweetHistory](ctx, s.backend, corpus.TwitterTweetsStoreID(storeAccount))
	if err != nil || tweetsParent == nil {
		return nil, nil, err
	}

	parents := []corpus.Parent{*tweetsParent}
	if metaParent != nil {
		parents = append(parents, *metaParent)
	}
	return twitter.Normalize(twitter.StoredData{Meta: meta, Tweets: tweets.Tweets}), parents, nil
}

// loadLatest reads the latest snapshot of a store. A missing store is
// reported as a nil parent, not an error.
func loadLatest[T any](ctx context.Context, backend corpus.Backend, id corpus.StoreID) (T, *corpus.Parent, error) {
	store := corpus.NewStore[T](backend, id, corpus.NewJSONCodec[T]())
	snapshot, value, err := store.GetLatest(ctx)
	if corpus.ErrNotFound.Has(err) {
		var zero T
		return zero, nil, nil
	}
	if err != nil {
		var zero T
		return zero, nil, Error.Wrap(err)
	}
	return value, &corpus.Parent{StoreID: id.String(), Version: snapshot.Version, Role: "source"}, nil
}
