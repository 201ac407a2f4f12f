// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package assemble implements the read side of the pipeline: loading the
// latest per-account stores, normalizing, filtering, grouping and
// persisting per-user timeline snapshots with lineage.
package assemble

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

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

var (
	// Error is the default assemble error class.
	Error = errs.Class("assemble")

	// ErrNoData means no timeline or raw snapshot exists yet.
	ErrNoData = errs.Class("no data")

	mon = monkit.Package()
)

// Window bounds an assembled timeline: Before drops newer date groups,
// Limit truncates the flattened entry count.
type Window struct {
	Before string
	Limit  int
}

// Service assembles and serves per-user timelines.
//
// architecture: Service
type Service struct {
	log     *zap.Logger
	db      console.DB
	backend corpus.Backend
}

// NewService creates an assemble service.
func NewService(log *zap.Logger, db console.DB, backend corpus.Backend) *Service {
	return &Service{log: log, db: db, backend: backend}
}

// AssembleUser rebuilds and persists the timeline of a user from every
// active account across all profiles.
func (s *Service) AssembleUser(ctx context.Context, userID uuid.UUID) (_ *timeline.Payload, err error) {
	defer mon.Task()(&ctx)(&err)

	accounts, err := s.db.Accounts().ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return s.assemble(ctx, userID, accounts, nil, nil, nil)
}

// AssembleProfile rebuilds and persists the timeline of one profile,
// applying the profile's filter set and the optional window.
func (s *Service) AssembleProfile(ctx context.Context, profile *console.Profile, window *Window) (_ *timeline.Payload, err error) {
	defer mon.Task()(&ctx)(&err)

	accounts, err := s.db.Accounts().ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	filters, err := s.db.ProfileFilters().ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return s.assemble(ctx, profile.UserID, accounts, filters, profile, window)
}

// assemble runs the full pipeline: load, normalize, filter, sort, group,
// bucket, window, persist.
func (s *Service) assemble(ctx context.Context, userID uuid.UUID, accounts []console.Account, filters []console.ProfileFilter, profile *console.Profile, window *Window) (*timeline.Payload, error) {
	var items []timeline.Item
	var parents []corpus.Parent

	for i := range accounts {
		account := &accounts[i]
		if !account.IsActive {
			continue
		}
		loaded, sources, err := s.loadAccount(ctx, account)
		if err != nil {
			return nil, err
		}
		loaded = applyFilters(loaded, account.ID, filters)
		items = append(items, loaded...)
		parents = append(parents, sources...)
	}

	entries := timeline.GroupCommits(timeline.CombineTimelines(items))
	groups := timeline.GroupByDate(entries)
	groups = applyWindow(groups, window)

	payload := &timeline.Payload{
		UserID:      userID.String(),
		GeneratedAt: time.Now().UTC(),
		Groups:      groups,
	}
	if profile != nil {
		payload.ProfileID = profile.ID.String()
		payload.ProfileSlug = profile.Slug
		payload.ProfileName = profile.Name
	}

	store := corpus.NewStore[timeline.Payload](s.backend, corpus.TimelineStoreID(userID.String()), corpus.NewJSONCodec[timeline.Payload]())
	if _, err := store.Put(ctx, *payload, &corpus.PutOptions{Parents: parents}); err != nil {
		return nil, Error.Wrap(err)
	}
	return payload, nil
}

// applyWindow drops date groups newer than Before, then truncates the
// flattened entries to Limit and regroups.
func applyWindow(groups []timeline.DateGroup, window *Window) []timeline.DateGroup {
	if window == nil {
		return groups
	}
	if window.Before != "" {
		kept := groups[:0:0]
		for _, group := range groups {
			if group.Date > window.Before {
				continue
			}
			kept = append(kept, group)
		}
		groups = kept
	}
	if window.Limit > 0 {
		entries := timeline.FlattenGroups(groups)
		if len(entries) > window.Limit {
			entries = entries[:window.Limit]
		}
		groups = timeline.GroupByDate(entries)
	}
	return groups
}

// LatestTimeline returns the latest persisted timeline of a user, with
// optional inclusive from/to date filtering of its groups.
func (s *Service) LatestTimeline(ctx context.Context, userID uuid.UUID, from, to string) (_ *timeline.Payload, err error) {
	defer mon.Task()(&ctx)(&err)

	store := corpus.NewStore[timeline.Payload](s.backend, corpus.TimelineStoreID(userID.String()), corpus.NewJSONCodec[timeline.Payload]())
	_, payload, err := store.GetLatest(ctx)
	if corpus.ErrNotFound.Has(err) {
		return nil, ErrNoData.New("timeline")
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	if from != "" || to != "" {
		kept := payload.Groups[:0:0]
		for _, group := range payload.Groups {
			if from != "" && group.Date < from {
				continue
			}
			if to != "" && group.Date > to {
				continue
			}
			kept = append(kept, group)
		}
		payload.Groups = kept
	}
	return &payload, nil
}

// LatestRaw returns an account's latest stored platform shape: the
// unified raw store payload for single-store platforms, the reassembled
// stored shape for sharded ones.
func (s *Service) LatestRaw(ctx context.Context, account *console.Account) (_ any, err error) {
	defer mon.Task()(&ctx)(&err)

	storeAccount := account.ID.String()
	switch account.Platform {
	case platforms.GitHub:
		meta, parent, err := loadLatest[github.Meta](ctx, s.backend, corpus.GitHubMetaStoreID(storeAccount))
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNoData.New("raw")
		}
		data := github.StoredData{Meta: meta, Repos: make(map[string]github.RepoActivity)}
		for _, repo := range meta.Repos {
			owner, name, ok := splitRepo(repo)
			if !ok {
				continue
			}
			activity := github.RepoActivity{}
			commits, p, err := loadLatest[github.CommitHistory](ctx, s.backend, corpus.GitHubCommitsStoreID(storeAccount, owner, name))
			if err != nil {
				return nil, err
			}
			if p != nil {
				activity.Commits = commits.Commits
			}
			prs, p, err := loadLatest[github.PullRequestHistory](ctx, s.backend, corpus.GitHubPRsStoreID(storeAccount, owner, name))
			if err != nil {
				return nil, err
			}
			if p != nil {
				activity.PullRequests = prs.PullRequests
			}
			data.Repos[repo] = activity
		}
		return data, nil

	case platforms.Reddit:
		var data reddit.StoredData
		posts, p1, err := loadLatest[reddit.PostHistory](ctx, s.backend, corpus.RedditPostsStoreID(storeAccount))
		if err != nil {
			return nil, err
		}
		comments, p2, err := loadLatest[reddit.CommentHistory](ctx, s.backend, corpus.RedditCommentsStoreID(storeAccount))
		if err != nil {
			return nil, err
		}
		if p1 == nil && p2 == nil {
			return nil, ErrNoData.New("raw")
		}
		data.Posts, data.Comments = posts.Posts, comments.Comments
		return data, nil

	case platforms.Twitter:
		meta, _, err := loadLatest[twitter.Meta](ctx, s.backend, corpus.TwitterMetaStoreID(storeAccount))
		if err != nil {
			return nil, err
		}
		tweets, parent, err := loadLatest[twitter.TweetHistory](ctx, s.backend, corpus.TwitterTweetsStoreID(storeAccount))
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNoData.New("raw")
		}
		return twitter.StoredData{Meta: meta, Tweets: tweets.Tweets}, nil

	case platforms.Bluesky:
		data, parent, err := loadLatest[bluesky.Result](ctx, s.backend, corpus.RawStoreID("bluesky", storeAccount))
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNoData.New("raw")
		}
		return data, nil
	case platforms.YouTube:
		data, parent, err := loadLatest[youtube.Result](ctx, s.backend, corpus.RawStoreID("youtube", storeAccount))
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNoData.New("raw")
		}
		return data, nil
	case platforms.Devpad:
		data, parent, err := loadLatest[devpad.Result](ctx, s.backend, corpus.RawStoreID("devpad", storeAccount))
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNoData.New("raw")
		}
		return data, nil
	}
	return nil, platforms.ErrUnknownPlatform.New("%s", account.Platform)
}

// GitHubRepos returns the repo list of a GitHub account's latest meta.
func (s *Service) GitHubRepos(ctx context.Context, account *console.Account) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	meta, parent, err := loadLatest[github.Meta](ctx, s.backend, corpus.GitHubMetaStoreID(account.ID.String()))
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNoData.New("meta")
	}
	return meta.Repos, nil
}

// RedditSubreddits returns the subreddit list of a Reddit account's
// latest meta.
func (s *Service) RedditSubreddits(ctx context.Context, account *console.Account) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	meta, parent, err := loadLatest[reddit.Meta](ctx, s.backend, corpus.RedditMetaStoreID(account.ID.String()))
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNoData.New("meta")
	}
	return meta.Subreddits, nil
}

func splitRepo(repo string) (owner, name string, ok bool) {
	idx := strings.IndexByte(repo, '/')
	if idx <= 0 || idx == len(repo)-1 {
		return "", "", false
	}
	return repo[:idx], repo[idx+1:], true
}
