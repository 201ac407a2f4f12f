// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package ingest implements the write side of the pipeline: gated
// provider fetches merged into per-account corpus stores.
package ingest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/corpus"
	"github.com/chroniclehq/chronicle/encryption"
	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/bluesky"
	"github.com/chroniclehq/chronicle/platforms/devpad"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/reddit"
	"github.com/chroniclehq/chronicle/platforms/twitter"
	"github.com/chroniclehq/chronicle/platforms/youtube"
)

var (
	// Error is the default ingest error class.
	Error = errs.Class("ingest")

	mon = monkit.Package()
)

// Config holds ingest configuration.
type Config struct {
	// FetchTimeout bounds a single provider fetch.
	FetchTimeout time.Duration `help:"timeout for a single provider fetch" default:"30s"`
}

// Providers bundles one provider per platform. Nil entries make the
// platform unavailable for ingestion.
type Providers struct {
	GitHub  github.Provider
	Reddit  reddit.Provider
	Twitter twitter.Provider
	Bluesky bluesky.Provider
	YouTube youtube.Provider
	Devpad  devpad.Provider
}

// ShardResult reports one merge-and-put.
type ShardResult struct {
	StoreID  string `json:"store_id"`
	Version  string `json:"version"`
	Total    int    `json:"total"`
	NewCount int    `json:"new_count"`
}

// Result reports one per-account ingestion.
type Result struct {
	AccountID  uuid.UUID          `json:"account_id"`
	Platform   platforms.Platform `json:"platform"`
	Skipped    bool               `json:"skipped"`
	SkipReason string             `json:"skip_reason,omitempty"`
	Shards     []ShardResult      `json:"shards,omitempty"`
}

// Wrote reports whether the ingestion produced any new snapshot.
func (r *Result) Wrote() bool { return len(r.Shards) > 0 }

// Service runs gated per-account ingestion. At most one ingestion per
// account runs at a time; accounts ingest in parallel.
//
// architecture: Service
type Service struct {
	log       *zap.Logger
	config    Config
	db        console.DB
	backend   corpus.Backend
	key       *encryption.Key
	providers Providers

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates an ingest service.
func NewService(log *zap.Logger, config Config, db console.DB, backend corpus.Backend, key *encryption.Key, providers Providers) *Service {
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = platforms.DefaultTimeout
	}
	return &Service{
		log:       log,
		config:    config,
		db:        db,
		backend:   backend,
		key:       key,
		providers: providers,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockAccount serializes ingestion per account id.
func (s *Service) lockAccount(id uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// IngestAccount fetches an account's platform through the gate and merges
// the result into its stores. Provider failures update the gate and come
// back as a skipped result, not an error.
func (s *Service) IngestAccount(ctx context.Context, account *console.Account) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	unlock := s.lockAccount(account.ID)
	defer unlock()

	result := &Result{AccountID: account.ID, Platform: account.Platform}

	state, err := s.db.RateLimits().Get(ctx, account.ID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	now := time.Now().UTC()
	if !ShouldFetch(state, now) {
		result.Skipped = true
		result.SkipReason = "gate closed"
		return result, nil
	}

	tokenBytes, err := encryption.Decrypt(account.AccessTokenEncrypted, s.key)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	token := string(tokenBytes)

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	shards, info, fetchErr := s.fetchAndPut(fetchCtx, ctx, account, token)
	cancel()

	if fetchErr != nil {
		RecordFailure(state, fetchErr, time.Now().UTC())
		if err := s.db.RateLimits().Upsert(ctx, state); err != nil {
			return nil, Error.Wrap(err)
		}
		s.log.Warn("provider fetch failed",
			zap.Stringer("account", account.ID),
			zap.String("platform", string(account.Platform)),
			zap.Error(fetchErr))
		result.Skipped = true
		result.SkipReason = skipReason(fetchErr)
		return result, nil
	}

	result.Shards = shards

	RecordSuccess(state, info, time.Now().UTC())
	if err := s.db.RateLimits().Upsert(ctx, state); err != nil {
		return nil, Error.Wrap(err)
	}
	if err := s.db.Accounts().UpdateLastFetched(ctx, account.ID, time.Now().UTC()); err != nil {
		return nil, Error.Wrap(err)
	}
	return result, nil
}

// fetchAndPut dispatches the fetch on the bounded context and runs the
// shard walk on the outer context, so a fetch timeout never cancels an
// in-flight put.
func (s *Service) fetchAndPut(fetchCtx, putCtx context.Context, account *console.Account, token string) ([]ShardResult, platforms.RateLimitInfo, error) {
	storeAccount := account.ID.String()

	switch account.Platform {
	case platforms.GitHub:
		if s.providers.GitHub == nil {
			return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("github provider not configured")
		}
		fetched, err := s.providers.GitHub.Fetch(fetchCtx, token)
		if err != nil {
			return nil, platforms.RateLimitInfo{}, err
		}
		shards, err := s.putGitHub(putCtx, storeAccount, fetched)
		return shards, fetched.RateLimit, err

	case platforms.Reddit:
		if s.providers.Reddit == nil {
			return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("reddit provider not configured")
		}
		fetched, err := s.providers.Reddit.Fetch(fetchCtx, token)
		if err != nil {
			return nil, platforms.RateLimitInfo{}, err
		}
		shards, err := s.putReddit(putCtx, storeAccount, fetched)
		return shards, fetched.RateLimit, err

	case platforms.Twitter:
		if s.providers.Twitter == nil {
			return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("twitter provider not configured")
		}
		fetched, err := s.providers.Twitter.Fetch(fetchCtx, token)
		if err != nil {
			return nil, platforms.RateLimitInfo{}, err
		}
		shards, err := s.putTwitter(putCtx, storeAccount, fetched)
		return shards, fetched.RateLimit, err

	case platforms.Bluesky:
		if s.providers.Bluesky == nil {
			return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("bluesky provider not configured")
		}
		fetched, err := s.providers.Bluesky.Fetch(fetchCtx, token)
		if err != nil {
			return nil, platforms.RateLimitInfo{}, err
		}
		shard, err := putShard(putCtx, s.backend, corpus.RawStoreID("bluesky", storeAccount),
			func(existing bluesky.Result, found bool) (bluesky.Result, int, int) {
				merged, newCount := mergeBlueskyPosts(existing.Posts, fetched.Posts)
				out := *fetched
				out.Posts = merged
				return out, len(merged), newCount
			})
		if err != nil {
			return nil, fetched.RateLimit, err
		}
		return []ShardResult{shard}, fetched.RateLimit, nil

	case platforms.YouTube:
		if s.providers.YouTube == nil {
			return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("youtube provider not configured")
		}
		fetched, err := s.providers.YouTube.Fetch(fetchCtx, token)
		if err != nil {
			return nil, platforms.RateLimitInfo{}, err
		}
		shard, err := putShard(putCtx, s.backend, corpus.RawStoreID("youtube", storeAccount),
			func(existing youtube.Result, found bool) (youtube.Result, int, int) {
				merged, newCount := mergeVideos(existing.Videos, fetched.Videos)
				out := *fetched
				out.Videos = merged
				return out, len(merged), newCount
			})
		if err != nil {
			return nil, fetched.RateLimit, err
		}
		return []ShardResult{shard}, fetched.RateLimit, nil

	case platforms.Devpad:
		if s.providers.Devpad == nil {
			return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("devpad provider not configured")
		}
		fetched, err := s.providers.Devpad.Fetch(fetchCtx, token)
		if err != nil {
			return nil, platforms.RateLimitInfo{}, err
		}
		shard, err := putShard(putCtx, s.backend, corpus.RawStoreID("devpad", storeAccount),
			func(existing devpad.Result, found bool) (devpad.Result, int, int) {
				merged, newCount := mergeTasks(existing.Tasks, fetched.Tasks)
				out := *fetched
				out.Tasks = merged
				return out, len(merged), newCount
			})
		if err != nil {
			return nil, fetched.RateLimit, err
		}
		return []ShardResult{shard}, fetched.RateLimit, nil
	}

	return nil, platforms.RateLimitInfo{}, platforms.ErrUnknownPlatform.New("%s", account.Platform)
}

// putGitHub writes the meta store and one commits plus one prs store per
// repository with observed activity.
func (s *Service) putGitHub(ctx context.Context, storeAccount string, fetched *github.Result) ([]ShardResult, error) {
	var shards []ShardResult

	metaShard, err := putShard(ctx, s.backend, corpus.GitHubMetaStoreID(storeAccount),
		func(existing github.Meta, found bool) (github.Meta, int, int) {
			merged := mergeGitHubMeta(existing, fetched.Meta)
			return merged, len(merged.Repos), len(merged.Repos) - len(existing.Repos)
		})
	if err != nil {
		return shards, err
	}
	shards = append(shards, metaShard)

	repos := make([]string, 0, len(fetched.Repos))
	for repo := range fetched.Repos {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return shards, Error.Wrap(err)
		}
		owner, name, ok := splitRepo(repo)
		if !ok {
			s.log.Warn("skipping malformed repo name", zap.String("repo", repo))
			continue
		}
		activity := fetched.Repos[repo]

		if len(activity.Commits) > 0 {
			shard, err := putShard(ctx, s.backend, corpus.GitHubCommitsStoreID(storeAccount, owner, name),
				func(existing github.CommitHistory, found bool) (github.CommitHistory, int, int) {
					merged, newCount := mergeCommits(existing.Commits, activity.Commits)
					return github.CommitHistory{Repo: repo, Commits: merged}, len(merged), newCount
				})
			if err != nil {
				return shards, err
			}
			shards = append(shards, shard)
		}

		if len(activity.PullRequests) > 0 {
			shard, err := putShard(ctx, s.backend, corpus.GitHubPRsStoreID(storeAccount, owner, name),
				func(existing github.PullRequestHistory, found bool) (github.PullRequestHistory, int, int) {
					merged, newCount := mergePullRequests(existing.PullRequests, activity.PullRequests)
					return github.PullRequestHistory{Repo: repo, PullRequests: merged}, len(merged), newCount
				})
			if err != nil {
				return shards, err
			}
			shards = append(shards, shard)
		}
	}
	return shards, nil
}

// putReddit writes the meta, posts and comments stores.
func (s *Service) putReddit(ctx context.Context, storeAccount string, fetched *reddit.Result) ([]ShardResult, error) {
	var shards []ShardResult

	metaShard, err := putShard(ctx, s.backend, corpus.RedditMetaStoreID(storeAccount),
		func(existing reddit.Meta, found bool) (reddit.Meta, int, int) {
			merged := mergeRedditMeta(existing, fetched.Meta)
			return merged, len(merged.Subreddits), len(merged.Subreddits) - len(existing.Subreddits)
		})
	if err != nil {
		return shards, err
	}
	shards = append(shards, metaShard)

	if err := ctx.Err(); err != nil {
		return shards, Error.Wrap(err)
	}
	postsShard, err := putShard(ctx, s.backend, corpus.RedditPostsStoreID(storeAccount),
		func(existing reddit.PostHistory, found bool) (reddit.PostHistory, int, int) {
			merged, newCount := mergeRedditPosts(existing.Posts, fetched.Posts)
			return reddit.PostHistory{Posts: merged}, len(merged), newCount
		})
	if err != nil {
		return shards, err
	}
	shards = append(shards, postsShard)

	if err := ctx.Err(); err != nil {
		return shards, Error.Wrap(err)
	}
	commentsShard, err := putShard(ctx, s.backend, corpus.RedditCommentsStoreID(storeAccount),
		func(existing reddit.CommentHistory, found bool) (reddit.CommentHistory, int, int) {
			merged, newCount := mergeRedditComments(existing.Comments, fetched.Comments)
			return reddit.CommentHistory{Comments: merged}, len(merged), newCount
		})
	if err != nil {
		return shards, err
	}
	return append(shards, commentsShard), nil
}

// putTwitter writes the meta and tweets stores.
func (s *Service) putTwitter(ctx context.Context, storeAccount string, fetched *twitter.Result) ([]ShardResult, error) {
	var shards []ShardResult

	metaShard, err := putShard(ctx, s.backend, corpus.TwitterMetaStoreID(storeAccount),
		func(existing twitter.Meta, found bool) (twitter.Meta, int, int) {
			return fetched.Meta, 1, 0
		})
	if err != nil {
		return shards, err
	}
	shards = append(shards, metaShard)

	if err := ctx.Err(); err != nil {
		return shards, Error.Wrap(err)
	}
	tweetsShard, err := putShard(ctx, s.backend, corpus.TwitterTweetsStoreID(storeAccount),
		func(existing twitter.TweetHistory, found bool) (twitter.TweetHistory, int, int) {
			merged, newCount := mergeTweets(existing.Tweets, fetched.Tweets)
			return twitter.TweetHistory{Tweets: merged}, len(merged), newCount
		})
	if err != nil {
		return shards, err
	}
	return append(shards, tweetsShard), nil
}

// putShard performs one merge-and-put: read the latest snapshot, merge
// the incoming data into it, write the merged payload.
func putShard[T any](ctx context.Context, backend corpus.Backend, id corpus.StoreID, merge func(existing T, found bool) (merged T, total, newCount int)) (ShardResult, error) {
	store := corpus.NewStore[T](backend, id, corpus.NewJSONCodec[T]())

	_, existing, err := store.GetLatest(ctx)
	found := err == nil
	if err != nil && !corpus.ErrNotFound.Has(err) {
		return ShardResult{}, Error.Wrap(err)
	}

	merged, total, newCount := merge(existing, found)
	if newCount < 0 {
		newCount = 0
	}

	snapshot, err := store.Put(ctx, merged, nil)
	if err != nil {
		return ShardResult{}, Error.Wrap(err)
	}
	return ShardResult{
		StoreID:  id.String(),
		Version:  snapshot.Version,
		Total:    total,
		NewCount: newCount,
	}, nil
}

// skipReason maps a provider error to a stable label for results.
func skipReason(err error) string {
	switch {
	case platforms.ErrRateLimited.Has(err):
		return "rate_limited"
	case platforms.ErrAuthExpired.Has(err):
		return "auth_expired"
	case platforms.ErrAPI.Has(err):
		return "api_error"
	case platforms.ErrNetwork.Has(err):
		return "network_error"
	default:
		return "error"
	}
}

func splitRepo(repo string) (owner, name string, ok bool) {
	idx := strings.IndexByte(repo, '/')
	if idx <= 0 || idx == len(repo)-1 {
		return "", "", false
	}
	return repo[:idx], repo[idx+1:], true
}
