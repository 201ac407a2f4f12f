// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package testplatform provides a scriptable in-memory provider for every
// platform, used by service and chore tests instead of real APIs.
package testplatform

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chroniclehq/chronicle/platforms"
	"github.com/chroniclehq/chronicle/platforms/bluesky"
	"github.com/chroniclehq/chronicle/platforms/devpad"
	"github.com/chroniclehq/chronicle/platforms/github"
	"github.com/chroniclehq/chronicle/platforms/reddit"
	"github.com/chroniclehq/chronicle/platforms/twitter"
	"github.com/chroniclehq/chronicle/platforms/youtube"
)

// Provider serves scripted fixture data for all platforms. The zero state
// returns empty results; Set* methods install fixtures and Simulate*
// methods force error outcomes. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	githubMeta  github.Meta
	githubRepos map[string]github.RepoActivity
	redditMeta  reddit.Meta
	posts       []reddit.Post
	comments    []reddit.Comment
	twitterMeta twitter.Meta
	tweets      []twitter.Tweet
	blueskyFeed bluesky.Result
	videos      []youtube.Video
	tasks       []devpad.Task

	rateLimit platforms.RateLimitInfo

	rateLimited bool
	retryAfter  time.Duration
	authExpired bool
	networkDown bool

	calls int
}

// New creates an empty scripted provider.
func New() *Provider {
	return &Provider{
		githubRepos: make(map[string]github.RepoActivity),
	}
}

// SetCommits installs commits for one repository.
func (p *Provider) SetCommits(repo string, commits []github.Commit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	activity := p.githubRepos[repo]
	activity.Commits = commits
	p.githubRepos[repo] = activity
	p.githubMeta.Repos = repoList(p.githubRepos)
}

// SetPullRequests installs pull requests for one repository.
func (p *Provider) SetPullRequests(repo string, prs []github.PullRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	activity := p.githubRepos[repo]
	activity.PullRequests = prs
	p.githubRepos[repo] = activity
	p.githubMeta.Repos = repoList(p.githubRepos)
}

// SetGitHubMeta installs the account metadata. The repo list is still
// derived from installed activity.
func (p *Provider) SetGitHubMeta(meta github.Meta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	meta.Repos = repoList(p.githubRepos)
	p.githubMeta = meta
}

// SetRedditMeta installs the reddit account metadata.
func (p *Provider) SetRedditMeta(meta reddit.Meta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redditMeta = meta
}

// SetRedditPosts installs the submitted posts, newest first.
func (p *Provider) SetRedditPosts(posts []reddit.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = posts
}

// SetRedditComments installs the comment history, newest first.
func (p *Provider) SetRedditComments(comments []reddit.Comment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments = comments
}

// SetTwitterMeta installs the twitter account metadata.
func (p *Provider) SetTwitterMeta(meta twitter.Meta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.twitterMeta = meta
}

// SetTweets installs the tweet history, newest first.
func (p *Provider) SetTweets(tweets []twitter.Tweet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tweets = tweets
}

// SetBlueskyFeed installs the author feed.
func (p *Provider) SetBlueskyFeed(feed bluesky.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blueskyFeed = feed
}

// SetVideos installs the uploaded videos.
func (p *Provider) SetVideos(videos []youtube.Video) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videos = videos
}

// SetTasks installs the task history.
func (p *Provider) SetTasks(tasks []devpad.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = tasks
}

// SetRateLimitInfo installs the headers reported alongside successful
// fetches.
func (p *Provider) SetRateLimitInfo(info platforms.RateLimitInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rateLimit = info
}

// SetSimulateRateLimit makes every fetch fail with a rate limit error
// carrying the given retry-after until cleared.
func (p *Provider) SetSimulateRateLimit(on bool, retryAfter time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rateLimited = on
	p.retryAfter = retryAfter
}

// SetSimulateAuthExpired makes every fetch fail with an auth expired
// error until cleared.
func (p *Provider) SetSimulateAuthExpired(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authExpired = on
}

// SetSimulateNetworkError makes every fetch fail with a network error
// until cleared.
func (p *Provider) SetSimulateNetworkError(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.networkDown = on
}

// CallCount reports how many fetches have been attempted, including
// failed ones.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// ResetCalls zeroes the call counter.
func (p *Provider) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = 0
}

// fetchErr counts the attempt and returns the scripted failure, if any.
func (p *Provider) fetchErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.calls++
	switch {
	case p.rateLimited:
		return platforms.RateLimited(p.retryAfter)
	case p.authExpired:
		return platforms.ErrAuthExpired.New("token expired")
	case p.networkDown:
		return platforms.ErrNetwork.New("connection refused")
	}
	return nil
}

// GitHub returns the provider's GitHub facet.
func (p *Provider) GitHub() github.Provider { return githubFacet{p} }

// Reddit returns the provider's Reddit facet.
func (p *Provider) Reddit() reddit.Provider { return redditFacet{p} }

// Twitter returns the provider's Twitter facet.
func (p *Provider) Twitter() twitter.Provider { return twitterFacet{p} }

// Bluesky returns the provider's Bluesky facet.
func (p *Provider) Bluesky() bluesky.Provider { return blueskyFacet{p} }

// YouTube returns the provider's YouTube facet.
func (p *Provider) YouTube() youtube.Provider { return youtubeFacet{p} }

// Devpad returns the provider's Devpad facet.
func (p *Provider) Devpad() devpad.Provider { return devpadFacet{p} }

type githubFacet struct{ p *Provider }

func (f githubFacet) Fetch(ctx context.Context, token string) (*github.Result, error) {
	f.p.mu.Lock()
	defer f.p.mu.Unlock()
	if err := f.p.fetchErr(ctx); err != nil {
		return nil, err
	}
	repos := make(map[string]github.RepoActivity, len(f.p.githubRepos))
	for repo, activity := range f.p.githubRepos {
		repos[repo] = github.RepoActivity{
			Commits:      append([]github.Commit(nil), activity.Commits...),
			PullRequests: append([]github.PullRequest(nil), activity.PullRequests...),
		}
	}
	meta := f.p.githubMeta
	meta.Repos = repoList(f.p.githubRepos)
	return &github.Result{
		Meta:      meta,
		Repos:     repos,
		RateLimit: f.p.rateLimit,
	}, nil
}

type redditFacet struct{ p *Provider }

func (f redditFacet) Fetch(ctx context.Context, token string) (*reddit.Result, error) {
	f.p.mu.Lock()
	defer f.p.mu.Unlock()
	if err := f.p.fetchErr(ctx); err != nil {
		return nil, err
	}
	return &reddit.Result{
		Meta:      f.p.redditMeta,
		Posts:     append([]reddit.Post(nil), f.p.posts...),
		Comments:  append([]reddit.Comment(nil), f.p.comments...),
		RateLimit: f.p.rateLimit,
	}, nil
}

type twitterFacet struct{ p *Provider }

func (f twitterFacet) Fetch(ctx context.Context, token string) (*twitter.Result, error) {
	f.p.mu.Lock()
	defer f.p.mu.Unlock()
	if err := f.p.fetchErr(ctx); err != nil {
		return nil, err
	}
	return &twitter.Result{
		Meta:      f.p.twitterMeta,
		Tweets:    append([]twitter.Tweet(nil), f.p.tweets...),
		RateLimit: f.p.rateLimit,
	}, nil
}

type blueskyFacet struct{ p *Provider }

func (f blueskyFacet) Fetch(ctx context.Context, token string) (*bluesky.Result, error) {
	f.p.mu.Lock()
	defer f.p.mu.Unlock()
	if err := f.p.fetchErr(ctx); err != nil {
		return nil, err
	}
	result := f.p.blueskyFeed
	result.Posts = append([]bluesky.Post(nil), f.p.blueskyFeed.Posts...)
	result.RateLimit = f.p.rateLimit
	return &result, nil
}

type youtubeFacet struct{ p *Provider }

func (f youtubeFacet) Fetch(ctx context.Context, token string) (*youtube.Result, error) {
	f.p.mu.Lock()
	defer f.p.mu.Unlock()
	if err := f.p.fetchErr(ctx); err != nil {
		return nil, err
	}
	return &youtube.Result{
		Videos:    append([]youtube.Video(nil), f.p.videos...),
		RateLimit: f.p.rateLimit,
	}, nil
}

type devpadFacet struct{ p *Provider }

func (f devpadFacet) Fetch(ctx context.Context, token string) (*devpad.Result, error) {
	f.p.mu.Lock()
	defer f.p.mu.Unlock()
	if err := f.p.fetchErr(ctx); err != nil {
		return nil, err
	}
	return &devpad.Result{
		Tasks:     append([]devpad.Task(nil), f.p.tasks...),
		RateLimit: f.p.rateLimit,
	}, nil
}

func repoList(repos map[string]github.RepoActivity) []string {
	list := make([]string, 0, len(repos))
	for repo := range repos {
		list = append(list, repo)
	}
	sort.Strings(list)
	return list
}
