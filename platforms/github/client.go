// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package github

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/platforms"
)

const defaultBaseURL = "https://api.github.com"

// eventPageSize bounds the events listing request.
const eventPageSize = 100

// Client fetches activity through the GitHub REST API. It walks the
// authenticated user's event feed and enriches push commits with per-commit
// diff stats.
type Client struct {
	log     *zap.Logger
	http    *platforms.Client
	baseURL string
}

// NewClient creates a GitHub provider.
func NewClient(log *zap.Logger, httpClient *platforms.Client) *Client {
	return &Client{log: log, http: httpClient, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL creates a provider against a custom endpoint.
func NewClientWithBaseURL(log *zap.Logger, httpClient *platforms.Client, baseURL string) *Client {
	return &Client{log: log, http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

type userJSON struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type eventJSON struct {
	Type string `json:"type"`
	Repo struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload struct {
		Ref     string `json:"ref"`
		Commits []struct {
			SHA     string `json:"sha"`
			Message string `json:"message"`
		} `json:"commits"`
		Action      string           `json:"action"`
		PullRequest *pullRequestJSON `json:"pull_request"`
	} `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type pullRequestJSON struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	HTMLURL        string     `json:"html_url"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       *time.Time `json:"merged_at"`
	MergeCommitSHA string     `json:"merge_commit_sha"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	ChangedFiles   int        `json:"changed_files"`
	Head           struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

type commitDetailJSON struct {
	Commit struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Stats struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
	} `json:"stats"`
	Files   []struct{} `json:"files"`
	HTMLURL string     `json:"html_url"`
}

// Fetch implements Provider.
func (client *Client) Fetch(ctx context.Context, token string) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	header := platforms.BearerHeader(token)
	header.Set("Accept", "application/vnd.github+json")

	var user userJSON
	respHeader, err := client.http.GetJSON(ctx, client.baseURL+"/user", header, &user)
	if err != nil {
		return nil, err
	}

	var events []eventJSON
	url := fmt.Sprintf("%s/users/%s/events?per_page=%d", client.baseURL, user.Login, eventPageSize)
	respHeader, err = client.http.GetJSON(ctx, url, header, &events)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Meta: Meta{
			Login:     user.Login,
			Name:      user.Name,
			AvatarURL: user.AvatarURL,
		},
		Repos:     map[string]RepoActivity{},
		RateLimit: platforms.RateLimitFromHeader(respHeader),
	}

	for _, event := range events {
		switch event.Type {
		case "PushEvent":
			branch := strings.TrimPrefix(event.Payload.Ref, "refs/heads/")
			for _, pushed := range event.Payload.Commits {
				commit, err := client.fetchCommit(ctx, header, event.Repo.Name, pushed.SHA, pushed.Message, branch, event.CreatedAt)
				if err != nil {
					// a single unreadable commit should not sink the fetch
					client.log.Warn("skipping commit detail",
						zap.String("repo", event.Repo.Name),
						zap.String("sha", pushed.SHA),
						zap.Error(err))
					continue
				}
				activity := result.Repos[event.Repo.Name]
				activity.Commits = append(activity.Commits, commit)
				result.Repos[event.Repo.Name] = activity
			}

		case "PullRequestEvent":
			pr := event.Payload.PullRequest
			if pr == nil {
				continue
			}
			activity := result.Repos[event.Repo.Name]
			activity.PullRequests = append(activity.PullRequests, PullRequest{
				Number:         pr.Number,
				Title:          pr.Title,
				State:          pr.State,
				HeadRef:        pr.Head.Ref,
				BaseRef:        pr.Base.Ref,
				Additions:      pr.Additions,
				Deletions:      pr.Deletions,
				ChangedFiles:   pr.ChangedFiles,
				MergeCommitSHA: pr.MergeCommitSHA,
				URL:            pr.HTMLURL,
				UpdatedAt:      pr.UpdatedAt.UTC(),
				MergedAt:       utcOrNil(pr.MergedAt),
			})
			result.Repos[event.Repo.Name] = activity
		}
	}

	for repo := range result.Repos {
		result.Meta.Repos = append(result.Meta.Repos, repo)
	}
	sort.Strings(result.Meta.Repos)

	return result, nil
}

// fetchCommit loads per-commit diff stats.
func (client *Client) fetchCommit(ctx context.Context, header http.Header, repo, sha, message, branch string, fallback time.Time) (Commit, error) {
	var detail commitDetailJSON
	url := fmt.Sprintf("%s/repos/%s/commits/%s", client.baseURL, repo, sha)
	if _, err := client.http.GetJSON(ctx, url, header, &detail); err != nil {
		return Commit{}, err
	}

	authorDate := detail.Commit.Author.Date
	if authorDate.IsZero() {
		authorDate = fallback
	}

	return Commit{
		SHA:          sha,
		Message:      message,
		Branch:       branch,
		AuthorDate:   authorDate.UTC(),
		URL:          detail.HTMLURL,
		Additions:    detail.Stats.Additions,
		Deletions:    detail.Stats.Deletions,
		FilesChanged: len(detail.Files),
	}, nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
