// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package github implements the GitHub activity provider and its
// normalizer.
package github

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default github provider error class.
	Error = errs.Class("github provider")

	mon = monkit.Package()
)

// Meta is the account-level metadata store payload. Repos lists every
// owner/repo with observed activity; the assembler uses it to discover the
// per-repo commit and pull request stores.
type Meta struct {
	Login     string   `json:"login"`
	Name      string   `json:"name,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Repos     []string `json:"repos"`
}

// Commit is one commit observed on a push.
type Commit struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	Branch       string    `json:"branch"`
	AuthorDate   time.Time `json:"author_date"`
	URL          string    `json:"url"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	FilesChanged int       `json:"files_changed"`
}

// PullRequest is one pull request with observed activity.
type PullRequest struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	HeadRef        string     `json:"head_ref"`
	BaseRef        string     `json:"base_ref"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	ChangedFiles   int        `json:"changed_files"`
	CommitSHAs     []string   `json:"commit_shas,omitempty"`
	MergeCommitSHA string     `json:"merge_commit_sha,omitempty"`
	URL            string     `json:"url"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
}

// RepoActivity is the per-repository slice of a fetch result.
type RepoActivity struct {
	Commits      []Commit      `json:"commits"`
	PullRequests []PullRequest `json:"pull_requests"`
}

// Result is the platform-shaped fetch result.
type Result struct {
	Meta      Meta
	Repos     map[string]RepoActivity
	RateLimit platforms.RateLimitInfo
}

// CommitHistory is the github/<account>/commits/<owner>/<repo> store
// payload.
type CommitHistory struct {
	Repo    string   `json:"repo"`
	Commits []Commit `json:"commits"`
}

// PullRequestHistory is the github/<account>/prs/<owner>/<repo> store
// payload.
type PullRequestHistory struct {
	Repo         string        `json:"repo"`
	PullRequests []PullRequest `json:"pull_requests"`
}

// StoredData is the latest stored shape of an account, reassembled from
// the meta store and every per-repo history store.
type StoredData struct {
	Meta  Meta
	Repos map[string]RepoActivity
}

// Provider fetches GitHub activity for an access token.
type Provider interface {
	Fetch(ctx context.Context, token string) (*Result, error)
}
