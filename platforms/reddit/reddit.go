// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package reddit implements the Reddit activity provider and its
// normalizer.
package reddit

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default reddit provider error class.
	Error = errs.Class("reddit provider")

	mon = monkit.Package()
)

// Meta is the reddit/<account>/meta store payload.
type Meta struct {
	Username   string   `json:"username"`
	Subreddits []string `json:"subreddits"`
}

// Post is one submitted link or self post.
type Post struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	SelfText    string    `json:"self_text,omitempty"`
	Subreddit   string    `json:"subreddit"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedAt   time.Time `json:"created_at"`
	Permalink   string    `json:"permalink"`
	HasMedia    bool      `json:"has_media"`
}

// Comment is one comment on a post.
type Comment struct {
	ID          string    `json:"id"`
	Body        string    `json:"body"`
	ParentTitle string    `json:"parent_title"`
	ParentURL   string    `json:"parent_url"`
	Subreddit   string    `json:"subreddit"`
	Score       int       `json:"score"`
	IsOP        bool      `json:"is_op"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result is the platform-shaped fetch result.
type Result struct {
	Meta      Meta
	Posts     []Post
	Comments  []Comment
	RateLimit platforms.RateLimitInfo
}

// PostHistory is the reddit/<account>/posts store payload.
type PostHistory struct {
	Posts []Post `json:"posts"`
}

// CommentHistory is the reddit/<account>/comments store payload.
type CommentHistory struct {
	Comments []Comment `json:"comments"`
}

// StoredData is the latest stored shape of an account.
type StoredData struct {
	Posts    []Post
	Comments []Comment
}

// Provider fetches Reddit activity for an access token.
type Provider interface {
	Fetch(ctx context.Context, token string) (*Result, error)
}
