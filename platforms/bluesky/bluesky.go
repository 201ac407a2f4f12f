// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package bluesky implements the Bluesky activity provider and its
// normalizer.
package bluesky

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default bluesky provider error class.
	Error = errs.Class("bluesky provider")

	mon = monkit.Package()
)

// Post is one post from the author feed.
type Post struct {
	URI       string    `json:"uri"`
	CID       string    `json:"cid"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Replies   int       `json:"replies"`
	Reposts   int       `json:"reposts"`
	Likes     int       `json:"likes"`
	HasMedia  bool      `json:"has_media"`
	IsReply   bool      `json:"is_reply"`
	IsRepost  bool      `json:"is_repost"`
}

// Result is the platform-shaped fetch result, persisted as the
// raw/bluesky/<account> store payload.
type Result struct {
	Handle    string                  `json:"handle"`
	Posts     []Post                  `json:"posts"`
	RateLimit platforms.RateLimitInfo `json:"-"`
}

// Provider fetches Bluesky activity for an access token.
type Provider interface {
	Fetch(ctx context.Context, token string) (*Result, error)
}
