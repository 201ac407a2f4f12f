// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package twitter implements the Twitter activity provider and its
// normalizer.
package twitter

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default twitter provider error class.
	Error = errs.Class("twitter provider")

	mon = monkit.Package()
)

// Meta is the twitter/<account>/meta store payload.
type Meta struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Tweet is one tweet with its public metrics.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Replies   int       `json:"replies"`
	Retweets  int       `json:"retweets"`
	Likes     int       `json:"likes"`
	HasMedia  bool      `json:"has_media"`
	IsReply   bool      `json:"is_reply"`
	IsRetweet bool      `json:"is_retweet"`
}

// Result is the platform-shaped fetch result.
type Result struct {
	Meta      Meta
	Tweets    []Tweet
	RateLimit platforms.RateLimitInfo
}

// TweetHistory is the twitter/<account>/tweets store payload.
type TweetHistory struct {
	Tweets []Tweet `json:"tweets"`
}

// StoredData is the latest stored shape of an account.
type StoredData struct {
	Meta   Meta
	Tweets []Tweet
}

// Provider fetches Twitter activity for an access token.
type Provider interface {
	Fetch(ctx context.Context, token string) (*Result, error)
}
