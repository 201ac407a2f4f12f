// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package youtube implements the YouTube upload provider and its
// normalizer.
package youtube

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default youtube provider error class.
	Error = errs.Class("youtube provider")

	mon = monkit.Package()
)

// Video is one uploaded video.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Channel     string    `json:"channel"`
	PublishedAt time.Time `json:"published_at"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Duration    string    `json:"duration,omitempty"`
}

// Result is the platform-shaped fetch result, persisted as the
// raw/youtube/<account> store payload.
type Result struct {
	Channel   string                  `json:"channel"`
	ChannelID string                  `json:"channel_id"`
	Videos    []Video                 `json:"videos"`
	RateLimit platforms.RateLimitInfo `json:"-"`
}

// Provider fetches uploaded videos for an access token.
type Provider interface {
	Fetch(ctx context.Context, token string) (*Result, error)
}
