// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package devpad implements the Devpad task provider and its normalizer.
package devpad

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/platforms"
)

var (
	// Error is the default devpad provider error class.
	Error = errs.Class("devpad provider")

	mon = monkit.Package()
)

// Task is one task update.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Project     string    `json:"project"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	URL         string    `json:"url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Result is the platform-shaped fetch result, persisted as the
// raw/devpad/<account> store payload.
type Result struct {
	Username  string                  `json:"username"`
	Tasks     []Task                  `json:"tasks"`
	RateLimit platforms.RateLimitInfo `json:"-"`
}

// Provider fetches recent task activity for an API token.
type Provider interface {
	Fetch(ctx context.Context, token string) (*Result, error)
}
