// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter types.
const (
	FilterInclude = "include"
	FilterExclude = "exclude"
)

// Filter keys.
const (
	FilterKeyRepo      = "repo"
	FilterKeySubreddit = "subreddit"
	FilterKeyKeyword   = "keyword"
)

// ValidFilterType reports whether t is a known filter type.
func ValidFilterType(t string) bool {
	return t == FilterInclude || t == FilterExclude
}

// ValidFilterKey reports whether k is a known filter key.
func ValidFilterKey(k string) bool {
	return k == FilterKeyRepo || k == FilterKeySubreddit || k == FilterKeyKeyword
}

// ProfileFilters exposes methods to manage the profile_filters table.
//
// architecture: Database
type ProfileFilters interface {
	// Get queries a filter by id.
	Get(ctx context.Context, id uuid.UUID) (*ProfileFilter, error)
	// ListByProfile returns all filters of a profile.
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]ProfileFilter, error)
	// Insert creates a filter.
	Insert(ctx context.Context, filter *ProfileFilter) (*ProfileFilter, error)
	// Delete removes a filter by id.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByAccount removes all filters referencing an account.
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

// ProfileFilter narrows which items of one account reach a profile
// timeline.
type ProfileFilter struct {
	ID          uuid.UUID `json:"id"`
	ProfileID   uuid.UUID `json:"profile_id"`
	AccountID   uuid.UUID `json:"account_id"`
	FilterType  string    `json:"filter_type"`
	FilterKey   string    `json:"filter_key"`
	FilterValue string    `json:"filter_value"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateFilter holds the filter creation request.
type CreateFilter struct {
	AccountID   uuid.UUID `json:"account_id" validate:"required"`
	FilterType  string    `json:"filter_type" validate:"required"`
	FilterKey   string    `json:"filter_key" validate:"required"`
	FilterValue string    `json:"filter_value" validate:"required"`
}
