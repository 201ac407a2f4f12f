// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// slugRx is the profile slug grammar: lowercase alphanumeric plus dashes,
// at least three characters.
var slugRx = regexp.MustCompile(`^[a-z0-9-]{3,}$`)

// ValidSlug reports whether slug satisfies the profile slug grammar.
func ValidSlug(slug string) bool { return slugRx.MatchString(slug) }

// Profiles exposes methods to manage the profiles table.
//
// architecture: Database
type Profiles interface {
	// Get queries a profile by id.
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
	// GetBySlug queries a user's profile by slug.
	GetBySlug(ctx context.Context, userID uuid.UUID, slug string) (*Profile, error)
	// ListByUser returns all profiles of a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Profile, error)
	// Insert creates a profile.
	Insert(ctx context.Context, profile *Profile) (*Profile, error)
	// Update applies updatable profile fields.
	Update(ctx context.Context, id uuid.UUID, updates UpdateProfile) error
	// Delete removes a profile by id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Profile is a named view over a subset of a user's accounts. Slug is
// unique per user.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Theme       string    `json:"theme,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateProfile holds the profile creation request.
type CreateProfile struct {
	Slug        string `json:"slug" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Theme       string `json:"theme"`
}

// UpdateProfile holds updatable profile fields; nil fields are left
// unchanged.
type UpdateProfile struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}
