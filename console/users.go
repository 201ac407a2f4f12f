// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Users exposes methods to manage the users table.
//
// architecture: Database
type Users interface {
	// Get queries a user by id.
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByExternalID queries a user by the identity provider's id.
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	// Insert creates a user.
	Insert(ctx context.Context, user *User) (*User, error)
	// Delete removes a user by id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// User is an end user owning profiles and api keys.
type User struct {
	ID             uuid.UUID `json:"id"`
	ExternalUserID string    `json:"external_user_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
