// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// APIKeys exposes methods to manage the api_keys table.
//
// architecture: Database
type APIKeys interface {
	// GetByHash queries a key by the hash of its secret.
	GetByHash(ctx context.Context, hash []byte) (*APIKey, error)
	// Insert creates a key.
	Insert(ctx context.Context, key *APIKey) (*APIKey, error)
	// TouchLastUsed records key usage.
	TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	// Delete removes a key by id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// APIKey authenticates a user on the HTTP surface. Only the hash of the
// opaque secret is stored.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	KeyHash    []byte     `json:"-"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
