// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chroniclehq/chronicle/platforms"
)

// Reddit script-app credential shape constraints.
const (
	redditClientIDMinLen     = 14
	redditClientSecretMinLen = 20
)

// Credentials exposes methods to manage the platform_credentials table.
//
// architecture: Database
type Credentials interface {
	// Get queries the credentials of a profile for one platform.
	Get(ctx context.Context, profileID uuid.UUID, platform platforms.Platform) (*PlatformCredentials, error)
	// Upsert inserts or replaces the credentials of (profile, platform).
	Upsert(ctx context.Context, creds *PlatformCredentials) (*PlatformCredentials, error)
	// Delete removes the credentials of (profile, platform).
	Delete(ctx context.Context, profileID uuid.UUID, platform platforms.Platform) error
}

// PlatformCredentials holds per-profile OAuth app credentials for one
// platform. The client secret is stored encrypted.
type PlatformCredentials struct {
	ID                    uuid.UUID          `json:"id"`
	ProfileID             uuid.UUID          `json:"profile_id"`
	Platform              platforms.Platform `json:"platform"`
	ClientID              string             `json:"client_id"`
	ClientSecretEncrypted []byte             `json:"-"`
	RedirectURI           string             `json:"redirect_uri,omitempty"`
	RedditUsername        string             `json:"reddit_username,omitempty"`
	IsVerified            bool               `json:"is_verified"`
	Metadata              []byte             `json:"metadata,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
}

// UpsertCredentials holds the credential storage request. The client
// secret arrives in plaintext and is encrypted before storage.
type UpsertCredentials struct {
	ClientID       string `json:"client_id" validate:"required"`
	ClientSecret   string `json:"client_secret" validate:"required"`
	RedirectURI    string `json:"redirect_uri"`
	RedditUsername string `json:"reddit_username"`
	Metadata       []byte `json:"metadata"`
}
