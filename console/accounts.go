// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chroniclehq/chronicle/platforms"
)

// Accounts exposes methods to manage the accounts table.
//
// architecture: Database
type Accounts interface {
	// Get queries an account by id.
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	// ListByProfile returns all accounts bound to a profile.
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]Account, error)
	// ListActiveByUser returns a user's active accounts across all profiles.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]Account, error)
	// ListActive pages over every active account across all users.
	ListActive(ctx context.Context, cursor AccountCursor) (*AccountsPage, error)
	// Insert creates an account.
	Insert(ctx context.Context, account *Account) (*Account, error)
	// Update applies updatable account fields.
	Update(ctx context.Context, id uuid.UUID, updates UpdateAccount) error
	// UpdateLastFetched records a successful fetch time.
	UpdateLastFetched(ctx context.Context, id uuid.UUID, fetchedAt time.Time) error
	// Delete removes an account by id.
	Delete(ctx context.Context, id uuid.UUID) error
	// Owner resolves the owning user of an account.
	Owner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// Account is a credential and identity on one platform, bound to a
// profile. Tokens are stored encrypted and never returned in plaintext.
type Account struct {
	ID                    uuid.UUID          `json:"id"`
	ProfileID             uuid.UUID          `json:"profile_id"`
	Platform              platforms.Platform `json:"platform"`
	PlatformUserID        string             `json:"platform_user_id,omitempty"`
	PlatformUsername      string             `json:"platform_username,omitempty"`
	AccessTokenEncrypted  []byte             `json:"-"`
	RefreshTokenEncrypted []byte             `json:"-"`
	TokenExpiresAt        *time.Time         `json:"token_expires_at,omitempty"`
	IsActive              bool               `json:"is_active"`
	LastFetchedAt         *time.Time         `json:"last_fetched_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
}

// CreateAccount holds the account creation request. Tokens arrive in
// plaintext and are encrypted before storage.
type CreateAccount struct {
	ProfileID        uuid.UUID  `json:"profile_id" validate:"required"`
	Platform         string     `json:"platform" validate:"required"`
	AccessToken      string     `json:"access_token" validate:"required"`
	RefreshToken     string     `json:"refresh_token"`
	PlatformUserID   string     `json:"platform_user_id"`
	PlatformUsername string     `json:"platform_username"`
	TokenExpiresAt   *time.Time `json:"token_expires_at"`
}

// UpdateAccount holds updatable account fields; nil fields are left
// unchanged.
type UpdateAccount struct {
	IsActive *bool `json:"is_active,omitempty"`
}

// AccountCursor pages through active accounts.
type AccountCursor struct {
	Limit  int
	Offset int
}

// AccountsPage is one page of active accounts.
type AccountsPage struct {
	Accounts []Account
	Next     *AccountCursor
}

// AccountSettings exposes the per-account key-value settings table.
//
// architecture: Database
type AccountSettings interface {
	// Get returns all settings of an account.
	Get(ctx context.Context, accountID uuid.UUID) (map[string]string, error)
	// Upsert inserts or updates each given key.
	Upsert(ctx context.Context, accountID uuid.UUID, settings map[string]string) error
	// Delete removes all settings of an account.
	Delete(ctx context.Context, accountID uuid.UUID) error
}

// SweepEnabledSetting is the account setting key controlling sweep
// participation. Absent or anything but "false" means enabled.
const SweepEnabledSetting = "sweep_enabled"
