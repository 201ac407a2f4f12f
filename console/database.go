// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package console

import "context"

// DB gathers access to the console databases.
//
// architecture: Master Database
type DB interface {
	// Users is a getter for the Users repository.
	Users() Users
	// Profiles is a getter for the Profiles repository.
	Profiles() Profiles
	// Accounts is a getter for the Accounts repository.
	Accounts() Accounts
	// AccountSettings is a getter for the AccountSettings repository.
	AccountSettings() AccountSettings
	// APIKeys is a getter for the APIKeys repository.
	APIKeys() APIKeys
	// RateLimits is a getter for the RateLimits repository.
	RateLimits() RateLimits
	// ProfileFilters is a getter for the ProfileFilters repository.
	ProfileFilters() ProfileFilters
	// Credentials is a getter for the Credentials repository.
	Credentials() Credentials

	// CreateTables initializes the schema.
	CreateTables(ctx context.Context) error
	// Close closes the underlying connection.
	Close() error
}
