// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package chronicledb implements console.DB on a SQL database through
// sqlx. It supports the sqlite (modernc) and postgres (lib/pq) drivers.
package chronicledb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/zeebo/errs"
	_ "modernc.org/sqlite"

	"github.com/chroniclehq/chronicle/console"
)

// Error is the default chronicledb error class.
var Error = errs.Class("chronicledb")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               TEXT NOT NULL PRIMARY KEY,
	external_user_id TEXT,
	email            TEXT,
	name             TEXT,
	created_at       TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_external ON users (external_user_id) WHERE external_user_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS profiles (
	id          TEXT NOT NULL PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	slug        TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	theme       TEXT,
	created_at  TIMESTAMP NOT NULL,
	UNIQUE (user_id, slug)
);

CREATE TABLE IF NOT EXISTS accounts (
	id                      TEXT NOT NULL PRIMARY KEY,
	profile_id              TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	platform                TEXT NOT NULL,
	platform_user_id        TEXT,
	platform_username       TEXT,
	access_token_encrypted  BLOB NOT NULL,
	refresh_token_encrypted BLOB,
	token_expires_at        TIMESTAMP,
	is_active               BOOLEAN NOT NULL DEFAULT TRUE,
	last_fetched_at         TIMESTAMP,
	created_at              TIMESTAMP NOT NULL,
	UNIQUE (profile_id, platform, platform_user_id)
);
CREATE INDEX IF NOT EXISTS accounts_profile ON accounts (profile_id);
CREATE INDEX IF NOT EXISTS accounts_active ON accounts (is_active, created_at);

CREATE TABLE IF NOT EXISTS api_keys (
	id           TEXT NOT NULL PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	key_hash     BLOB NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	last_used_at TIMESTAMP,
	created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rate_limits (
	account_id           TEXT NOT NULL PRIMARY KEY REFERENCES accounts (id) ON DELETE CASCADE,
	remaining            INTEGER NOT NULL DEFAULT 0,
	limit_total          INTEGER NOT NULL DEFAULT 0,
	reset_at             TIMESTAMP,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	last_failure_at      TIMESTAMP,
	circuit_open_until   TIMESTAMP
);

CREATE TABLE IF NOT EXISTS account_settings (
	account_id TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (account_id, key)
);

CREATE TABLE IF NOT EXISTS profile_filters (
	id           TEXT NOT NULL PRIMARY KEY,
	profile_id   TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	account_id   TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	filter_type  TEXT NOT NULL,
	filter_key   TEXT NOT NULL,
	filter_value TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS profile_filters_profile ON profile_filters (profile_id);

CREATE TABLE IF NOT EXISTS platform_credentials (
	id                      TEXT NOT NULL PRIMARY KEY,
	profile_id              TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	platform                TEXT NOT NULL,
	client_id               TEXT NOT NULL,
	client_secret_encrypted BLOB NOT NULL,
	redirect_uri            TEXT,
	reddit_username         TEXT,
	is_verified             BOOLEAN NOT NULL DEFAULT FALSE,
	metadata                BLOB,
	created_at              TIMESTAMP NOT NULL,
	UNIQUE (profile_id, platform)
);
`

// DB implements console.DB on sqlx.
type DB struct {
	db *sqlx.DB
}

// Open connects to the database. For sqlite the foreign_keys pragma is
// forced on so ON DELETE CASCADE works on every pooled connection.
func Open(driver, dsn string) (*DB, error) {
	if driver == "sqlite" && !strings.Contains(dsn, "_pragma=foreign_keys") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "_pragma=foreign_keys(1)"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &DB{db: db}, nil
}

// Wrap creates a DB over an existing connection.
func Wrap(db *sqlx.DB) *DB { return &DB{db: db} }

// Raw exposes the underlying connection so the corpus sql index can
// share it.
func (db *DB) Raw() *sqlx.DB { return db.db }

// CreateTables implements console.DB.
func (db *DB) CreateTables(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, schema)
	return Error.Wrap(err)
}

// Close implements console.DB.
func (db *DB) Close() error { return Error.Wrap(db.db.Close()) }

// Users implements console.DB.
func (db *DB) Users() console.Users { return &users{db: db.db} }

// Profiles implements console.DB.
func (db *DB) Profiles() console.Profiles { return &profiles{db: db.db} }

// Accounts implements console.DB.
func (db *DB) Accounts() console.Accounts { return &accounts{db: db.db} }

// AccountSettings implements console.DB.
func (db *DB) AccountSettings() console.AccountSettings { return &accountSettings{db: db.db} }

// APIKeys implements console.DB.
func (db *DB) APIKeys() console.APIKeys { return &apikeys{db: db.db} }

// RateLimits implements console.DB.
func (db *DB) RateLimits() console.RateLimits { return &ratelimits{db: db.db} }

// ProfileFilters implements console.DB.
func (db *DB) ProfileFilters() console.ProfileFilters { return &profileFilters{db: db.db} }

// Credentials implements console.DB.
func (db *DB) Credentials() console.Credentials { return &credentials{db: db.db} }

// parseID converts a stored id column back to a uuid.
func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	return id, Error.Wrap(err)
}

// nullTime converts an optional time for storage.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// timePtr converts a stored nullable time back to an optional time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

// nullString converts an optional string for storage.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
