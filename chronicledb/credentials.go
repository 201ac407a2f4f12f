// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package chronicledb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/platforms"
)

type credentials struct {
	db *sqlx.DB
}

type credentialsRow struct {
	ID                    string         `db:"id"`
	ProfileID             string         `db:"profile_id"`
	Platform              string         `db:"platform"`
	ClientID              string         `db:"client_id"`
	ClientSecretEncrypted []byte         `db:"client_secret_encrypted"`
	RedirectURI           sql.NullString `db:"redirect_uri"`
	RedditUsername        sql.NullString `db:"reddit_username"`
	IsVerified            bool           `db:"is_verified"`
	Metadata              []byte         `db:"metadata"`
	CreatedAt             time.Time      `db:"created_at"`
}

func (row credentialsRow) toCredentials() (*console.PlatformCredentials, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return nil, err
	}
	profileID, err := parseID(row.ProfileID)
	if err != nil {
		return nil, err
	}
	return &console.PlatformCredentials{
		ID:                    id,
		ProfileID:             profileID,
		Platform:              platforms.Platform(row.Platform),
		ClientID:              row.ClientID,
		ClientSecretEncrypted: row.ClientSecretEncrypted,
		RedirectURI:           row.RedirectURI.String,
		RedditUsername:        row.RedditUsername.String,
		IsVerified:            row.IsVerified,
		Metadata:              row.Metadata,
		CreatedAt:             row.CreatedAt.UTC(),
	}, nil
}

const credentialsColumns = `id, profile_id, platform, client_id, client_secret_encrypted,
	redirect_uri, reddit_username, is_verified, metadata, created_at`

func (repo *credentials) Get(ctx context.Context, profileID uuid.UUID, platform platforms.Platform) (*console.PlatformCredentials, error) {
	var row credentialsRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT `+credentialsColumns+` FROM platform_credentials WHERE profile_id = ? AND platform = ?`),
		profileID.String(), string(platform))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("credentials for %s", platform)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toCredentials()
}

func (repo *credentials) Upsert(ctx context.Context, creds *console.PlatformCredentials) (_ *console.PlatformCredentials, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = Error.Wrap(errs.Combine(err, tx.Rollback()))
		}
	}()

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`DELETE FROM platform_credentials WHERE profile_id = ? AND platform = ?`),
		creds.ProfileID.String(), string(creds.Platform))
	if err != nil {
		return nil, err
	}

	created := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO platform_credentials (`+credentialsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		creds.ID.String(), creds.ProfileID.String(), string(creds.Platform), creds.ClientID,
		creds.ClientSecretEncrypted, nullString(creds.RedirectURI), nullString(creds.RedditUsername),
		creds.IsVerified, creds.Metadata, created)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, Error.Wrap(err)
	}

	inserted := *creds
	inserted.CreatedAt = created
	return &inserted, nil
}

func (repo *credentials) Delete(ctx context.Context, profileID uuid.UUID, platform platforms.Platform) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM platform_credentials WHERE profile_id = ? AND platform = ?`),
		profileID.String(), string(platform))
	return Error.Wrap(err)
}
