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

type accounts struct {
	db *sqlx.DB
}

type accountRow struct {
	ID                    string         `db:"id"`
	ProfileID             string         `db:"profile_id"`
	Platform              string         `db:"platform"`
	PlatformUserID        sql.NullString `db:"platform_user_id"`
	PlatformUsername      sql.NullString `db:"platform_username"`
	AccessTokenEncrypted  []byte         `db:"access_token_encrypted"`
	RefreshTokenEncrypted []byte         `db:"refresh_token_encrypted"`
	TokenExpiresAt        sql.NullTime   `db:"token_expires_at"`
	IsActive              bool           `db:"is_active"`
	LastFetchedAt         sql.NullTime   `db:"last_fetched_at"`
	CreatedAt             time.Time      `db:"created_at"`
}

func (row accountRow) toAccount() (*console.Account, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return nil, err
	}
	profileID, err := parseID(row.ProfileID)
	if err != nil {
		return nil, err
	}
	return &console.Account{
		ID:                    id,
		ProfileID:             profileID,
		Platform:              platforms.Platform(row.Platform),
		PlatformUserID:        row.PlatformUserID.String,
		PlatformUsername:      row.PlatformUsername.String,
		AccessTokenEncrypted:  row.AccessTokenEncrypted,
		RefreshTokenEncrypted: row.RefreshTokenEncrypted,
		TokenExpiresAt:        timePtr(row.TokenExpiresAt),
		IsActive:              row.IsActive,
		LastFetchedAt:         timePtr(row.LastFetchedAt),
		CreatedAt:             row.CreatedAt.UTC(),
	}, nil
}

const accountColumns = `id, profile_id, platform, platform_user_id, platform_username,
	access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active, last_fetched_at, created_at`

func (repo *accounts) Get(ctx context.Context, id uuid.UUID) (*console.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`),
		id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("account %s", id)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toAccount()
}

func (repo *accounts) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]console.Account, error) {
	var rows []accountRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT `+accountColumns+` FROM accounts WHERE profile_id = ? ORDER BY created_at, id`),
		profileID.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return toAccounts(rows)
}

func (repo *accounts) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]console.Account, error) {
	var rows []accountRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT a.id, a.profile_id, a.platform, a.platform_user_id, a.platform_username,
				a.access_token_encrypted, a.refresh_token_encrypted, a.token_expires_at, a.is_active, a.last_fetched_at, a.created_at
			FROM accounts a
			JOIN profiles p ON p.id = a.profile_id
			WHERE p.user_id = ? AND a.is_active
			ORDER BY a.created_at, a.id`),
		userID.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return toAccounts(rows)
}

func (repo *accounts) ListActive(ctx context.Context, cursor console.AccountCursor) (*console.AccountsPage, error) {
	if cursor.Limit <= 0 {
		cursor.Limit = 100
	}
	var rows []accountRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT `+accountColumns+` FROM accounts WHERE is_active
			ORDER BY created_at, id LIMIT ? OFFSET ?`),
		cursor.Limit+1, cursor.Offset)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	page := &console.AccountsPage{}
	if len(rows) > cursor.Limit {
		rows = rows[:cursor.Limit]
		page.Next = &console.AccountCursor{Limit: cursor.Limit, Offset: cursor.Offset + cursor.Limit}
	}
	page.Accounts, err = toAccounts(rows)
	return page, err
}

func (repo *accounts) Insert(ctx context.Context, account *console.Account) (*console.Account, error) {
	created := time.Now().UTC()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`INSERT INTO accounts (`+accountColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		account.ID.String(), account.ProfileID.String(), string(account.Platform),
		nullString(account.PlatformUserID), nullString(account.PlatformUsername),
		account.AccessTokenEncrypted, account.RefreshTokenEncrypted,
		nullTime(account.TokenExpiresAt), account.IsActive, nullTime(account.LastFetchedAt), created)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	inserted := *account
	inserted.CreatedAt = created
	return &inserted, nil
}

func (repo *accounts) Update(ctx context.Context, id uuid.UUID, updates console.UpdateAccount) error {
	if updates.IsActive == nil {
		return nil
	}
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`UPDATE accounts SET is_active = ? WHERE id = ?`),
		*updates.IsActive, id.String())
	return Error.Wrap(err)
}

func (repo *accounts) UpdateLastFetched(ctx context.Context, id uuid.UUID, fetchedAt time.Time) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`UPDATE accounts SET last_fetched_at = ? WHERE id = ?`),
		fetchedAt.UTC(), id.String())
	return Error.Wrap(err)
}

func (repo *accounts) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM accounts WHERE id = ?`), id.String())
	return Error.Wrap(err)
}

func (repo *accounts) Owner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var owner string
	err := repo.db.GetContext(ctx, &owner,
		repo.db.Rebind(`SELECT p.user_id FROM accounts a JOIN profiles p ON p.id = a.profile_id WHERE a.id = ?`),
		id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.UUID{}, console.ErrNotFound.New("account %s", id)
	}
	if err != nil {
		return uuid.UUID{}, Error.Wrap(err)
	}
	return parseID(owner)
}

func toAccounts(rows []accountRow) ([]console.Account, error) {
	list := make([]console.Account, 0, len(rows))
	for _, row := range rows {
		account, err := row.toAccount()
		if err != nil {
			return nil, err
		}
		list = append(list, *account)
	}
	return list, nil
}

type accountSettings struct {
	db *sqlx.DB
}

func (repo *accountSettings) Get(ctx context.Context, accountID uuid.UUID) (map[string]string, error) {
	type settingRow struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var rows []settingRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT key, value FROM account_settings WHERE account_id = ?`),
		accountID.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}

func (repo *accountSettings) Upsert(ctx context.Context, accountID uuid.UUID, settings map[string]string) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = Error.Wrap(errs.Combine(err, tx.Rollback()))
		}
	}()

	for key, value := range settings {
		_, err = tx.ExecContext(ctx,
			tx.Rebind(`DELETE FROM account_settings WHERE account_id = ? AND key = ?`),
			accountID.String(), key)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO account_settings (account_id, key, value) VALUES (?, ?, ?)`),
			accountID.String(), key, value)
		if err != nil {
			return err
		}
	}
	return Error.Wrap(tx.Commit())
}

func (repo *accountSettings) Delete(ctx context.Context, accountID uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM account_settings WHERE account_id = ?`), accountID.String())
	return Error.Wrap(err)
}
