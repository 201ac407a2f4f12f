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

	"github.com/chroniclehq/chronicle/console"
)

type apikeys struct {
	db *sqlx.DB
}

type apikeyRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	KeyHash    []byte       `db:"key_hash"`
	Name       string       `db:"name"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

func (row apikeyRow) toKey() (*console.APIKey, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(row.UserID)
	if err != nil {
		return nil, err
	}
	return &console.APIKey{
		ID:         id,
		UserID:     userID,
		KeyHash:    row.KeyHash,
		Name:       row.Name,
		LastUsedAt: timePtr(row.LastUsedAt),
		CreatedAt:  row.CreatedAt.UTC(),
	}, nil
}

func (repo *apikeys) GetByHash(ctx context.Context, hash []byte) (*console.APIKey, error) {
	var row apikeyRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT id, user_id, key_hash, name, last_used_at, created_at FROM api_keys WHERE key_hash = ?`),
		hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("api key")
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toKey()
}

func (repo *apikeys) Insert(ctx context.Context, key *console.APIKey) (*console.APIKey, error) {
	created := time.Now().UTC()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`INSERT INTO api_keys (id, user_id, key_hash, name, created_at) VALUES (?, ?, ?, ?, ?)`),
		key.ID.String(), key.UserID.String(), key.KeyHash, key.Name, created)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	inserted := *key
	inserted.CreatedAt = created
	return &inserted, nil
}

func (repo *apikeys) TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`),
		usedAt.UTC(), id.String())
	return Error.Wrap(err)
}

func (repo *apikeys) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM api_keys WHERE id = ?`), id.String())
	return Error.Wrap(err)
}
