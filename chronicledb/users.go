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

type users struct {
	db *sqlx.DB
}

type userRow struct {
	ID             string         `db:"id"`
	ExternalUserID sql.NullString `db:"external_user_id"`
	Email          sql.NullString `db:"email"`
	Name           sql.NullString `db:"name"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (row userRow) toUser() (*console.User, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return nil, err
	}
	return &console.User{
		ID:             id,
		ExternalUserID: row.ExternalUserID.String,
		Email:          row.Email.String,
		Name:           row.Name.String,
		CreatedAt:      row.CreatedAt.UTC(),
	}, nil
}

func (repo *users) Get(ctx context.Context, id uuid.UUID) (*console.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT id, external_user_id, email, name, created_at FROM users WHERE id = ?`),
		id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("user %s", id)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toUser()
}

func (repo *users) GetByExternalID(ctx context.Context, externalID string) (*console.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT id, external_user_id, email, name, created_at FROM users WHERE external_user_id = ?`),
		externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("user")
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toUser()
}

func (repo *users) Insert(ctx context.Context, user *console.User) (*console.User, error) {
	created := user.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`INSERT INTO users (id, external_user_id, email, name, created_at) VALUES (?, ?, ?, ?, ?)`),
		user.ID.String(), nullString(user.ExternalUserID), nullString(user.Email), nullString(user.Name), created)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	inserted := *user
	inserted.CreatedAt = created
	return &inserted, nil
}

func (repo *users) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM users WHERE id = ?`), id.String())
	return Error.Wrap(err)
}
