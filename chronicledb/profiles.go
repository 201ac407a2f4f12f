// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package chronicledb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chroniclehq/chronicle/console"
)

type profiles struct {
	db *sqlx.DB
}

type profileRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Slug        string         `db:"slug"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Theme       sql.NullString `db:"theme"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (row profileRow) toProfile() (*console.Profile, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(row.UserID)
	if err != nil {
		return nil, err
	}
	return &console.Profile{
		ID:          id,
		UserID:      userID,
		Slug:        row.Slug,
		Name:        row.Name,
		Description: row.Description.String,
		Theme:       row.Theme.String,
		CreatedAt:   row.CreatedAt.UTC(),
	}, nil
}

const profileColumns = `id, user_id, slug, name, description, theme, created_at`

func (repo *profiles) Get(ctx context.Context, id uuid.UUID) (*console.Profile, error) {
	var row profileRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`),
		id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("profile %s", id)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toProfile()
}

func (repo *profiles) GetBySlug(ctx context.Context, userID uuid.UUID, slug string) (*console.Profile, error) {
	var row profileRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE user_id = ? AND slug = ?`),
		userID.String(), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("profile %q", slug)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toProfile()
}

func (repo *profiles) ListByUser(ctx context.Context, userID uuid.UUID) ([]console.Profile, error) {
	var rows []profileRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE user_id = ? ORDER BY created_at, slug`),
		userID.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	list := make([]console.Profile, 0, len(rows))
	for _, row := range rows {
		profile, err := row.toProfile()
		if err != nil {
			return nil, err
		}
		list = append(list, *profile)
	}
	return list, nil
}

func (repo *profiles) Insert(ctx context.Context, profile *console.Profile) (*console.Profile, error) {
	created := time.Now().UTC()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`INSERT INTO profiles (id, user_id, slug, name, description, theme, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		profile.ID.String(), profile.UserID.String(), profile.Slug, profile.Name,
		nullString(profile.Description), nullString(profile.Theme), created)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	inserted := *profile
	inserted.CreatedAt = created
	return &inserted, nil
}

func (repo *profiles) Update(ctx context.Context, id uuid.UUID, updates console.UpdateProfile) error {
	query := `UPDATE profiles SET `
	var sets []string
	var args []any
	if updates.Name != nil {
		sets = append(sets, `name = ?`)
		args = append(args, *updates.Name)
	}
	if updates.Description != nil {
		sets = append(sets, `description = ?`)
		args = append(args, nullString(*updates.Description))
	}
	if updates.Theme != nil {
		sets = append(sets, `theme = ?`)
		args = append(args, nullString(*updates.Theme))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id.String())
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(query+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	return Error.Wrap(err)
}

func (repo *profiles) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM profiles WHERE id = ?`), id.String())
	return Error.Wrap(err)
}
