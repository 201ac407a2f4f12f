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

type profileFilters struct {
	db *sqlx.DB
}

type filterRow struct {
	ID          string    `db:"id"`
	ProfileID   string    `db:"profile_id"`
	AccountID   string    `db:"account_id"`
	FilterType  string    `db:"filter_type"`
	FilterKey   string    `db:"filter_key"`
	FilterValue string    `db:"filter_value"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row filterRow) toFilter() (*console.ProfileFilter, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return nil, err
	}
	profileID, err := parseID(row.ProfileID)
	if err != nil {
		return nil, err
	}
	accountID, err := parseID(row.AccountID)
	if err != nil {
		return nil, err
	}
	return &console.ProfileFilter{
		ID:          id,
		ProfileID:   profileID,
		AccountID:   accountID,
		FilterType:  row.FilterType,
		FilterKey:   row.FilterKey,
		FilterValue: row.FilterValue,
		CreatedAt:   row.CreatedAt.UTC(),
	}, nil
}

const filterColumns = `id, profile_id, account_id, filter_type, filter_key, filter_value, created_at`

func (repo *profileFilters) Get(ctx context.Context, id uuid.UUID) (*console.ProfileFilter, error) {
	var row filterRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT `+filterColumns+` FROM profile_filters WHERE id = ?`),
		id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, console.ErrNotFound.New("filter %s", id)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return row.toFilter()
}

func (repo *profileFilters) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]console.ProfileFilter, error) {
	var rows []filterRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT `+filterColumns+` FROM profile_filters WHERE profile_id = ? ORDER BY created_at, id`),
		profileID.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	list := make([]console.ProfileFilter, 0, len(rows))
	for _, row := range rows {
		filter, err := row.toFilter()
		if err != nil {
			return nil, err
		}
		list = append(list, *filter)
	}
	return list, nil
}

func (repo *profileFilters) Insert(ctx context.Context, filter *console.ProfileFilter) (*console.ProfileFilter, error) {
	created := time.Now().UTC()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`INSERT INTO profile_filters (`+filterColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		filter.ID.String(), filter.ProfileID.String(), filter.AccountID.String(),
		filter.FilterType, filter.FilterKey, filter.FilterValue, created)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	inserted := *filter
	inserted.CreatedAt = created
	return &inserted, nil
}

func (repo *profileFilters) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM profile_filters WHERE id = ?`), id.String())
	return Error.Wrap(err)
}

func (repo *profileFilters) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM profile_filters WHERE account_id = ?`), accountID.String())
	return Error.Wrap(err)
}
