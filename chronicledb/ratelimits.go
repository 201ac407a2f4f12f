// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package chronicledb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/console"
)

type ratelimits struct {
	db *sqlx.DB
}

type ratelimitRow struct {
	AccountID           string       `db:"account_id"`
	Remaining           int          `db:"remaining"`
	LimitTotal          int          `db:"limit_total"`
	ResetAt             sql.NullTime `db:"reset_at"`
	ConsecutiveFailures int          `db:"consecutive_failures"`
	LastFailureAt       sql.NullTime `db:"last_failure_at"`
	CircuitOpenUntil    sql.NullTime `db:"circuit_open_until"`
}

func (repo *ratelimits) Get(ctx context.Context, accountID uuid.UUID) (*console.RateLimitState, error) {
	var row ratelimitRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind(`SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until
			FROM rate_limits WHERE account_id = ?`),
		accountID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return &console.RateLimitState{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &console.RateLimitState{
		AccountID:           accountID,
		Remaining:           row.Remaining,
		LimitTotal:          row.LimitTotal,
		ResetAt:             timePtr(row.ResetAt),
		ConsecutiveFailures: row.ConsecutiveFailures,
		LastFailureAt:       timePtr(row.LastFailureAt),
		CircuitOpenUntil:    timePtr(row.CircuitOpenUntil),
	}, nil
}

func (repo *ratelimits) Upsert(ctx context.Context, state *console.RateLimitState) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`DELETE FROM rate_limits WHERE account_id = ?`), state.AccountID.String())
	if err != nil {
		return Error.Wrap(errs.Combine(err, tx.Rollback()))
	}
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO rate_limits (account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		state.AccountID.String(), state.Remaining, state.LimitTotal, nullTime(state.ResetAt),
		state.ConsecutiveFailures, nullTime(state.LastFailureAt), nullTime(state.CircuitOpenUntil))
	if err != nil {
		return Error.Wrap(errs.Combine(err, tx.Rollback()))
	}
	return Error.Wrap(tx.Commit())
}

func (repo *ratelimits) Delete(ctx context.Context, accountID uuid.UUID) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM rate_limits WHERE account_id = ?`), accountID.String())
	return Error.Wrap(err)
}
