// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package sqlindex implements the corpus relational snapshot index on a SQL
// database. It supports the sqlite (modernc) and postgres (lib/pq) drivers.
package sqlindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeebo/errs"

	"github.com/chroniclehq/chronicle/corpus"
)

// Error is the default sqlindex error class.
var Error = errs.Class("sqlindex")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	store_id     TEXT NOT NULL,
	version      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	tags         TEXT,
	metadata     TEXT,
	PRIMARY KEY (store_id, version)
);
CREATE INDEX IF NOT EXISTS snapshots_store_created ON snapshots (store_id, created_at DESC, version DESC);

CREATE TABLE IF NOT EXISTS snapshot_parents (
	store_id        TEXT NOT NULL,
	version         TEXT NOT NULL,
	parent_store_id TEXT NOT NULL,
	parent_version  TEXT NOT NULL,
	role            TEXT NOT NULL,
	FOREIGN KEY (store_id, version) REFERENCES snapshots (store_id, version) ON DELETE CASCADE,
	FOREIGN KEY (parent_store_id, parent_version) REFERENCES snapshots (store_id, version)
);
CREATE INDEX IF NOT EXISTS snapshot_parents_child ON snapshot_parents (store_id, version);
`

// Index implements corpus.Index on sqlx.
type Index struct {
	db *sqlx.DB
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*Index, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	index := &Index{db: db}
	if err := index.ensureSchema(ctx); err != nil {
		return nil, Error.Wrap(errs.Combine(err, db.Close()))
	}
	return index, nil
}

// Wrap creates an index over an existing connection, ensuring the schema.
func Wrap(ctx context.Context, db *sqlx.DB) (*Index, error) {
	index := &Index{db: db}
	if err := index.ensureSchema(ctx); err != nil {
		return nil, Error.Wrap(err)
	}
	return index, nil
}

func (index *Index) ensureSchema(ctx context.Context) error {
	_, err := index.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (index *Index) Close() error { return Error.Wrap(index.db.Close()) }

type snapshotRow struct {
	StoreID     string         `db:"store_id"`
	Version     string         `db:"version"`
	ContentHash string         `db:"content_hash"`
	CreatedAt   time.Time      `db:"created_at"`
	Tags        sql.NullString `db:"tags"`
	Metadata    sql.NullString `db:"metadata"`
}

// Insert implements corpus.Index. The row and its parent edges are written
// in one transaction; a missing parent aborts the whole insert.
func (index *Index) Insert(ctx context.Context, snapshot corpus.Snapshot) (err error) {
	tx, err := index.db.BeginTxx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, tx.Rollback())
		}
	}()

	for _, parent := range snapshot.Parents {
		var exists int
		err = tx.GetContext(ctx, &exists,
			tx.Rebind(`SELECT COUNT(*) FROM snapshots WHERE store_id = ? AND version = ?`),
			parent.StoreID, parent.Version)
		if err != nil {
			return Error.Wrap(err)
		}
		if exists == 0 {
			return corpus.ErrParentMissing.New("%s@%s", parent.StoreID, parent.Version)
		}
	}

	tags, metadata, err := encodeAttrs(snapshot)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO snapshots (store_id, version, content_hash, created_at, tags, metadata)
			VALUES (?, ?, ?, ?, ?, ?)`),
		snapshot.StoreID, snapshot.Version, snapshot.ContentHash,
		snapshot.CreatedAt.UTC(), tags, metadata)
	if err != nil {
		return Error.Wrap(err)
	}

	for _, parent := range snapshot.Parents {
		_, err = tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO snapshot_parents (store_id, version, parent_store_id, parent_version, role)
				VALUES (?, ?, ?, ?, ?)`),
			snapshot.StoreID, snapshot.Version, parent.StoreID, parent.Version, parent.Role)
		if err != nil {
			return Error.Wrap(err)
		}
	}

	return Error.Wrap(tx.Commit())
}

// Get implements corpus.Index.
func (index *Index) Get(ctx context.Context, storeID, version string) (corpus.Snapshot, error) {
	var row snapshotRow
	err := index.db.GetContext(ctx, &row,
		index.db.Rebind(`SELECT store_id, version, content_hash, created_at, tags, metadata
			FROM snapshots WHERE store_id = ? AND version = ?`),
		storeID, version)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Snapshot{}, corpus.ErrNotFound.New("snapshot %s@%s", storeID, version)
	}
	if err != nil {
		return corpus.Snapshot{}, Error.Wrap(err)
	}
	return index.withParents(ctx, row)
}

// Latest implements corpus.Index.
func (index *Index) Latest(ctx context.Context, storeID string) (corpus.Snapshot, error) {
	var row snapshotRow
	err := index.db.GetContext(ctx, &row,
		index.db.Rebind(`SELECT store_id, version, content_hash, created_at, tags, metadata
			FROM snapshots WHERE store_id = ?
			ORDER BY created_at DESC, version DESC LIMIT 1`),
		storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Snapshot{}, corpus.ErrNotFound.New("store %q", storeID)
	}
	if err != nil {
		return corpus.Snapshot{}, Error.Wrap(err)
	}
	return index.withParents(ctx, row)
}

// Iterate implements corpus.Index.
func (index *Index) Iterate(ctx context.Context, storeID string, fn func(corpus.Snapshot) bool) (err error) {
	rows, err := index.db.QueryxContext(ctx,
		index.db.Rebind(`SELECT store_id, version, content_hash, created_at, tags, metadata
			FROM snapshots WHERE store_id = ?
			ORDER BY created_at DESC, version DESC`),
		storeID)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	for rows.Next() {
		var row snapshotRow
		if err := rows.StructScan(&row); err != nil {
			return Error.Wrap(err)
		}
		snapshot, err := index.withParents(ctx, row)
		if err != nil {
			return err
		}
		if !fn(snapshot) {
			return nil
		}
	}
	return Error.Wrap(rows.Err())
}

// Delete implements corpus.Index.
func (index *Index) Delete(ctx context.Context, storeID, version string) error {
	tx, err := index.db.BeginTxx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`DELETE FROM snapshot_parents WHERE store_id = ? AND version = ?`),
		storeID, version)
	if err != nil {
		return Error.Wrap(errs.Combine(err, tx.Rollback()))
	}
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`DELETE FROM snapshots WHERE store_id = ? AND version = ?`),
		storeID, version)
	if err != nil {
		return Error.Wrap(errs.Combine(err, tx.Rollback()))
	}
	return Error.Wrap(tx.Commit())
}

// Stores implements corpus.Index.
func (index *Index) Stores(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := index.db.SelectContext(ctx, &ids,
		index.db.Rebind(`SELECT DISTINCT store_id FROM snapshots WHERE store_id LIKE ? ESCAPE '\' ORDER BY store_id`),
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return ids, nil
}

func (index *Index) withParents(ctx context.Context, row snapshotRow) (corpus.Snapshot, error) {
	snapshot := corpus.Snapshot{
		StoreID:     row.StoreID,
		Version:     row.Version,
		ContentHash: row.ContentHash,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.Tags.Valid && row.Tags.String != "" {
		if err := json.Unmarshal([]byte(row.Tags.String), &snapshot.Tags); err != nil {
			return corpus.Snapshot{}, Error.Wrap(err)
		}
	}
	if row.Metadata.Valid && row.Metadata.String != "" {
		if err := json.Unmarshal([]byte(row.Metadata.String), &snapshot.Metadata); err != nil {
			return corpus.Snapshot{}, Error.Wrap(err)
		}
	}

	type parentRow struct {
		ParentStoreID string `db:"parent_store_id"`
		ParentVersion string `db:"parent_version"`
		Role          string `db:"role"`
	}
	var parents []parentRow
	err := index.db.SelectContext(ctx, &parents,
		index.db.Rebind(`SELECT parent_store_id, parent_version, role
			FROM snapshot_parents WHERE store_id = ? AND version = ?
			ORDER BY parent_store_id, parent_version`),
		row.StoreID, row.Version)
	if err != nil {
		return corpus.Snapshot{}, Error.Wrap(err)
	}
	for _, parent := range parents {
		snapshot.Parents = append(snapshot.Parents, corpus.Parent{
			StoreID: parent.ParentStoreID,
			Version: parent.ParentVersion,
			Role:    parent.Role,
		})
	}
	return snapshot, nil
}

func encodeAttrs(snapshot corpus.Snapshot) (tags, metadata sql.NullString, err error) {
	if len(snapshot.Tags) > 0 {
		encoded, err := json.Marshal(snapshot.Tags)
		if err != nil {
			return tags, metadata, Error.Wrap(err)
		}
		tags = sql.NullString{String: string(encoded), Valid: true}
	}
	if len(snapshot.Metadata) > 0 {
		encoded, err := json.Marshal(snapshot.Metadata)
		if err != nil {
			return tags, metadata, Error.Wrap(err)
		}
		metadata = sql.NullString{String: string(encoded), Valid: true}
	}
	return tags, metadata, nil
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
