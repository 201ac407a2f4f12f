// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package chronicledbtest runs tests against a fresh in-memory database.
package chronicledbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/chronicledb"
	"github.com/chroniclehq/chronicle/internal/testcontext"
)

var databaseCounter int64

// Run opens a fresh sqlite database, creates the schema and calls test.
func Run(t *testing.T, test func(ctx *testcontext.Context, db *chronicledb.DB)) {
	t.Helper()
	ctx := testcontext.New(t)

	name := strings.NewReplacer("/", "-", " ", "-").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared",
		name, atomic.AddInt64(&databaseCounter, 1))

	db, err := chronicledb.Open("sqlite", dsn)
	require.NoError(t, err)
	defer ctx.Check(db.Close)

	// A single shared in-memory connection keeps the schema visible to
	// every query.
	db.Raw().SetMaxOpenConns(1)

	require.NoError(t, db.CreateTables(ctx))
	test(ctx, db)
}
