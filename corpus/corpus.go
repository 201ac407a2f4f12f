// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package corpus implements a content-addressed, append-only snapshot store.
//
// A Store is a logical sequence of versioned snapshots of a single typed
// value, identified by a StoreID. Every put appends a new snapshot carrying
// the content hash of its canonical encoding and optional lineage edges to
// the snapshots it was derived from. Blob payloads and the relational
// snapshot index live behind the pluggable Backend interface.
//
// architecture: Database
package corpus

import (
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var (
	// Error is the default error class for the corpus package.
	Error = errs.Class("corpus")
	// ErrNotFound is returned when a snapshot or blob does not exist.
	ErrNotFound = errs.Class("corpus not found")
	// ErrDecode is returned when a stored payload fails decoding or
	// schema validation.
	ErrDecode = errs.Class("corpus decode")
	// ErrParentMissing is returned when a parent reference does not
	// resolve to an existing snapshot at put time.
	ErrParentMissing = errs.Class("corpus parent missing")
	// ErrStoreID is returned for store id strings outside the grammar.
	ErrStoreID = errs.Class("corpus store id")

	mon = monkit.Package()
)

// Parent is a lineage edge from a snapshot to a snapshot it was derived from.
type Parent struct {
	StoreID string `json:"store_id"`
	Version string `json:"version"`
	Role    string `json:"role"`
}

// Snapshot describes one appended record in a store.
//
// Version is unique within its store and lexicographic order follows
// creation order. ContentHash is a pure function of the encoded payload:
// identical payloads produce identical hashes even across snapshots.
type Snapshot struct {
	StoreID     string            `json:"store_id"`
	Version     string            `json:"version"`
	ContentHash string            `json:"content_hash"`
	CreatedAt   time.Time         `json:"created_at"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Parents     []Parent          `json:"parents,omitempty"`
}

// PutOptions carries the optional attributes of a put.
type PutOptions struct {
	Parents  []Parent
	Tags     []string
	Metadata map[string]string
}
