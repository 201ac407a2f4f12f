// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package corpus

import (
	"context"

	"github.com/zeebo/errs"
)

// Blobs is a key-value blob store over an object namespace.
//
// architecture: Database
type Blobs interface {
	// Get returns the blob stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, overwriting any previous blob.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the blob under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
	// Head returns the size of the blob under key or ErrNotFound.
	Head(ctx context.Context, key string) (int64, error)
	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Index is the relational index over snapshot metadata.
//
// architecture: Database
type Index interface {
	// Insert adds a snapshot row. Every parent reference must resolve
	// to an existing snapshot or the insert fails atomically with
	// ErrParentMissing. Inserts on a single store id are serialized.
	Insert(ctx context.Context, snapshot Snapshot) error
	// Get returns the snapshot for (store id, version) or ErrNotFound.
	Get(ctx context.Context, storeID, version string) (Snapshot, error)
	// Latest returns the snapshot with the greatest created_at, ties
	// broken by version descending, or ErrNotFound.
	Latest(ctx context.Context, storeID string) (Snapshot, error)
	// Iterate calls fn for each snapshot of the store newest-first
	// until fn returns false.
	Iterate(ctx context.Context, storeID string, fn func(Snapshot) bool) error
	// Delete removes a snapshot row and its parent edges.
	Delete(ctx context.Context, storeID, version string) error
	// Stores returns the distinct store ids with the given prefix.
	Stores(ctx context.Context, prefix string) ([]string, error)
}

// Backend bundles blob storage with the relational snapshot index.
type Backend interface {
	Blobs() Blobs
	Index() Index
	Close() error
}

// NewBackend combines independent blob and index implementations into a
// Backend. Close closes both when they implement io.Closer-like Close.
func NewBackend(blobs Blobs, index Index) Backend {
	return &combined{blobs: blobs, index: index}
}

type combined struct {
	blobs Blobs
	index Index
}

func (backend *combined) Blobs() Blobs { return backend.blobs }
func (backend *combined) Index() Index { return backend.index }

func (backend *combined) Close() error {
	var group errs.Group
	if closer, ok := backend.blobs.(interface{ Close() error }); ok {
		group.Add(closer.Close())
	}
	if closer, ok := backend.index.(interface{ Close() error }); ok {
		group.Add(closer.Close())
	}
	return group.Err()
}
