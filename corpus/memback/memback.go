// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package memback implements an in-memory corpus backend for tests and
// development.
package memback

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/chroniclehq/chronicle/corpus"
)

// Backend is an in-memory implementation of corpus.Backend. It is safe for
// concurrent use; all operations are serialized by a single mutex, which
// also provides the per store id write serialization the index requires.
type Backend struct {
	mu    sync.Mutex
	blobs map[string][]byte
	// snapshots[storeID][version]
	snapshots map[string]map[string]corpus.Snapshot
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		blobs:     map[string][]byte{},
		snapshots: map[string]map[string]corpus.Snapshot{},
	}
}

// Blobs implements corpus.Backend.
func (backend *Backend) Blobs() corpus.Blobs { return (*memBlobs)(backend) }

// Index implements corpus.Backend.
func (backend *Backend) Index() corpus.Index { return (*memIndex)(backend) }

// Close implements corpus.Backend.
func (backend *Backend) Close() error { return nil }

type memBlobs Backend

func (blobs *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()

	data, ok := blobs.blobs[key]
	if !ok {
		return nil, corpus.ErrNotFound.New("blob %q", key)
	}
	cloned := make([]byte, len(data))
	copy(cloned, data)
	return cloned, nil
}

func (blobs *memBlobs) Put(ctx context.Context, key string, data []byte) error {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()

	cloned := make([]byte, len(data))
	copy(cloned, data)
	blobs.blobs[key] = cloned
	return nil
}

func (blobs *memBlobs) Delete(ctx context.Context, key string) error {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()

	delete(blobs.blobs, key)
	return nil
}

func (blobs *memBlobs) Head(ctx context.Context, key string) (int64, error) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()

	data, ok := blobs.blobs[key]
	if !ok {
		return 0, corpus.ErrNotFound.New("blob %q", key)
	}
	return int64(len(data)), nil
}

func (blobs *memBlobs) List(ctx context.Context, prefix string) ([]string, error) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()

	var keys []string
	for key := range blobs.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

type memIndex Backend

func (index *memIndex) Insert(ctx context.Context, snapshot corpus.Snapshot) error {
	index.mu.Lock()
	defer index.mu.Unlock()

	for _, parent := range snapshot.Parents {
		if _, ok := index.snapshots[parent.StoreID][parent.Version]; !ok {
			return corpus.ErrParentMissing.New("%s@%s", parent.StoreID, parent.Version)
		}
	}

	versions, ok := index.snapshots[snapshot.StoreID]
	if !ok {
		versions = map[string]corpus.Snapshot{}
		index.snapshots[snapshot.StoreID] = versions
	}
	if _, exists := versions[snapshot.Version]; exists {
		return corpus.Error.New("duplicate version %s@%s", snapshot.StoreID, snapshot.Version)
	}
	versions[snapshot.Version] = snapshot
	return nil
}

func (index *memIndex) Get(ctx context.Context, storeID, version string) (corpus.Snapshot, error) {
	index.mu.Lock()
	defer index.mu.Unlock()

	snapshot, ok := index.snapshots[storeID][version]
	if !ok {
		return corpus.Snapshot{}, corpus.ErrNotFound.New("snapshot %s@%s", storeID, version)
	}
	return snapshot, nil
}

func (index *memIndex) Latest(ctx context.Context, storeID string) (corpus.Snapshot, error) {
	index.mu.Lock()
	defer index.mu.Unlock()

	ordered := index.ordered(storeID)
	if len(ordered) == 0 {
		return corpus.Snapshot{}, corpus.ErrNotFound.New("store %q", storeID)
	}
	return ordered[0], nil
}

func (index *memIndex) Iterate(ctx context.Context, storeID string, fn func(corpus.Snapshot) bool) error {
	index.mu.Lock()
	ordered := index.ordered(storeID)
	index.mu.Unlock()

	for _, snapshot := range ordered {
		if !fn(snapshot) {
			return nil
		}
	}
	return nil
}

func (index *memIndex) Delete(ctx context.Context, storeID, version string) error {
	index.mu.Lock()
	defer index.mu.Unlock()

	versions := index.snapshots[storeID]
	delete(versions, version)
	if len(versions) == 0 {
		delete(index.snapshots, storeID)
	}
	return nil
}

func (index *memIndex) Stores(ctx context.Context, prefix string) ([]string, error) {
	index.mu.Lock()
	defer index.mu.Unlock()

	var ids []string
	for id, versions := range index.snapshots {
		if len(versions) > 0 && strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ordered returns snapshots newest-first: created_at descending, ties
// broken by version descending. Callers must hold the mutex.
func (index *memIndex) ordered(storeID string) []corpus.Snapshot {
	versions := index.snapshots[storeID]
	ordered := make([]corpus.Snapshot, 0, len(versions))
	for _, snapshot := range versions {
		ordered = append(ordered, snapshot)
	}
	sort.Slice(ordered, func(i, k int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[k].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[k].CreatedAt)
		}
		return ordered[i].Version > ordered[k].Version
	})
	return ordered
}
