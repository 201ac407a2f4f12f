// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package corpus

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Store is a logical append-only log of snapshots of a single typed value.
//
// architecture: Database
type Store[T any] struct {
	backend Backend
	id      StoreID
	codec   Codec[T]
}

// NewStore creates a store over the given backend.
func NewStore[T any](backend Backend, id StoreID, codec Codec[T]) *Store[T] {
	return &Store[T]{backend: backend, id: id, codec: codec}
}

// ID returns the store id.
func (store *Store[T]) ID() StoreID { return store.id }

// Put encodes the value, writes the blob and inserts the index row.
//
// Writes are not deduplicated by content: two puts of an equal payload
// produce distinct versions and equal content hashes. When parents are
// given, every (store id, version) must exist or the put fails atomically.
func (store *Store[T]) Put(ctx context.Context, value T, opts *PutOptions) (_ Snapshot, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := store.codec.Encode(value)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		StoreID:     store.id.String(),
		Version:     newVersion(),
		ContentHash: HashContent(data),
		CreatedAt:   time.Now().UTC(),
	}
	if opts != nil {
		snapshot.Parents = opts.Parents
		snapshot.Tags = opts.Tags
		snapshot.Metadata = opts.Metadata
	}

	key := blobKey(snapshot.StoreID, snapshot.Version)
	if err := store.backend.Blobs().Put(ctx, key, data); err != nil {
		return Snapshot{}, Error.Wrap(err)
	}

	if err := store.backend.Index().Insert(ctx, snapshot); err != nil {
		// keep the namespace consistent with the index
		_ = store.backend.Blobs().Delete(ctx, key)
		return Snapshot{}, err
	}

	return snapshot, nil
}

// Get returns the snapshot and decoded payload for a version.
func (store *Store[T]) Get(ctx context.Context, version string) (_ Snapshot, _ T, err error) {
	defer mon.Task()(&ctx)(&err)

	var zero T

	snapshot, err := store.backend.Index().Get(ctx, store.id.String(), version)
	if err != nil {
		return Snapshot{}, zero, err
	}

	data, err := store.backend.Blobs().Get(ctx, blobKey(snapshot.StoreID, snapshot.Version))
	if err != nil {
		return Snapshot{}, zero, err
	}

	value, err := store.codec.Decode(data)
	if err != nil {
		return Snapshot{}, zero, err
	}
	return snapshot, value, nil
}

// GetLatest returns the newest snapshot of the store or ErrNotFound.
func (store *Store[T]) GetLatest(ctx context.Context) (_ Snapshot, _ T, err error) {
	defer mon.Task()(&ctx)(&err)

	var zero T

	snapshot, err := store.backend.Index().Latest(ctx, store.id.String())
	if err != nil {
		return Snapshot{}, zero, err
	}
	return store.Get(ctx, snapshot.Version)
}

// Iterate calls fn for every snapshot meta newest-first until fn returns
// false.
func (store *Store[T]) Iterate(ctx context.Context, fn func(Snapshot) bool) error {
	return store.backend.Index().Iterate(ctx, store.id.String(), fn)
}

// Delete removes a single snapshot and its parent edges.
func (store *Store[T]) Delete(ctx context.Context, version string) (err error) {
	defer mon.Task()(&ctx)(&err)

	if err := store.backend.Index().Delete(ctx, store.id.String(), version); err != nil {
		return err
	}
	return store.backend.Blobs().Delete(ctx, blobKey(store.id.String(), version))
}

// HashContent returns the content hash of an encoded payload.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WipeStore deletes every snapshot of a store. It does not need the payload
// type, so callers can wipe stores discovered by prefix.
func WipeStore(ctx context.Context, backend Backend, storeID string) (deleted int, err error) {
	defer mon.Task()(&ctx)(&err)

	var versions []string
	err = backend.Index().Iterate(ctx, storeID, func(snapshot Snapshot) bool {
		versions = append(versions, snapshot.Version)
		return true
	})
	if err != nil {
		return 0, err
	}

	for _, version := range versions {
		if err := backend.Index().Delete(ctx, storeID, version); err != nil {
			return deleted, err
		}
		if err := backend.Blobs().Delete(ctx, blobKey(storeID, version)); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func blobKey(storeID, version string) string {
	return storeID + "/" + version
}

// newVersion returns an opaque version string whose lexicographic order
// follows creation order: zero-padded hex nanoseconds plus a random suffix
// for same-nanosecond ties.
func newVersion() string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("%016x-%s", time.Now().UTC().UnixNano(), hex.EncodeToString(suffix[:]))
}
