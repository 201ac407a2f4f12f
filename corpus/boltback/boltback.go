// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package boltback implements corpus blob storage on a local bbolt file.
// It is intended for single-node deployments and development.
package boltback

import (
	"bytes"
	"context"
	"time"

	"github.com/zeebo/errs"
	bolt "go.etcd.io/bbolt"

	"github.com/chroniclehq/chronicle/corpus"
)

// Error is the default boltback error class.
var Error = errs.Class("boltback")

var blobBucket = []byte("blobs")

// Blobs implements corpus.Blobs over a bbolt database file.
type Blobs struct {
	db *bolt.DB
}

// New opens (creating if needed) a bbolt file at path.
func New(path string) (*Blobs, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobBucket)
		return err
	})
	if err != nil {
		return nil, Error.Wrap(errs.Combine(err, db.Close()))
	}

	return &Blobs{db: db}, nil
}

// Close closes the underlying database.
func (blobs *Blobs) Close() error {
	return Error.Wrap(blobs.db.Close())
}

// Get implements corpus.Blobs.
func (blobs *Blobs) Get(ctx context.Context, key string) (data []byte, err error) {
	err = blobs.db.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(blobBucket).Get([]byte(key))
		if stored == nil {
			return corpus.ErrNotFound.New("blob %q", key)
		}
		data = make([]byte, len(stored))
		copy(data, stored)
		return nil
	})
	return data, err
}

// Put implements corpus.Blobs.
func (blobs *Blobs) Put(ctx context.Context, key string, data []byte) error {
	return Error.Wrap(blobs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blobBucket).Put([]byte(key), data)
	}))
}

// Delete implements corpus.Blobs.
func (blobs *Blobs) Delete(ctx context.Context, key string) error {
	return Error.Wrap(blobs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blobBucket).Delete([]byte(key))
	}))
}

// Head implements corpus.Blobs.
func (blobs *Blobs) Head(ctx context.Context, key string) (size int64, err error) {
	err = blobs.db.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(blobBucket).Get([]byte(key))
		if stored == nil {
			return corpus.ErrNotFound.New("blob %q", key)
		}
		size = int64(len(stored))
		return nil
	})
	return size, err
}

// List implements corpus.Blobs.
func (blobs *Blobs) List(ctx context.Context, prefix string) (keys []string, err error) {
	err = blobs.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(blobBucket).Cursor()
		seek := []byte(prefix)
		for key, _ := cursor.Seek(seek); key != nil && bytes.HasPrefix(key, seek); key, _ = cursor.Next() {
			keys = append(keys, string(key))
		}
		return nil
	})
	return keys, Error.Wrap(err)
}
