// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package archive

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// ObjectStoreArchive writes snapshots to a JetStream object store bucket.
type ObjectStoreArchive struct {
	bucket string
	store  jetstream.ObjectStore
}

// ObjectStoreConfig defines the snapshot bucket.
type ObjectStoreConfig struct {
	Bucket      string
	Description string
	Replicas    int
	MemoryOnly  bool
}

// NewObjectStoreArchive creates or updates the bucket and returns an archive
// writing into it.
func NewObjectStoreArchive(ctx context.Context, js jetstream.JetStream, cfg ObjectStoreConfig) (*ObjectStoreArchive, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name required")
	}
	storage := jetstream.FileStorage
	if cfg.MemoryOnly {
		storage = jetstream.MemoryStorage
	}
	replicas := cfg.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	obs, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		Storage:     storage,
		Replicas:    replicas,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: object store %s: %w", ErrUnavailable, cfg.Bucket, err)
	}
	return &ObjectStoreArchive{bucket: cfg.Bucket, store: obs}, nil
}

// Bucket returns the bucket name.
func (a *ObjectStoreArchive) Bucket() string {
	return a.bucket
}

// Put replaces the object name with data.
func (a *ObjectStoreArchive) Put(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := a.store.PutBytes(ctx, name, data); err != nil {
		return fmt.Errorf("%w: put %s/%s: %w", ErrUnavailable, a.bucket, name, err)
	}
	return nil
}

// Get returns the current content of name.
func (a *ObjectStoreArchive) Get(ctx context.Context, name string) ([]byte, error) {
	return a.store.GetBytes(ctx, name)
}
