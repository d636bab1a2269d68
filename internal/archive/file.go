// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileArchive writes each object to <dir>/<name>. A write goes to a temp
// file first and is renamed into place, so readers see either the old or
// the new document.
type FileArchive struct {
	dir string
}

// NewFileArchive creates dir if needed and returns an archive rooted there.
func NewFileArchive(dir string) (*FileArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

// Dir returns the archive directory.
func (a *FileArchive) Dir() string {
	return a.dir
}

// Put replaces the object name with data.
func (a *FileArchive) Put(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(a.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrUnavailable, name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrUnavailable, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrUnavailable, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(a.dir, name)); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrUnavailable, name, err)
	}
	return nil
}
