// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
)

// DefaultPageSize is used when ScanOptions.PageSize is not positive.
const DefaultPageSize = 100

// ScanOptions controls one page of a table scan.
type ScanOptions[T any] struct {
	// Filter drops rows for which it returns false. Nil keeps every row.
	Filter func(T) bool

	// PageSize caps the rows returned in one page.
	PageSize int

	// Token continues a previous scan. Empty starts from the beginning.
	Token string
}

// Page is one page of scan results. NextToken is empty when the scan is complete.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// scanPage reads one page of rows under prefix, decoding each value with decode.
func scanPage[T any](ctx context.Context, d *DB, op, prefix string, opts ScanOptions[T], decode func(key string, val []byte) (T, error)) (Page[T], error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	start := []byte(prefix)
	var after string
	if opts.Token != "" {
		raw, err := base64.RawURLEncoding.DecodeString(opts.Token)
		if err != nil || !strings.HasPrefix(string(raw), prefix) {
			return Page[T]{}, fmt.Errorf("%w: %q", ErrInvalidPageToken, opts.Token)
		}
		after = string(raw)
		start = raw
	}

	var page Page[T]
	err := d.view(ctx, op, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		pfx := []byte(prefix)
		for it.Seek(start); it.ValidForPrefix(pfx); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if key == after {
				continue
			}
			if len(page.Items) == pageSize {
				page.NextToken = base64.RawURLEncoding.EncodeToString([]byte(after))
				return nil
			}

			var row T
			err := item.Value(func(val []byte) error {
				var derr error
				row, derr = decode(strings.TrimPrefix(key, prefix), val)
				return derr
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			after = key
			if opts.Filter == nil || opts.Filter(row) {
				page.Items = append(page.Items, row)
			}
		}
		return nil
	})
	if err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

// scanAll drains every page.
func scanAll[T any](ctx context.Context, opts ScanOptions[T], next func(context.Context, ScanOptions[T]) (Page[T], error)) ([]T, error) {
	var all []T
	for {
		page, err := next(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextToken == "" {
			return all, nil
		}
		opts.Token = page.NextToken
	}
}

func decodeJSON[T any](val []byte) (T, error) {
	var row T
	err := json.Unmarshal(val, &row)
	return row, err
}
