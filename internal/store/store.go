// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package store provides the path-addressed document store backing all
// persistent state.
//
// Documents live under slash-separated paths (reports/{id}, users/{uid},
// public_data_cache/{feed}/data, ...). Multi-field updates that must stay
// consistent, such as a report's confidence score, level, and breakdown,
// are issued through Batch, which commits all paths in one BadgerDB
// transaction. Writes are last-write-wins; no cross-document transactions
// are offered or needed.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrNotFound is returned when no document exists at the given path.
var ErrNotFound = errors.New("store: document not found")

// Store is a BadgerDB-backed document store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dir. An empty dir opens an in-memory
// store, used by tests.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	// Badger's own logger is noisy at INFO; the store logs through zerolog
	// at the call sites instead.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying BadgerDB for components that need raw access
// (garbage collection ticker in main).
func (s *Store) DB() *badger.DB {
	return s.db
}

// Get unmarshals the document at path into out.
func (s *Store) Get(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", path, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// Set marshals v and stores it at path, overwriting any existing document.
func (s *Store) Set(ctx context.Context, path string, v any) error {
	return s.SetWithTTL(ctx, path, v, 0)
}

// SetWithTTL stores v at path with an expiry. A zero ttl stores forever.
func (s *Store) SetWithTTL(ctx context.Context, path string, v any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", path, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(path), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Delete removes the document at path. Deleting a missing path is a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(path))
	})
}

// List iterates all documents whose path starts with prefix, invoking fn
// with each path and raw value. Returning an error from fn stops the
// iteration and propagates the error.
func (s *Store) List(ctx context.Context, prefix string, fn func(path string, value []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			path := string(item.Key())
			err := item.Value(func(val []byte) error {
				// Copy: fn may retain the slice beyond the txn.
				cp := make([]byte, len(val))
				copy(cp, val)
				return fn(path, cp)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Op is one element of a multi-path batch write.
type Op struct {
	Path   string
	Value  any
	Delete bool
	TTL    time.Duration
}

// Batch applies all operations in a single transaction. Either every path
// is written or none are; this keeps derived triples (score, level,
// breakdown) consistent under concurrent readers.
func (s *Store) Batch(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			if op.Delete {
				if err := txn.Delete([]byte(op.Path)); err != nil {
					return fmt.Errorf("batch delete %q: %w", op.Path, err)
				}
				continue
			}
			data, err := json.Marshal(op.Value)
			if err != nil {
				return fmt.Errorf("batch marshal %q: %w", op.Path, err)
			}
			entry := badger.NewEntry([]byte(op.Path), data)
			if op.TTL > 0 {
				entry = entry.WithTTL(op.TTL)
			}
			if err := txn.SetEntry(entry); err != nil {
				return fmt.Errorf("batch set %q: %w", op.Path, err)
			}
		}
		return nil
	})
}

// Increment atomically adds delta to the integer counter at path and
// returns the new value. Missing counters start at zero. Counters are
// stored as decimal strings so they stay readable in exports.
func (s *Store) Increment(ctx context.Context, path string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var result int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var current int64
		item, err := txn.Get([]byte(path))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			current = 0
		case err != nil:
			return fmt.Errorf("increment get %q: %w", path, err)
		default:
			if err := item.Value(func(val []byte) error {
				n, perr := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
				if perr != nil {
					return fmt.Errorf("increment parse %q: %w", path, perr)
				}
				current = n
				return nil
			}); err != nil {
				return err
			}
		}
		result = current + delta
		return txn.Set([]byte(path), []byte(strconv.FormatInt(result, 10)))
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// AppendToLog appends v to the JSON-array document at path, creating the
// array if absent. Used for append-only logs such as credibility history.
func (s *Store) AppendToLog(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var entries []json.RawMessage
		item, err := txn.Get([]byte(path))
		if err == nil {
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entries)
			}); verr != nil {
				return fmt.Errorf("append read %q: %w", path, verr)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("append get %q: %w", path, err)
		}

		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("append marshal %q: %w", path, err)
		}
		entries = append(entries, raw)

		data, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("append marshal log %q: %w", path, err)
		}
		return txn.Set([]byte(path), data)
	})
}
