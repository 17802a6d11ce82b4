package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// DB is the Badger-backed Store. Badger gives us everything the cache
// contract asks for without a server process: durable writes, ordered
// keys for prefix scans, transactional upserts, and a directory lock so
// two crawler processes can't trample one database.
type DB struct {
	db *badger.DB
}

var _ Store = (*DB)(nil)

// Open opens (or creates) the cache database at dir. The directory is
// locked for the lifetime of the handle; a second Open on the same dir
// fails rather than corrupting state.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cache at %s: %w", dir, err)
	}
	return &DB{db: db}, nil
}

// Close flushes and releases the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Get looks up the entry for an exact (repository, fingerprint) pair.
func (s *DB) Get(ctx context.Context, repo, fingerprint string) (*Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(repo, fingerprint))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s@%s: %w", repo, fingerprint, err)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// Put upserts the entry under (repository, fingerprint) in a single
// transaction. Other fingerprints of the same repository coexist.
func (s *DB) Put(ctx context.Context, repo, fingerprint string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry for %s@%s: %w", repo, fingerprint, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(repo, fingerprint), raw)
	})
	if err != nil {
		return fmt.Errorf("cache put %s@%s: %w", repo, fingerprint, err)
	}
	return nil
}

// HasNegative reports whether a negative marker exists for the pair.
// Corrupt entries count as absent so they get re-crawled and rewritten.
func (s *DB) HasNegative(ctx context.Context, repo, fingerprint string) (bool, error) {
	entry, ok, err := s.Get(ctx, repo, fingerprint)
	if errors.Is(err, ErrCorrupt) {
		return false, nil
	}
	if err != nil || !ok {
		return false, err
	}
	return entry.Negative(), nil
}

// History scans every fingerprint stored for a repository, in key
// order. Undecodable entries are skipped, not fatal.
func (s *DB) History(ctx context.Context, repo string) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := repoPrefix(repo)
	var out []Version
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			fingerprint := string(item.Key()[len(prefix):])
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entry, err := decodeEntry(raw)
			if err != nil {
				continue
			}
			out = append(out, Version{Fingerprint: fingerprint, Entry: entry})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache history %s: %w", repo, err)
	}
	return out, nil
}

// Stats walks the full key space and tallies entries, negatives and
// distinct repositories.
func (s *DB) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	var lastRepo []byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			stats.Entries++

			key := item.Key()[len(keyPrefix):]
			repo, _, ok := bytes.Cut(key, []byte{0})
			if ok && !bytes.Equal(repo, lastRepo) {
				stats.Repos++
				lastRepo = append(lastRepo[:0], repo...)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if entry, err := decodeEntry(raw); err == nil && entry.Negative() {
				stats.Negatives++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}
