// Package viewcache caches derived per-user views (statistics, totals) in
// Badger. Entries expire after a TTL and are dropped on every write by
// their user.
package viewcache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Cache wraps a Badger database instance.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
	ttl    time.Duration
}

// Options configures the cache.
type Options struct {
	// Path is the Badger directory. Empty runs the cache in memory.
	Path   string
	TTL    time.Duration
	Logger *slog.Logger
}

// Open opens or creates the cache.
func Open(opts Options) (*Cache, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	} else {
		bopts.CompactL0OnClose = true
	}
	bopts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.Info("view cache opened", "path", opts.Path, "ttl", opts.TTL)
	}

	return &Cache{db: db, logger: opts.Logger, ttl: opts.TTL}, nil
}

// Close gracefully closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// userPrefix is the key prefix of every entry belonging to uid.
func userPrefix(uid string) string {
	return "user:" + uid + ":"
}

// StatsKey keys the yearly statistics of a user.
func StatsKey(uid string, year int) string {
	return userPrefix(uid) + "stats:" + strconv.Itoa(year)
}

// TotalsKey keys the lifetime reading totals of a user.
func TotalsKey(uid string) string {
	return userPrefix(uid) + "totals"
}

// Get decodes the entry at key into dest. It reports false on a miss.
func (c *Cache) Get(key string, dest any) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Generation returns the invalidation generation of uid. Read it before
// computing a view and hand it to SetIfCurrent.
func (c *Cache) Generation(uid string) (uint64, error) {
	var gen uint64
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		gen, err = readGeneration(txn, uid)
		return err
	})
	return gen, err
}

// SetIfCurrent stores value at key only while the generation of uid is still
// gen. It reports whether the value was stored. A concurrent InvalidateUser
// either bumps the generation first or makes this commit conflict.
func (c *Cache) SetIfCurrent(uid string, gen uint64, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	stored := false
	err = c.db.Update(func(txn *badger.Txn) error {
		current, err := readGeneration(txn, uid)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		stored = true
		return txn.SetEntry(c.entry(key, data))
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored, nil
}

// InvalidateUser drops every entry of a user and bumps its generation.
func (c *Cache) InvalidateUser(uid string) error {
	prefix := []byte(userPrefix(uid))

	return c.db.Update(func(txn *badger.Txn) error {
		gen, err := readGeneration(txn, uid)
		if err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		var keys [][]byte
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], gen+1)
		return txn.Set(generationKey(uid), buf[:])
	})
}

func (c *Cache) entry(key string, data []byte) *badger.Entry {
	entry := badger.NewEntry([]byte(key), data)
	if c.ttl > 0 {
		entry = entry.WithTTL(c.ttl)
	}
	return entry
}

// generationKey lives outside userPrefix so invalidation never deletes it.
func generationKey(uid string) []byte {
	return []byte("gen:" + uid)
}

func readGeneration(txn *badger.Txn, uid string) (uint64, error) {
	item, err := txn.Get(generationKey(uid))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var gen uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt generation for %q", uid)
		}
		gen = binary.BigEndian.Uint64(val)
		return nil
	})
	return gen, err
}

// Disabled is a cache that never stores anything.
type Disabled struct{}

// Get always misses.
func (Disabled) Get(string, any) (bool, error) { return false, nil }

// Generation is always zero.
func (Disabled) Generation(string) (uint64, error) { return 0, nil }

// SetIfCurrent never stores.
func (Disabled) SetIfCurrent(string, uint64, string, any) (bool, error) { return false, nil }

// InvalidateUser is a no-op.
func (Disabled) InvalidateUser(string) error { return nil }
