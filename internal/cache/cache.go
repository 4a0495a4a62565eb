// file: internal/cache/cache.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

// Package cache memoizes provider responses in a Pebble key-value store
// so they survive process restarts. Entries carry an absolute expiry;
// expired entries are kept around until purged so they can still be
// served when the provider is unreachable.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// Store is a TTL cache over a durable keyed store. Safe for concurrent
// use; Pebble serializes reads and writes internally.
type Store struct {
	db  *pebble.DB
	ttl time.Duration

	// OnHit and OnMiss, when set, observe fresh cache hits and fetch
	// fallthroughs. Used to feed Prometheus counters.
	OnHit  func()
	OnMiss func()

	// now is swapped in tests.
	now func() time.Time
}

type record struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Open opens (or creates) the cache database at dir. ttl is the default
// freshness window for every entry.
func Open(dir string, ttl time.Duration) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (record, bool) {
	value, closer, err := s.db.Get([]byte(key))
	if err != nil {
		return record{}, false
	}
	defer closer.Close()

	var rec record
	if err := json.Unmarshal(value, &rec); err != nil {
		return record{}, false
	}
	return rec, true
}

func (s *Store) set(key string, value json.RawMessage) error {
	rec := record{Value: value, ExpiresAt: s.now().Add(s.ttl)}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.db.Set([]byte(key), encoded, pebble.Sync); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single entry.
func (s *Store) Delete(key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Purge removes entries that expired more than retention ago. Entries
// within the retention window stay available as stale fallbacks.
func (s *Store) Purge(retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)

	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, fmt.Errorf("cache iterator: %w", err)
	}

	var stale [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var rec record
		if json.Unmarshal(iter.Value(), &rec) != nil || rec.ExpiresAt.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			stale = append(stale, key)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("cache iterator: %w", err)
	}

	removed := 0
	for _, key := range stale {
		if s.db.Delete(key, pebble.Sync) == nil {
			removed++
		}
	}
	return removed, nil
}

// GetOrFetch returns the cached value for key when it is still fresh;
// otherwise it calls fetch and stores the result. When fetch fails and a
// stale entry is still present, the stale value is served instead of the
// error so transient provider outages do not stall the pipeline.
func GetOrFetch[T any](s *Store, key string, fetch func() (T, error)) (T, error) {
	var zero T

	rec, found := s.get(key)
	if found && s.now().Before(rec.ExpiresAt) {
		var cached T
		if err := json.Unmarshal(rec.Value, &cached); err == nil {
			if s.OnHit != nil {
				s.OnHit()
			}
			return cached, nil
		}
		// Undecodable entry; fall through to a fresh fetch.
		found = false
	}

	if s.OnMiss != nil {
		s.OnMiss()
	}
	fresh, err := fetch()
	if err != nil {
		if found {
			var stale T
			if decodeErr := json.Unmarshal(rec.Value, &stale); decodeErr == nil {
				return stale, nil
			}
		}
		return zero, err
	}

	encoded, err := json.Marshal(fresh)
	if err != nil {
		return zero, fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := s.set(key, encoded); err != nil {
		// A store failure must not discard a successful fetch.
		return fresh, nil
	}
	return fresh, nil
}
