// Package records manages the dashboard's location records: district
// population rows loaded cache-aside from the key-value store with the
// feature service as the source of truth on a cold start. Every
// mutation persists the whole collection so a reload always sees the
// latest state.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/infomapapp/parceldash/internal/kvstore"
	"github.com/infomapapp/parceldash/internal/regions"
	"github.com/infomapapp/parceldash/pkg/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Fetcher supplies records when the cache is cold. Satisfied by
// featureservice.Client.
type Fetcher interface {
	Query(ctx context.Context) ([]core.LocationRecord, error)
}

// Store holds the in-memory collection backed by a key-value store.
type Store struct {
	mu      sync.RWMutex
	kv      kvstore.Store
	key     string
	fetcher Fetcher
	log     *slog.Logger

	records []core.LocationRecord
}

// New creates a record store persisting under the given key.
func New(kv kvstore.Store, key string, fetcher Fetcher, log *slog.Logger) *Store {
	return &Store{
		kv:      kv,
		key:     key,
		fetcher: fetcher,
		log:     log,
	}
}

// Load populates the collection, preferring the persisted copy over a
// feature service round trip. A corrupt cached value is discarded and
// the service queried again.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.log.Error("failed to read cached records", "key", s.key, "error", err)
	}
	if ok {
		var cached []core.LocationRecord
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			s.records = cached
			return nil
		}
		s.log.Warn("discarding corrupt cached records", "key", s.key)
	}

	fetched, err := s.fetcher.Query(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	s.records = fetched
	s.persistLocked()
	return nil
}

// Refresh bypasses the cache and re-queries the feature service.
func (s *Store) Refresh(ctx context.Context) error {
	fetched, err := s.fetcher.Query(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = fetched
	s.persistLocked()
	return nil
}

// Add appends a record, assigning the next free id.
func (s *Store) Add(r core.LocationRecord) core.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.nextIDLocked()
	s.records = append(s.records, r)
	s.persistLocked()
	return r
}

// Update replaces the record with the given id, keeping the id itself.
func (s *Store) Update(id int, r core.LocationRecord) (core.LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			r.ID = id
			s.records[i] = r
			s.persistLocked()
			return r, nil
		}
	}
	return core.LocationRecord{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
}

// Remove deletes the record with the given id. Unknown ids are a
// no-op; the collection is persisted either way.
func (s *Store) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.persistLocked()
}

// ReplaceAll swaps in a new collection, for bulk imports.
func (s *Store) ReplaceAll(records []core.LocationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]core.LocationRecord(nil), records...)
	s.persistLocked()
}

// All returns a copy of the collection.
func (s *Store) All() []core.LocationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.LocationRecord(nil), s.records...)
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (core.LocationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return core.LocationRecord{}, false
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Filtered returns the records visible under the given region filter.
func (s *Store) Filtered(region string) []core.LocationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.LocationRecord(nil), regions.Apply(s.records, region)...)
}

// RegionStats returns the record count and user total for the records
// visible under the given region filter.
func (s *Store) RegionStats(region string) core.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return regions.Stats(regions.Apply(s.records, region))
}

// Regions returns the selectable region names.
func (s *Store) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return regions.Distinct(s.records)
}

func (s *Store) nextIDLocked() int {
	next := 1
	for _, r := range s.records {
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	return next
}

// persistLocked writes the whole collection. Write failures are logged
// and swallowed so a broken store never blocks the dashboard.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.records)
	if err != nil {
		s.log.Error("failed to encode records", "error", err)
		return
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		s.log.Error("failed to persist records", "key", s.key, "error", err)
	}
}
