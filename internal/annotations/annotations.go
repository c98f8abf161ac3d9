// Package annotations owns the committed collection of user-drawn
// shapes. The map surface only ever holds a rendering projection of
// this store; every mutation re-serializes the whole collection into
// its storage slot before returning.
package annotations

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/infomapapp/parceldash/internal/kvstore"
	"github.com/infomapapp/parceldash/pkg/core"
)

// ErrEmptyMetadata is returned when a commit or edit is attempted with
// an empty name or description.
var ErrEmptyMetadata = errors.New("name and description are required")

// ErrNotFound is returned when an operation references an unknown uid.
var ErrNotFound = errors.New("annotation not found")

// storedAttributes is the persisted attribute bag, matching the
// layout the dashboard has always written.
type storedAttributes struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UID         string    `json:"uid"`
}

// storedAnnotation pairs the opaque geometry with its attributes.
type storedAnnotation struct {
	Geometry   core.Geometry    `json:"geometry"`
	Attributes storedAttributes `json:"attributes"`
}

// Patch describes a partial annotation update. Nil fields are left
// unchanged.
type Patch struct {
	Name        *string
	Description *string
	Geometry    *core.Geometry
}

// Store is the durable annotation collection.
type Store struct {
	mu    sync.Mutex
	kv    kvstore.Store
	key   string
	log   *slog.Logger
	items []core.Annotation

	newUID func() string
	now    func() time.Time
}

// New creates a Store persisting into the given storage slot.
func New(kv kvstore.Store, key string, log *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		key:    key,
		log:    log,
		newUID: uuid.NewString,
		now:    time.Now,
	}
}

// Load rehydrates the collection from storage. Corrupt stored data is
// logged and replaced by an empty collection; keeping the dashboard
// usable takes priority over surfacing storage corruption.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return fmt.Errorf("loading annotations: %w", err)
	}
	if !ok {
		s.items = nil
		return nil
	}

	var stored []storedAnnotation
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Error("discarding corrupt annotation storage", "key", s.key, "error", err)
		s.items = nil
		return nil
	}

	s.items = make([]core.Annotation, 0, len(stored))
	for _, sa := range stored {
		s.items = append(s.items, core.Annotation{
			UID:         sa.Attributes.UID,
			Geometry:    sa.Geometry,
			Name:        sa.Attributes.Name,
			Description: sa.Attributes.Description,
			CreatedAt:   sa.Attributes.CreatedAt,
		})
	}
	return nil
}

// Add validates the metadata, commits a new annotation and persists
// the collection. Nothing is stored when validation fails.
func (s *Store) Add(geometry core.Geometry, name, description string) (core.Annotation, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return core.Annotation{}, ErrEmptyMetadata
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := core.Annotation{
		UID:         s.newUID(),
		Geometry:    geometry,
		Name:        name,
		Description: description,
		CreatedAt:   s.now(),
	}
	s.items = append(s.items, a)
	s.persistLocked()
	return a, nil
}

// Update replaces only the fields set in the patch and persists.
func (s *Store) Update(uid string, p Patch) (core.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].UID != uid {
			continue
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return core.Annotation{}, ErrEmptyMetadata
			}
			s.items[i].Name = name
		}
		if p.Description != nil {
			description := strings.TrimSpace(*p.Description)
			if description == "" {
				return core.Annotation{}, ErrEmptyMetadata
			}
			s.items[i].Description = description
		}
		if p.Geometry != nil {
			s.items[i].Geometry = *p.Geometry
		}
		s.persistLocked()
		return s.items[i], nil
	}
	return core.Annotation{}, fmt.Errorf("update %q: %w", uid, ErrNotFound)
}

// Remove deletes one annotation. Unknown uids are a silent no-op.
func (s *Store) Remove(uid string) {
	s.RemoveMany([]string{uid})
}

// RemoveMany deletes all annotations whose uid appears in uids.
// Unknown uids are ignored; the result is persisted either way.
func (s *Store) RemoveMany(uids []string) {
	drop := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		drop[uid] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, a := range s.items {
		if _, gone := drop[a.UID]; !gone {
			kept = append(kept, a)
		}
	}
	s.items = kept
	s.persistLocked()
}

// Clear empties the collection and removes the storage key outright,
// not merely writing an empty array.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.kv.Delete(s.key); err != nil {
		s.log.Error("failed to clear annotation storage", "key", s.key, "error", err)
	}
}

// All returns the committed annotations in insertion order.
func (s *Store) All() []core.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Annotation, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the annotation with the given uid.
func (s *Store) Get(uid string) (core.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.items {
		if a.UID == uid {
			return a, true
		}
	}
	return core.Annotation{}, false
}

// Len returns the number of committed annotations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SearchByName returns annotations whose name contains the query,
// case-insensitively. An empty query matches nothing.
func (s *Store) SearchByName(query string) []core.Annotation {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []core.Annotation
	for _, a := range s.items {
		if strings.Contains(strings.ToLower(a.Name), query) {
			matches = append(matches, a)
		}
	}
	return matches
}

// persistLocked writes the whole collection to storage. Write failures
// are logged, never propagated: the in-memory collection stays the
// source of truth for the session.
func (s *Store) persistLocked() {
	stored := make([]storedAnnotation, 0, len(s.items))
	for _, a := range s.items {
		stored = append(stored, storedAnnotation{
			Geometry: a.Geometry,
			Attributes: storedAttributes{
				Name:        a.Name,
				Description: a.Description,
				CreatedAt:   a.CreatedAt,
				UID:         a.UID,
			},
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		s.log.Error("failed to serialize annotations", "error", err)
		return
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		s.log.Error("failed to persist annotations", "key", s.key, "error", err)
	}
}
