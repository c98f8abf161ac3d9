// Package selection tracks the set of annotation uids currently
// highlighted on the map and in the search panel. Keeping it
// consistent with the annotation store is the caller's job: deletes
// and deselects must happen in the same synchronous step.
package selection

import "sync"

// Set is an insertion-ordered set of annotation uids.
type Set struct {
	mu   sync.Mutex
	uids []string
}

// New creates an empty selection.
func New() *Set {
	return &Set{}
}

// Toggle adds uid if absent, removes it if present. Used for
// modifier-click multi-select.
func (s *Set) Toggle(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.uids {
		if existing == uid {
			s.uids = append(s.uids[:i], s.uids[i+1:]...)
			return
		}
	}
	s.uids = append(s.uids, uid)
}

// Replace sets the selection to exactly the given uids.
func (s *Set) Replace(uids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uids = s.uids[:0]
	seen := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		s.uids = append(s.uids, uid)
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uids = s.uids[:0]
}

// Remove drops the given uids from the selection if present.
func (s *Set) Remove(uids ...string) {
	drop := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		drop[uid] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.uids[:0]
	for _, uid := range s.uids {
		if _, gone := drop[uid]; !gone {
			kept = append(kept, uid)
		}
	}
	s.uids = kept
}

// Has reports whether uid is selected.
func (s *Set) Has(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.uids {
		if existing == uid {
			return true
		}
	}
	return false
}

// UIDs returns the selected uids in insertion order.
func (s *Set) UIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.uids))
	copy(out, s.uids)
	return out
}

// Len returns the selection size.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uids)
}
