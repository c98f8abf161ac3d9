// Package sketch coordinates the lifecycle of a drawing: the user
// starts a draw, the map surface reports the completed geometry, the
// user supplies a name and description, and the shape is committed to
// the annotation store. It also keeps the selection set consistent
// with the store — paired mutations happen in one synchronous step so
// callers never observe a selection referencing a deleted shape.
package sketch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/infomapapp/parceldash/internal/annotations"
	"github.com/infomapapp/parceldash/internal/notify"
	"github.com/infomapapp/parceldash/internal/selection"
	"github.com/infomapapp/parceldash/pkg/core"
)

// State is the draw-session phase.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateAwaitingMetadata
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateAwaitingMetadata:
		return "awaiting_metadata"
	default:
		return "unknown"
	}
}

// Surface is the mapping collaborator. Geometry capture and vertex
// editing happen entirely on its side; the session only starts draws
// and mirrors the committed collection onto it.
type Surface interface {
	StartDraw(kind core.ShapeKind) error
	Render(uid string, g core.Geometry) error
	Remove(uid string) error
}

// Session mediates between the surface, the annotation store and the
// selection set. All failures surface as notifications; none escape
// to the event loop.
type Session struct {
	mu      sync.Mutex
	state   State
	pending core.Geometry

	store    *annotations.Store
	sel      *selection.Set
	surface  Surface
	notifier notify.Notifier
	log      *slog.Logger
}

// NewSession creates a draw session over the given collaborators.
func NewSession(store *annotations.Store, sel *selection.Set, surface Surface, notifier notify.Notifier, log *slog.Logger) *Session {
	return &Session{
		state:    StateIdle,
		store:    store,
		sel:      sel,
		surface:  surface,
		notifier: notifier,
		log:      log,
	}
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RestoreSurface renders every committed annotation onto the surface.
// Called after Load so reloaded shapes reappear on the map.
func (s *Session) RestoreSurface() {
	for _, a := range s.store.All() {
		if err := s.surface.Render(a.UID, a.Geometry); err != nil {
			s.log.Error("failed to restore shape on surface", "uid", a.UID, "error", err)
		}
	}
}

// Begin starts a draw of the given shape kind. A surface that is not
// ready is surfaced as a warning requiring retry.
func (s *Session) Begin(kind core.ShapeKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.log.Debug("draw already in progress", "state", s.state.String())
		return
	}
	if err := s.surface.StartDraw(kind); err != nil {
		s.notifier.Warning("Map is not ready yet, try again")
		s.log.Error("surface rejected draw", "kind", string(kind), "error", err)
		return
	}
	s.state = StateDrawing
}

// GeometryComplete receives the finished geometry from the surface.
// The surface owns draw-mode state and could emit unexpected events;
// anything arriving outside Drawing is ignored.
func (s *Session) GeometryComplete(g core.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDrawing {
		s.log.Debug("ignoring geometry outside draw", "state", s.state.String())
		return
	}
	if g.IsEmpty() {
		s.log.Debug("ignoring empty geometry")
		return
	}
	s.pending = g
	s.state = StateAwaitingMetadata
}

// Submit commits the captured geometry with the supplied metadata.
// Validation failures keep the session in AwaitingMetadata with a
// warning; nothing is persisted. On success the selection moves to
// the new shape.
func (s *Session) Submit(name, description string) (core.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingMetadata {
		s.log.Debug("no drawing awaiting metadata", "state", s.state.String())
		return core.Annotation{}, false
	}

	a, err := s.store.Add(s.pending, name, description)
	if err != nil {
		if errors.Is(err, annotations.ErrEmptyMetadata) {
			s.notifier.Warning("Name and description are required")
		} else {
			s.notifier.Error("Could not save the drawing")
			s.log.Error("commit failed", "error", err)
		}
		return core.Annotation{}, false
	}

	s.sel.Replace(a.UID)
	if err := s.surface.Render(a.UID, a.Geometry); err != nil {
		s.log.Error("failed to render committed shape", "uid", a.UID, "error", err)
	}

	s.pending = nil
	s.state = StateIdle
	s.notifier.Success("Saved successfully")
	return a, true
}

// Cancel discards the in-progress draw; nothing is persisted.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.state = StateIdle
}

// ToggleSelect flips selection membership for a shape clicked on the
// map with the multi-select modifier. Unknown uids are ignored.
func (s *Session) ToggleSelect(uid string) {
	if _, ok := s.store.Get(uid); !ok {
		s.log.Debug("ignoring selection of unknown shape", "uid", uid)
		return
	}
	s.sel.Toggle(uid)
}

// SelectOnly replaces the selection with a single shape, the plain
// click behavior shared by the map and the search panel.
func (s *Session) SelectOnly(uid string) {
	if _, ok := s.store.Get(uid); !ok {
		s.log.Debug("ignoring selection of unknown shape", "uid", uid)
		return
	}
	s.sel.Replace(uid)
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.sel.Clear()
}

// Selected returns the selected uids in insertion order.
func (s *Session) Selected() []string {
	return s.sel.UIDs()
}

// DeleteSelected removes every selected annotation, clears the
// selection and drops the shapes from the surface, all in one
// synchronous step.
func (s *Session) DeleteSelected() {
	uids := s.sel.UIDs()
	if len(uids) == 0 {
		return
	}

	s.store.RemoveMany(uids)
	s.sel.Clear()
	for _, uid := range uids {
		if err := s.surface.Remove(uid); err != nil {
			s.log.Error("failed to remove shape from surface", "uid", uid, "error", err)
		}
	}
	s.notifier.Success("Deleted successfully")
}

// ClearAll removes every committed annotation, empties the selection
// and drops all shapes from the surface in one synchronous step. The
// storage key is deleted outright.
func (s *Session) ClearAll() {
	all := s.store.All()
	s.store.Clear()
	s.sel.Clear()
	for _, a := range all {
		if err := s.surface.Remove(a.UID); err != nil {
			s.log.Error("failed to remove shape from surface", "uid", a.UID, "error", err)
		}
	}
	if len(all) > 0 {
		s.notifier.Success("Cleared successfully")
	}
}

// UpdateMetadata edits the name and description of a committed shape.
func (s *Session) UpdateMetadata(uid, name, description string) bool {
	_, err := s.store.Update(uid, annotations.Patch{Name: &name, Description: &description})
	if err != nil {
		switch {
		case errors.Is(err, annotations.ErrEmptyMetadata):
			s.notifier.Warning("Name and description are required")
		case errors.Is(err, annotations.ErrNotFound):
			s.notifier.Error("Drawing no longer exists")
		default:
			s.notifier.Error("Could not update the drawing")
			s.log.Error("update failed", "uid", uid, "error", err)
		}
		return false
	}
	s.notifier.Success("Updated successfully")
	return true
}

// Reshape replaces the geometry of a committed shape after the surface
// finishes a reshape interaction, and re-renders it.
func (s *Session) Reshape(uid string, g core.Geometry) bool {
	updated, err := s.store.Update(uid, annotations.Patch{Geometry: &g})
	if err != nil {
		if errors.Is(err, annotations.ErrNotFound) {
			s.notifier.Error("Drawing no longer exists")
		} else {
			s.notifier.Error("Could not update the drawing")
			s.log.Error("reshape failed", "uid", uid, "error", err)
		}
		return false
	}
	if err := s.surface.Render(uid, updated.Geometry); err != nil {
		s.log.Error("failed to re-render reshaped shape", "uid", uid, "error", err)
	}
	return true
}
