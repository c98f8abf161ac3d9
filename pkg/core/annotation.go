// pkg/core/annotation.go
package core

import (
	"encoding/json"
	"time"
)

// Geometry is an opaque serialized shape description produced by the
// mapping surface. The core stores it and hands it back for rendering
// but never inspects its structure.
type Geometry json.RawMessage

// MarshalJSON passes the raw bytes through unchanged.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

// UnmarshalJSON captures the raw bytes unchanged.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	*g = append((*g)[0:0], data...)
	return nil
}

// IsEmpty reports whether no geometry has been captured.
func (g Geometry) IsEmpty() bool {
	return len(g) == 0
}

// Annotation is a user-drawn shape with metadata, persisted client-side.
// A committed annotation always has a non-empty Name and Description.
type Annotation struct {
	UID         string
	Geometry    Geometry
	Name        string
	Description string
	CreatedAt   time.Time
}

// ShapeKind identifies the kind of shape a draw session produces.
type ShapeKind string

const (
	ShapePolygon  ShapeKind = "polygon"
	ShapePolyline ShapeKind = "polyline"
)
