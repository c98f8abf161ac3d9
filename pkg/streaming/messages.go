package streaming

import (
	"encoding/json"

	"github.com/infomapapp/parceldash/pkg/core"
)

// Message type constants for the map-surface protocol.
const (
	// Outbound (session -> surface)
	TypeStartDraw   = "start_draw"
	TypeRenderShape = "render_shape"
	TypeRemoveShape = "remove_shape"

	// Inbound (surface -> session)
	TypeViewReady        = "view_ready"
	TypeGeometryComplete = "geometry_complete"
	TypeReshapeComplete  = "reshape_complete"
	TypeShapeClick       = "shape_click"
)

// Envelope wraps all messages exchanged with the map surface.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the surface's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartDrawPayload asks the surface to enter draw mode.
type StartDrawPayload struct {
	Kind core.ShapeKind `json:"kind"`
}

// RenderShapePayload asks the surface to render a committed shape.
type RenderShapePayload struct {
	UID      string        `json:"uid"`
	Geometry core.Geometry `json:"geometry"`
}

// RemoveShapePayload asks the surface to drop a rendered shape.
type RemoveShapePayload struct {
	UID string `json:"uid"`
}

// GeometryCompletePayload reports a finished drawing from the surface.
type GeometryCompletePayload struct {
	Geometry core.Geometry `json:"geometry"`
}

// ReshapeCompletePayload reports the edited geometry of a committed
// shape after the surface finishes a reshape interaction.
type ReshapeCompletePayload struct {
	UID      string        `json:"uid"`
	Geometry core.Geometry `json:"geometry"`
}

// ShapeClickPayload reports a hit-test result for a user click.
type ShapeClickPayload struct {
	UID string `json:"uid"`
	// Extend toggles membership in the selection (modifier click);
	// a plain click replaces the selection instead.
	Extend bool `json:"extend"`
}
