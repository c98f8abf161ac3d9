// Package ws bridges the draw session to a map surface over
// WebSocket. The surface client connects, announces view_ready, and
// from then on drawing commands flow out and capture events flow in
// through a single write goroutine per connection.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/infomapapp/parceldash/internal/dispatcher"
	"github.com/infomapapp/parceldash/pkg/core"
	"github.com/infomapapp/parceldash/pkg/streaming"
)

const (
	sendChSize = 1024
	writeWait  = 10 * time.Second
)

// ErrSurfaceUnavailable is returned when no map surface is connected.
var ErrSurfaceUnavailable = errors.New("map surface not connected")

// Bridge accepts a single map-surface connection and implements the
// session's Surface on top of it. A new connection replaces the
// previous one.
type Bridge struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	closed bool

	upgrader   ws.Upgrader
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
}

// New creates a Bridge routing inbound surface events to the dispatcher.
func New(d *dispatcher.Dispatcher, logger *slog.Logger) *Bridge {
	return &Bridge{
		sendCh:     make(chan []byte, sendChSize),
		done:       make(chan struct{}),
		upgrader:   ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		dispatcher: d,
		logger:     logger,
	}
}

// Handler upgrades incoming requests and serves the surface protocol.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.Warn("WebSocket upgrade failed", "error", err)
			return
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			_ = conn.Close()
			return
		}
		if b.conn != nil {
			// One surface at a time; the newest connection wins.
			_ = b.conn.Close()
		}
		b.conn = conn
		b.mu.Unlock()

		b.logger.Info("Map surface connected", "remote", conn.RemoteAddr().String())
		go b.writeLoop(conn)
		b.readLoop(conn)
	})
}

// Connected reports whether a surface is currently attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// writeLoop drains sendCh and writes messages to the given connection.
// Returns when the connection is replaced, errors or the bridge closes.
func (b *Bridge) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-b.done:
			return
		case data := <-b.sendCh:
			b.mu.Lock()
			current := b.conn
			b.mu.Unlock()

			if current != conn {
				// This loop belongs to a replaced connection; put the
				// message back for the successor's write loop.
				b.send(data)
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				b.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				b.detach(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				b.logger.Warn("WebSocket write error", "error", err)
				b.detach(conn)
				return
			}
		}
	}
}

// readLoop reads surface events and routes them to the dispatcher.
func (b *Bridge) readLoop(conn *ws.Conn) {
	defer b.detach(conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-b.done:
			default:
				b.logger.Info("Map surface disconnected", "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			b.logger.Debug("Unparseable surface message", "raw", string(message))
			continue
		}

		if env.Type == streaming.TypeViewReady {
			b.ack(streaming.TypeViewReady)
		}

		if _, err := b.dispatcher.Dispatch(dispatcher.Event{
			Name:      env.Type,
			Payload:   env.Payload,
			Timestamp: time.Now(),
		}); err != nil {
			b.logger.Debug("Unhandled surface event", "event", env.Type, "error", err)
		}
	}
}

// detach drops the connection if it is still the active one.
func (b *Bridge) detach(conn *ws.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
	_ = conn.Close()
}

func (b *Bridge) ack(forType string) {
	data, err := json.Marshal(streaming.AckMessage{Type: "ack", For: forType})
	if err != nil {
		return
	}
	b.send(data)
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (b *Bridge) send(data []byte) {
	select {
	case b.sendCh <- data:
	default:
		b.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop.
// Fails fast when no surface is attached.
func (b *Bridge) sendEnvelope(msgType string, payload any) error {
	if !b.Connected() {
		return ErrSurfaceUnavailable
	}
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.send(data)
	return nil
}

// StartDraw asks the surface to enter draw mode for the given shape kind.
func (b *Bridge) StartDraw(kind core.ShapeKind) error {
	return b.sendEnvelope(streaming.TypeStartDraw, streaming.StartDrawPayload{Kind: kind})
}

// Render asks the surface to render a committed shape.
func (b *Bridge) Render(uid string, g core.Geometry) error {
	return b.sendEnvelope(streaming.TypeRenderShape, streaming.RenderShapePayload{UID: uid, Geometry: g})
}

// Remove asks the surface to drop a rendered shape.
func (b *Bridge) Remove(uid string) error {
	return b.sendEnvelope(streaming.TypeRemoveShape, streaming.RemoveShapePayload{UID: uid})
}

// Close shuts down the bridge and disconnects any attached surface.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
