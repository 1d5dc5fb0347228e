// Package wsio adapts a *websocket.Conn into a net.Conn, so the rest of
// the system can run TLS and gRPC over a WebSocket byte stream without
// knowing it isn't a raw socket. This is component E of the tunnel
// gateway (spec.md §4.E).
package wsio

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sufield/trz-gateway/internal/domain"
)

// Conn wraps a *websocket.Conn and implements net.Conn. Reads drain a
// buffer refilled one binary frame at a time; writes send one binary
// frame per Write call, with no coalescing (spec.md §4.E).
type Conn struct {
	ws *websocket.Conn

	readMu  sync.Mutex
	readBuf bytes.Buffer

	writeMu sync.Mutex
}

// New wraps ws as a net.Conn.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Read implements net.Conn. It returns bytes from the current frame's
// buffer, pulling a new binary frame from the socket once the buffer is
// drained.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for c.readBuf.Len() == 0 {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
		}
		if messageType != websocket.BinaryMessage {
			return 0, fmt.Errorf("%w: unexpected websocket message type %d", domain.ErrTransportClosed, messageType)
		}
		c.readBuf.Write(data)
	}
	return c.readBuf.Read(p)
}

// Write implements net.Conn. Each call sends exactly one binary frame
// carrying p in full; gorilla/websocket serializes concurrent writers
// internally, but writeMu keeps frame boundaries aligned with Write
// calls under concurrent use.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
	}
	return len(p), nil
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

// SetDeadline sets both the read and write deadlines.
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}
