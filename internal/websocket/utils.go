package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a WebSocket connection with a write lock, so engine event
// callbacks and handler replies never interleave frames.
type Conn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(code, errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// ReadMessage reads the next frame. Text frames carry JSON actions; binary
// frames carry recording chunks. It sets a read deadline.
func (c *Conn) ReadMessage() (int, []byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return c.conn.ReadMessage()
}
