package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one connected peer. Writes are serialised per connection.
type Client struct {
	ID string

	conn      Conn
	writeWait time.Duration
	mu        sync.Mutex

	// room is guarded by the hub's mutex.
	room *Room
}

// NewClient wraps conn with a fresh player id.
func NewClient(conn Conn, writeWait time.Duration) *Client {
	if writeWait <= 0 {
		writeWait = DefaultConfig().WriteWait
	}
	return &Client{
		ID:        uuid.NewString(),
		conn:      conn,
		writeWait: writeWait,
	}
}

// WriteMessage writes one frame under the connection's write lock.
func (c *Client) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Ping sends a keepalive control frame.
func (c *Client) Ping() error {
	return c.WriteMessage(websocket.PingMessage, nil)
}

func (c *Client) writeText(data []byte) error {
	return c.WriteMessage(websocket.TextMessage, data)
}
