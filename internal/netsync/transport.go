package netsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/net/proto"
)

// ErrNotConnected is returned when sending without an open transport.
var ErrNotConnected = errors.New("netsync: not connected")

// Receiver consumes frames on the transport's goroutine.
type Receiver interface {
	Receive(payload []byte)
	Closed(err error)
}

// Transport is an open connection to the relay.
type Transport interface {
	Send(ctx context.Context, msg any) error
	Close() error
}

// Dialer opens a Transport that feeds recv until it closes.
type Dialer interface {
	Dial(ctx context.Context, url string, recv Receiver) (Transport, error)
}

const (
	defaultWriteWait       = 10 * time.Second
	defaultMaxMessageBytes = 1 << 20
)

// WSDialer connects to the relay over gorilla/websocket.
type WSDialer struct {
	Dialer          *websocket.Dialer
	WriteWait       time.Duration
	MaxMessageBytes int64
}

// Dial connects and starts the read loop.
func (d WSDialer) Dial(ctx context.Context, url string, recv Receiver) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	limit := d.MaxMessageBytes
	if limit <= 0 {
		limit = defaultMaxMessageBytes
	}
	conn.SetReadLimit(limit)

	writeWait := d.WriteWait
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	transport := &WSTransport{conn: conn, writeWait: writeWait}
	go transport.readLoop(recv)
	return transport, nil
}

// WSTransport serialises writes to one websocket connection.
type WSTransport struct {
	conn      *websocket.Conn
	writeWait time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Send encodes msg as a JSON text frame.
func (t *WSTransport) Send(ctx context.Context, msg any) error {
	data, err := proto.Encode(msg)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(t.writeWait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a close frame and tears down the connection.
func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.mu.Unlock()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *WSTransport) readLoop(recv Receiver) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			recv.Closed(err)
			return
		}
		recv.Receive(data)
	}
}
