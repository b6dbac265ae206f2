package relay

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
)

// HandlerConfig configures the websocket endpoint.
type HandlerConfig struct {
	Logger telemetry.Logger
	Relay  Config
}

// Handler upgrades HTTP requests and pumps frames into the hub.
type Handler struct {
	hub      *Hub
	cfg      Config
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the /ws endpoint for hub.
func NewHandler(hub *Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Handler{
		hub:    hub,
		cfg:    cfg.Relay.Normalized(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[relay] upgrade failed: %v", err)
		return
	}
	client := NewClient(conn, h.cfg.WriteWait)
	ctx := context.WithoutCancel(r.Context())

	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	done := make(chan struct{})
	go h.keepalive(client, done)

	defer func() {
		close(done)
		h.hub.Disconnect(ctx, client)
		conn.Close()
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("[relay] read from %s: %v", client.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		h.hub.HandleMessage(ctx, client, payload)
	}
}

func (h *Handler) keepalive(client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
