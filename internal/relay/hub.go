package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/net/proto"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
	relaylog "github.com/VasilisChatzivasileiou/forlackofabettername/logging/relay"
)

var (
	ErrInvalidCode   = errors.New("relay: invalid room code")
	ErrRoomFull      = errors.New("relay: room full")
	ErrAlreadyJoined = errors.New("relay: already in a room")
)

const (
	metricRoomsCreated      = "relay_rooms_created_total"
	metricRoomsActive       = "relay_rooms_active"
	metricJoinsRejected     = "relay_joins_rejected_total"
	metricMessagesForwarded = "relay_messages_forwarded_total"
	metricMessagesDropped   = "relay_messages_dropped_total"
	metricDisconnects       = "relay_disconnects_total"
)

// Drop reasons reported on relay.message_dropped.
const (
	DropMalformed   = "malformed"
	DropNotJoined   = "not_joined"
	DropNoPeer      = "no_peer"
	DropUnknownType = "unknown_type"
	DropHostBound   = "host_bound_from_host"
)

// Config tunes connection keepalive and limits.
type Config struct {
	PingInterval    time.Duration `yaml:"pingInterval"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteWait       time.Duration `yaml:"writeWait"`
	MaxMessageBytes int64         `yaml:"maxMessageBytes"`
}

// DefaultConfig returns the keepalive settings used in production.
func DefaultConfig() Config {
	return Config{
		PingInterval:    25 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteWait:       10 * time.Second,
		MaxMessageBytes: 1 << 20,
	}
}

// Normalized fills defaults and keeps the ping interval below the read timeout.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout * 9 / 10
	}
	return cfg
}

// HubDeps are the hub's ambient collaborators. Nil fields are allowed.
type HubDeps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Hub owns every room and routes frames between the two occupants of each.
// The relay never inspects game state beyond the moved flag.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room

	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// HubStats is the diagnostics view of the hub.
type HubStats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
}

// delivery is a frame queued for writing after the hub lock is released.
type delivery struct {
	to   *Client
	data []byte
}

// NewHub constructs an empty hub.
func NewHub(deps HubDeps) *Hub {
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Hub{
		rooms:     make(map[string]*Room),
		logger:    logger,
		metrics:   deps.Metrics,
		publisher: publisher,
	}
}

// Stats reports room and client counts.
func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := HubStats{Rooms: len(h.rooms)}
	for _, room := range h.rooms {
		stats.Clients += room.occupants()
	}
	return stats
}

// Join places c in the room named by code, creating it if unclaimed. The
// response frames are written before Join returns.
func (h *Hub) Join(ctx context.Context, c *Client, code string) error {
	code = NormalizeCode(code)
	outgoing, err := h.join(ctx, c, code)
	h.deliver(ctx, outgoing)
	return err
}

func (h *Hub) join(ctx context.Context, c *Client, code string) ([]delivery, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reject := func(reason string, err error) ([]delivery, error) {
		h.addMetric(metricJoinsRejected)
		relaylog.JoinRejected(ctx, h.publisher, logging.Player(c.ID), relaylog.JoinRejectedPayload{Code: code, Reason: reason})
		return []delivery{h.frame(c, proto.NewJoinRejected(code, reason))}, err
	}

	switch {
	case code == "":
		return reject(proto.ReasonInvalidCode, ErrInvalidCode)
	case c.room != nil:
		return reject(proto.ReasonAlreadyJoined, ErrAlreadyJoined)
	}

	room, ok := h.rooms[code]
	if !ok {
		room = &Room{Code: code, host: c}
		h.rooms[code] = room
		c.room = room
		h.addMetric(metricRoomsCreated)
		h.storeMetric(metricRoomsActive, uint64(len(h.rooms)))
		relaylog.RoomCreated(ctx, h.publisher, logging.Player(c.ID), relaylog.RoomPayload{Code: code, IsHost: true})
		return []delivery{h.frame(c, proto.NewJoinAccepted(code, c.ID, true))}, nil
	}
	if room.full() {
		return reject(proto.ReasonRoomFull, ErrRoomFull)
	}

	// A room whose host left is deleted, so an existing room always has a host.
	room.guest = c
	c.room = room
	relaylog.PeerJoined(ctx, h.publisher, logging.Player(c.ID), relaylog.RoomPayload{Code: code, IsHost: false})
	ready := proto.NewReadyState(true, false)
	return []delivery{
		h.frame(c, proto.NewJoinAccepted(code, c.ID, false)),
		h.frame(room.host, ready),
		h.frame(c, ready),
	}, nil
}

// HandleMessage routes one inbound frame from c.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, payload []byte) {
	env, err := proto.DecodeEnvelope(payload)
	if err != nil {
		h.drop(ctx, c, "", DropMalformed)
		h.logger.Printf("[relay] discarding malformed frame from %s: %v", c.ID, err)
		return
	}
	if env.Type == proto.TypeJoin {
		join, err := proto.Decode[proto.Join](payload)
		if err != nil {
			h.drop(ctx, c, env.Type, DropMalformed)
			return
		}
		if err := h.Join(ctx, c, join.Code); err != nil {
			h.logger.Printf("[relay] join %q from %s rejected: %v", join.Code, c.ID, err)
		}
		return
	}
	outgoing := h.route(ctx, c, env.Type, payload)
	h.deliver(ctx, outgoing)
}

func (h *Hub) route(ctx context.Context, c *Client, msgType string, payload []byte) []delivery {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := c.room
	if room == nil {
		h.drop(ctx, c, msgType, DropNotJoined)
		return nil
	}

	switch msgType {
	case proto.TypePlayerUpdate:
		var outgoing []delivery
		if peer := room.other(c); peer != nil {
			outgoing = append(outgoing, delivery{to: peer, data: payload})
		} else {
			h.drop(ctx, c, msgType, DropNoPeer)
		}
		if update, err := proto.Decode[proto.PlayerUpdate](payload); err == nil && update.HasMovedBefore {
			if room.markMoved(c) {
				relaylog.BothReady(ctx, h.publisher, logging.Room(room.Code))
				ready := proto.NewReadyState(true, true)
				outgoing = append(outgoing, h.frame(room.host, ready), h.frame(room.guest, ready))
			}
		}
		return outgoing
	case proto.TypePlatformUpdate, proto.TypeRopeUpdate, proto.TypePlatformTimer, proto.TypeInitialState:
		peer := room.other(c)
		if peer == nil {
			h.drop(ctx, c, msgType, DropNoPeer)
			return nil
		}
		return []delivery{{to: peer, data: payload}}
	case proto.TypeRequestNewPlatforms, proto.TypeRequestInitialState, proto.TypePlatformContact:
		if room.isHost(c) {
			h.drop(ctx, c, msgType, DropHostBound)
			return nil
		}
		return []delivery{{to: room.host, data: payload}}
	default:
		h.drop(ctx, c, msgType, DropUnknownType)
		return nil
	}
}

// Disconnect removes c. The remaining occupant is told and the room is
// deleted.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	h.mu.Lock()
	room := c.room
	if room == nil {
		h.mu.Unlock()
		return
	}
	c.room = nil
	peer := room.other(c)
	if peer != nil {
		peer.room = nil
	}
	delete(h.rooms, room.Code)
	h.addMetric(metricDisconnects)
	h.storeMetric(metricRoomsActive, uint64(len(h.rooms)))
	var outgoing []delivery
	if peer != nil {
		outgoing = append(outgoing, h.frame(peer, proto.NewPlayerDisconnect()))
	}
	h.mu.Unlock()

	relaylog.PeerDisconnected(ctx, h.publisher, logging.Player(c.ID), relaylog.DisconnectPayload{
		Code:         room.Code,
		PeerNotified: peer != nil,
	})
	h.deliver(ctx, outgoing)
}

func (h *Hub) deliver(ctx context.Context, outgoing []delivery) {
	for _, d := range outgoing {
		if d.to == nil || d.data == nil {
			continue
		}
		if err := d.to.writeText(d.data); err != nil {
			h.logger.Printf("[relay] failed to send to %s: %v", d.to.ID, err)
			continue
		}
		h.addMetric(metricMessagesForwarded)
	}
}

// frame encodes msg for c. A failed encode yields an empty delivery.
func (h *Hub) frame(c *Client, msg any) delivery {
	data, err := proto.Encode(msg)
	if err != nil {
		h.logger.Printf("[relay] %v", fmt.Errorf("encode for %s: %w", c.ID, err))
		return delivery{}
	}
	return delivery{to: c, data: data}
}

func (h *Hub) drop(ctx context.Context, c *Client, msgType, reason string) {
	h.addMetric(metricMessagesDropped)
	relaylog.MessageDropped(ctx, h.publisher, logging.Player(c.ID), relaylog.DroppedPayload{MessageType: msgType, Reason: reason})
}

func (h *Hub) addMetric(key string) {
	if h.metrics != nil {
		h.metrics.Add(key, 1)
	}
}

func (h *Hub) storeMetric(key string, value uint64) {
	if h.metrics != nil {
		h.metrics.Store(key, value)
	}
}
