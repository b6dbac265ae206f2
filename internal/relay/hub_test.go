package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/net/proto"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
	relaylog "github.com/VasilisChatzivasileiou/forlackofabettername/logging/relay"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging/sinks"
)

type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) take() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.frames
	c.frames = nil
	return frames
}

func (c *recordingConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, frame := range c.take() {
		env, err := proto.DecodeEnvelope(frame)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, env.Type)
	}
	return out
}

type hubHarness struct {
	hub     *Hub
	events  *sinks.Memory
	metrics *logging.Metrics
}

func newHubHarness() *hubHarness {
	events := sinks.NewMemory()
	metrics := &logging.Metrics{}
	hub := NewHub(HubDeps{Metrics: telemetry.WrapMetrics(metrics), Publisher: events})
	return &hubHarness{hub: hub, events: events, metrics: metrics}
}

func newTestClient() (*Client, *recordingConn) {
	conn := &recordingConn{}
	return NewClient(conn, time.Second), conn
}

func decodeJoin(t *testing.T, frame []byte) proto.JoinResult {
	t.Helper()
	result, err := proto.Decode[proto.JoinResult](frame)
	if err != nil {
		t.Fatalf("decode join: %v", err)
	}
	return result
}

func mustEncode(t *testing.T, msg any) []byte {
	t.Helper()
	data, err := proto.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func pair(t *testing.T, h *hubHarness) (*Client, *recordingConn, *Client, *recordingConn) {
	t.Helper()
	ctx := context.Background()
	host, hostConn := newTestClient()
	guest, guestConn := newTestClient()
	if err := h.hub.Join(ctx, host, "room"); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if err := h.hub.Join(ctx, guest, "ROOM"); err != nil {
		t.Fatalf("guest join: %v", err)
	}
	hostConn.take()
	guestConn.take()
	return host, hostConn, guest, guestConn
}

func TestJoinAssignsHostThenGuest(t *testing.T) {
	h := newHubHarness()
	ctx := context.Background()
	host, hostConn := newTestClient()
	guest, guestConn := newTestClient()

	if err := h.hub.Join(ctx, host, " abcd "); err != nil {
		t.Fatalf("host join: %v", err)
	}
	frames := hostConn.take()
	if len(frames) != 1 {
		t.Fatalf("expected one frame for host, got %d", len(frames))
	}
	result := decodeJoin(t, frames[0])
	if !result.Success || !result.IsHost || result.PlayerID != host.ID || result.Code != "ABCD" {
		t.Fatalf("unexpected host join result %+v", result)
	}

	if err := h.hub.Join(ctx, guest, "abcd"); err != nil {
		t.Fatalf("guest join: %v", err)
	}
	guestFrames := guestConn.take()
	if len(guestFrames) != 2 {
		t.Fatalf("expected join and readyState for guest, got %d", len(guestFrames))
	}
	result = decodeJoin(t, guestFrames[0])
	if !result.Success || result.IsHost {
		t.Fatalf("unexpected guest join result %+v", result)
	}
	ready, err := proto.Decode[proto.ReadyState](guestFrames[1])
	if err != nil || !ready.Paired || ready.BothPlayersReady {
		t.Fatalf("expected paired readyState, got %+v (%v)", ready, err)
	}
	if got := hostConn.types(t); len(got) != 1 || got[0] != proto.TypeReadyState {
		t.Fatalf("expected host readyState, got %v", got)
	}
	if stats := h.hub.Stats(); stats.Rooms != 1 || stats.Clients != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(h.events.OfType(relaylog.EventRoomCreated)) != 1 || len(h.events.OfType(relaylog.EventPeerJoined)) != 1 {
		t.Fatalf("expected room created and peer joined events")
	}
}

func TestJoinRejections(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(t *testing.T, h *hubHarness) *Client
		code   string
		err    error
		reason string
	}{
		{
			name:   "empty code",
			setup:  func(*testing.T, *hubHarness) *Client { c, _ := newTestClient(); return c },
			code:   "   ",
			err:    ErrInvalidCode,
			reason: proto.ReasonInvalidCode,
		},
		{
			name: "room full",
			setup: func(t *testing.T, h *hubHarness) *Client {
				pair(t, h)
				c, _ := newTestClient()
				return c
			},
			code:   "room",
			err:    ErrRoomFull,
			reason: proto.ReasonRoomFull,
		},
		{
			name: "already joined",
			setup: func(t *testing.T, h *hubHarness) *Client {
				c, _ := newTestClient()
				if err := h.hub.Join(context.Background(), c, "first"); err != nil {
					t.Fatalf("join: %v", err)
				}
				return c
			},
			code:   "second",
			err:    ErrAlreadyJoined,
			reason: proto.ReasonAlreadyJoined,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHubHarness()
			c := tc.setup(t, h)
			conn := c.conn.(*recordingConn)
			conn.take()
			err := h.hub.Join(context.Background(), c, tc.code)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			frames := conn.take()
			if len(frames) != 1 {
				t.Fatalf("expected one rejection frame, got %d", len(frames))
			}
			result := decodeJoin(t, frames[0])
			if result.Success || result.Reason != tc.reason {
				t.Fatalf("unexpected rejection %+v", result)
			}
			if h.metrics.Snapshot()[metricJoinsRejected] != 1 {
				t.Fatalf("expected rejection metric")
			}
		})
	}
}

func TestJoinRejectionEncodesSuccessFalse(t *testing.T) {
	h := newHubHarness()
	c, conn := newTestClient()
	_ = h.hub.Join(context.Background(), c, "")
	var raw map[string]any
	if err := json.Unmarshal(conn.take()[0], &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if success, ok := raw["success"].(bool); !ok || success {
		t.Fatalf("expected explicit success=false, got %v", raw["success"])
	}
}

func TestForwardingRules(t *testing.T) {
	h := newHubHarness()
	ctx := context.Background()
	host, hostConn, guest, guestConn := pair(t, h)

	for _, msgType := range []string{proto.TypePlatformUpdate, proto.TypeRopeUpdate, proto.TypePlatformTimer, proto.TypeInitialState} {
		frame := []byte(`{"type":"` + msgType + `"}`)
		h.hub.HandleMessage(ctx, host, frame)
		if got := guestConn.take(); len(got) != 1 || string(got[0]) != string(frame) {
			t.Fatalf("expected %s forwarded verbatim to guest, got %q", msgType, got)
		}
		h.hub.HandleMessage(ctx, guest, frame)
		if got := hostConn.take(); len(got) != 1 {
			t.Fatalf("expected %s forwarded to host", msgType)
		}
	}

	for _, msgType := range []string{proto.TypeRequestNewPlatforms, proto.TypeRequestInitialState, proto.TypePlatformContact} {
		frame := []byte(`{"type":"` + msgType + `"}`)
		h.hub.HandleMessage(ctx, guest, frame)
		if got := hostConn.take(); len(got) != 1 {
			t.Fatalf("expected %s forwarded to host", msgType)
		}
		h.hub.HandleMessage(ctx, host, frame)
		if got := guestConn.take(); len(got) != 0 {
			t.Fatalf("expected %s from host dropped, got %d frames", msgType, len(got))
		}
	}

	h.hub.HandleMessage(ctx, host, []byte(`{"type":"teleport"}`))
	h.hub.HandleMessage(ctx, host, []byte(`garbage`))
	if got := guestConn.take(); len(got) != 0 {
		t.Fatalf("expected unknown frames dropped")
	}
	if len(h.events.OfType(relaylog.EventMessageDropped)) != 5 {
		t.Fatalf("expected 5 drop events, got %d", len(h.events.OfType(relaylog.EventMessageDropped)))
	}
}

func TestFramesBeforeJoinAreDropped(t *testing.T) {
	h := newHubHarness()
	c, conn := newTestClient()
	h.hub.HandleMessage(context.Background(), c, []byte(`{"type":"playerUpdate","x":1}`))
	if len(conn.take()) != 0 {
		t.Fatalf("expected no response")
	}
	if h.metrics.Snapshot()[metricMessagesDropped] != 1 {
		t.Fatalf("expected drop metric")
	}
}

func TestBothReadySentOnce(t *testing.T) {
	h := newHubHarness()
	ctx := context.Background()
	host, hostConn, guest, guestConn := pair(t, h)
	moved := mustEncode(t, proto.PlayerUpdate{Type: proto.TypePlayerUpdate, HasMovedBefore: true})
	still := mustEncode(t, proto.PlayerUpdate{Type: proto.TypePlayerUpdate})

	h.hub.HandleMessage(ctx, host, still)
	h.hub.HandleMessage(ctx, host, moved)
	if got := guestConn.types(t); len(got) != 2 || got[0] != proto.TypePlayerUpdate || got[1] != proto.TypePlayerUpdate {
		t.Fatalf("expected two forwarded updates before guest moves, got %v", got)
	}

	h.hub.HandleMessage(ctx, guest, moved)
	hostTypes := hostConn.types(t)
	guestTypes := guestConn.types(t)
	if len(hostTypes) != 2 || hostTypes[1] != proto.TypeReadyState {
		t.Fatalf("expected forwarded update then readyState for host, got %v", hostTypes)
	}
	if len(guestTypes) != 1 || guestTypes[0] != proto.TypeReadyState {
		t.Fatalf("expected readyState for guest, got %v", guestTypes)
	}

	h.hub.HandleMessage(ctx, guest, moved)
	h.hub.HandleMessage(ctx, host, moved)
	for _, typ := range append(hostConn.types(t), guestConn.types(t)...) {
		if typ == proto.TypeReadyState {
			t.Fatalf("expected bothPlayersReady only once")
		}
	}
	if len(h.events.OfType(relaylog.EventBothReady)) != 1 {
		t.Fatalf("expected one both-ready event")
	}
}

func TestDisconnectNotifiesPeerAndDeletesRoom(t *testing.T) {
	h := newHubHarness()
	ctx := context.Background()
	host, _, guest, guestConn := pair(t, h)

	h.hub.Disconnect(ctx, host)
	if got := guestConn.types(t); len(got) != 1 || got[0] != proto.TypePlayerDisconnect {
		t.Fatalf("expected playerDisconnect, got %v", got)
	}
	if stats := h.hub.Stats(); stats.Rooms != 0 {
		t.Fatalf("expected room deleted, got %+v", stats)
	}

	// The remaining peer may claim the code again as host.
	if err := h.hub.Join(ctx, guest, "room"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	result := decodeJoin(t, guestConn.take()[0])
	if !result.IsHost {
		t.Fatalf("expected rejoining peer to host")
	}

	h.hub.Disconnect(ctx, guest)
	h.hub.Disconnect(ctx, guest)
	if h.metrics.Snapshot()[metricDisconnects] != 2 {
		t.Fatalf("expected disconnect counted once per room, got %d", h.metrics.Snapshot()[metricDisconnects])
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{PingInterval: time.Minute, ReadTimeout: 30 * time.Second}.Normalized()
	if cfg.PingInterval >= cfg.ReadTimeout {
		t.Fatalf("expected ping interval below read timeout, got %s >= %s", cfg.PingInterval, cfg.ReadTimeout)
	}
	if cfg.WriteWait != DefaultConfig().WriteWait || cfg.MaxMessageBytes != DefaultConfig().MaxMessageBytes {
		t.Fatalf("expected defaults filled, got %+v", cfg)
	}
}
