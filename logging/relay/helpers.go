package relay

import (
	"context"

	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

const (
	// EventRoomCreated is emitted when a join claims an unused code.
	EventRoomCreated logging.EventType = "relay.room_created"
	// EventPeerJoined is emitted when a guest fills the second slot of a room.
	EventPeerJoined logging.EventType = "relay.peer_joined"
	// EventJoinRejected is emitted when a join cannot be honoured.
	EventJoinRejected logging.EventType = "relay.join_rejected"
	// EventBothReady is emitted once both occupants have started moving.
	EventBothReady logging.EventType = "relay.both_ready"
	// EventPeerDisconnected is emitted when an occupant's connection drops.
	EventPeerDisconnected logging.EventType = "relay.peer_disconnected"
	// EventMessageDropped is emitted when an inbound frame is not forwarded.
	EventMessageDropped logging.EventType = "relay.message_dropped"
)

// RoomPayload identifies the room and the role of the actor in it.
type RoomPayload struct {
	Code   string `json:"code"`
	IsHost bool   `json:"isHost"`
}

// JoinRejectedPayload captures why a join failed.
type JoinRejectedPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// DisconnectPayload captures the room torn down by a disconnect.
type DisconnectPayload struct {
	Code         string `json:"code"`
	PeerNotified bool   `json:"peerNotified"`
}

// DroppedPayload captures a frame the relay refused to forward.
type DroppedPayload struct {
	MessageType string `json:"messageType"`
	Reason      string `json:"reason"`
}

func RoomCreated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoomPayload) {
	publish(ctx, pub, EventRoomCreated, logging.SeverityInfo, actor, payload)
}

func PeerJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RoomPayload) {
	publish(ctx, pub, EventPeerJoined, logging.SeverityInfo, actor, payload)
}

func JoinRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload JoinRejectedPayload) {
	publish(ctx, pub, EventJoinRejected, logging.SeverityWarn, actor, payload)
}

func BothReady(ctx context.Context, pub logging.Publisher, room logging.EntityRef) {
	publish(ctx, pub, EventBothReady, logging.SeverityInfo, room, nil)
}

func PeerDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DisconnectPayload) {
	publish(ctx, pub, EventPeerDisconnected, logging.SeverityInfo, actor, payload)
}

func MessageDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DroppedPayload) {
	publish(ctx, pub, EventMessageDropped, logging.SeverityDebug, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: "relay",
		Payload:  payload,
	})
}
