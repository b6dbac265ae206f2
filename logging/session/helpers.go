package session

import (
	"context"

	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

const (
	// EventStateChanged is emitted on every connection state transition.
	EventStateChanged logging.EventType = "session.state_changed"
	// EventStalePlatformUpdate is emitted when a platform update does not advance the world.
	EventStalePlatformUpdate logging.EventType = "session.stale_platform_update"
	// EventUnknownMessage is emitted for frames with an unrecognised type.
	EventUnknownMessage logging.EventType = "session.unknown_message"
	// EventNotice is emitted alongside every user-facing notice.
	EventNotice logging.EventType = "session.notice"
)

// StateChangedPayload captures a state machine transition.
type StateChangedPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	IsHost bool   `json:"isHost"`
}

// StalePayload compares the rejected elevation with the local one.
type StalePayload struct {
	Incoming float64 `json:"incoming"`
	Local    float64 `json:"local"`
}

// UnknownPayload names the ignored message type.
type UnknownPayload struct {
	MessageType string `json:"messageType"`
}

// NoticePayload mirrors the text shown to the player.
type NoticePayload struct {
	Message string `json:"message"`
}

func StateChanged(ctx context.Context, pub logging.Publisher, frame uint64, actor logging.EntityRef, payload StateChangedPayload) {
	publish(ctx, pub, EventStateChanged, logging.SeverityInfo, frame, actor, payload)
}

func StalePlatformUpdate(ctx context.Context, pub logging.Publisher, frame uint64, actor logging.EntityRef, payload StalePayload) {
	publish(ctx, pub, EventStalePlatformUpdate, logging.SeverityDebug, frame, actor, payload)
}

func UnknownMessage(ctx context.Context, pub logging.Publisher, frame uint64, actor logging.EntityRef, payload UnknownPayload) {
	publish(ctx, pub, EventUnknownMessage, logging.SeverityWarn, frame, actor, payload)
}

func Notice(ctx context.Context, pub logging.Publisher, frame uint64, actor logging.EntityRef, payload NoticePayload) {
	publish(ctx, pub, EventNotice, logging.SeverityWarn, frame, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, frame uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Frame:    frame,
		Actor:    actor,
		Severity: severity,
		Category: "session",
		Payload:  payload,
	})
}
