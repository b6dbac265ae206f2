package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
)

// ReferenceWidth is the viewport width every horizontal wire coordinate is
// expressed in.
const ReferenceWidth = 800.0

// Message type identifiers.
const (
	TypeJoin                = "join"
	TypeReadyState          = "readyState"
	TypePlayerUpdate        = "playerUpdate"
	TypePlatformUpdate      = "platformUpdate"
	TypeRequestNewPlatforms = "requestNewPlatforms"
	TypePlatformTimer       = "platformTimer"
	TypeRopeUpdate          = "ropeUpdate"
	TypePlayerDisconnect    = "playerDisconnect"
	TypeRequestInitialState = "requestInitialState"
	TypeInitialState        = "initialState"
	TypePlatformContact     = "platformContact"
)

// Rope actions.
const (
	RopeCreate  = "create"
	RopeRelease = "release"
)

// Join rejection reasons.
const (
	ReasonInvalidCode   = "invalid_code"
	ReasonRoomFull      = "room_full"
	ReasonAlreadyJoined = "already_joined"
)

// ErrMissingType is returned for frames without a type field.
var ErrMissingType = errors.New("proto: message has no type")

// Envelope peeks the type of an inbound frame.
type Envelope struct {
	Type string `json:"type"`
}

// Join claims or joins a room.
type Join struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// JoinResult answers a join.
type JoinResult struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	IsHost   bool   `json:"isHost"`
	PlayerID string `json:"playerId,omitempty"`
	Code     string `json:"code,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ReadyState reports pairing and whether both peers have moved.
type ReadyState struct {
	Type             string `json:"type"`
	Paired           bool   `json:"paired"`
	BothPlayersReady bool   `json:"bothPlayersReady"`
}

// PlayerUpdate carries one avatar's pose in reference-width coordinates.
type PlayerUpdate struct {
	Type           string  `json:"type"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	VelocityX      float64 `json:"velocityX"`
	VelocityY      float64 `json:"velocityY"`
	HasMovedBefore bool    `json:"hasMovedBefore"`
	IsHooked       bool    `json:"isHooked,omitempty"`
	HookX          float64 `json:"hookX,omitempty"`
	HookY          float64 `json:"hookY,omitempty"`
	RopeLength     float64 `json:"ropeLength,omitempty"`
}

// WirePlatform is a platform as exchanged between peers. Reward flags stay local.
type WirePlatform struct {
	ID        uint64  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Kind      string  `json:"kind"`
	Started   bool    `json:"started,omitempty"`
	Countdown float64 `json:"countdown,omitempty"`
}

// PlatformUpdate is the host's authoritative platform set.
type PlatformUpdate struct {
	Type            string         `json:"type"`
	Platforms       []WirePlatform `json:"platforms"`
	HighestPlatform float64        `json:"highestPlatform"`
	Generated       bool           `json:"generated,omitempty"`
	StandardWidth   float64        `json:"standardWidth,omitempty"`
}

// RequestNewPlatforms asks the host to generate up to HighestPlatform.
type RequestNewPlatforms struct {
	Type            string  `json:"type"`
	HighestPlatform float64 `json:"highestPlatform"`
	Generated       bool    `json:"generated"`
}

// PlatformTimer syncs a collapse countdown.
type PlatformTimer struct {
	Type       string  `json:"type"`
	PlatformID uint64  `json:"platformId"`
	PlatformX  float64 `json:"platformX"`
	PlatformY  float64 `json:"platformY"`
	// Timer is the seconds elapsed since the countdown started.
	Timer     float64 `json:"timer"`
	Countdown float64 `json:"countdown"`
}

// RopeUpdate mirrors a rope attach or release.
type RopeUpdate struct {
	Type       string  `json:"type"`
	Action     string  `json:"action"`
	HookX      float64 `json:"hookX,omitempty"`
	HookY      float64 `json:"hookY,omitempty"`
	RopeLength float64 `json:"ropeLength,omitempty"`
}

// PlayerDisconnect tells the remaining occupant its peer left.
type PlayerDisconnect struct {
	Type string `json:"type"`
}

// RequestInitialState is sent by a freshly joined guest.
type RequestInitialState struct {
	Type        string  `json:"type"`
	ScreenWidth float64 `json:"screenWidth,omitempty"`
}

// InitialState is the host's answer to RequestInitialState.
type InitialState struct {
	Type            string         `json:"type"`
	Platforms       []WirePlatform `json:"platforms"`
	HighestPlatform float64        `json:"highestPlatform"`
	StandardWidth   float64        `json:"standardWidth"`
}

// PlatformContact reports a guest's first touch of a collapsing platform.
type PlatformContact struct {
	Type       string `json:"type"`
	PlatformID uint64 `json:"platformId"`
}

// DecodeEnvelope extracts the type of a raw frame.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// Decode unmarshals a frame body into T.
func Decode[T any](payload []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("decode %T: %w", msg, err)
	}
	return msg, nil
}

// Encode marshals an outbound message.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	return data, nil
}

// NewJoinAccepted builds a successful join answer.
func NewJoinAccepted(code, playerID string, isHost bool) JoinResult {
	return JoinResult{Type: TypeJoin, Success: true, IsHost: isHost, PlayerID: playerID, Code: code}
}

// NewJoinRejected builds a refused join answer.
func NewJoinRejected(code, reason string) JoinResult {
	return JoinResult{Type: TypeJoin, Code: code, Reason: reason}
}

// NewReadyState builds a ready-state notice.
func NewReadyState(paired, bothReady bool) ReadyState {
	return ReadyState{Type: TypeReadyState, Paired: paired, BothPlayersReady: bothReady}
}

// NewPlayerDisconnect builds a disconnect notice.
func NewPlayerDisconnect() PlayerDisconnect {
	return PlayerDisconnect{Type: TypePlayerDisconnect}
}

// Messages lists one zero value of every message, keyed by type, for schema generation.
func Messages() map[string][]any {
	return map[string][]any{
		TypeJoin:                {Join{}, JoinResult{}},
		TypeReadyState:          {ReadyState{}},
		TypePlayerUpdate:        {PlayerUpdate{}},
		TypePlatformUpdate:      {PlatformUpdate{}},
		TypeRequestNewPlatforms: {RequestNewPlatforms{}},
		TypePlatformTimer:       {PlatformTimer{}},
		TypeRopeUpdate:          {RopeUpdate{}},
		TypePlayerDisconnect:    {PlayerDisconnect{}},
		TypeRequestInitialState: {RequestInitialState{}},
		TypeInitialState:        {InitialState{}},
		TypePlatformContact:     {PlatformContact{}},
	}
}

// Scale converts horizontal coordinates between a local viewport and the
// reference width. Vertical coordinates are never scaled.
type Scale struct {
	LocalWidth float64
}

func (s Scale) ratio() float64 {
	if s.LocalWidth <= 0 {
		return 1
	}
	return ReferenceWidth / s.LocalWidth
}

// ToWire converts a local horizontal value to reference width.
func (s Scale) ToWire(x float64) float64 {
	return x * s.ratio()
}

// FromWire converts a reference-width horizontal value to the local viewport.
func (s Scale) FromWire(x float64) float64 {
	return x / s.ratio()
}

// EncodePlayer builds a playerUpdate from the local avatar.
func (s Scale) EncodePlayer(a sim.Avatar, hasMoved bool) PlayerUpdate {
	msg := PlayerUpdate{
		Type:           TypePlayerUpdate,
		X:              s.ToWire(a.X),
		Y:              a.Y,
		VelocityX:      s.ToWire(a.VX),
		VelocityY:      a.VY,
		HasMovedBefore: hasMoved,
	}
	if a.Hook != nil {
		msg.IsHooked = true
		msg.HookX = s.ToWire(a.Hook.AnchorX)
		msg.HookY = a.Hook.AnchorY
		msg.RopeLength = a.Hook.RopeLength
	}
	return msg
}

// DecodePlayer converts a playerUpdate into a mirror.
func (s Scale) DecodePlayer(msg PlayerUpdate) sim.Mirror {
	m := sim.Mirror{
		X:        s.FromWire(msg.X),
		Y:        msg.Y,
		VX:       s.FromWire(msg.VelocityX),
		VY:       msg.VelocityY,
		HasMoved: msg.HasMovedBefore,
	}
	if msg.IsHooked {
		m.Hook = &sim.HookState{
			AnchorX:    s.FromWire(msg.HookX),
			AnchorY:    msg.HookY,
			RopeLength: msg.RopeLength,
		}
	}
	return m
}

// EncodeRope builds a ropeUpdate. A nil hook is a release.
func (s Scale) EncodeRope(hook *sim.HookState) RopeUpdate {
	if hook == nil {
		return RopeUpdate{Type: TypeRopeUpdate, Action: RopeRelease}
	}
	return RopeUpdate{
		Type:       TypeRopeUpdate,
		Action:     RopeCreate,
		HookX:      s.ToWire(hook.AnchorX),
		HookY:      hook.AnchorY,
		RopeLength: hook.RopeLength,
	}
}

// DecodeRope converts a ropeUpdate into the mirror's hook. Release yields nil.
func (s Scale) DecodeRope(msg RopeUpdate) *sim.HookState {
	if msg.Action != RopeCreate {
		return nil
	}
	return &sim.HookState{
		AnchorX:    s.FromWire(msg.HookX),
		AnchorY:    msg.HookY,
		RopeLength: msg.RopeLength,
	}
}

// EncodePlatforms converts the local platform set for the wire.
func (s Scale) EncodePlatforms(platforms []sim.Platform) []WirePlatform {
	out := make([]WirePlatform, 0, len(platforms))
	for _, p := range platforms {
		wire := WirePlatform{
			ID:     p.ID,
			X:      s.ToWire(p.X),
			Y:      p.Y,
			Width:  p.Width,
			Height: p.Height,
			Kind:   p.Kind.String(),
		}
		if p.Collapse != nil && p.Collapse.Started {
			wire.Started = true
			wire.Countdown = p.Collapse.Countdown
		}
		out = append(out, wire)
	}
	return out
}

// DecodePlatforms converts wire platforms to local ones, skipping unknown kinds.
func (s Scale) DecodePlatforms(wire []WirePlatform) []sim.Platform {
	out := make([]sim.Platform, 0, len(wire))
	for _, w := range wire {
		kind, ok := sim.ParsePlatformKind(w.Kind)
		if !ok {
			continue
		}
		p := sim.NewPlatform(w.ID, kind, s.FromWire(w.X), w.Y)
		if w.Width > 0 {
			p.Width = w.Width
		}
		if w.Height > 0 {
			p.Height = w.Height
		}
		if p.Collapse != nil && w.Started {
			p.Collapse.Started = true
			p.Collapse.Countdown = w.Countdown
		}
		out = append(out, p)
	}
	return out
}

// NewPlatformUpdate builds the host's platform broadcast.
func (s Scale) NewPlatformUpdate(platforms []sim.Platform, highest float64, generated bool) PlatformUpdate {
	return PlatformUpdate{
		Type:            TypePlatformUpdate,
		Platforms:       s.EncodePlatforms(platforms),
		HighestPlatform: highest,
		Generated:       generated,
		StandardWidth:   ReferenceWidth,
	}
}

// NewInitialState builds the host's answer to a joining guest.
func (s Scale) NewInitialState(platforms []sim.Platform, highest float64) InitialState {
	return InitialState{
		Type:            TypeInitialState,
		Platforms:       s.EncodePlatforms(platforms),
		HighestPlatform: highest,
		StandardWidth:   ReferenceWidth,
	}
}

// NewPlatformTimer builds a countdown sync for p.
func (s Scale) NewPlatformTimer(p sim.Platform, countdown float64) PlatformTimer {
	return PlatformTimer{
		Type:       TypePlatformTimer,
		PlatformID: p.ID,
		PlatformX:  s.ToWire(p.X),
		PlatformY:  p.Y,
		Timer:      sim.CollapseSeconds - countdown,
		Countdown:  countdown,
	}
}
