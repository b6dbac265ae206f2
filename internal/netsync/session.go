package netsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/net/proto"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
	sessionlog "github.com/VasilisChatzivasileiou/forlackofabettername/logging/session"
)

// State is the connection state machine.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StatePairedWaiting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePairedWaiting:
		return "paired_waiting"
	case StateActive:
		return "active"
	default:
		return "disconnected"
	}
}

// Notices shown to the player.
const (
	NoticeConnectFailed    = "Failed to connect to game server. Please try again later."
	NoticePeerDisconnected = "Other player disconnected"
	NoticeConnectionLost   = "Disconnected from server"
)

const (
	metricFramesMalformed  = "netsync_frames_malformed_total"
	metricFramesDropped    = "netsync_frames_dropped_total"
	metricFramesUnknown    = "netsync_frames_unknown_total"
	metricPlatformsStale   = "netsync_platform_updates_stale_total"
	metricPlatformsApplied = "netsync_platform_updates_applied_total"
	metricHostIgnored      = "netsync_host_ignored_total"
	metricFramesStale      = "netsync_frames_stale_total"
	metricSendFailures     = "netsync_send_failures_total"
)

// Config tunes outbound cadence and the inbound queue.
type Config struct {
	PlayerUpdateEvery   int `yaml:"playerUpdateEvery"`
	PlatformUpdateEvery int `yaml:"platformUpdateEvery"`
	QueueCapacity       int `yaml:"queueCapacity"`
}

// DefaultConfig sends the avatar every frame and the platform set twice a second.
func DefaultConfig() Config {
	return Config{
		PlayerUpdateEvery:   1,
		PlatformUpdateEvery: 30,
		QueueCapacity:       256,
	}
}

// Normalized fills defaults for non-positive fields.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	if cfg.PlayerUpdateEvery <= 0 {
		cfg.PlayerUpdateEvery = defaults.PlayerUpdateEvery
	}
	if cfg.PlatformUpdateEvery <= 0 {
		cfg.PlatformUpdateEvery = defaults.PlatformUpdateEvery
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaults.QueueCapacity
	}
	return cfg
}

// Deps are the session's ambient collaborators. Nil fields are allowed.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Session bridges one local world to the relay. World mutations happen only
// inside Drain and Publish, both called from the frame loop; the transport
// goroutine only pushes frames into the inbound queue.
//
// Every dial and every return to single-player starts a new connection
// generation. Frames and close callbacks tagged with an older generation are
// discarded, so a transport that is still winding down cannot touch the world
// or tear down its successor.
type Session struct {
	cfg       Config
	world     *sim.World
	scale     proto.Scale
	queue     *InboundQueue
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	mu        sync.Mutex
	state     State
	transport Transport
	isHost    bool
	playerID  string
	code      string
	bothReady bool
	notices   []string

	hasMoved atomic.Bool
	conn     atomic.Uint64
	lost     atomic.Uint64
}

// link is the Receiver handed to one transport.
type link struct {
	session *Session
	conn    uint64
}

func (l *link) Receive(payload []byte) { l.session.receive(l.conn, payload) }

func (l *link) Closed(err error) { l.session.closedConn(l.conn, err) }

// NewSession wires a session to world.
func NewSession(world *sim.World, cfg Config, deps Deps) *Session {
	cfg = cfg.Normalized()
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Session{
		cfg:       cfg,
		world:     world,
		scale:     proto.Scale{LocalWidth: world.Config().ViewWidth},
		queue:     NewInboundQueue(cfg.QueueCapacity, deps.Metrics),
		logger:    logger,
		metrics:   deps.Metrics,
		publisher: publisher,
	}
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsHost reports whether this peer holds the host role.
func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHost
}

// PlayerID is the relay-assigned id, empty until joined.
func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// BothReady reports the relay's readiness gate.
func (s *Session) BothReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bothReady
}

// Notices drains pending user-facing notices.
func (s *Session) Notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := s.notices
	s.notices = nil
	return notices
}

// Connect dials the relay. A failure produces one notice and leaves the
// session disconnected; there is no automatic retry.
func (s *Session) Connect(ctx context.Context, dialer Dialer, url string) error {
	if dialer == nil {
		return errors.New("netsync: nil dialer")
	}
	s.closeTransport()
	conn := s.nextConn()
	s.setState(ctx, StateConnecting)

	transport, err := dialer.Dial(ctx, url, &link{session: s, conn: conn})
	if err != nil {
		s.notice(ctx, NoticeConnectFailed)
		s.setState(ctx, StateDisconnected)
		return fmt.Errorf("connect: %w", err)
	}
	s.mu.Lock()
	s.transport = transport
	s.mu.Unlock()
	return nil
}

// Join claims a room code.
func (s *Session) Join(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	s.mu.Lock()
	s.code = code
	s.mu.Unlock()
	return s.send(ctx, proto.Join{Type: proto.TypeJoin, Code: code})
}

// Disconnect closes the transport and returns to single-player.
func (s *Session) Disconnect(ctx context.Context) {
	s.closeTransport()
	s.resetMultiplayer(ctx)
}

// Receive implements Receiver for the current connection.
func (s *Session) Receive(payload []byte) {
	s.receive(s.conn.Load(), payload)
}

// Closed implements Receiver for the current connection.
func (s *Session) Closed(err error) {
	s.closedConn(s.conn.Load(), err)
}

// receive runs on the transport goroutine.
func (s *Session) receive(conn uint64, payload []byte) {
	if conn != s.conn.Load() {
		s.addMetric(metricFramesStale)
		return
	}
	env, err := proto.DecodeEnvelope(payload)
	if err != nil {
		s.addMetric(metricFramesMalformed)
		s.logger.Printf("[netsync] dropping malformed frame: %v", err)
		return
	}
	if !s.queue.Push(Inbound{Conn: conn, Type: env.Type, Payload: payload}) {
		s.addMetric(metricFramesDropped)
		s.logger.Printf("[netsync] inbound queue full, dropping %s", env.Type)
	}
}

// closedConn runs on the transport goroutine. Only the current connection's
// loss is acted on, at the next Drain.
func (s *Session) closedConn(conn uint64, err error) {
	if conn == 0 || conn != s.conn.Load() {
		return
	}
	s.lost.Store(conn)
	if err != nil {
		s.logger.Printf("[netsync] connection %d closed: %v", conn, err)
	}
}

// nextConn retires the current connection generation and discards whatever
// it had queued.
func (s *Session) nextConn() uint64 {
	conn := s.conn.Add(1)
	if stale := len(s.queue.Drain()); stale > 0 && s.metrics != nil {
		s.metrics.Add(metricFramesStale, uint64(stale))
	}
	return conn
}

// Drain applies every queued inbound frame to the world. Call it once per
// frame before stepping the world.
func (s *Session) Drain(ctx context.Context) {
	for _, msg := range s.queue.Drain() {
		if msg.Conn != s.conn.Load() {
			s.addMetric(metricFramesStale)
			continue
		}
		s.apply(ctx, msg)
	}
	conn := s.conn.Load()
	if lost := s.lost.Load(); lost != 0 && lost == conn && s.lost.CompareAndSwap(lost, 0) {
		s.mu.Lock()
		s.transport = nil
		s.mu.Unlock()
		if s.State() != StateDisconnected {
			s.notice(ctx, NoticeConnectionLost)
			s.resetMultiplayer(ctx)
		}
	}
}

// Publish sends the frame's outbound messages. Call it once per frame after
// stepping the world with in.
func (s *Session) Publish(ctx context.Context, in sim.Input, events sim.StepEvents) {
	state := s.State()
	if state != StatePairedWaiting && state != StateActive {
		return
	}
	if in.Directional() {
		s.hasMoved.Store(true)
	}
	host := s.IsHost()
	frame := s.world.Frame()

	if frame%uint64(s.cfg.PlayerUpdateEvery) == 0 || events.Reset {
		s.trySend(ctx, s.scale.EncodePlayer(s.world.Avatar(), s.hasMoved.Load()))
	}
	if events.HookAttached != nil {
		s.trySend(ctx, s.scale.EncodeRope(events.HookAttached))
	} else if events.HookReleased {
		s.trySend(ctx, s.scale.EncodeRope(nil))
	}

	if host {
		generated := events.RowsGenerated > 0
		if generated || frame%uint64(s.cfg.PlatformUpdateEvery) == 0 {
			platforms, highest := s.world.PlatformsForWire()
			s.trySend(ctx, s.scale.NewPlatformUpdate(platforms, highest, generated))
		}
		for _, timer := range events.Timers {
			s.sendTimer(ctx, timer)
		}
		return
	}

	if events.Request != nil {
		s.trySend(ctx, proto.RequestNewPlatforms{
			Type:            proto.TypeRequestNewPlatforms,
			HighestPlatform: events.Request.Elevation,
		})
	}
	for _, id := range events.CollapseContacts {
		s.trySend(ctx, proto.PlatformContact{Type: proto.TypePlatformContact, PlatformID: id})
	}
}

func (s *Session) apply(ctx context.Context, msg Inbound) {
	if s.State() == StateDisconnected {
		s.addMetric(metricFramesStale)
		return
	}
	var err error
	switch msg.Type {
	case proto.TypeJoin:
		err = s.applyJoin(ctx, msg.Payload)
	case proto.TypeReadyState:
		err = s.applyReady(ctx, msg.Payload)
	case proto.TypePlayerUpdate:
		var update proto.PlayerUpdate
		if update, err = proto.Decode[proto.PlayerUpdate](msg.Payload); err == nil {
			s.world.SetMirror(s.scale.DecodePlayer(update))
		}
	case proto.TypeRopeUpdate:
		var rope proto.RopeUpdate
		if rope, err = proto.Decode[proto.RopeUpdate](msg.Payload); err == nil {
			s.world.SetMirrorHook(s.scale.DecodeRope(rope))
		}
	case proto.TypePlatformUpdate:
		err = s.applyPlatformUpdate(ctx, msg.Payload)
	case proto.TypeInitialState:
		err = s.applyInitialState(msg.Payload)
	case proto.TypePlatformTimer:
		err = s.applyTimer(msg.Payload)
	case proto.TypeRequestNewPlatforms:
		err = s.applyGenerationRequest(ctx, msg.Payload)
	case proto.TypeRequestInitialState:
		if s.hostOnly(msg.Type) {
			platforms, highest := s.world.PlatformsForWire()
			s.trySend(ctx, s.scale.NewInitialState(platforms, highest))
		}
	case proto.TypePlatformContact:
		err = s.applyContact(ctx, msg.Payload)
	case proto.TypePlayerDisconnect:
		s.notice(ctx, NoticePeerDisconnected)
		s.closeTransport()
		s.resetMultiplayer(ctx)
	default:
		s.addMetric(metricFramesUnknown)
		s.logger.Printf("[netsync] unknown message type %q", msg.Type)
		sessionlog.UnknownMessage(ctx, s.publisher, s.world.Frame(), s.actor(), sessionlog.UnknownPayload{MessageType: msg.Type})
	}
	if err != nil {
		s.addMetric(metricFramesMalformed)
		s.logger.Printf("[netsync] ignoring %s: %v", msg.Type, err)
	}
}

func (s *Session) applyJoin(ctx context.Context, payload []byte) error {
	result, err := proto.Decode[proto.JoinResult](payload)
	if err != nil {
		return err
	}
	if !result.Success {
		reason := result.Reason
		if reason == "" {
			reason = "rejected"
		}
		s.notice(ctx, fmt.Sprintf("Could not join room %s: %s", result.Code, reason))
		s.closeTransport()
		s.resetMultiplayer(ctx)
		return nil
	}

	s.mu.Lock()
	s.isHost = result.IsHost
	s.playerID = result.PlayerID
	s.bothReady = false
	s.mu.Unlock()
	s.hasMoved.Store(false)

	if result.IsHost {
		s.world.SetRole(sim.RoleHost)
		s.world.CenterForJoin(true)
		s.setState(ctx, StatePairedWaiting)
		return nil
	}
	s.world.SetRole(sim.RoleGuest)
	s.world.CenterForJoin(false)
	s.setState(ctx, StateActive)
	s.trySend(ctx, proto.RequestInitialState{
		Type:        proto.TypeRequestInitialState,
		ScreenWidth: s.world.Config().ViewWidth,
	})
	return nil
}

func (s *Session) applyReady(ctx context.Context, payload []byte) error {
	ready, err := proto.Decode[proto.ReadyState](payload)
	if err != nil {
		return err
	}
	if ready.Paired && s.State() == StatePairedWaiting {
		s.setState(ctx, StateActive)
	}
	s.mu.Lock()
	s.bothReady = ready.BothPlayersReady
	s.mu.Unlock()
	s.world.SetPeerReady(ready.BothPlayersReady)
	return nil
}

func (s *Session) applyPlatformUpdate(ctx context.Context, payload []byte) error {
	if !s.guestOnly(proto.TypePlatformUpdate) {
		return nil
	}
	update, err := proto.Decode[proto.PlatformUpdate](payload)
	if err != nil {
		return err
	}
	local := s.world.HighestGenerated()
	if !(update.HighestPlatform < local) {
		s.addMetric(metricPlatformsStale)
		sessionlog.StalePlatformUpdate(ctx, s.publisher, s.world.Frame(), s.actor(), sessionlog.StalePayload{
			Incoming: update.HighestPlatform,
			Local:    local,
		})
		return nil
	}
	s.world.ReplacePlatforms(s.scale.DecodePlatforms(update.Platforms), update.HighestPlatform)
	s.addMetric(metricPlatformsApplied)
	return nil
}

func (s *Session) applyInitialState(payload []byte) error {
	if !s.guestOnly(proto.TypeInitialState) {
		return nil
	}
	state, err := proto.Decode[proto.InitialState](payload)
	if err != nil {
		return err
	}
	s.world.ReplacePlatforms(s.scale.DecodePlatforms(state.Platforms), state.HighestPlatform)
	return nil
}

func (s *Session) applyTimer(payload []byte) error {
	if !s.guestOnly(proto.TypePlatformTimer) {
		return nil
	}
	timer, err := proto.Decode[proto.PlatformTimer](payload)
	if err != nil {
		return err
	}
	s.world.ApplyTimer(timer.PlatformID, timer.Countdown)
	return nil
}

func (s *Session) applyGenerationRequest(ctx context.Context, payload []byte) error {
	if !s.hostOnly(proto.TypeRequestNewPlatforms) {
		return nil
	}
	request, err := proto.Decode[proto.RequestNewPlatforms](payload)
	if err != nil {
		return err
	}
	rows := s.world.GenerateUntil(request.HighestPlatform)
	platforms, highest := s.world.PlatformsForWire()
	s.trySend(ctx, s.scale.NewPlatformUpdate(platforms, highest, rows > 0))
	return nil
}

func (s *Session) applyContact(ctx context.Context, payload []byte) error {
	if !s.hostOnly(proto.TypePlatformContact) {
		return nil
	}
	contact, err := proto.Decode[proto.PlatformContact](payload)
	if err != nil {
		return err
	}
	if timer, ok := s.world.StartCollapse(contact.PlatformID); ok {
		s.sendTimer(ctx, timer)
	}
	return nil
}

func (s *Session) sendTimer(ctx context.Context, timer sim.TimerUpdate) {
	p, ok := s.world.Platform(timer.ID)
	if !ok {
		return
	}
	s.trySend(ctx, s.scale.NewPlatformTimer(p, timer.Countdown))
}

// hostOnly reports whether this peer may act on a host-bound message.
func (s *Session) hostOnly(msgType string) bool {
	if s.IsHost() && s.State() != StateDisconnected {
		return true
	}
	s.addMetric(metricHostIgnored)
	s.logger.Printf("[netsync] guest ignoring host-bound %s", msgType)
	return false
}

// guestOnly reports whether this peer may accept host-authoritative state.
// The host never lets a peer mutate its platforms.
func (s *Session) guestOnly(msgType string) bool {
	if !s.IsHost() && s.State() != StateDisconnected {
		return true
	}
	s.addMetric(metricHostIgnored)
	s.logger.Printf("[netsync] host ignoring %s from guest", msgType)
	return false
}

func (s *Session) resetMultiplayer(ctx context.Context) {
	s.nextConn()
	s.mu.Lock()
	s.isHost = false
	s.playerID = ""
	s.bothReady = false
	s.mu.Unlock()
	s.hasMoved.Store(false)
	s.world.ClearMirror()
	s.world.SetRole(sim.RoleSolo)
	s.setState(ctx, StateDisconnected)
}

func (s *Session) closeTransport() {
	s.mu.Lock()
	transport := s.transport
	s.transport = nil
	s.mu.Unlock()
	if transport != nil {
		_ = transport.Close()
	}
}

func (s *Session) send(ctx context.Context, msg any) error {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()
	if transport == nil {
		return ErrNotConnected
	}
	if err := transport.Send(ctx, msg); err != nil {
		s.addMetric(metricSendFailures)
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *Session) trySend(ctx context.Context, msg any) {
	if err := s.send(ctx, msg); err != nil && !errors.Is(err, ErrNotConnected) {
		s.logger.Printf("[netsync] %v", err)
	}
}

func (s *Session) setState(ctx context.Context, next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	isHost := s.isHost
	s.mu.Unlock()
	if prev == next {
		return
	}
	sessionlog.StateChanged(ctx, s.publisher, s.world.Frame(), s.actor(), sessionlog.StateChangedPayload{
		From:   prev.String(),
		To:     next.String(),
		IsHost: isHost,
	})
}

func (s *Session) notice(ctx context.Context, message string) {
	s.mu.Lock()
	s.notices = append(s.notices, message)
	s.mu.Unlock()
	sessionlog.Notice(ctx, s.publisher, s.world.Frame(), s.actor(), sessionlog.NoticePayload{Message: message})
}

func (s *Session) actor() logging.EntityRef {
	return logging.Player(s.PlayerID())
}

func (s *Session) addMetric(key string) {
	if s.metrics != nil {
		s.metrics.Add(key, 1)
	}
}
