package sim

import (
	"math"
	"math/rand"
	"time"
)

// Role decides who owns shared world state.
type Role uint8

const (
	// RoleSolo generates and times everything locally.
	RoleSolo Role = iota
	// RoleHost is authoritative for platform rows and collapse timers.
	RoleHost
	// RoleGuest never generates and never starts timers.
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return "solo"
	}
}

// Authoritative reports whether the role generates rows and starts timers.
func (r Role) Authoritative() bool {
	return r != RoleGuest
}

// Camera is the vertical scroll offset applied when rendering.
type Camera struct {
	Y float64
}

func (c *Camera) follow(avatarY, viewHeight float64) {
	threshold := viewHeight / 3
	if avatarY < threshold {
		c.Y = (threshold - avatarY) + CameraVerticalOffset
		return
	}
	c.Y = CameraVerticalOffset
}

// GenerationRequest asks the host to extend the field up to Elevation.
type GenerationRequest struct {
	Elevation float64
}

// TimerUpdate reports a collapse countdown the host must broadcast.
type TimerUpdate struct {
	ID        uint64
	Countdown float64
}

// StepEvents is everything a step produced that other layers react to.
type StepEvents struct {
	Frame uint64

	Reset        bool
	Score        int
	NewHighScore bool
	HighScore    int
	Archived     bool
	GhostFrames  int

	RowsGenerated int
	Pruned        int
	Request       *GenerationRequest

	// Timers lists collapse countdowns that started or changed displayed second.
	Timers []TimerUpdate
	// CollapseContacts lists un-started collapsing platforms a guest touched.
	CollapseContacts []uint64

	HookAttached *HookState
	HookReleased bool
	Landed       bool
	Bird         BirdContact
	Bumped       bool
	StartedMove  bool
}

// Option customises a World at construction.
type Option func(*World)

// WithHighScore seeds the stored record.
func WithHighScore(score int) Option {
	return func(w *World) {
		if score > 0 {
			w.highScore = score
		}
	}
}

// WithRole sets the initial role.
func WithRole(role Role) Option {
	return func(w *World) {
		w.role = role
	}
}

// WithStepDuration overrides the fixed step used by collapse countdowns.
func WithStepDuration(step time.Duration) Option {
	return func(w *World) {
		if step > 0 {
			w.stepSeconds = step.Seconds()
		}
	}
}

// GuestIDBase offsets the ids a guest allocates for its own platforms so they
// never name a platform the host generated.
const GuestIDBase uint64 = 1 << 40

// World is one peer's complete local simulation.
type World struct {
	cfg         WorldConfig
	role        Role
	stepSeconds float64

	avatar    Avatar
	mirror    *Mirror
	peerReady bool

	platforms        []Platform
	highestGenerated float64
	lastRequested    float64
	nextID           uint64
	guestID          uint64

	camera    Camera
	ghosts    GhostHistory
	birds     []Bird
	ropes     []ReleasedRope
	highScore int
	frame     uint64

	genRNG    *rand.Rand
	hazardRNG *rand.Rand
}

// NewWorld builds a world in its starting configuration.
func NewWorld(cfg WorldConfig, opts ...Option) *World {
	cfg = cfg.Normalized()
	w := &World{
		cfg:         cfg,
		stepSeconds: 1.0 / DefaultStepsPerSec,
		ghosts:      newGhostHistory(cfg.MaxGhostFrames),
		genRNG:      NewDeterministicRNG(cfg.Seed, "platforms"),
		hazardRNG:   NewDeterministicRNG(cfg.Seed, "hazards"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.restart()
	return w
}

func (w *World) restart() {
	w.avatar = newAvatar(w.cfg.ViewWidth)
	w.platforms = initialPlatforms(w.cfg.ViewWidth, w.allocID)
	w.highestGenerated = InitialRowY
	w.lastRequested = math.NaN()
	w.camera.Y = CameraVerticalOffset
}

func (w *World) allocID() uint64 {
	if w.role == RoleGuest {
		w.guestID++
		return GuestIDBase + w.guestID
	}
	w.nextID++
	return w.nextID
}

// Config returns the normalised configuration.
func (w *World) Config() WorldConfig { return w.cfg }

// Frame returns the number of completed steps.
func (w *World) Frame() uint64 { return w.frame }

// Role returns the current role.
func (w *World) Role() Role { return w.role }

// Avatar returns a copy of the local avatar.
func (w *World) Avatar() Avatar {
	a := w.avatar
	a.Hook = cloneHook(a.Hook)
	return a
}

// HighestGenerated is the y of the highest generated row.
func (w *World) HighestGenerated() float64 { return w.highestGenerated }

// HighScore returns the best score seen so far.
func (w *World) HighScore() int { return w.highScore }

// CameraY returns the current camera offset.
func (w *World) CameraY() float64 { return w.camera.Y }

// Platforms returns a deep copy of the live platform set.
func (w *World) Platforms() []Platform {
	out := make([]Platform, len(w.platforms))
	for i, p := range w.platforms {
		out[i] = p.clone()
	}
	return out
}

// Platform looks up a live platform by id.
func (w *World) Platform(id uint64) (Platform, bool) {
	if idx := w.platformIndex(id); idx >= 0 {
		return w.platforms[idx].clone(), true
	}
	return Platform{}, false
}

// Mirror returns a copy of the remote avatar mirror.
func (w *World) Mirror() (Mirror, bool) {
	if w.mirror == nil {
		return Mirror{}, false
	}
	m := *w.mirror
	m.Hook = cloneHook(m.Hook)
	return m, true
}

// PeerReady reports whether cross-player effects are enabled.
func (w *World) PeerReady() bool { return w.peerReady }

// Ghosts exposes the ghost history.
func (w *World) Ghosts() *GhostHistory { return &w.ghosts }

// Reset ends the current run as if the avatar had fallen.
func (w *World) Reset() StepEvents {
	events := StepEvents{Frame: w.frame}
	w.resetRun(&events)
	return events
}

func (w *World) resetRun(events *StepEvents) {
	events.Reset = true
	events.GhostFrames = w.ghosts.CurrentFrames()
	if w.avatar.HasMoved {
		events.Archived = w.ghosts.Archive()
	} else {
		w.ghosts.Discard()
	}
	events.Score = w.avatar.Score()
	if events.Score > w.highScore {
		w.highScore = events.Score
		events.NewHighScore = true
	}
	events.HighScore = w.highScore
	w.restart()
}

// Step advances the world by one fixed step.
func (w *World) Step(in Input) StepEvents {
	w.frame++
	events := StepEvents{Frame: w.frame}
	a := &w.avatar
	viewWidth := w.cfg.ViewWidth
	viewHeight := w.cfg.ViewHeight

	w.camera.follow(a.Y, viewHeight)
	if a.Y < a.HighestY {
		a.HighestY = a.Y
	}

	if in.Hook != nil {
		w.toggleHook(*in.Hook, &events)
	}

	direction := in.Direction()
	w.steerHorizontal(direction)
	w.jump(in.Up)

	a.VY += Gravity
	if a.Hook == nil {
		a.X += a.VX
		a.Y += a.VY
	} else {
		w.swing(in)
	}

	if a.X+a.Width < 0 {
		a.X = viewWidth
	} else if a.X > viewWidth {
		a.X = -a.Width
	}

	if a.Y-w.camera.Y > viewHeight {
		w.resetRun(&events)
		return events
	}

	w.collide(&events)
	if a.Jumping {
		a.OnSpeed = false
	}
	w.tickCollapses(&events)

	if w.cfg.Hazards {
		w.birds, events.Bird = stepBirds(w.birds, w.hazardRNG, a, viewWidth, viewHeight)
	}
	if w.peerReady && w.mirror != nil && w.mirror.overlaps(*a) {
		w.bump()
		events.Bumped = true
	}

	for i := range w.ropes {
		w.ropes[i].step()
	}

	if a.HasMoved {
		w.ghosts.Record(a.X, a.Y)
		w.ghosts.Advance()
	}

	w.maybeGenerate(&events)

	if !a.HasMoved && in.Directional() {
		a.HasMoved = true
		events.StartedMove = true
	}
	return events
}

func (w *World) steerHorizontal(direction float64) {
	a := &w.avatar
	speed := MoveSpeed
	if a.OnSpeed {
		speed = BoostedSpeed
	}
	target := direction * speed

	if !a.Jumping {
		a.VX = target
		return
	}
	control := AirControl
	if a.JumpFromSpeed {
		control *= AirControlBoost
	}
	if direction != 0 {
		a.VX = a.VX*(1-control) + target*control
	} else {
		a.VX *= AirFriction
		if math.Abs(a.VX) < VelocityCutoff {
			a.VX = 0
		}
	}
	if a.JumpMomentum != 0 {
		a.VX += a.JumpMomentum * AirFriction
		a.JumpMomentum *= AirFriction
		if math.Abs(a.JumpMomentum) < VelocityCutoff {
			a.JumpMomentum = 0
		}
	}
}

func (w *World) jump(up bool) {
	a := &w.avatar
	if !up {
		a.CanJump = true
		a.JumpKeyReleased = true
		return
	}
	switch {
	case !a.Jumping && a.CanJump:
		a.CurrentJumpSuper = a.OnSuperJump
		if a.CurrentJumpSuper {
			a.VY = SuperJumpForce
		} else {
			a.VY = JumpForce
		}
		a.Jumping = true
		a.CanJump = false
		a.CanDoubleJump = true
		a.JumpKeyReleased = false
		a.JumpFromSpeed = a.OnSpeed
		if a.OnSpeed {
			a.JumpMomentum = a.VX * SpeedJumpMomentum
		} else {
			a.JumpMomentum = 0
		}
	case a.Jumping && a.DoubleJumps > 0 && a.JumpKeyReleased:
		if a.CurrentJumpSuper {
			a.VY = SuperJumpForce
		} else {
			a.VY = JumpForce * DoubleJumpFactor
		}
		a.DoubleJumps--
		a.JumpKeyReleased = false
	}
}

func (w *World) swing(in Input) {
	a := &w.avatar
	if in.Left {
		a.VX -= SwingInputAccel
	}
	if in.Right {
		a.VX += SwingInputAccel
	}
	a.VX *= SwingDamping
	a.X += a.VX
	a.Y += a.VY

	hook := a.Hook
	dx := a.CenterX() - hook.AnchorX
	dy := a.CenterY() - hook.AnchorY
	if math.Hypot(dx, dy) <= hook.RopeLength {
		return
	}
	angle := math.Atan2(dy, dx)
	a.X = hook.AnchorX + math.Cos(angle)*hook.RopeLength - a.Width/2
	a.Y = hook.AnchorY + math.Sin(angle)*hook.RopeLength - a.Height/2

	tangentX := -math.Sin(angle)
	tangentY := math.Cos(angle)
	dot := a.VX*tangentX + a.VY*tangentY
	a.VX = tangentX * dot
	a.VY = tangentY * dot
}

func (w *World) toggleHook(action HookAction, events *StepEvents) {
	a := &w.avatar
	if a.Hook != nil {
		w.ropes = append(w.ropes, newReleasedRope(*a.Hook, a.CenterX(), a.CenterY()))
		if len(w.ropes) > ReleasedRopeLimit {
			w.ropes = append(w.ropes[:0], w.ropes[len(w.ropes)-ReleasedRopeLimit:]...)
		}
		a.Hook = nil
		events.HookReleased = true
		return
	}
	point, ok := ClampPointer(action.X, action.Y, w.cfg.ViewWidth, w.cfg.ViewHeight)
	if !ok {
		return
	}
	if w.cfg.RequireHookCharge {
		if a.Hooks <= 0 {
			return
		}
		a.Hooks--
	}
	anchorX := point.X
	anchorY := point.Y - w.camera.Y
	a.Hook = &HookState{
		AnchorX:    anchorX,
		AnchorY:    anchorY,
		RopeLength: math.Hypot(anchorX-a.CenterX(), anchorY-a.CenterY()),
	}
	events.HookAttached = cloneHook(a.Hook)
}

func (w *World) collide(events *StepEvents) {
	a := &w.avatar
	for i := range w.platforms {
		p := &w.platforms[i]
		if !p.Solid() || !p.landedOn(*a) {
			continue
		}
		a.Y = p.Y - a.Height
		a.VY = 0
		a.Jumping = false
		a.CanDoubleJump = false
		a.JumpFromSpeed = false
		a.OnSuperJump = p.Kind == KindSuperJump
		a.OnSpeed = p.Kind == KindHookGrant
		events.Landed = true

		switch p.Kind {
		case KindCollapsing:
			w.touchCollapsing(p, events)
		case KindHookGrant:
			if p.HookGrant != nil && !p.HookGrant.Granted {
				p.HookGrant.Granted = true
				a.Hooks++
			}
		}
	}
}

func (w *World) touchCollapsing(p *Platform, events *StepEvents) {
	if p.Collapse == nil {
		return
	}
	firstTouch := !p.Collapse.ChargeGranted
	if firstTouch {
		p.Collapse.ChargeGranted = true
		w.avatar.DoubleJumps++
	}
	if w.role.Authoritative() {
		if p.startCollapse() {
			events.Timers = append(events.Timers, TimerUpdate{ID: p.ID, Countdown: p.Collapse.Countdown})
		}
		return
	}
	if firstTouch && !p.Collapse.Started {
		events.CollapseContacts = append(events.CollapseContacts, p.ID)
	}
}

func (w *World) tickCollapses(events *StepEvents) {
	for i := range w.platforms {
		p := &w.platforms[i]
		if p.Collapse == nil || !p.Collapse.Started || p.Collapse.Countdown <= 0 {
			continue
		}
		before := p.DisplayCountdown()
		p.Collapse.Countdown = math.Max(p.Collapse.Countdown-w.stepSeconds, 0)
		if w.role.Authoritative() && p.DisplayCountdown() != before {
			events.Timers = append(events.Timers, TimerUpdate{ID: p.ID, Countdown: p.Collapse.Countdown})
		}
	}
}

func (w *World) bump() {
	a := &w.avatar
	m := w.mirror
	dx := a.CenterX() - (m.X + AvatarSize/2)
	dy := a.CenterY() - (m.Y + AvatarSize/2)
	length := math.Hypot(dx, dy)
	nx, ny := 0.0, -1.0
	if length > 0 {
		nx, ny = dx/length, dy/length
	}
	a.VX = nx * PeerBounceForce
	a.VY = ny * PeerBounceForce
	if overlap := (a.Width+AvatarSize)/2 - math.Abs(dx); overlap > 0 {
		a.X += nx * overlap / 2
	}
}

func (w *World) platformIndex(id uint64) int {
	for i := range w.platforms {
		if w.platforms[i].ID == id {
			return i
		}
	}
	return -1
}
