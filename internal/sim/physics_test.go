package sim

import (
	"math"
	"testing"
)

func platformOfKind(t *testing.T, w *World, kind PlatformKind) Platform {
	t.Helper()
	for _, p := range w.Platforms() {
		if p.Kind == kind {
			return p
		}
	}
	t.Fatalf("no %s platform in world", kind)
	return Platform{}
}

// landOn drops the avatar onto the first platform of kind and steps until it rests there.
func landOn(t *testing.T, w *World, kind PlatformKind) Platform {
	t.Helper()
	p := platformOfKind(t, w, kind)
	w.avatar.X = p.X + 15
	w.avatar.Y = p.Y - w.avatar.Height - 1
	w.avatar.VX = 0
	w.avatar.VY = 0
	for i := 0; i < 10; i++ {
		if events := w.Step(Input{}); events.Landed {
			return p
		}
	}
	t.Fatalf("avatar never landed on %s platform", kind)
	return p
}

func TestLandingOnPlatform(t *testing.T) {
	w := newTestWorld(t)
	landed := false
	for i := 0; i < 30 && !landed; i++ {
		landed = w.Step(Input{}).Landed
	}
	if !landed {
		t.Fatalf("expected avatar to land on the starting row")
	}
	a := w.Avatar()
	if a.Y != InitialRowY-AvatarSize || a.VY != 0 || a.Jumping {
		t.Fatalf("expected avatar resting on the row, got y=%v vy=%v jumping=%v", a.Y, a.VY, a.Jumping)
	}
	if !a.OnSpeed || a.OnSuperJump {
		t.Fatalf("expected start platform to be the speed platform")
	}
}

func TestCollisionRequiresDescent(t *testing.T) {
	w := newTestWorld(t)
	p := platformOfKind(t, w, KindSuperJump)
	w.avatar.X = p.X + 10
	w.avatar.Y = p.Y - w.avatar.Height + 20
	w.avatar.VY = -10

	if events := w.Step(Input{}); events.Landed {
		t.Fatalf("expected rising avatar to pass through the platform")
	}
}

func TestGroundSpeed(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		w := newTestWorld(t)
		landOn(t, w, KindSuperJump)
		w.Step(Input{Right: true})
		if got := w.Avatar().VX; got != MoveSpeed {
			t.Fatalf("expected vx %v, got %v", MoveSpeed, got)
		}
	})

	t.Run("boosted", func(t *testing.T) {
		w := newTestWorld(t)
		landOn(t, w, KindHookGrant)
		w.Step(Input{Left: true})
		if got := w.Avatar().VX; got != -BoostedSpeed {
			t.Fatalf("expected vx %v, got %v", -BoostedSpeed, got)
		}
	})

	t.Run("both keys neutral", func(t *testing.T) {
		w := newTestWorld(t)
		landOn(t, w, KindSuperJump)
		w.Step(Input{Left: true, Right: true})
		if got := w.Avatar().VX; got != 0 {
			t.Fatalf("expected vx 0, got %v", got)
		}
	})
}

func TestJumpForces(t *testing.T) {
	t.Run("regular", func(t *testing.T) {
		w := newTestWorld(t)
		landOn(t, w, KindHookGrant)
		w.Step(Input{Up: true})
		a := w.Avatar()
		if !a.Jumping || a.CurrentJumpSuper {
			t.Fatalf("expected regular jump, got %+v", a)
		}
		if a.VY != JumpForce+Gravity {
			t.Fatalf("expected vy %v, got %v", JumpForce+Gravity, a.VY)
		}
		if !a.CanDoubleJump {
			t.Fatalf("expected jump to arm the double jump")
		}
	})

	t.Run("super", func(t *testing.T) {
		w := newTestWorld(t)
		landOn(t, w, KindSuperJump)
		w.Step(Input{Up: true})
		a := w.Avatar()
		if !a.CurrentJumpSuper || a.VY != SuperJumpForce+Gravity {
			t.Fatalf("expected super jump, got vy=%v super=%v", a.VY, a.CurrentJumpSuper)
		}
	})

	t.Run("speed momentum", func(t *testing.T) {
		w := newTestWorld(t)
		landOn(t, w, KindHookGrant)
		w.Step(Input{Right: true})
		w.Step(Input{Right: true, Up: true})
		a := w.Avatar()
		if a.JumpMomentum != BoostedSpeed*SpeedJumpMomentum {
			t.Fatalf("expected momentum %v, got %v", BoostedSpeed*SpeedJumpMomentum, a.JumpMomentum)
		}
		if !a.JumpFromSpeed {
			t.Fatalf("expected jump to remember it left a speed platform")
		}
	})
}

func TestDoubleJumpEdgeTriggered(t *testing.T) {
	w := newTestWorld(t)
	landOn(t, w, KindHookGrant)
	w.avatar.DoubleJumps = 2

	w.Step(Input{Up: true})
	for i := 0; i < 5; i++ {
		w.Step(Input{Up: true})
	}
	if got := w.Avatar().DoubleJumps; got != 2 {
		t.Fatalf("expected held key not to double jump, charges=%d", got)
	}

	w.Step(Input{})
	w.Step(Input{Up: true})
	a := w.Avatar()
	if a.DoubleJumps != 1 {
		t.Fatalf("expected one charge consumed, got %d", a.DoubleJumps)
	}
	if want := JumpForce*DoubleJumpFactor + Gravity; math.Abs(a.VY-want) > 1e-9 {
		t.Fatalf("expected double jump vy %v, got %v", want, a.VY)
	}
	for i := 0; i < 5; i++ {
		w.Step(Input{Up: true})
	}
	if got := w.Avatar().DoubleJumps; got != 1 {
		t.Fatalf("expected held key to keep the second charge, got %d", got)
	}
}

func TestSuperDoubleJump(t *testing.T) {
	w := newTestWorld(t)
	landOn(t, w, KindSuperJump)
	w.avatar.DoubleJumps = 1
	w.Step(Input{Up: true})
	w.Step(Input{})
	w.Step(Input{Up: true})
	a := w.Avatar()
	if a.DoubleJumps != 0 || a.VY != SuperJumpForce+Gravity {
		t.Fatalf("expected super double jump, got charges=%d vy=%v", a.DoubleJumps, a.VY)
	}
}

func TestAirMomentumDecaysToZero(t *testing.T) {
	w := newTestWorld(t)
	w.avatar.Jumping = true
	w.avatar.VX = 3
	w.avatar.JumpMomentum = 4
	for i := 0; i < 200; i++ {
		w.steerHorizontal(0)
	}
	if w.avatar.JumpMomentum != 0 || w.avatar.VX != 0 {
		t.Fatalf("expected momentum and vx to reach exactly zero, got %v and %v", w.avatar.JumpMomentum, w.avatar.VX)
	}
}

func TestAirControlBlend(t *testing.T) {
	w := newTestWorld(t)
	w.avatar.Jumping = true
	w.avatar.VX = 0
	w.steerHorizontal(1)
	if want := MoveSpeed * AirControl; math.Abs(w.avatar.VX-want) > 1e-9 {
		t.Fatalf("expected vx %v, got %v", want, w.avatar.VX)
	}
}

func TestHookGrantedOnce(t *testing.T) {
	w := newTestWorld(t)
	landOn(t, w, KindHookGrant)
	for i := 0; i < 60; i++ {
		w.Step(Input{})
	}
	if got := w.Avatar().Hooks; got != 1 {
		t.Fatalf("expected one hook after standing, got %d", got)
	}
	for jump := 0; jump < 3; jump++ {
		w.Step(Input{Up: true})
		for i := 0; i < 40; i++ {
			w.Step(Input{})
		}
	}
	if got := w.Avatar().Hooks; got != 1 {
		t.Fatalf("expected repeated landings not to grant again, got %d", got)
	}
	if p := platformOfKind(t, w, KindHookGrant); !p.HookGrant.Granted {
		t.Fatalf("expected platform to remember its grant")
	}
}

func TestCollapseLifecycle(t *testing.T) {
	w := newTestWorld(t)
	p := landOn(t, w, KindCollapsing)

	started, ok := w.Platform(p.ID)
	if !ok || !started.Collapse.Started {
		t.Fatalf("expected first contact to start the countdown")
	}
	if got := w.Avatar().DoubleJumps; got != 1 {
		t.Fatalf("expected one double-jump charge, got %d", got)
	}

	for i := 0; i < 400; i++ {
		current, _ := w.Platform(p.ID)
		if current.Collapse.Countdown <= 0 {
			break
		}
		w.Step(Input{})
	}
	collapsed, _ := w.Platform(p.ID)
	if !collapsed.Collapsed() || collapsed.Solid() {
		t.Fatalf("expected platform collapsed after countdown, got %+v", collapsed.Collapse)
	}
	if got := w.Avatar().DoubleJumps; got != 1 {
		t.Fatalf("expected charge granted only once, got %d", got)
	}

	w.ApplyTimer(p.ID, CollapseSeconds)
	for i := 0; i < 5; i++ {
		if events := w.Step(Input{}); events.Landed {
			t.Fatalf("expected collapsed platform to stay out of collision")
		}
	}
	again, _ := w.Platform(p.ID)
	if !again.Collapsed() {
		t.Fatalf("expected countdown to stay at zero, got %v", again.Collapse.Countdown)
	}
}

func TestCollapseTimerEvents(t *testing.T) {
	w := newTestWorld(t)
	p := platformOfKind(t, w, KindCollapsing)
	w.avatar.X = p.X + 15
	w.avatar.Y = p.Y - w.avatar.Height - 1

	var timers []TimerUpdate
	for i := 0; i < 10; i++ {
		events := w.Step(Input{})
		timers = append(timers, events.Timers...)
		if events.Landed {
			break
		}
	}
	if len(timers) != 1 || timers[0].ID != p.ID || timers[0].Countdown != CollapseSeconds {
		t.Fatalf("expected one start event at 3s, got %+v", timers)
	}

	timers = nil
	for i := 0; i < 70; i++ {
		timers = append(timers, w.Step(Input{}).Timers...)
	}
	if len(timers) != 1 {
		t.Fatalf("expected one whole-second change in 70 frames, got %+v", timers)
	}
}

func TestGuestCollapseContact(t *testing.T) {
	w := newTestWorld(t, WithRole(RoleGuest))
	p := platformOfKind(t, w, KindCollapsing)
	w.avatar.X = p.X + 15
	w.avatar.Y = p.Y - w.avatar.Height - 1

	var contacts []uint64
	for i := 0; i < 30; i++ {
		events := w.Step(Input{})
		contacts = append(contacts, events.CollapseContacts...)
		if len(events.Timers) > 0 {
			t.Fatalf("expected guest never to emit timers")
		}
	}
	if len(contacts) != 1 || contacts[0] != p.ID {
		t.Fatalf("expected exactly one contact for platform %d, got %v", p.ID, contacts)
	}
	current, _ := w.Platform(p.ID)
	if current.Collapse.Started {
		t.Fatalf("expected guest contact not to start the countdown")
	}
	if got := w.Avatar().DoubleJumps; got != 1 {
		t.Fatalf("expected guest to earn its own charge, got %d", got)
	}
	if _, ok := w.StartCollapse(p.ID); ok {
		t.Fatalf("expected guest unable to start collapses")
	}

	if !w.ApplyTimer(p.ID, 2.5) {
		t.Fatalf("expected host timer to start the countdown")
	}
	if w.ApplyTimer(p.ID, 2.9) {
		t.Fatalf("expected a higher countdown to be ignored")
	}
	if !w.ApplyTimer(p.ID, 1) {
		t.Fatalf("expected a lower countdown to apply")
	}
	current, _ = w.Platform(p.ID)
	if current.Collapse.Countdown != 1 {
		t.Fatalf("expected countdown 1, got %v", current.Collapse.Countdown)
	}
}

func TestHostStartCollapseOnce(t *testing.T) {
	w := newTestWorld(t, WithRole(RoleHost))
	p := platformOfKind(t, w, KindCollapsing)
	update, ok := w.StartCollapse(p.ID)
	if !ok || update.ID != p.ID || update.Countdown != CollapseSeconds {
		t.Fatalf("expected host to start countdown, got %+v ok=%v", update, ok)
	}
	if _, ok := w.StartCollapse(p.ID); ok {
		t.Fatalf("expected second start to be ignored")
	}
	if _, ok := w.StartCollapse(9999); ok {
		t.Fatalf("expected unknown platform to be ignored")
	}
}

func TestHookSwingConstrainsDistance(t *testing.T) {
	w := newTestWorld(t)
	w.platforms = nil
	w.avatar.Hooks = 1
	a := w.Avatar()
	screenX := a.CenterX() + 100
	screenY := a.CenterY() + w.CameraY()

	events := w.Step(Input{Hook: &HookAction{X: screenX, Y: screenY}})
	if events.HookAttached == nil {
		t.Fatalf("expected hook to attach")
	}
	if w.Avatar().Hooks != 0 {
		t.Fatalf("expected hook charge consumed")
	}
	hook := *w.Avatar().Hook
	for i := 0; i < 120; i++ {
		w.Step(Input{Right: i%20 < 10})
		current := w.Avatar()
		dist := math.Hypot(current.CenterX()-hook.AnchorX, current.CenterY()-hook.AnchorY)
		if dist > hook.RopeLength+1e-6 {
			t.Fatalf("frame %d: distance %v exceeds rope %v", i, dist, hook.RopeLength)
		}
	}

	events = w.Step(Input{Hook: &HookAction{}})
	if !events.HookReleased || w.Avatar().Hook != nil {
		t.Fatalf("expected second hook action to release")
	}
	snap := w.Snapshot()
	if len(snap.Ropes) != 1 || !snap.Ropes[0].Points[0].Anchored {
		t.Fatalf("expected one released rope anchored at its hook, got %+v", snap.Ropes)
	}
	if snap.Ropes[0].Points[0].X != hook.AnchorX || snap.Ropes[0].Points[0].Y != hook.AnchorY {
		t.Fatalf("expected released rope to hang from the anchor")
	}
}

func TestHookRequiresCharge(t *testing.T) {
	w := newTestWorld(t)
	if events := w.Step(Input{Hook: &HookAction{X: 100, Y: 100}}); events.HookAttached != nil {
		t.Fatalf("expected hook without charges to be ignored")
	}

	cfg := testConfig()
	cfg.RequireHookCharge = false
	free := NewWorld(cfg)
	if events := free.Step(Input{Hook: &HookAction{X: 100, Y: 100}}); events.HookAttached == nil {
		t.Fatalf("expected hook to attach when charges are not required")
	}
}

func TestReleasedRopesBounded(t *testing.T) {
	cfg := testConfig()
	cfg.RequireHookCharge = false
	w := NewWorld(cfg)
	for i := 0; i < ReleasedRopeLimit+4; i++ {
		w.Step(Input{Hook: &HookAction{X: 100, Y: 100}})
		w.Step(Input{Hook: &HookAction{X: 100, Y: 100}})
	}
	if got := len(w.Snapshot().Ropes); got != ReleasedRopeLimit {
		t.Fatalf("expected %d ropes kept, got %d", ReleasedRopeLimit, got)
	}
}

func TestReleasedRopeHangsFromAnchor(t *testing.T) {
	rope := newReleasedRope(HookState{AnchorX: 0, AnchorY: 0}, 0, 90)
	for i := 0; i < 200; i++ {
		rope.step()
	}
	if rope.Points[0].X != 0 || rope.Points[0].Y != 0 {
		t.Fatalf("expected anchor to stay fixed, got %+v", rope.Points[0])
	}
	for i, point := range rope.Points {
		if !finite(point.X) || !finite(point.Y) {
			t.Fatalf("point %d diverged: %+v", i, point)
		}
	}
}

func TestBirdContacts(t *testing.T) {
	a := newAvatar(800)
	a.X = 100
	a.Y = 100
	a.VY = 2

	top := Bird{X: 95, Y: a.Y + a.Height + BirdSize/2 - 1, Direction: 1, Speed: 3}
	if got := top.contact(a); got != BirdContactTop {
		t.Fatalf("expected top contact, got %v", got)
	}
	top.apply(BirdContactTop, &a)
	if a.VY != BirdBounceForce || a.VX != 6 || !a.Jumping || !a.CanDoubleJump {
		t.Fatalf("expected bounce, got %+v", a)
	}

	a.VY = 0
	side := Bird{X: 110, Y: a.Y + 10, Direction: -1, Speed: 3}
	if got := side.contact(a); got != BirdContactSide {
		t.Fatalf("expected side contact, got %v", got)
	}
	side.apply(BirdContactSide, &a)
	if a.VX != -16 || a.VY != BirdBounceForce*BirdSideBounce {
		t.Fatalf("expected shove, got vx=%v vy=%v", a.VX, a.VY)
	}

	far := Bird{X: 500, Y: a.Y, Direction: 1, Speed: 3}
	if got := far.contact(a); got != BirdContactNone {
		t.Fatalf("expected no contact, got %v", got)
	}
}

func TestHorizontalWrap(t *testing.T) {
	w := newTestWorld(t)
	w.platforms = nil
	w.avatar.X = -w.avatar.Width - 1
	w.Step(Input{})
	if got := w.Avatar().X; got != w.cfg.ViewWidth {
		t.Fatalf("expected wrap to right edge, got %v", got)
	}
	w.avatar.X = w.cfg.ViewWidth + 1
	w.Step(Input{})
	if got := w.Avatar().X; got != -w.avatar.Width {
		t.Fatalf("expected wrap to left edge, got %v", got)
	}
}
