package game

import (
	"math"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
)

const (
	climberDeadZone   = 10
	climberHookFrames = 30
)

// Climber is a scripted input source that steers toward the nearest platform
// above the avatar, taps jump every other frame and swings from a hook when
// it has a charge to spend.
type Climber struct {
	upHeld      bool
	hookedSince uint64
	hooked      bool
}

// Next implements InputSource.
func (c *Climber) Next(snap sim.Snapshot) sim.Input {
	var in sim.Input
	local := snap.Local
	centerX := local.X + local.Width/2

	target, ok := nextPlatformAbove(snap)
	if ok {
		targetX := target.X + target.Width/2
		switch {
		case targetX < centerX-climberDeadZone:
			in.Left = true
		case targetX > centerX+climberDeadZone:
			in.Right = true
		}
	}

	c.upHeld = !c.upHeld
	in.Up = c.upHeld

	switch {
	case local.Hook != nil:
		if !c.hooked {
			c.hooked = true
			c.hookedSince = snap.Frame
		}
		if snap.Frame-c.hookedSince >= climberHookFrames {
			in.Hook = &sim.HookAction{X: centerX, Y: local.Y + snap.CameraY}
		}
	case ok && snap.Hooks > 0 && local.VY > 0:
		c.hooked = false
		in.Hook = &sim.HookAction{X: target.X + target.Width/2, Y: target.Y + snap.CameraY}
	default:
		c.hooked = false
	}
	return in
}

// nextPlatformAbove returns the lowest platform whose top is above the avatar.
func nextPlatformAbove(snap sim.Snapshot) (sim.PlatformView, bool) {
	best := sim.PlatformView{}
	bestGap := math.Inf(1)
	for _, p := range snap.Platforms {
		gap := snap.Local.Y + snap.Local.Height - p.Y
		if gap <= 0 || gap >= bestGap {
			continue
		}
		best, bestGap = p, gap
	}
	return best, !math.IsInf(bestGap, 1)
}
