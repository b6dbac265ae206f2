package sim

import "math"

// RopePoint is one node of a released rope.
type RopePoint struct {
	X        float64
	Y        float64
	VY       float64
	Anchored bool
}

// ReleasedRope is a detached rope left hanging from its anchor. It is
// decorative and never interacts with the avatar.
type ReleasedRope struct {
	Points []RopePoint
}

func newReleasedRope(hook HookState, centerX, centerY float64) ReleasedRope {
	points := make([]RopePoint, ReleasedRopePoints)
	last := float64(ReleasedRopePoints - 1)
	for i := range points {
		t := float64(i) / last
		points[i] = RopePoint{
			X:        hook.AnchorX + (centerX-hook.AnchorX)*t,
			Y:        hook.AnchorY + (centerY-hook.AnchorY)*t,
			Anchored: i == 0,
		}
	}
	return ReleasedRope{Points: points}
}

func (r *ReleasedRope) step() {
	for i := 1; i < len(r.Points); i++ {
		point := &r.Points[i]
		if point.Anchored {
			continue
		}
		point.VY += Gravity * RopeGravityFactor
		point.Y += point.VY

		prev := &r.Points[i-1]
		dx := point.X - prev.X
		dy := point.Y - prev.Y
		distance := math.Hypot(dx, dy)
		if distance <= RopeSegmentLength {
			continue
		}
		ratio := RopeSegmentLength / distance
		if !prev.Anchored {
			prev.X += dx * (1 - ratio) * 0.5
			prev.Y += dy * (1 - ratio) * 0.5
		}
		point.X = prev.X + dx*ratio
		point.Y = prev.Y + dy*ratio
	}
}

func (r ReleasedRope) clone() ReleasedRope {
	return ReleasedRope{Points: append([]RopePoint(nil), r.Points...)}
}
