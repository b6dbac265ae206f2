package sim

import "math"

// Input is the per-step intent vector handed to the world by the input source.
type Input struct {
	Left  bool
	Right bool
	Up    bool
	// Hook toggles the rope: attach at the point when free, release when attached.
	Hook *HookAction
}

// HookAction is a pointer press in viewport coordinates.
type HookAction struct {
	X float64
	Y float64
}

// Direction resolves the horizontal intent. Both keys pressed is neutral.
func (in Input) Direction() float64 {
	switch {
	case in.Left && in.Right:
		return 0
	case in.Left:
		return -1
	case in.Right:
		return 1
	default:
		return 0
	}
}

// Directional reports whether any movement key is held.
func (in Input) Directional() bool {
	return in.Left || in.Right || in.Up
}

// ClampPointer validates a pointer press against the viewport. NaN or infinite
// coordinates are rejected; finite ones are clamped to [0,width]x[0,height].
func ClampPointer(x, y, width, height float64) (HookAction, bool) {
	if !finite(x) || !finite(y) {
		return HookAction{}, false
	}
	return HookAction{
		X: clamp(x, 0, width),
		Y: clamp(y, 0, height),
	}, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
