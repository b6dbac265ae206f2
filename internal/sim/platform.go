package sim

import (
	"fmt"
	"math"
)

// PlatformKind selects a platform's behaviour on contact.
type PlatformKind uint8

const (
	// KindCollapsing starts a countdown on first contact and stops colliding at zero.
	KindCollapsing PlatformKind = iota
	// KindHookGrant grants one hook charge and boosts ground speed.
	KindHookGrant
	// KindSuperJump launches the next jump with the super force.
	KindSuperJump
)

var kindNames = [...]string{
	KindCollapsing: "collapsing",
	KindHookGrant:  "hookGrant",
	KindSuperJump:  "superJump",
}

func (k PlatformKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("PlatformKind(%d)", uint8(k))
}

// ParsePlatformKind maps a wire name back to a kind.
func ParsePlatformKind(name string) (PlatformKind, bool) {
	for i, candidate := range kindNames {
		if candidate == name {
			return PlatformKind(i), true
		}
	}
	return 0, false
}

// CollapseState is carried only by collapsing platforms.
type CollapseState struct {
	Started bool
	// Countdown is the remaining seconds once started. It never increases.
	Countdown float64
	// ChargeGranted is local to each peer and never travels on the wire.
	ChargeGranted bool
}

// HookGrantState is carried only by hook-grant platforms.
type HookGrantState struct {
	Granted bool
}

// Platform is one square block of the climbing field.
type Platform struct {
	ID     uint64
	X      float64
	Y      float64
	Width  float64
	Height float64
	Kind   PlatformKind

	Collapse  *CollapseState
	HookGrant *HookGrantState
}

// NewPlatform builds a platform with the per-kind state its kind requires.
func NewPlatform(id uint64, kind PlatformKind, x, y float64) Platform {
	p := Platform{
		ID:     id,
		X:      x,
		Y:      y,
		Width:  PlatformSize,
		Height: PlatformSize,
		Kind:   kind,
	}
	switch kind {
	case KindCollapsing:
		p.Collapse = &CollapseState{Countdown: CollapseSeconds}
	case KindHookGrant:
		p.HookGrant = &HookGrantState{}
	}
	return p
}

// Solid reports whether the platform still takes part in collision.
func (p Platform) Solid() bool {
	if p.Kind != KindCollapsing || p.Collapse == nil {
		return true
	}
	return !p.Collapse.Started || p.Collapse.Countdown > 0
}

// Collapsed reports a started countdown that reached zero.
func (p Platform) Collapsed() bool {
	return p.Kind == KindCollapsing && p.Collapse != nil && p.Collapse.Started && p.Collapse.Countdown <= 0
}

// DisplayCountdown is the whole-second value shown on a running countdown.
func (p Platform) DisplayCountdown() int {
	if p.Collapse == nil || !p.Collapse.Started {
		return 0
	}
	return int(math.Ceil(p.Collapse.Countdown))
}

func (p Platform) clone() Platform {
	copied := p
	if p.Collapse != nil {
		state := *p.Collapse
		copied.Collapse = &state
	}
	if p.HookGrant != nil {
		state := *p.HookGrant
		copied.HookGrant = &state
	}
	return copied
}

// landedOn reports whether the avatar's bottom edge sits inside the
// platform's top band while descending.
func (p Platform) landedOn(a Avatar) bool {
	if a.VY < 0 {
		return false
	}
	bottom := a.Y + a.Height
	return a.X+a.Width > p.X &&
		a.X < p.X+p.Width &&
		bottom > p.Y &&
		bottom < p.Y+p.Height
}

// startCollapse begins the countdown once. It returns true on the first call.
func (p *Platform) startCollapse() bool {
	if p.Kind != KindCollapsing || p.Collapse == nil || p.Collapse.Started {
		return false
	}
	p.Collapse.Started = true
	p.Collapse.Countdown = CollapseSeconds
	return true
}

// applyTimer lowers a countdown to the incoming value. Started countdowns
// never reset and never increase.
func (p *Platform) applyTimer(countdown float64) bool {
	if p.Kind != KindCollapsing || p.Collapse == nil || !finite(countdown) {
		return false
	}
	countdown = clamp(countdown, 0, CollapseSeconds)
	if !p.Collapse.Started {
		p.Collapse.Started = true
		p.Collapse.Countdown = countdown
		return true
	}
	if countdown < p.Collapse.Countdown {
		p.Collapse.Countdown = countdown
		return true
	}
	return false
}

func initialPlatforms(viewWidth float64, nextID func() uint64) []Platform {
	total := PlatformSize*3 + InitialRowGap*2
	startX := math.Round((viewWidth - total) / 2)
	step := PlatformSize + InitialRowGap
	return []Platform{
		NewPlatform(nextID(), KindCollapsing, startX, InitialRowY),
		NewPlatform(nextID(), KindHookGrant, startX+step, InitialRowY),
		NewPlatform(nextID(), KindSuperJump, startX+step*2, InitialRowY),
	}
}
