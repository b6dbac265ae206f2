package sim

import "math"

// SetRole switches between solo, host and guest.
func (w *World) SetRole(role Role) {
	w.role = role
	w.lastRequested = math.NaN()
}

// SetMirror overwrites the remote avatar mirror.
func (w *World) SetMirror(m Mirror) {
	m.Hook = cloneHook(m.Hook)
	m.Updated = w.frame
	w.mirror = &m
}

// SetMirrorHook attaches or clears the mirror's rope.
func (w *World) SetMirrorHook(hook *HookState) {
	if w.mirror == nil {
		return
	}
	w.mirror.Hook = cloneHook(hook)
}

// ClearMirror discards the remote avatar and closes the peer gate.
func (w *World) ClearMirror() {
	w.mirror = nil
	w.peerReady = false
}

// SetPeerReady opens or closes cross-player effects.
func (w *World) SetPeerReady(ready bool) {
	w.peerReady = ready
}

// CenterForJoin places the avatar beside the viewport centre: the host to the
// left, the guest to the right.
func (w *World) CenterForJoin(isHost bool) {
	a := &w.avatar
	a.X = w.cfg.ViewWidth/2 - a.Width/2
	if isHost {
		a.X -= JoinOffset
	} else {
		a.X += JoinOffset
	}
	a.Y = StartY
}

// ReplacePlatforms swaps in the host's platform set. Local reward flags are
// carried over for platforms that survive the swap.
func (w *World) ReplacePlatforms(platforms []Platform, highest float64) {
	previous := make(map[uint64]Platform, len(w.platforms))
	for _, p := range w.platforms {
		previous[p.ID] = p
	}
	replaced := make([]Platform, 0, len(platforms))
	for _, incoming := range platforms {
		p := incoming.clone()
		if old, ok := previous[p.ID]; ok && old.Kind == p.Kind {
			mergeLocalFlags(&p, old)
		}
		if p.ID < GuestIDBase && p.ID > w.nextID {
			w.nextID = p.ID
		}
		replaced = append(replaced, p)
	}
	w.platforms = replaced
	if finite(highest) {
		w.highestGenerated = highest
	}
}

// mergeLocalFlags keeps this peer's reward flags and never lets an incoming
// snapshot restart or raise a running countdown.
func mergeLocalFlags(p *Platform, old Platform) {
	switch p.Kind {
	case KindCollapsing:
		if p.Collapse == nil || old.Collapse == nil {
			return
		}
		p.Collapse.ChargeGranted = old.Collapse.ChargeGranted
		if old.Collapse.Started {
			if !p.Collapse.Started || p.Collapse.Countdown > old.Collapse.Countdown {
				p.Collapse.Started = true
				p.Collapse.Countdown = old.Collapse.Countdown
			}
		}
	case KindHookGrant:
		if p.HookGrant == nil || old.HookGrant == nil {
			return
		}
		p.HookGrant.Granted = old.HookGrant.Granted
	}
}

// ApplyTimer starts or lowers a collapse countdown by platform id.
func (w *World) ApplyTimer(id uint64, countdown float64) bool {
	idx := w.platformIndex(id)
	if idx < 0 {
		return false
	}
	return w.platforms[idx].applyTimer(countdown)
}

// StartCollapse starts a countdown on behalf of the guest. It returns the
// countdown to broadcast and whether the timer was started by this call.
func (w *World) StartCollapse(id uint64) (TimerUpdate, bool) {
	if !w.role.Authoritative() {
		return TimerUpdate{}, false
	}
	idx := w.platformIndex(id)
	if idx < 0 {
		return TimerUpdate{}, false
	}
	p := &w.platforms[idx]
	if !p.startCollapse() {
		return TimerUpdate{}, false
	}
	return TimerUpdate{ID: p.ID, Countdown: p.Collapse.Countdown}, true
}

// PlatformsForWire returns the platform set with the highest row for broadcast.
func (w *World) PlatformsForWire() ([]Platform, float64) {
	return w.Platforms(), w.highestGenerated
}
