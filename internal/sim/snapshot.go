package sim

// AvatarView is a render pose.
type AvatarView struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	VY     float64
	Hook   *HookState
}

// PlatformView is a platform as the render sink sees it.
type PlatformView struct {
	ID        uint64
	X         float64
	Y         float64
	Width     float64
	Height    float64
	Kind      PlatformKind
	Countdown int
	Running   bool
}

// Snapshot is the read-only per-frame view consumed by render sinks.
type Snapshot struct {
	Frame       uint64
	Role        Role
	CameraY     float64
	Local       AvatarView
	Remote      *AvatarView
	Platforms   []PlatformView
	Score       int
	HighScore   int
	Elevation   int
	DoubleJumps int
	Hooks       int
	Ghosts      []GhostView
	Birds       []Bird
	Ropes       []ReleasedRope
}

// Snapshot captures the current frame for rendering. Collapsed platforms are
// omitted and the remote avatar is present only while the peer gate is open.
func (w *World) Snapshot() Snapshot {
	a := w.avatar
	snap := Snapshot{
		Frame:   w.frame,
		Role:    w.role,
		CameraY: w.camera.Y,
		Local: AvatarView{
			X: a.X, Y: a.Y, Width: a.Width, Height: a.Height, VY: a.VY,
			Hook: cloneHook(a.Hook),
		},
		Score:       a.Score(),
		HighScore:   w.highScore,
		Elevation:   ScoreFor(a.Y),
		DoubleJumps: a.DoubleJumps,
		Hooks:       a.Hooks,
		Birds:       append([]Bird(nil), w.birds...),
	}
	if w.peerReady && w.mirror != nil {
		snap.Remote = &AvatarView{
			X: w.mirror.X, Y: w.mirror.Y, Width: AvatarSize, Height: AvatarSize, VY: w.mirror.VY,
			Hook: cloneHook(w.mirror.Hook),
		}
	}
	snap.Platforms = make([]PlatformView, 0, len(w.platforms))
	for _, p := range w.platforms {
		if p.Collapsed() {
			continue
		}
		view := PlatformView{
			ID: p.ID, X: p.X, Y: p.Y, Width: p.Width, Height: p.Height, Kind: p.Kind,
		}
		if p.Collapse != nil && p.Collapse.Started {
			view.Running = true
			view.Countdown = p.DisplayCountdown()
		}
		snap.Platforms = append(snap.Platforms, view)
	}
	if a.HasMoved {
		snap.Ghosts = w.ghosts.Visible()
	}
	if len(w.ropes) > 0 {
		snap.Ropes = make([]ReleasedRope, len(w.ropes))
		for i, rope := range w.ropes {
			snap.Ropes[i] = rope.clone()
		}
	}
	return snap
}
