package sim

import "math"

// HookState is an attached rope: the anchor point in world coordinates and the
// maximum distance the avatar centre may sit from it.
type HookState struct {
	AnchorX    float64
	AnchorY    float64
	RopeLength float64
}

// Avatar is the locally controlled player. Only the owning peer writes it.
type Avatar struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	VX     float64
	VY     float64

	Jumping          bool
	CanJump          bool
	CanDoubleJump    bool
	JumpKeyReleased  bool
	CurrentJumpSuper bool
	OnSuperJump      bool
	OnSpeed          bool
	JumpFromSpeed    bool
	JumpMomentum     float64

	DoubleJumps int
	Hooks       int
	Hook        *HookState

	HighestY float64
	HasMoved bool
}

func newAvatar(viewWidth float64) Avatar {
	return Avatar{
		X:               viewWidth/2 - AvatarSize/2,
		Y:               StartY,
		Width:           AvatarSize,
		Height:          AvatarSize,
		CanJump:         true,
		JumpKeyReleased: true,
		HighestY:        StartY,
	}
}

// CenterX returns the horizontal centre of the avatar box.
func (a Avatar) CenterX() float64 { return a.X + a.Width/2 }

// CenterY returns the vertical centre of the avatar box.
func (a Avatar) CenterY() float64 { return a.Y + a.Height/2 }

// Score is the run score derived from the highest point reached.
func (a Avatar) Score() int {
	return ScoreFor(a.HighestY)
}

// ScoreFor converts a minimum y into whole score units above the start line.
func ScoreFor(highestY float64) int {
	climbed := StartY - highestY
	if climbed <= 0 {
		return 0
	}
	return int(math.Floor(climbed / ScoreUnit))
}

// Mirror is the read-only copy of the remote peer's avatar. Only inbound
// synchronization writes it.
type Mirror struct {
	X        float64
	Y        float64
	VX       float64
	VY       float64
	HasMoved bool
	Hook     *HookState
	// Updated is the local frame at which the mirror was last overwritten.
	Updated uint64
}

func (m Mirror) overlaps(a Avatar) bool {
	return a.X < m.X+AvatarSize &&
		a.X+a.Width > m.X &&
		a.Y < m.Y+AvatarSize &&
		a.Y+a.Height > m.Y
}

func cloneHook(hook *HookState) *HookState {
	if hook == nil {
		return nil
	}
	copied := *hook
	return &copied
}
