package sim

// Per-frame tuning at the 60 Hz reference step.
const (
	Gravity = 0.5

	AvatarSize   = 30.0
	StartY       = 200.0
	MoveSpeed    = 5.0
	BoostedSpeed = 12.0

	AirControl          = 0.8
	AirControlBoost     = 1.2
	AirFriction         = 0.92
	VelocityCutoff      = 0.1
	SpeedJumpMomentum   = 1.5
	JumpForce           = -5.0
	SuperJumpForce      = -19.0
	DoubleJumpFactor    = 1.2
	SwingInputAccel     = 0.3
	SwingDamping        = 0.99
	PeerBounceForce     = 8.0
	JoinOffset          = 45.0
	ScoreUnit           = 10.0
	CollapseSeconds     = 3.0
	GhostHistoryLimit   = 5
	ReleasedRopeLimit   = 8
	ReleasedRopePoints  = 10
	RopeSegmentLength   = 20.0
	RopeGravityFactor   = 0.5
	DefaultGhostFrames  = 60 * 60 * 10
	DefaultStepsPerSec  = 60
	DefaultCatchupSteps = 5
)

// Platform field layout.
const (
	PlatformSize         = 100.0
	InitialRowY          = 300.0
	InitialRowGap        = 10.0
	RowGap               = 150.0
	GenerationMargin     = 300.0
	MinPlatformSpacing   = 20.0
	PlacementAttempts    = 10
	MinRowPlatforms      = 2
	MaxRowPlatforms      = 3
	PruneScreens         = 2.0
	DefaultMaxRowsPerReq = 32
)

// Camera framing.
const (
	CameraVerticalOffset = -30.0
	DefaultViewWidth     = 800.0
	DefaultViewHeight    = 600.0
)

// Bird hazards.
const (
	BirdSpawnChance  = 0.02
	BirdMaxCount     = 5
	BirdSize         = 6.0
	BirdSpawnRange   = 400.0
	BirdMinSpeed     = 2.0
	BirdSpeedSpread  = 2.0
	BirdBounceForce  = -8.0
	BirdPushForce    = 8.0
	BirdSideBounce   = 0.7
	BirdSpawnMargin  = 20.0
	BirdDespawnSlack = 50.0
)
