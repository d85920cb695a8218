package game

import "github.com/go-gl/mathgl/mgl32"

// Simulation & court constants. Units are meters and seconds, y is up.
const (
	TickRate = 50
	DT       = 1.0 / float32(TickRate)

	WalkSpeed = float32(2.0)
	RunSpeed  = float32(5.0)

	// Court spans x in [-CourtHalfWidth, CourtHalfWidth], z in [0, CourtLength].
	CourtHalfWidth = float32(7.5)
	CourtLength    = float32(14.0)

	RimHeight = float32(3.05)
	RimRadius = float32(0.23)
	HoopZ     = float32(12.5)

	wallRestitution = float32(0.8)
	floorFriction   = float32(0.95)
	// Rebounds slower than this come to rest on the floor.
	restSpeed = float32(0.2)
)

// Up is the world up axis.
var Up = mgl32.Vec3{0, 1, 0}

// Animator parameter names driven by the dribble state hooks.
const (
	ParamDribbling = "IsDribbling"
	ParamCharging  = "IsCharging"
)

type AnimState uint8

const (
	AnimIdle AnimState = iota
	AnimWalk
	AnimRun
	AnimDribble
	AnimCharge
	AnimShoot
)

type BallState struct {
	Pos        mgl32.Vec3 `json:"pos"`
	Vel        mgl32.Vec3 `json:"vel"`
	UseGravity bool       `json:"useGravity"`
	Kinematic  bool       `json:"kinematic"`
}

// HandOffset places the hand anchor relative to the holder's feet.
type HandOffset struct {
	Right   float32 `yaml:"right" json:"right"`
	Up      float32 `yaml:"up" json:"up"`
	Forward float32 `yaml:"forward" json:"forward"`
}

type HolderState struct {
	Pos       mgl32.Vec3 `json:"pos"`
	Vel       mgl32.Vec3 `json:"-"`
	Forward   mgl32.Vec3 `json:"forward"`
	Speed     float32    `json:"speed"` // derived from position delta, never set by input
	Anim      AnimState  `json:"anim"`
	Hand      HandOffset `json:"-"`
	Dribbling bool       `json:"-"` // animator flags
	Charging  bool       `json:"-"`

	lastPos mgl32.Vec3
}

// SessionState is the snapshot broadcast to the client every tick.
type SessionState struct {
	Tick    uint32       `json:"tick"`
	Holder  HolderState  `json:"holder"`
	Ball    BallState    `json:"ball"`
	Dribble DribbleState `json:"dribble"`
	Charge  float32      `json:"charge"`
	Score   int          `json:"score"`
}

type PlayerInput struct {
	MoveX       int8   `json:"moveX"`
	MoveZ       int8   `json:"moveZ"`
	Sprint      bool   `json:"sprint"`
	ChargeStart bool   `json:"chargeStart"`
	Release     bool   `json:"release"`
	Tick        uint32 `json:"tick"`
}
