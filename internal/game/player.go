package game

import "github.com/go-gl/mathgl/mgl32"

func NewHolder(pos, forward mgl32.Vec3, hand HandOffset) HolderState {
	f := mgl32.Vec3{forward.X(), 0, forward.Z()}
	if f.Len() == 0 {
		f = mgl32.Vec3{0, 0, 1}
	}
	return HolderState{
		Pos:     pos,
		Forward: f.Normalize(),
		Hand:    hand,
		Anim:    AnimIdle,
		lastPos: pos,
	}
}

// Right is the holder's horizontal right-hand axis.
func (h *HolderState) Right() mgl32.Vec3 {
	return Up.Cross(h.Forward)
}

// HandAnchor is the world position of the dribbling hand.
func (h *HolderState) HandAnchor() mgl32.Vec3 {
	return h.Pos.
		Add(h.Right().Mul(h.Hand.Right)).
		Add(Up.Mul(h.Hand.Up)).
		Add(h.Forward.Mul(h.Hand.Forward))
}

// Observe derives Speed from the position change since the last call.
func (h *HolderState) Observe(dt float32) {
	if dt <= 0 {
		return
	}
	h.Speed = h.Pos.Sub(h.lastPos).Len() / dt
	h.lastPos = h.Pos
}

// SetBool lets the dribble controller drive the holder's animation flags.
func (h *HolderState) SetBool(name string, value bool) {
	switch name {
	case ParamDribbling:
		h.Dribbling = value
	case ParamCharging:
		h.Charging = value
	}
}

func ApplyInput(h *HolderState, input PlayerInput) {
	// Charging plants the feet
	if h.Charging {
		h.Vel = mgl32.Vec3{}
		return
	}
	dir := mgl32.Vec3{float32(input.MoveX), 0, float32(input.MoveZ)}
	if dir.Len() == 0 {
		h.Vel = mgl32.Vec3{}
		return
	}
	dir = dir.Normalize()
	speed := WalkSpeed
	if input.Sprint {
		speed = RunSpeed
	}
	h.Vel = dir.Mul(speed)
	h.Forward = dir
}

func StepHolder(h *HolderState, dt float32) {
	h.Pos = h.Pos.Add(h.Vel.Mul(dt))

	// Court bounds
	h.Pos[0] = mgl32.Clamp(h.Pos[0], -CourtHalfWidth, CourtHalfWidth)
	h.Pos[2] = mgl32.Clamp(h.Pos[2], 0, CourtLength)

	h.Observe(dt)

	// Animation
	moving := h.Speed > minMoveSpeed
	switch {
	case h.Charging:
		h.Anim = AnimCharge
	case moving && h.Dribbling:
		h.Anim = AnimDribble
	case moving && h.Speed > WalkSpeed:
		h.Anim = AnimRun
	case moving:
		h.Anim = AnimWalk
	default:
		h.Anim = AnimIdle
	}
}
