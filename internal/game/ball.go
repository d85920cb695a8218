package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// NewBall places the ball in hand, already dropping into the first bounce.
func NewBall(hand mgl32.Vec3, dropSpeed float32) BallState {
	return BallState{
		Pos:        hand,
		Vel:        mgl32.Vec3{0, -dropSpeed, 0},
		UseGravity: true,
	}
}

// StepBall integrates a free point-mass ball for one tick and resolves floor
// and wall contact. Kinematic balls are left where their owner put them.
func StepBall(b *BallState, t Tunables, dt float32) {
	if b.Kinematic {
		return
	}

	// Average of old and new velocity: exact for constant gravity, so a
	// solved shot follows its arc tick for tick.
	prev := b.Vel
	if b.UseGravity {
		b.Vel[1] -= t.Gravity * dt
	}
	b.Pos = b.Pos.Add(prev.Add(b.Vel).Mul(dt / 2))

	// Floor bounce
	if b.Pos[1] < t.BallRadius {
		b.Pos[1] = t.BallRadius
		if b.Vel[1] < 0 {
			b.Vel[1] = -b.Vel[1] * t.FloorRestitution
			b.Vel[0] *= floorFriction
			b.Vel[2] *= floorFriction

			if float32(math.Abs(float64(b.Vel[1]))) < restSpeed {
				b.Vel[1] = 0
			}
		}
	}

	// Side walls
	r := t.BallRadius
	if b.Pos[0]-r < -CourtHalfWidth {
		b.Pos[0] = -CourtHalfWidth + r
		b.Vel[0] = -b.Vel[0] * wallRestitution
	}
	if b.Pos[0]+r > CourtHalfWidth {
		b.Pos[0] = CourtHalfWidth - r
		b.Vel[0] = -b.Vel[0] * wallRestitution
	}
	// End lines
	if b.Pos[2]-r < 0 {
		b.Pos[2] = r
		b.Vel[2] = -b.Vel[2] * wallRestitution
	}
	if b.Pos[2]+r > CourtLength {
		b.Pos[2] = CourtLength - r
		b.Vel[2] = -b.Vel[2] * wallRestitution
	}
}
