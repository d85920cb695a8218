package game

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type ShotParams struct {
	Clearance float32 // apex height above the target
	MinForce  float32 // launch scale at zero charge
	MaxForce  float32 // launch scale at full charge
	Gravity   float32
}

// Arc is the unscaled two-leg ballistic solution: up to the apex, then down
// onto the target.
type Arc struct {
	Velocity mgl32.Vec3
	Apex     float32
	Range    float32
	TimeUp   float32
	TimeDown float32
}

func (a Arc) FlightTime() float32 {
	return a.TimeUp + a.TimeDown
}

type Shot struct {
	Velocity mgl32.Vec3 `json:"velocity"`
	Arc      Arc        `json:"-"`
	Scale    float32    `json:"scale"`
	Charge   float32    `json:"charge"`
}

// SolveArc finds the launch velocity that carries a point mass from start
// through target under constant acceleration (0,-g,0).
//
// The apex sits clearance above the target, raised to half the planar range
// for short flat shots, and never below the start height. Each leg's time
// follows from t = sqrt(2*dh/g).
func SolveArc(start, target mgl32.Vec3, clearance, g float32) (Arc, error) {
	if !(g > 0) {
		return Arc{}, fmt.Errorf("solve arc: %w (got %v)", ErrInvalidGravity, g)
	}
	dx := float64(target.X() - start.X())
	dz := float64(target.Z() - start.Z())
	r := math.Hypot(dx, dz)

	sy, ty := float64(start.Y()), float64(target.Y())
	apex := ty + math.Max(float64(clearance), 0)
	if r/2 > apex {
		apex = r / 2
	}
	apex = math.Max(apex, sy)

	gg := float64(g)
	up := math.Sqrt(2 * (apex - sy) / gg)
	down := math.Sqrt(2 * (apex - ty) / gg)
	total := up + down
	vy := math.Sqrt(2 * gg * (apex - sy))

	arc := Arc{
		Apex:     float32(apex),
		Range:    float32(r),
		TimeUp:   float32(up),
		TimeDown: float32(down),
	}
	if r == 0 {
		// Straight up (or nothing at all when start == target).
		arc.Velocity = mgl32.Vec3{0, float32(vy), 0}
		return arc, nil
	}
	if total == 0 {
		return Arc{}, fmt.Errorf("solve arc: %w (range %.3f)", ErrUnreachable, r)
	}
	h := r / total
	arc.Velocity = mgl32.Vec3{
		float32(dx / r * h),
		float32(vy),
		float32(dz / r * h),
	}
	return arc, nil
}

// LaunchScale interpolates between lo and hi by charge, clamped to [0,1].
func LaunchScale(charge, lo, hi float32) float32 {
	c := mgl32.Clamp(charge, 0, 1)
	return lo + (hi-lo)*c
}

// SolveShot solves the arc and scales the launch velocity by the charge.
// Only a scale of exactly 1 lands on target; under- and over-charged shots
// fall short or long.
func SolveShot(start, target mgl32.Vec3, charge float32, p ShotParams) (Shot, error) {
	arc, err := SolveArc(start, target, p.Clearance, p.Gravity)
	if err != nil {
		return Shot{}, err
	}
	scale := LaunchScale(charge, p.MinForce, p.MaxForce)
	return Shot{
		Velocity: arc.Velocity.Mul(scale),
		Arc:      arc,
		Scale:    scale,
		Charge:   mgl32.Clamp(charge, 0, 1),
	}, nil
}

// BallisticPosition evaluates start + vel*t + (0,-g,0)*t^2/2.
func BallisticPosition(start, vel mgl32.Vec3, g, t float32) mgl32.Vec3 {
	p := start.Add(vel.Mul(t))
	p[1] -= 0.5 * g * t * t
	return p
}
