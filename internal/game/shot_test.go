package game

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const landEps = 1e-3

func near(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() <= eps
}

func TestSolveArcExample(t *testing.T) {
	start := mgl32.Vec3{0, 1, 0}
	target := mgl32.Vec3{0, 1, 10}

	arc, err := SolveArc(start, target, 2, 9.8)
	if err != nil {
		t.Fatalf("SolveArc: %v", err)
	}
	if arc.Range != 10 {
		t.Errorf("range = %v, want 10", arc.Range)
	}
	// target+clearance is 3, below half the range, so the apex floor of R/2 wins
	if arc.Apex != 5 {
		t.Errorf("apex = %v, want 5", arc.Apex)
	}
	v := arc.Velocity
	if v.Z() <= 0 || v.Y() <= 0 {
		t.Errorf("velocity = %v, want positive planar and vertical components", v)
	}
	if v.X() != 0 {
		t.Errorf("vx = %v, want 0 for a shot straight down +z", v.X())
	}
	got := BallisticPosition(start, v, 9.8, arc.FlightTime())
	if !near(got, target, landEps) {
		t.Errorf("lands at %v, want %v", got, target)
	}
}

func TestSolveArcRoundTrip(t *testing.T) {
	cases := []struct {
		name          string
		start, target mgl32.Vec3
		clearance     float32
	}{
		{"free throw", mgl32.Vec3{0, 2.1, 8.1}, mgl32.Vec3{0, 3.05, 12.5}, 1.5},
		{"corner three", mgl32.Vec3{6.6, 2.2, 12}, mgl32.Vec3{0, 3.05, 12.5}, 2},
		{"downhill", mgl32.Vec3{0, 6, 0}, mgl32.Vec3{3, 1, 4}, 0.5},
		{"long flat", mgl32.Vec3{-5, 1, 0}, mgl32.Vec3{5, 1, 20}, 0},
		{"diagonal", mgl32.Vec3{1, 1, 1}, mgl32.Vec3{-2, 2.5, 6}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const g = 9.81
			arc, err := SolveArc(tc.start, tc.target, tc.clearance, g)
			if err != nil {
				t.Fatalf("SolveArc: %v", err)
			}
			if arc.Apex < tc.start.Y() || arc.Apex < tc.target.Y() {
				t.Fatalf("apex %v below an endpoint", arc.Apex)
			}
			got := BallisticPosition(tc.start, arc.Velocity, g, arc.FlightTime())
			if !near(got, tc.target, landEps) {
				t.Errorf("lands at %v, want %v", got, tc.target)
			}
			// The apex is reached at the end of the first leg.
			top := BallisticPosition(tc.start, arc.Velocity, g, arc.TimeUp)
			if math.Abs(float64(top.Y()-arc.Apex)) > landEps {
				t.Errorf("height at TimeUp = %v, want apex %v", top.Y(), arc.Apex)
			}
		})
	}
}

func TestSolveArcStraightUp(t *testing.T) {
	start := mgl32.Vec3{2, 1, 3}
	for _, ty := range []float32{3, 0.5} {
		target := mgl32.Vec3{2, ty, 3}
		arc, err := SolveArc(start, target, 1, 9.81)
		if err != nil {
			t.Fatalf("SolveArc(y=%v): %v", ty, err)
		}
		if arc.Velocity.X() != 0 || arc.Velocity.Z() != 0 {
			t.Errorf("y=%v: horizontal velocity = (%v, %v), want exactly zero", ty, arc.Velocity.X(), arc.Velocity.Z())
		}
		if arc.Velocity.Y() <= 0 {
			t.Errorf("y=%v: vy = %v, want upward", ty, arc.Velocity.Y())
		}
		got := BallisticPosition(start, arc.Velocity, 9.81, arc.FlightTime())
		if !near(got, target, landEps) {
			t.Errorf("y=%v: lands at %v, want %v", ty, got, target)
		}
	}
}

func TestSolveArcSamePoint(t *testing.T) {
	p := mgl32.Vec3{1, 2, 3}
	arc, err := SolveArc(p, p, 0, 9.81)
	if err != nil {
		t.Fatalf("SolveArc: %v", err)
	}
	if arc.Velocity != (mgl32.Vec3{}) {
		t.Errorf("velocity = %v, want zero", arc.Velocity)
	}
}

func TestSolveArcErrors(t *testing.T) {
	start := mgl32.Vec3{0, 1, 0}
	target := mgl32.Vec3{0, 3, 5}
	for _, g := range []float32{0, -9.81, float32(math.NaN())} {
		if _, err := SolveArc(start, target, 1, g); !errors.Is(err, ErrInvalidGravity) {
			t.Errorf("g=%v: err = %v, want ErrInvalidGravity", g, err)
		}
	}

	// Level endpoints, no clearance and a short range leave no time to fly.
	_, err := SolveArc(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{2, 5, 0}, 0, 9.81)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

func TestLaunchScaleMonotoneAndBounded(t *testing.T) {
	const lo, hi = 0.8, 1.25
	prev := float32(-1)
	for i := 0; i <= 100; i++ {
		c := float32(i) / 100
		s := LaunchScale(c, lo, hi)
		if s < lo || s > hi {
			t.Fatalf("LaunchScale(%v) = %v outside [%v,%v]", c, s, lo, hi)
		}
		if s < prev {
			t.Fatalf("LaunchScale(%v) = %v decreased from %v", c, s, prev)
		}
		prev = s
	}
	if got := LaunchScale(-3, lo, hi); got != lo {
		t.Errorf("LaunchScale(-3) = %v, want %v", got, lo)
	}
	if got := LaunchScale(7, lo, hi); got != hi {
		t.Errorf("LaunchScale(7) = %v, want %v", got, hi)
	}
}

func TestSolveShotScalesArc(t *testing.T) {
	start := mgl32.Vec3{0, 2, 8}
	target := mgl32.Vec3{0, 3.05, 12.5}
	p := ShotParams{Clearance: 2, MinForce: 0.5, MaxForce: 1.5, Gravity: 9.81}

	shot, err := SolveShot(start, target, 0.25, p)
	if err != nil {
		t.Fatalf("SolveShot: %v", err)
	}
	if shot.Scale != 0.75 {
		t.Errorf("scale = %v, want 0.75", shot.Scale)
	}
	if !near(shot.Velocity, shot.Arc.Velocity.Mul(0.75), 1e-6) {
		t.Errorf("velocity = %v, want arc velocity scaled by 0.75", shot.Velocity)
	}

	// A unit scale is the exact arc.
	p.MinForce, p.MaxForce = 1, 1
	shot, err = SolveShot(start, target, 0.6, p)
	if err != nil {
		t.Fatalf("SolveShot: %v", err)
	}
	got := BallisticPosition(start, shot.Velocity, p.Gravity, shot.Arc.FlightTime())
	if !near(got, target, landEps) {
		t.Errorf("unit-scale shot lands at %v, want %v", got, target)
	}

	p.Gravity = 0
	if _, err := SolveShot(start, target, 1, p); !errors.Is(err, ErrInvalidGravity) {
		t.Errorf("err = %v, want ErrInvalidGravity", err)
	}
}
