package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GoalSensor is the trigger volume hanging under the rim.
type GoalSensor struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3

	inside bool
}

func (g *GoalSensor) Contains(p mgl32.Vec3) bool {
	d := p.Sub(g.Center)
	return abs32(d.X()) <= g.HalfExtents.X() &&
		abs32(d.Y()) <= g.HalfExtents.Y() &&
		abs32(d.Z()) <= g.HalfExtents.Z()
}

// Update reports an entry: the ball was outside last tick, is inside now and
// is travelling downward. Staying inside never reports twice.
func (g *GoalSensor) Update(b BallState) bool {
	in := g.Contains(b.Pos)
	entered := in && !g.inside && b.Vel.Y() < 0
	g.inside = in
	return entered
}

func (g *GoalSensor) Reset() {
	g.inside = false
}

type Hoop struct {
	Rim    mgl32.Vec3 // rim center, the shot target
	Sensor GoalSensor
}

const sensorDepth = float32(0.15)

// NewHoop hangs a sensor the width of the rim just below it.
func NewHoop(rim mgl32.Vec3) Hoop {
	return Hoop{
		Rim: rim,
		Sensor: GoalSensor{
			Center:      rim.Sub(mgl32.Vec3{0, sensorDepth, 0}),
			HalfExtents: mgl32.Vec3{RimRadius, sensorDepth, RimRadius},
		},
	}
}

// DefaultHoop is the practice-court basket.
func DefaultHoop() Hoop {
	return NewHoop(mgl32.Vec3{0, RimHeight, HoopZ})
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
