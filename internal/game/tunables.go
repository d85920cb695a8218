package game

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tunables holds every gameplay knob. Zero values are never meaningful; start
// from DefaultTunables and overlay.
type Tunables struct {
	// Dribble heights
	CatchHeight      float32 `yaml:"catch_height"`
	CatchTolerance   float32 `yaml:"catch_tolerance"`
	MaxDribbleHeight float32 `yaml:"max_dribble_height"`

	// Gait: walking vs running
	WalkMaxDistance    float32 `yaml:"walk_max_distance"`
	RunMaxDistance     float32 `yaml:"run_max_distance"`
	WalkDribbleForce   float32 `yaml:"walk_dribble_force"`
	RunDribbleForce    float32 `yaml:"run_dribble_force"`
	WalkBounceInterval float32 `yaml:"walk_bounce_interval"`
	RunBounceInterval  float32 `yaml:"run_bounce_interval"`
	RunSpeedThreshold  float32 `yaml:"run_speed_threshold"`
	WalkLerpSpeed      float32 `yaml:"walk_lerp_speed"`
	RunLerpSpeed       float32 `yaml:"run_lerp_speed"`
	SwayAmplitude      float32 `yaml:"sway_amplitude"`

	MaxBallSpeed float32 `yaml:"max_ball_speed"`

	// Hand hold
	HoldDuration  float32    `yaml:"hold_duration"`
	HandLerpSpeed float32    `yaml:"hand_lerp_speed"`
	HandProximity float32    `yaml:"hand_proximity"`
	DropSpeed     float32    `yaml:"drop_speed"`
	Hand          HandOffset `yaml:"hand"`

	// Ball body
	BallRadius        float32 `yaml:"ball_radius"`
	BallMass          float32 `yaml:"ball_mass"`
	GroundCheckRadius float32 `yaml:"ground_check_radius"`
	FloorRestitution  float32 `yaml:"floor_restitution"`
	Gravity           float32 `yaml:"gravity"`

	// Shooting
	MinShotForce  float32 `yaml:"min_shot_force"`
	MaxShotForce  float32 `yaml:"max_shot_force"`
	MaxChargeTime float32 `yaml:"max_charge_time"`
	ShotClearance float32 `yaml:"shot_clearance"`

	// Scoring
	ScoreIncrement int     `yaml:"score_increment"`
	ScoreCooldown  float32 `yaml:"score_cooldown"`
	ResetAfterShot float32 `yaml:"reset_after_shot"`
}

func DefaultTunables() Tunables {
	return Tunables{
		CatchHeight:      1.0,
		CatchTolerance:   0.05,
		MaxDribbleHeight: 1.3,

		WalkMaxDistance:    1.5,
		RunMaxDistance:     2.0,
		WalkDribbleForce:   5,
		RunDribbleForce:    8,
		WalkBounceInterval: 0.25,
		RunBounceInterval:  0.15,
		RunSpeedThreshold:  3,
		WalkLerpSpeed:      5,
		RunLerpSpeed:       10,
		SwayAmplitude:      0.1,

		MaxBallSpeed: 10,

		HoldDuration:  0.3,
		HandLerpSpeed: 15,
		HandProximity: 0.1,
		DropSpeed:     5,
		Hand:          HandOffset{Right: 0.3, Up: 1.0, Forward: 0.4},

		BallRadius:        0.12,
		BallMass:          1,
		GroundCheckRadius: 0.1,
		FloorRestitution:  0.75,
		Gravity:           9.81,

		MinShotForce:  0.9,
		MaxShotForce:  1.1,
		MaxChargeTime: 1.5,
		ShotClearance: 2.0,

		ScoreIncrement: 2,
		ScoreCooldown:  1.0,
		ResetAfterShot: 3.0,
	}
}

// LoadTunables reads a YAML overlay on top of DefaultTunables. An empty path
// returns the defaults. The result is validated.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, fmt.Errorf("read tunables: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
			return Tunables{}, fmt.Errorf("%w: %s", ErrInvalidTunables, typeErr.Errors[0])
		}
		return Tunables{}, fmt.Errorf("%w: %w", ErrInvalidTunables, err)
	}
	if err := t.Validate(); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

// Validate rejects configurations that would produce NaN trajectories or a
// machine that can never leave a state.
func (t Tunables) Validate() error {
	if !(t.Gravity > 0) {
		return fmt.Errorf("%w: %w (got %v)", ErrInvalidTunables, ErrInvalidGravity, t.Gravity)
	}
	positive := []struct {
		name string
		v    float32
	}{
		{"catch_height", t.CatchHeight},
		{"max_dribble_height", t.MaxDribbleHeight},
		{"walk_max_distance", t.WalkMaxDistance},
		{"run_max_distance", t.RunMaxDistance},
		{"walk_bounce_interval", t.WalkBounceInterval},
		{"run_bounce_interval", t.RunBounceInterval},
		{"max_ball_speed", t.MaxBallSpeed},
		{"hand_lerp_speed", t.HandLerpSpeed},
		{"hand_proximity", t.HandProximity},
		{"ball_radius", t.BallRadius},
		{"ball_mass", t.BallMass},
		{"max_charge_time", t.MaxChargeTime},
	}
	for _, p := range positive {
		if !(p.v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidTunables, p.name, p.v)
		}
	}
	if t.CatchHeight > t.MaxDribbleHeight {
		return fmt.Errorf("%w: catch_height %v above max_dribble_height %v",
			ErrInvalidTunables, t.CatchHeight, t.MaxDribbleHeight)
	}
	if t.MinShotForce < 0 || t.MinShotForce > t.MaxShotForce {
		return fmt.Errorf("%w: shot force range [%v, %v]", ErrInvalidTunables, t.MinShotForce, t.MaxShotForce)
	}
	if t.ShotClearance < 0 || t.HoldDuration < 0 || t.ScoreCooldown < 0 {
		return fmt.Errorf("%w: shot_clearance, hold_duration and score_cooldown must not be negative", ErrInvalidTunables)
	}
	return nil
}

// Gait is the parameter set picked each step from the holder's speed.
type Gait struct {
	Running     bool
	Force       float32
	Interval    float32
	MaxDistance float32
	LerpSpeed   float32
}

func (t Tunables) Gait(speed float32) Gait {
	if speed > t.RunSpeedThreshold {
		return Gait{
			Running:     true,
			Force:       t.RunDribbleForce,
			Interval:    t.RunBounceInterval,
			MaxDistance: t.RunMaxDistance,
			LerpSpeed:   t.RunLerpSpeed,
		}
	}
	return Gait{
		Force:       t.WalkDribbleForce,
		Interval:    t.WalkBounceInterval,
		MaxDistance: t.WalkMaxDistance,
		LerpSpeed:   t.WalkLerpSpeed,
	}
}

func (t Tunables) ShotParams() ShotParams {
	return ShotParams{
		Clearance: t.ShotClearance,
		MinForce:  t.MinShotForce,
		MaxForce:  t.MaxShotForce,
		Gravity:   t.Gravity,
	}
}
