package game

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/vladimirvolkov/dribble/internal/logger"
)

type DribbleState uint8

const (
	StateDribbling DribbleState = iota
	StateMovingToHand
	StateCharging
	StateReleased
)

var stateNames = [...]string{
	StateDribbling:    "dribbling",
	StateMovingToHand: "moving_to_hand",
	StateCharging:     "charging",
	StateReleased:     "released",
}

func (s DribbleState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("DribbleState(%d)", uint8(s))
}

func (s DribbleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// stateHooks are the engine-side effects applied on entering a state.
type stateHooks struct {
	gravity   bool
	kinematic bool
	dribbling bool // animator IsDribbling
	charging  bool // animator IsCharging
}

// Kinematic states belong to the controller; StepBall leaves them alone.
var stateTable = [...]stateHooks{
	StateDribbling:    {gravity: true, dribbling: true},
	StateMovingToHand: {kinematic: true, dribbling: true},
	StateCharging:     {kinematic: true, charging: true},
	StateReleased:     {gravity: true},
}

// transitions lists every legal edge. Charging is reachable from anywhere;
// Dribbling is reachable from anywhere through RestartDribble.
var transitions = map[DribbleState][]DribbleState{
	StateDribbling:    {StateMovingToHand, StateCharging},
	StateMovingToHand: {StateDribbling, StateCharging},
	StateCharging:     {StateReleased, StateDribbling},
	StateReleased:     {StateCharging, StateDribbling},
}

func canTransition(from, to DribbleState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Feel constants from the hand-tuned dribble.
const (
	tetherLead        = 0.7 // share of the tether distance the ball leads the holder by
	speedLead         = 0.1 // extra lead per m/s of holder speed
	bounceSpeedGain   = 0.1 // bounce force gain per m/s
	heightDeficitGain = 0.5 // bounce force gain per meter below catch height
	forwardPushGain   = 0.3 // forward impulse per m/s
	minMoveSpeed      = 0.1 // below this the holder counts as standing still
)

// Animator receives the boolean animation parameters of the active state.
type Animator interface {
	SetBool(name string, value bool)
}

// ChargeMeter displays the charge fraction while a shot is charged.
type ChargeMeter interface {
	SetCharge(fraction float32)
}

// ChargeSession exists only while the controller is Charging.
type ChargeSession struct {
	Start   float32
	Elapsed float32 // clamped to limit
	Active  bool

	limit float32
}

// Fraction is the normalized charge in [0,1].
func (s ChargeSession) Fraction() float32 {
	if s.limit <= 0 {
		return 0
	}
	return mgl32.Clamp(s.Elapsed/s.limit, 0, 1)
}

type Option func(*DribbleController)

func WithAnimator(a Animator) Option {
	return func(c *DribbleController) { c.anim = a }
}

func WithChargeMeter(m ChargeMeter) Option {
	return func(c *DribbleController) { c.meter = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *DribbleController) { c.log = logger.OrNop(l) }
}

// DribbleController owns the ball while it is tethered to the holder's hand.
// Step must be called once per fixed tick, before the ball is integrated.
type DribbleController struct {
	cfg    Tunables
	ball   *BallState
	holder *HolderState
	anim   Animator
	meter  ChargeMeter
	log    *zap.Logger

	state      DribbleState
	gait       Gait
	clock      float32
	nextBounce float32
	holdTimer  float32
	lastHand   mgl32.Vec3 // hand anchor as of the previous MovingToHand tick
	charge     *ChargeSession
}

func NewDribbleController(cfg Tunables, ball *BallState, holder *HolderState, opts ...Option) *DribbleController {
	c := &DribbleController{
		cfg:    cfg,
		ball:   ball,
		holder: holder,
		log:    zap.NewNop(),
		state:  StateDribbling,
		gait:   cfg.Gait(holder.Speed),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.applyHooks(StateDribbling)
	return c
}

func (c *DribbleController) State() DribbleState { return c.state }
func (c *DribbleController) Gait() Gait           { return c.gait }
func (c *DribbleController) Clock() float32       { return c.clock }
func (c *DribbleController) HoldTimer() float32   { return c.holdTimer }

// Charge returns a copy of the active charge session.
func (c *DribbleController) Charge() (ChargeSession, bool) {
	if c.charge == nil {
		return ChargeSession{}, false
	}
	return *c.charge, true
}

func (c *DribbleController) transition(next DribbleState) error {
	if !canTransition(c.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.state, next)
	}
	prev := c.state
	c.state = next
	c.applyHooks(next)
	c.log.Debug("dribble state changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", next),
		zap.Float32("clock", c.clock))
	return nil
}

// enter is transition for edges the step logic takes on its own.
func (c *DribbleController) enter(next DribbleState) {
	if err := c.transition(next); err != nil {
		c.log.Error("dribble step", zap.Error(err))
	}
}

func (c *DribbleController) applyHooks(s DribbleState) {
	h := stateTable[s]
	c.ball.UseGravity = h.gravity
	c.ball.Kinematic = h.kinematic
	if c.anim != nil {
		c.anim.SetBool(ParamDribbling, h.dribbling)
		c.anim.SetBool(ParamCharging, h.charging)
	}
}

// Step advances the controller one fixed tick of length dt.
func (c *DribbleController) Step(dt float32) {
	c.clock += dt
	c.gait = c.cfg.Gait(c.holder.Speed)

	switch c.state {
	case StateDribbling:
		c.stepDribbling(dt)
	case StateMovingToHand:
		c.stepMovingToHand(dt)
	case StateCharging:
		c.stepCharging(dt)
	case StateReleased:
		// Ball is in free flight; nothing to do until restarted.
	}
}

func (c *DribbleController) stepDribbling(dt float32) {
	c.limitHeight()
	if c.catchReady() {
		c.ball.Vel = mgl32.Vec3{}
		c.holdTimer = 0
		c.lastHand = c.holder.HandAnchor()
		c.enter(StateMovingToHand)
		return
	}
	c.tether(dt)
	c.sway(dt)
	c.bounce()
	c.clampSpeed()
}

func (c *DribbleController) limitHeight() {
	if c.ball.Pos[1] <= c.cfg.MaxDribbleHeight {
		return
	}
	c.ball.Pos[1] = c.cfg.MaxDribbleHeight
	if c.ball.Vel[1] > 0 {
		c.ball.Vel[1] = 0
	}
}

// catchReady: the ball reached the hand and is on its way back down.
func (c *DribbleController) catchReady() bool {
	return c.ball.Pos.Y() >= c.cfg.CatchHeight-c.cfg.CatchTolerance && c.ball.Vel.Y() < 0
}

// tether pulls the ball back toward a point ahead of the holder once it
// strays beyond the gait's tether distance. The pull is a lerp, never a snap.
func (c *DribbleController) tether(dt float32) {
	h := c.holder
	if planarDistance(h.Pos, c.ball.Pos) <= c.gait.MaxDistance {
		return
	}
	lead := c.gait.MaxDistance*tetherLead + h.Speed*speedLead
	target := h.Pos.Add(h.Forward.Mul(lead))
	target[1] = c.ball.Pos[1]
	c.ball.Pos = lerpVec(c.ball.Pos, target, dt*c.gait.LerpSpeed)
}

func (c *DribbleController) sway(dt float32) {
	speed := c.holder.Speed
	if speed <= minMoveSpeed {
		return
	}
	side := float32(math.Sin(float64(c.clock*speed))) * c.cfg.SwayAmplitude * speed * dt
	c.ball.Pos = c.ball.Pos.Add(c.holder.Right().Mul(side))
}

func (c *DribbleController) grounded() bool {
	return c.ball.Pos.Y() <= c.cfg.BallRadius+c.cfg.GroundCheckRadius
}

func (c *DribbleController) bounce() {
	if !c.grounded() || c.clock < c.nextBounce {
		return
	}
	c.ball.Vel[1] = 0

	deficit := c.cfg.CatchHeight - c.ball.Pos.Y()
	speed := c.holder.Speed
	force := c.gait.Force * (1 + deficit*heightDeficitGain) * (1 + speed*bounceSpeedGain)
	c.ball.Vel = c.ball.Vel.Add(Up.Mul(force / c.cfg.BallMass))

	if speed > minMoveSpeed {
		c.ball.Vel = c.ball.Vel.Add(c.holder.Forward.Mul(speed * forwardPushGain / c.cfg.BallMass))
	}
	c.nextBounce = c.clock + c.gait.Interval
}

func (c *DribbleController) clampSpeed() {
	if c.ball.Vel.Len() > c.cfg.MaxBallSpeed {
		c.ball.Vel = c.ball.Vel.Normalize().Mul(c.cfg.MaxBallSpeed)
	}
}

// stepMovingToHand draws the ball into the hand and holds it there for
// HoldDuration. The ball rides along with the hand, so the approach closes
// at the same rate whether the holder stands or sprints. Leaving the hand's
// proximity forfeits the accumulated hold.
func (c *DribbleController) stepMovingToHand(dt float32) {
	hand := c.holder.HandAnchor()
	c.ball.Pos = c.ball.Pos.Add(hand.Sub(c.lastHand))
	c.lastHand = hand
	c.ball.Pos = lerpVec(c.ball.Pos, hand, dt*c.cfg.HandLerpSpeed)
	c.ball.Vel = mgl32.Vec3{}

	if c.ball.Pos.Sub(hand).Len() >= c.cfg.HandProximity {
		c.holdTimer = 0
		return
	}
	c.ball.Pos = hand
	c.holdTimer += dt
	if c.holdTimer >= c.cfg.HoldDuration {
		c.startDribbleDown()
	}
}

func (c *DribbleController) startDribbleDown() {
	c.holdTimer = 0
	c.enter(StateDribbling)
	c.ball.Vel = mgl32.Vec3{0, -c.cfg.DropSpeed, 0}
	c.nextBounce = c.clock + c.gait.Interval
}

func (c *DribbleController) stepCharging(dt float32) {
	c.ball.Pos = c.holder.HandAnchor()
	c.ball.Vel = mgl32.Vec3{}
	c.charge.Elapsed = min(c.charge.Elapsed+dt, c.charge.limit)
	if c.meter != nil {
		c.meter.SetCharge(c.charge.Fraction())
	}
}

// StartCharge begins charging a shot from any state. Calling it while
// already charging keeps the running session.
func (c *DribbleController) StartCharge() error {
	if c.state == StateCharging {
		return nil
	}
	if err := c.transition(StateCharging); err != nil {
		return err
	}
	c.charge = &ChargeSession{Start: c.clock, Active: true, limit: c.cfg.MaxChargeTime}
	c.holdTimer = 0
	c.ball.Pos = c.holder.HandAnchor()
	c.ball.Vel = mgl32.Vec3{}
	if c.meter != nil {
		c.meter.SetCharge(0)
	}
	c.log.Info("charge started", zap.Float32("clock", c.clock))
	return nil
}

// ReleaseShot launches the charged ball at target. On a solver error the
// controller stays in Charging.
func (c *DribbleController) ReleaseShot(target mgl32.Vec3) (Shot, error) {
	if c.state != StateCharging || c.charge == nil {
		return Shot{}, fmt.Errorf("release shot in %s: %w", c.state, ErrNotCharging)
	}
	shot, err := SolveShot(c.ball.Pos, target, c.charge.Fraction(), c.cfg.ShotParams())
	if err != nil {
		return Shot{}, fmt.Errorf("release shot: %w", err)
	}
	if err := c.transition(StateReleased); err != nil {
		return Shot{}, err
	}
	c.ball.Vel = shot.Velocity
	c.charge = nil
	if c.meter != nil {
		c.meter.SetCharge(0)
	}
	c.log.Info("shot released",
		zap.Float32("charge", shot.Charge),
		zap.Float32("scale", shot.Scale),
		zap.Float32("apex", shot.Arc.Apex),
		zap.Float32("flight_time", shot.Arc.FlightTime()),
		zap.Float32s("velocity", shot.Velocity[:]))
	return shot, nil
}

// RestartDribble puts the controller back into Dribbling from any state,
// dropping any charge in progress.
func (c *DribbleController) RestartDribble() {
	c.holdTimer = 0
	c.charge = nil
	c.nextBounce = c.clock
	if c.state == StateDribbling {
		c.applyHooks(StateDribbling)
		return
	}
	c.enter(StateDribbling)
}

func planarDistance(a, b mgl32.Vec3) float32 {
	dx := a.X() - b.X()
	dz := a.Z() - b.Z()
	return float32(math.Sqrt(float64(dx*dx + dz*dz)))
}

// lerpVec moves a toward b by t, with t clamped to [0,1].
func lerpVec(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	t = mgl32.Clamp(t, 0, 1)
	return a.Add(b.Sub(a).Mul(t))
}
