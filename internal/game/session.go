package game

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/vladimirvolkov/dribble/internal/logger"
	"github.com/vladimirvolkov/dribble/internal/ws"
)

// Client is the connection a session talks to.
type Client interface {
	Send(msg ws.Message)
	ReadLoop(ctx context.Context) <-chan ws.Message
}

// followThrough is how long the shooting pose is held after a release.
const followThrough = float32(0.5)

// Session is one player's practice court: a holder, a ball, a hoop.
type Session struct {
	id     string
	client Client
	cfg    Tunables
	log    *zap.Logger

	state   SessionState
	dribble *DribbleController
	hoop    Hoop
	score   *Scoreboard

	input   PlayerInput
	inputMu sync.Mutex

	lastTick   atomic.Uint32 // readable from the client goroutine
	releasedAt float32
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSession sets up the court. cfg is assumed validated.
func NewSession(id string, client Client, cfg Tunables, log *zap.Logger) *Session {
	s := &Session{
		id:     id,
		client: client,
		cfg:    cfg,
		log:    logger.OrNop(log).With(zap.String("session", id)),
		hoop:   DefaultHoop(),
		done:   make(chan struct{}),
	}
	s.state.Holder = NewHolder(mgl32.Vec3{0, 0, 8}, mgl32.Vec3{0, 0, 1}, cfg.Hand)
	s.state.Ball = NewBall(s.state.Holder.HandAnchor(), cfg.DropSpeed)
	s.dribble = NewDribbleController(cfg, &s.state.Ball, &s.state.Holder,
		WithAnimator(&s.state.Holder),
		WithLogger(s.log))
	s.score = NewScoreboard(cfg.ScoreIncrement, cfg.ScoreCooldown, s, s.log)
	return s
}

func (s *Session) ID() string { return s.id }

// Run plays the session until ctx is done or the client goes away.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	msg, err := ws.NewMessage(ws.MsgSessionStart, 0, ws.SessionStartPayload{
		SessionID: s.id,
		TickRate:  TickRate,
	})
	if err != nil {
		s.log.Error("encode session start", zap.Error(err))
		return
	}
	s.client.Send(msg)
	s.log.Info("session started")

	go s.readLoop(ctx)
	s.gameLoop(ctx)
	s.log.Info("session ended", zap.Uint32("ticks", s.state.Tick), zap.Int("score", s.score.Score()))
}

// Done returns a channel that closes when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) readLoop(ctx context.Context) {
	msgs := s.client.ReadLoop(ctx)
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				s.log.Info("client disconnected")
				s.cancel()
				return
			}
			s.handleMessage(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) handleMessage(msg ws.Message) {
	switch msg.Type {
	case ws.MsgPlayerInput:
		var input PlayerInput
		if err := json.Unmarshal(msg.Payload, &input); err != nil {
			s.log.Debug("bad input payload", zap.Error(err))
			return
		}
		input.MoveX = clampAxis(input.MoveX)
		input.MoveZ = clampAxis(input.MoveZ)
		s.inputMu.Lock()
		// One-shot actions stick until a tick consumes them
		input.ChargeStart = input.ChargeStart || s.input.ChargeStart
		input.Release = input.Release || s.input.Release
		s.input = input
		s.inputMu.Unlock()

	case ws.MsgPing:
		var ping ws.PingPayload
		if err := json.Unmarshal(msg.Payload, &ping); err != nil {
			return
		}
		pong, _ := ws.NewMessage(ws.MsgPong, s.lastTick.Load(), ws.PongPayload{
			ClientTime: ping.ClientTime,
			ServerTime: uint64(time.Now().UnixMilli()),
		})
		s.client.Send(pong)
	}
}

func clampAxis(v int8) int8 {
	return max(-1, min(1, v))
}

func (s *Session) gameLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) tick() {
	st := &s.state
	st.Tick++

	// Consume one-shot actions, keep movement
	s.inputMu.Lock()
	input := s.input
	s.input.ChargeStart = false
	s.input.Release = false
	s.inputMu.Unlock()

	if input.ChargeStart {
		if err := s.dribble.StartCharge(); err != nil {
			s.log.Warn("charge ignored", zap.Error(err))
		}
	}
	if input.Release {
		s.releaseShot()
	}
	ApplyInput(&st.Holder, input)

	StepHolder(&st.Holder, DT)
	s.dribble.Step(DT)
	StepBall(&st.Ball, s.cfg, DT)

	sinceRelease := s.dribble.Clock() - s.releasedAt
	if s.dribble.State() == StateReleased && sinceRelease < followThrough {
		st.Holder.Anim = AnimShoot
	}

	if s.hoop.Sensor.Update(st.Ball) {
		s.score.GoalEntered(s.dribble.Clock())
	}

	if s.dribble.State() == StateReleased && sinceRelease >= s.cfg.ResetAfterShot {
		s.resetBall()
	}

	st.Dribble = s.dribble.State()
	st.Charge = 0
	if c, ok := s.dribble.Charge(); ok {
		st.Charge = c.Fraction()
	}
	st.Score = s.score.Score()

	s.lastTick.Store(st.Tick)
	s.broadcastState()
}

// ReleaseShot is the release callback for animation events. It may be called
// from any goroutine; the shot fires on the next tick, like a release input.
func (s *Session) ReleaseShot() {
	s.inputMu.Lock()
	s.input.Release = true
	s.inputMu.Unlock()
}

// releaseShot fires the charged shot at the rim. Outside Charging it does
// nothing. Tick goroutine only.
func (s *Session) releaseShot() {
	shot, err := s.dribble.ReleaseShot(s.hoop.Rim)
	if err != nil {
		s.log.Debug("release ignored", zap.Error(err))
		return
	}
	s.releasedAt = s.dribble.Clock()

	msg, err := ws.NewMessage(ws.MsgShot, s.state.Tick, ws.ShotPayload{
		Charge:   shot.Charge,
		Scale:    shot.Scale,
		Velocity: shot.Velocity,
	})
	if err != nil {
		s.log.Error("encode shot", zap.Error(err))
		return
	}
	s.client.Send(msg)
}

// resetBall hands the ball back after a shot has had time to land.
func (s *Session) resetBall() {
	s.dribble.RestartDribble()
	s.state.Ball = NewBall(s.state.Holder.HandAnchor(), s.cfg.DropSpeed)
	s.hoop.Sensor.Reset()
}

// ScoreChanged implements ScoreSink.
func (s *Session) ScoreChanged(score, points int) {
	msg, err := ws.NewMessage(ws.MsgScored, s.state.Tick, ws.ScoredPayload{
		Points: points,
		Score:  score,
	})
	if err != nil {
		s.log.Error("encode score", zap.Error(err))
		return
	}
	s.client.Send(msg)
}

func (s *Session) broadcastState() {
	msg, err := ws.NewMessage(ws.MsgSessionState, s.state.Tick, s.state)
	if err != nil {
		s.log.Error("failed to encode state", zap.Error(err))
		return
	}
	s.client.Send(msg)
}
