package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/vladimirvolkov/dribble/internal/ws"
)

type fakeClient struct {
	mu   sync.Mutex
	sent []ws.Message
	in   chan ws.Message
}

func newFakeClient() *fakeClient {
	return &fakeClient{in: make(chan ws.Message, 8)}
}

func (f *fakeClient) Send(msg ws.Message) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
}

func (f *fakeClient) ReadLoop(ctx context.Context) <-chan ws.Message {
	return f.in
}

func (f *fakeClient) ofType(typ uint8) []ws.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ws.Message
	for _, m := range f.sent {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func inputMsg(t *testing.T, in PlayerInput) ws.Message {
	t.Helper()
	msg, err := ws.NewMessage(ws.MsgPlayerInput, 0, in)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

// perfectTunables makes every release land exactly on the solved arc.
func perfectTunables() Tunables {
	cfg := DefaultTunables()
	cfg.MinShotForce, cfg.MaxShotForce = 1, 1
	return cfg
}

func TestSessionShotScores(t *testing.T) {
	client := newFakeClient()
	s := NewSession("s1", client, perfectTunables(), nil)

	s.handleMessage(inputMsg(t, PlayerInput{ChargeStart: true}))
	for i := 0; i < 10; i++ {
		s.tick()
	}
	if s.dribble.State() != StateCharging {
		t.Fatalf("state = %s after charge start, want charging", s.dribble.State())
	}
	if s.state.Charge <= 0 {
		t.Errorf("snapshot charge = %v, want > 0", s.state.Charge)
	}

	s.handleMessage(inputMsg(t, PlayerInput{Release: true}))
	s.tick()
	if s.dribble.State() != StateReleased {
		t.Fatalf("state = %s after release, want released", s.dribble.State())
	}
	if s.state.Holder.Anim != AnimShoot {
		t.Errorf("anim = %v right after release, want AnimShoot", s.state.Holder.Anim)
	}

	for i := 0; i < 200; i++ {
		s.tick()
	}

	if got := s.score.Score(); got != 2 {
		t.Errorf("score = %d, want 2", got)
	}
	if n := len(client.ofType(ws.MsgShot)); n != 1 {
		t.Errorf("shot messages = %d, want 1", n)
	}
	scored := client.ofType(ws.MsgScored)
	if len(scored) != 1 {
		t.Fatalf("scored messages = %d, want 1", len(scored))
	}
	var p ws.ScoredPayload
	if err := json.Unmarshal(scored[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Points != 2 || p.Score != 2 {
		t.Errorf("scored payload = %+v", p)
	}

	// The ball came back after the reset delay.
	if st := s.dribble.State(); st == StateReleased || st == StateCharging {
		t.Errorf("state = %s long after the shot, want the ball back in hand", st)
	}
	if s.state.Score != 2 {
		t.Errorf("snapshot score = %d, want 2", s.state.Score)
	}
}

func TestSessionReleaseWithoutChargeIgnored(t *testing.T) {
	client := newFakeClient()
	s := NewSession("s2", client, DefaultTunables(), nil)

	s.handleMessage(inputMsg(t, PlayerInput{Release: true}))
	s.tick()
	if s.dribble.State() == StateReleased {
		t.Error("released without a charge")
	}
	if n := len(client.ofType(ws.MsgShot)); n != 0 {
		t.Errorf("shot messages = %d, want 0", n)
	}
}

func TestSessionInputHandling(t *testing.T) {
	s := NewSession("s3", newFakeClient(), DefaultTunables(), nil)

	raw, _ := json.Marshal(map[string]any{"moveX": 5, "moveZ": -7, "chargeStart": true})
	s.handleMessage(ws.Message{Type: ws.MsgPlayerInput, Payload: raw})
	s.handleMessage(inputMsg(t, PlayerInput{MoveX: 1}))

	s.inputMu.Lock()
	in := s.input
	s.inputMu.Unlock()
	if in.MoveX != 1 || in.MoveZ != 0 {
		t.Errorf("move = (%d, %d), want latest input (1, 0)", in.MoveX, in.MoveZ)
	}
	if !in.ChargeStart {
		t.Error("charge start dropped before a tick consumed it")
	}

	s.tick()
	s.inputMu.Lock()
	in = s.input
	s.inputMu.Unlock()
	if in.ChargeStart || in.Release {
		t.Errorf("one-shot actions survived a tick: %+v", in)
	}
	if in.MoveX != 1 {
		t.Errorf("movement cleared by tick: %+v", in)
	}

	// Out-of-range axes are clamped.
	s.handleMessage(ws.Message{Type: ws.MsgPlayerInput, Payload: raw})
	s.inputMu.Lock()
	in = s.input
	s.inputMu.Unlock()
	if in.MoveX != 1 || in.MoveZ != -1 {
		t.Errorf("move = (%d, %d), want (1, -1)", in.MoveX, in.MoveZ)
	}

	// Garbage is dropped without touching the held input.
	s.handleMessage(ws.Message{Type: ws.MsgPlayerInput, Payload: json.RawMessage(`{"moveX":"left"}`)})
	s.inputMu.Lock()
	in = s.input
	s.inputMu.Unlock()
	if in.MoveZ != -1 {
		t.Errorf("bad payload changed input: %+v", in)
	}
}

func TestSessionPingPong(t *testing.T) {
	client := newFakeClient()
	s := NewSession("s4", client, DefaultTunables(), nil)
	for i := 0; i < 3; i++ {
		s.tick()
	}

	ping, _ := ws.NewMessage(ws.MsgPing, 0, ws.PingPayload{ClientTime: 42})
	s.handleMessage(ping)

	pongs := client.ofType(ws.MsgPong)
	if len(pongs) != 1 {
		t.Fatalf("pongs = %d, want 1", len(pongs))
	}
	if pongs[0].Tick != 3 {
		t.Errorf("pong tick = %d, want 3", pongs[0].Tick)
	}
	var p ws.PongPayload
	if err := json.Unmarshal(pongs[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.ClientTime != 42 || p.ServerTime == 0 {
		t.Errorf("pong = %+v", p)
	}
}

func TestSessionRunEndsOnDisconnect(t *testing.T) {
	client := newFakeClient()
	s := NewSession("s5", client, DefaultTunables(), nil)

	go s.Run(context.Background())
	time.Sleep(50 * time.Millisecond)
	close(client.in)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after disconnect")
	}

	starts := client.ofType(ws.MsgSessionStart)
	if len(starts) != 1 {
		t.Fatalf("session start messages = %d, want 1", len(starts))
	}
	var p ws.SessionStartPayload
	if err := json.Unmarshal(starts[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.SessionID != "s5" || p.TickRate != TickRate {
		t.Errorf("session start = %+v", p)
	}
}

func TestSessionRunEndsOnCancel(t *testing.T) {
	s := NewSession("s6", newFakeClient(), DefaultTunables(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after cancel")
	}
}

// redribbles drives the session with in for n ticks and counts hand-offs from
// MovingToHand back into Dribbling.
func redribbles(t *testing.T, s *Session, in PlayerInput, n int) int {
	t.Helper()
	s.handleMessage(inputMsg(t, in))
	count := 0
	prev := s.dribble.State()
	for i := 0; i < n; i++ {
		s.tick()
		st := s.dribble.State()
		if prev == StateMovingToHand && st == StateDribbling {
			count++
		}
		prev = st
	}
	return count
}

func TestSessionDribblesOnTheMove(t *testing.T) {
	cases := []struct {
		name    string
		in      PlayerInput
		ticks   int
		running bool
	}{
		{"standing", PlayerInput{}, 120, false},
		{"walking", PlayerInput{MoveX: 1}, 120, false},
		{"sprinting", PlayerInput{MoveX: -1, Sprint: true}, 70, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(tc.name, newFakeClient(), DefaultTunables(), nil)
			if n := redribbles(t, s, tc.in, tc.ticks); n == 0 {
				t.Fatalf("ball never left the hand again in %d ticks", tc.ticks)
			}
			if got := s.dribble.Gait().Running; got != tc.running {
				t.Errorf("running gait = %v, want %v", got, tc.running)
			}
		})
	}
}

func TestSessionDribblesAtTheWall(t *testing.T) {
	s := NewSession("wall", newFakeClient(), DefaultTunables(), nil)
	redribbles(t, s, PlayerInput{MoveX: 1, Sprint: true}, 100)
	if x := s.state.Holder.Pos.X(); x != CourtHalfWidth {
		t.Fatalf("holder x = %v, want against the wall at %v", x, CourtHalfWidth)
	}
	if hand := s.state.Holder.HandAnchor().X(); hand <= CourtHalfWidth {
		t.Fatalf("hand x = %v, want past the wall", hand)
	}

	if n := redribbles(t, s, PlayerInput{}, 200); n == 0 {
		t.Error("ball stuck on its way to a hand past the wall")
	}
}

func TestSessionReleaseCallbackFromAnotherGoroutine(t *testing.T) {
	client := newFakeClient()
	s := NewSession("anim", client, perfectTunables(), nil)

	s.handleMessage(inputMsg(t, PlayerInput{ChargeStart: true}))
	for i := 0; i < 5; i++ {
		s.tick()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.ReleaseShot()
	}()
	wg.Wait()

	if s.dribble.State() != StateCharging {
		t.Fatalf("state = %s before the next tick, want charging", s.dribble.State())
	}
	s.tick()
	if s.dribble.State() != StateReleased {
		t.Errorf("state = %s after the tick, want released", s.dribble.State())
	}
	if n := len(client.ofType(ws.MsgShot)); n != 1 {
		t.Errorf("shot messages = %d, want 1", n)
	}
}
