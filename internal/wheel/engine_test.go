package wheel

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MJE43/roulette-sim/internal/engine"
)

const dt60 = 1.0 / 60

type rngFunc func() float64

func (f rngFunc) Float64() float64 { return f() }

type countingRNG struct {
	r     RNG
	calls int
}

func (c *countingRNG) Float64() float64 {
	c.calls++
	return c.r.Float64()
}

func newTestEngine(t *testing.T, cfg Config, rng RNG, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, rng, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func tickUntil(t *testing.T, e *Engine, dt float64, maxTicks int, done func() bool) int {
	t.Helper()
	for i := 1; i <= maxTicks; i++ {
		if err := e.Tick(dt); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if done() {
			return i
		}
	}
	t.Fatalf("condition not reached in %d ticks", maxTicks)
	return 0
}

func TestStartSpinIsIdempotent(t *testing.T) {
	rng := &countingRNG{r: rand.New(rand.NewSource(7))}
	e := newTestEngine(t, DefaultConfig(), rng)

	var started int
	e.Subscribe(EventSpinStarted, func(Event) { started++ })

	if !e.StartSpin() {
		t.Fatal("first StartSpin should start the wheel")
	}
	first := e.Wheel()

	if e.StartSpin() {
		t.Fatal("second StartSpin should be a no-op")
	}
	if e.Wheel() != first {
		t.Errorf("wheel state changed: %+v -> %+v", first, e.Wheel())
	}
	if rng.calls != 1 {
		t.Errorf("expected one draw, got %d", rng.calls)
	}
	if started != 1 {
		t.Errorf("expected one spin event, got %d", started)
	}

	cfg := e.Config()
	if first.AngularVelocity < cfg.SpinVelocityMin || first.AngularVelocity > cfg.SpinVelocityMax {
		t.Errorf("spin velocity %v out of range", first.AngularVelocity)
	}
}

func TestLaunchBallIsIdempotentMidRound(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(3)))
	e.StartSpin()

	if !e.LaunchBall() {
		t.Fatal("expected launch")
	}
	ball := e.Ball()
	if e.LaunchBall() {
		t.Fatal("launch mid-round should be a no-op")
	}
	if e.Ball() != ball {
		t.Errorf("ball state changed on second launch")
	}
	if e.Round() != 1 {
		t.Errorf("round = %d, want 1", e.Round())
	}
	if ball.Phase != PhaseBumper || ball.Track() != TrackBumper || !ball.Active() || ball.Dropped() {
		t.Errorf("unexpected launch state %+v", ball)
	}
	if ball.Angle < 0 || ball.Angle >= TwoPi {
		t.Errorf("launch angle %v out of range", ball.Angle)
	}
}

func TestAnglesStayNormalized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	steps := rand.New(rand.NewSource(43))
	e := newTestEngine(t, DefaultConfig(), rng)

	for round := 0; round < 20; round++ {
		e.StartSpin()
		e.LaunchBall()
		for i := 0; i < 20000; i++ {
			dt := 0.001 + steps.Float64()*0.099
			if err := e.Tick(dt); err != nil {
				t.Fatalf("Tick: %v", err)
			}
			w, b := e.Wheel(), e.Ball()
			for name, a := range map[string]float64{"wheel": w.Angle, "ball": b.Angle} {
				if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 || a >= TwoPi {
					t.Fatalf("round %d tick %d: %s angle %v out of range", round, i, name, a)
				}
			}
			if _, ok := e.LastResult(); ok {
				break
			}
		}
		if _, ok := e.LastResult(); !ok {
			t.Fatalf("round %d did not complete", round)
		}
	}
}

func TestRoundResultPublishedExactlyOnce(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(seed)))

		var results []RoundResult
		e.OnRoundComplete(func(r RoundResult) { results = append(results, r) })

		res, err := e.Play(dt60)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		for i := 0; i < 600; i++ {
			if err := e.Tick(dt60); err != nil {
				t.Fatalf("Tick: %v", err)
			}
		}

		if len(results) != 1 {
			t.Fatalf("seed %d: %d results published", seed, len(results))
		}
		if results[0] != res {
			t.Errorf("seed %d: published %+v, returned %+v", seed, results[0], res)
		}
		if !ValidNumber(res.WinningNumber) || PocketOrder[res.PocketIndex] != res.WinningNumber {
			t.Errorf("seed %d: invalid outcome %+v", seed, res)
		}
		if res.Color != ColorOf(res.WinningNumber) {
			t.Errorf("seed %d: color %s for %d", seed, res.Color, res.WinningNumber)
		}
		if res.Forced {
			t.Errorf("seed %d: default configuration should not hit the timeout", seed)
		}
	}
}

func TestRoundCompletesAfterOneWheelRotation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(11)))

	var stopped int
	e.Subscribe(EventWheelStopped, func(Event) { stopped++ })

	res, err := e.Play(dt60)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	w, b := e.Wheel(), e.Ball()
	if w.Spinning {
		t.Error("wheel should be stopped")
	}
	if b.Active() || !b.Settled() || !b.Dropped() {
		t.Errorf("unexpected ball state %+v", b)
	}
	if b.Track() != TrackPocketRim {
		t.Errorf("track = %s, want pocket_rim", b.Track())
	}
	if res.RotationsAfterDrop < e.Config().RotationsAfterDrop {
		t.Errorf("froze after %v wheel rotations", res.RotationsAfterDrop)
	}
	if res.BumperRotations < e.Config().MinBumperRotations {
		t.Errorf("dropped after %v bumper rotations", res.BumperRotations)
	}
	if stopped != 1 {
		t.Errorf("expected one stop event, got %d", stopped)
	}
}

func TestSettledBallRestsInWinningPocket(t *testing.T) {
	for seed := int64(100); seed < 120; seed++ {
		e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(seed)))
		res, err := e.Play(dt60)
		if err != nil {
			t.Fatalf("Play: %v", err)
		}
		idx, number := ResolvePocket(e.Ball().Angle, e.Wheel().Angle)
		if idx != res.PocketIndex || number != res.WinningNumber {
			t.Errorf("seed %d: ball rests on %d, result says %d", seed, number, res.WinningNumber)
		}
	}
}

func TestDropAfterMinimumRotations(t *testing.T) {
	var e *Engine
	calls := 0
	rng := rngFunc(func() float64 {
		calls++
		if calls <= 3 {
			return 0.5
		}
		if e.ball.RotationsOnBumper >= 3.5 {
			return 0
		}
		return 0.999999
	})
	e, err := New(DefaultConfig(), rng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var drops []Drop
	e.OnBallDropped(func(d Drop) { drops = append(drops, d) })

	e.StartSpin()
	e.LaunchBall()
	tickUntil(t, e, dt60, 10000, func() bool { return e.Ball().Dropped() })

	b := e.Ball()
	if b.Phase != PhaseRim || b.Track() != TrackPocketRim {
		t.Fatalf("unexpected phase %s", b.Phase)
	}
	if b.RotationsOnBumper < 3.5 || b.RotationsOnBumper > 3.55 {
		t.Errorf("dropped at %v rotations, want just past 3.5", b.RotationsOnBumper)
	}
	if len(drops) != 1 || drops[0].Forced {
		t.Fatalf("expected one stochastic drop, got %+v", drops)
	}
	if !e.Wheel().Spinning {
		t.Error("wheel should still be turning")
	}
	if _, ok := e.LastResult(); ok {
		t.Error("round should not be frozen at the drop")
	}
}

func TestDropForcedAtMaximumRotations(t *testing.T) {
	calls := 0
	rng := rngFunc(func() float64 {
		calls++
		if calls <= 3 {
			return 0.5
		}
		return 0.999999
	})
	e := newTestEngine(t, DefaultConfig(), rng)

	var drops []Drop
	e.OnBallDropped(func(d Drop) { drops = append(drops, d) })

	e.StartSpin()
	e.LaunchBall()
	tickUntil(t, e, dt60, 10000, func() bool { return e.Ball().Dropped() })

	b := e.Ball()
	if b.RotationsOnBumper < 4.0 || b.RotationsOnBumper > 4.05 {
		t.Errorf("forced drop at %v rotations, want just past 4.0", b.RotationsOnBumper)
	}
	if len(drops) != 1 || !drops[0].Forced {
		t.Fatalf("expected one forced drop, got %+v", drops)
	}
}

func TestDropReducesBallVelocity(t *testing.T) {
	calls := 0
	rng := rngFunc(func() float64 {
		calls++
		if calls <= 3 {
			return 0.5
		}
		return 0
	})
	cfg := DefaultConfig()
	cfg.MinBumperRotations = 0
	e := newTestEngine(t, cfg, rng)
	e.StartSpin()
	e.LaunchBall()

	v0 := e.Ball().AngularVelocity
	if err := e.Tick(dt60); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !e.Ball().Dropped() {
		t.Fatal("expected an immediate drop")
	}
	want := v0 * cfg.DropVelocityFactor * math.Exp(-cfg.BumperFriction*dt60)
	if got := e.Ball().AngularVelocity; math.Abs(got-want) > 1e-12 {
		t.Errorf("velocity after drop = %v, want %v", got, want)
	}
}

func TestSafetyTimeoutForcesFreeze(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelFriction = 0
	cfg.BumperFriction = 0
	cfg.MinBumperRotations = 1e6
	cfg.MaxBumperRotations = 1e6
	cfg.SafetyTimeout = 5 * time.Second

	core, logs := observer.New(zap.WarnLevel)
	e := newTestEngine(t, cfg, rand.New(rand.NewSource(5)), WithLogger(zap.New(core)))

	var results []RoundResult
	e.OnRoundComplete(func(r RoundResult) { results = append(results, r) })
	drops := 0
	e.OnBallDropped(func(Drop) { drops++ })

	e.StartSpin()
	e.LaunchBall()
	for i := 0; i < 1000; i++ {
		if err := e.Tick(dt60); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	res := results[0]
	if !res.Forced {
		t.Error("result should be marked forced")
	}
	if !ValidNumber(res.WinningNumber) {
		t.Errorf("invalid number %d", res.WinningNumber)
	}
	if res.Elapsed < 5 || res.Elapsed > 5+2*dt60 {
		t.Errorf("froze at %vs, want about 5s", res.Elapsed)
	}
	if e.Wheel().Spinning || !e.Ball().Settled() {
		t.Errorf("engine not frozen: %+v", e.Snapshot())
	}
	snap := e.Snapshot()
	if snap.Dropped || snap.Track != TrackBumper {
		t.Errorf("ball never dropped but snapshot reports dropped=%v track=%s", snap.Dropped, snap.Track)
	}
	if drops != 0 {
		t.Errorf("expected no drop events, got %d", drops)
	}
	if n := logs.FilterMessage("forcing round freeze after safety timeout").Len(); n != 1 {
		t.Errorf("expected one timeout warning, got %d", n)
	}
}

func TestPlayReturnsForcedResultAtTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelFriction = 0
	cfg.BumperFriction = 0
	cfg.MinBumperRotations = 1e6
	cfg.MaxBumperRotations = 1e6
	cfg.SafetyTimeout = 2 * time.Second

	res, err := Simulate(cfg, rand.New(rand.NewSource(9)), 0.25)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !res.Forced {
		t.Error("expected forced result")
	}
}

func TestStalledWheelFreezesOnDrop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelFriction = 5
	e := newTestEngine(t, cfg, rand.New(rand.NewSource(21)))

	var events []EventKind
	e.SubscribeAll(func(ev Event) { events = append(events, ev.Kind) })

	res, err := e.Play(dt60)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Forced {
		t.Error("stalled wheel should not need the timeout")
	}
	if res.RotationsAfterDrop != 0 {
		t.Errorf("wheel turned %v rotations after drop", res.RotationsAfterDrop)
	}

	want := []EventKind{EventSpinStarted, EventBallLaunched, EventWheelStopped, EventBallDropped, EventRoundComplete}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestLaunchWithoutSpinFreezesOnDrop(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(4)))
	e.LaunchBall()

	tickUntil(t, e, dt60, 10000, func() bool { return e.Ball().Settled() })

	res, ok := e.LastResult()
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Forced || e.Wheel().Spinning {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestEventOrder(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(8)))

	var events []EventKind
	e.SubscribeAll(func(ev Event) { events = append(events, ev.Kind) })

	if _, err := e.Play(dt60); err != nil {
		t.Fatalf("Play: %v", err)
	}

	want := []EventKind{EventSpinStarted, EventBallLaunched, EventBallDropped, EventWheelStopped, EventRoundComplete}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestWheelTicksBeforeBall(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(1)))
	e.wheel = WheelState{AngularVelocity: 2, Spinning: true}
	e.ball = BallState{Angle: 1, AngularVelocity: 1, Phase: PhaseRim}

	if err := e.Tick(0.1); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	wheelV := 2 * math.Exp(-e.cfg.WheelFriction*0.1)
	if got := e.Wheel().AngularVelocity; math.Abs(got-wheelV) > 1e-12 {
		t.Errorf("wheel velocity = %v, want %v", got, wheelV)
	}
	wantBall := 1 + (1+wheelV)*0.1
	if got := e.Ball().Angle; math.Abs(got-wantBall) > 1e-12 {
		t.Errorf("ball angle = %v, want %v", got, wantBall)
	}
	wantRot := 0.2 / TwoPi
	if got := e.Wheel().RotationsSinceDrop; math.Abs(got-wantRot) > 1e-12 {
		t.Errorf("rotations since drop = %v, want %v", got, wantRot)
	}
}

func TestTickDelta(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(1)))
	e.StartSpin()
	e.LaunchBall()
	before := e.Snapshot()

	for _, dt := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		if err := e.Tick(dt); !errors.Is(err, ErrInvalidDelta) {
			t.Errorf("Tick(%v) = %v, want ErrInvalidDelta", dt, err)
		}
	}
	if err := e.Tick(0); err != nil {
		t.Errorf("Tick(0) = %v", err)
	}
	if e.Snapshot() != before {
		t.Error("state changed on rejected or zero tick")
	}

	if _, err := Simulate(DefaultConfig(), rand.New(rand.NewSource(1)), 0); !errors.Is(err, ErrInvalidDelta) {
		t.Errorf("Simulate with zero delta = %v", err)
	}
}

func TestResetAfterSettle(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rand.New(rand.NewSource(2)))

	e.StartSpin()
	e.LaunchBall()
	e.Reset()
	if e.Phase() != PhaseBumper {
		t.Fatalf("reset mid-round changed phase to %s", e.Phase())
	}

	if _, err := e.Play(dt60); err != nil {
		t.Fatalf("Play: %v", err)
	}
	e.Reset()
	if e.Phase() != PhaseIdle {
		t.Errorf("phase after reset = %s", e.Phase())
	}
	if _, ok := e.LastResult(); !ok {
		t.Error("reset should keep the last result")
	}

	res, err := e.Play(dt60)
	if err != nil {
		t.Fatalf("second Play: %v", err)
	}
	if res.Round != 2 {
		t.Errorf("round = %d, want 2", res.Round)
	}
}

func TestSeededStreamIsDeterministic(t *testing.T) {
	seeds := engine.Seeds{Server: "server-seed", Client: "client-seed"}

	play := func(nonce uint64, dt float64) RoundResult {
		res, err := Simulate(DefaultConfig(), engine.NewStream(seeds, nonce), dt)
		if err != nil {
			t.Fatalf("Simulate: %v", err)
		}
		return res
	}

	for nonce := uint64(1); nonce <= 10; nonce++ {
		a, b := play(nonce, dt60), play(nonce, dt60)
		if a != b {
			t.Fatalf("nonce %d: %+v != %+v", nonce, a, b)
		}
	}
}

func TestFrictionIsTickRateIndependent(t *testing.T) {
	const k, v0, total = 0.3, 10.0, 2.0
	for _, hz := range []float64{30, 60, 120, 480} {
		dt := 1 / hz
		v := v0
		for i := 0; i < int(total*hz); i++ {
			v = decay(v, k, dt)
		}
		want := v0 * math.Exp(-k*total)
		if math.Abs(v-want) > 1e-9 {
			t.Errorf("%vHz: velocity %v, want %v", hz, v, want)
		}
	}
}

func TestDropHazardIsTickRateIndependent(t *testing.T) {
	cfg := DefaultConfig()
	const velocity, total = 9.0, 1.0
	lambda := cfg.DropHazardRate * (cfg.LaunchVelocityMax - velocity) / cfg.LaunchVelocityMax

	for _, hz := range []float64{30, 60, 120, 480} {
		dt := 1 / hz
		survival := 1.0
		for i := 0; i < int(total*hz); i++ {
			survival *= 1 - dropProbability(&cfg, velocity, dt)
		}
		want := math.Exp(-lambda * total)
		if math.Abs(survival-want) > 1e-9 {
			t.Errorf("%vHz: survival %v, want %v", hz, survival, want)
		}
	}

	if p := dropProbability(&cfg, cfg.LaunchVelocityMax+1, dt60); p != 0 {
		t.Errorf("drop probability above max launch velocity = %v", p)
	}
	if p := dropProbability(&cfg, 0, 1000); p > 1 || p < 0.99 {
		t.Errorf("drop probability for a stopped ball = %v", p)
	}
}
