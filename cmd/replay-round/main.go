package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/MJE43/roulette-sim/internal/config"
	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/games"
	"github.com/MJE43/roulette-sim/internal/logger"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

type options struct {
	server, client string
	nonce, count   uint64
	tickHz         float64
	sample         uint64
	trace, asJSON  bool
	configPath     string
	logLevel       string
}

func main() {
	var o options
	flag.StringVar(&o.server, "server", "", "server seed (required)")
	flag.StringVar(&o.client, "client", "", "client seed (required)")
	flag.Uint64Var(&o.nonce, "nonce", 1, "first nonce to replay")
	flag.Uint64Var(&o.count, "count", 1, "number of consecutive nonces")
	flag.Float64Var(&o.tickHz, "tick-hz", 60, "simulation tick rate")
	flag.Uint64Var(&o.sample, "sample", 0, "print a wheel/ball snapshot every N ticks")
	flag.BoolVar(&o.trace, "trace", false, "print every engine event")
	flag.BoolVar(&o.asJSON, "json", false, "print results as JSON lines")
	flag.StringVar(&o.configPath, "config", "", "YAML config whose wheel section overrides the physics")
	flag.StringVar(&o.logLevel, "log-level", "warn", "engine log level")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "replay-round:", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.server == "" || o.client == "" {
		return fmt.Errorf("-server and -client are required")
	}
	if _, err := games.TickHz(map[string]any{"tick_hz": o.tickHz}); err != nil {
		return err
	}

	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log, err := logger.New(o.logLevel, "console")
	if err != nil {
		return err
	}
	defer log.Sync()

	seeds := engine.Seeds{Server: o.server, Client: o.client}
	fmt.Fprintf(os.Stderr, "server seed hash %s\n", engine.HashServerSeed(o.server))

	enc := json.NewEncoder(os.Stdout)
	for i := uint64(0); i < o.count; i++ {
		nonce := o.nonce + i
		res, err := replay(cfg.Wheel, seeds, nonce, o, log)
		if err != nil {
			return fmt.Errorf("nonce %d: %w", nonce, err)
		}
		res.Round = nonce

		if o.asJSON {
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		forced := ""
		if res.Forced {
			forced = " (forced)"
		}
		fmt.Printf("nonce %-8d %2d %-5s pocket %2d  %6.2fs  %5d ticks  %.2f bumper rotations%s\n",
			nonce, res.WinningNumber, res.Color, res.PocketIndex, res.Elapsed, res.Ticks, res.BumperRotations, forced)
	}
	return nil
}

// replay ticks one round by hand so snapshots can be sampled along the way.
func replay(cfg wheel.Config, seeds engine.Seeds, nonce uint64, o options, log *zap.Logger) (wheel.RoundResult, error) {
	e, err := wheel.New(cfg, engine.NewStream(seeds, nonce), wheel.WithLogger(log.With(zap.Uint64("nonce", nonce))))
	if err != nil {
		return wheel.RoundResult{}, err
	}
	if o.trace {
		e.SubscribeAll(func(ev wheel.Event) {
			fmt.Printf("  tick %5d  %-20s", ev.Tick, ev.Kind)
			switch {
			case ev.Drop != nil:
				fmt.Printf("  rotations %.3f velocity %.3f forced %v", ev.Drop.Rotations, ev.Drop.Velocity, ev.Drop.Forced)
			case ev.Result != nil:
				fmt.Printf("  number %d", ev.Result.WinningNumber)
			}
			fmt.Println()
		})
	}

	dt := 1 / o.tickHz
	e.StartSpin()
	e.LaunchBall()

	maxTicks := uint64(math.Ceil(cfg.SafetyTimeout.Seconds()/dt)) + 2
	for tick := uint64(1); tick <= maxTicks; tick++ {
		if err := e.Tick(dt); err != nil {
			return wheel.RoundResult{}, err
		}
		if res, ok := e.LastResult(); ok {
			return res, nil
		}
		if o.sample > 0 && tick%o.sample == 0 {
			s := e.Snapshot()
			fmt.Printf("  tick %5d  %-7s wheel %.3f @ %.3f  ball %.3f @ %.3f  rotations %.2f\n",
				tick, s.Phase, s.WheelAngle, s.WheelVelocity, s.BallAngle, s.BallVelocity, s.BallRotationsOnBumper)
		}
	}
	return wheel.RoundResult{}, wheel.ErrNoResult
}
