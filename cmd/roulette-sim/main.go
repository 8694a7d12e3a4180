package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/roulette-sim/internal/api"
	"github.com/MJE43/roulette-sim/internal/config"
	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/logger"
	"github.com/MJE43/roulette-sim/internal/monitoring"
	"github.com/MJE43/roulette-sim/internal/scripting"
	"github.com/MJE43/roulette-sim/internal/session"
	"github.com/MJE43/roulette-sim/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "roulette-sim:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	metrics := monitoring.New()

	opts := session.Options{
		TickHz:        cfg.Session.TickHz,
		Seeds:         engine.Seeds{Server: cfg.Session.ServerSeed, Client: cfg.Session.ClientSeed},
		Wheel:         cfg.Wheel,
		Table:         cfg.Table,
		Metrics:       metrics,
		Logger:        log,
		EngineVersion: api.EngineVersion,
	}

	var db store.DB
	if cfg.Store.Path != "" {
		sqlite, err := store.NewSQLiteDB(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		if err := sqlite.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		db = sqlite
		opts.Recorder = sqlite
	}

	if cfg.Session.StrategyPath != "" {
		src, err := os.ReadFile(cfg.Session.StrategyPath)
		if err != nil {
			return fmt.Errorf("read strategy: %w", err)
		}
		strat, err := scripting.NewStrategy(string(src), cfg.Table.StartingBalance.InexactFloat64())
		if err != nil {
			return fmt.Errorf("load strategy %s: %w", cfg.Session.StrategyPath, err)
		}
		opts.Strategy = strat
	}

	sess, err := session.New(opts)
	if err != nil {
		return err
	}

	srv := api.NewServer(api.Options{
		DB:          db,
		Table:       sess,
		Metrics:     metrics,
		Logger:      log,
		CORSOrigins: cfg.Server.CORSOrigins,
		Wheel:       &cfg.Wheel,
		Timeout:     cfg.Server.WriteTimeout,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(ctx)
	})

	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("session", sess.ID()),
			zap.String("engine_version", api.EngineVersion),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
