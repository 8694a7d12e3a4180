package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROULETTE_"

var ErrInvalidConfig = errors.New("invalid config")

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type StoreConfig struct {
	// Path of the sqlite database. Empty disables round history.
	Path string `yaml:"path"`
}

type SessionConfig struct {
	TickHz       float64 `yaml:"tick_hz"`
	StrategyPath string  `yaml:"strategy_path"`
	ServerSeed   string  `yaml:"server_seed"`
	ClientSeed   string  `yaml:"client_seed"`
}

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Wheel   wheel.Config  `yaml:"wheel"`
	Table   table.Config  `yaml:"table"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Path: "roulette.db",
		},
		Session: SessionConfig{
			TickHz: 60,
		},
		Wheel: wheel.DefaultConfig(),
		Table: table.DefaultConfig(),
	}
}

// Load reads .env files (missing files are ignored), then the YAML file at
// path over the defaults, then ROULETTE_* environment overrides, and
// validates the result. An empty path skips the YAML step.
func Load(path string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("DB_PATH", &cfg.Store.Path)
	str("STRATEGY", &cfg.Session.StrategyPath)
	str("SERVER_SEED", &cfg.Session.ServerSeed)
	str("CLIENT_SEED", &cfg.Session.ClientSeed)

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "TICK_HZ"); ok {
		hz, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sTICK_HZ=%q", ErrInvalidConfig, EnvPrefix, v)
		}
		cfg.Session.TickHz = hz
	}
	if v, ok := lookup(EnvPrefix + "SAFETY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sSAFETY_TIMEOUT=%q", ErrInvalidConfig, EnvPrefix, v)
		}
		cfg.Wheel.SafetyTimeout = d
	}
	if v, ok := lookup(EnvPrefix + "STARTING_BALANCE"); ok {
		bal, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%w: %sSTARTING_BALANCE=%q", ErrInvalidConfig, EnvPrefix, v)
		}
		cfg.Table.StartingBalance = bal
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Wheel.Validate(); err != nil {
		return fmt.Errorf("wheel: %w", err)
	}
	if c.Session.TickHz < 1 || c.Session.TickHz > 2000 {
		return fmt.Errorf("%w: session.tick_hz %v outside [1, 2000]", ErrInvalidConfig, c.Session.TickHz)
	}
	if c.Table.StartingBalance.IsNegative() {
		return fmt.Errorf("%w: table.starting_balance is negative", ErrInvalidConfig)
	}
	if c.Table.MinBet.IsNegative() || (c.Table.MaxBet.IsPositive() && c.Table.MaxBet.LessThan(c.Table.MinBet)) {
		return fmt.Errorf("%w: table bet limits [%s, %s]", ErrInvalidConfig, c.Table.MinBet, c.Table.MaxBet)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// TickInterval is the wall-clock period of one session tick.
func (s SessionConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.TickHz)
}
