// Package config loads process configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/netsync"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/relay"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

type Config struct {
	Relay   RelayConfig     `yaml:"relay"`
	Client  ClientConfig    `yaml:"client"`
	Logging logging.Config  `yaml:"logging"`
	World   sim.WorldConfig `yaml:"world"`
	Sync    netsync.Config  `yaml:"sync"`
	Loop    sim.LoopConfig  `yaml:"loop"`
	Store   StoreConfig     `yaml:"store"`
}

type RelayConfig struct {
	Addr         string `yaml:"addr"`
	ClientDir    string `yaml:"clientDir"`
	relay.Config `yaml:",inline"`
}

// ClientConfig addresses the relay from a game client.
type ClientConfig struct {
	RelayURL string `yaml:"relayUrl"`
}

type StoreConfig struct {
	HighScorePath string `yaml:"highScorePath"`
}

// Default returns a configuration that runs without a file.
func Default() Config {
	return Config{
		Relay: RelayConfig{
			Addr:   ":8080",
			Config: relay.DefaultConfig(),
		},
		Client: ClientConfig{
			RelayURL: "ws://localhost:8080/ws",
		},
		Logging: logging.DefaultConfig(),
		World:   sim.DefaultWorldConfig(),
		Sync:    netsync.DefaultConfig(),
		Loop: sim.LoopConfig{
			TickRate:        sim.DefaultStepsPerSec,
			CatchupMaxSteps: sim.DefaultCatchupSteps,
		},
		Store: StoreConfig{
			HighScorePath: "highscore.yaml",
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg.Normalized(), nil
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment overrides. Invalid values are logged and
// ignored.
func ApplyEnv(cfg Config, lookup LookupFunc, logger telemetry.Logger) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	str := func(key string, dst *string) {
		if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
			*dst = strings.TrimSpace(raw)
		}
	}

	str("RELAY_ADDR", &cfg.Relay.Addr)
	str("RELAY_CLIENT_DIR", &cfg.Relay.ClientDir)
	str("RELAY_URL", &cfg.Client.RelayURL)
	str("LOG_JSON_PATH", &cfg.Logging.JSON.FilePath)
	str("LOG_MIN_SEVERITY", &cfg.Logging.Severity)
	str("HIGH_SCORE_PATH", &cfg.Store.HighScorePath)

	if raw, ok := lookup("LOG_SINKS"); ok && strings.TrimSpace(raw) != "" {
		var sinks []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sinks = append(sinks, name)
			}
		}
		cfg.Logging.EnabledSinks = sinks
	}
	if raw, ok := lookup("VIEWPORT_WIDTH"); ok && raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.World.ViewWidth = value
		} else {
			logger.Printf("invalid VIEWPORT_WIDTH=%q", raw)
		}
	}
	if raw, ok := lookup("WORLD_HAZARDS"); ok && raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.World.Hazards = value
		} else {
			logger.Printf("invalid WORLD_HAZARDS=%q: %v", raw, err)
		}
	}
	return cfg.Normalized()
}

// Normalized fills defaults for every unset field.
func (cfg Config) Normalized() Config {
	defaults := Default()
	if strings.TrimSpace(cfg.Relay.Addr) == "" {
		cfg.Relay.Addr = defaults.Relay.Addr
	}
	cfg.Relay.Config = cfg.Relay.Config.Normalized()
	if cfg.Client.RelayURL == "" {
		cfg.Client.RelayURL = defaults.Client.RelayURL
	}
	if len(cfg.Logging.EnabledSinks) == 0 {
		cfg.Logging.EnabledSinks = defaults.Logging.EnabledSinks
	}
	if cfg.Logging.BufferSize <= 0 {
		cfg.Logging.BufferSize = defaults.Logging.BufferSize
	}
	if cfg.Logging.Severity == "" {
		cfg.Logging.Severity = defaults.Logging.Severity
	}
	cfg.Logging.MinimumSeverity = logging.ParseSeverity(cfg.Logging.Severity)
	if cfg.Logging.DropWarnInterval <= 0 {
		cfg.Logging.DropWarnInterval = defaults.Logging.DropWarnInterval
	}
	if cfg.Logging.JSON.FlushInterval <= 0 {
		cfg.Logging.JSON.FlushInterval = defaults.Logging.JSON.FlushInterval
	}
	cfg.World = cfg.World.Normalized()
	cfg.Sync = cfg.Sync.Normalized()
	cfg.Loop = cfg.Loop.Normalized()
	if cfg.Store.HighScorePath == "" {
		cfg.Store.HighScorePath = defaults.Store.HighScorePath
	}
	return cfg
}
