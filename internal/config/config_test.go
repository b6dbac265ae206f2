package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Relay.Addr != ":8080" || cfg.World.ViewWidth != 800 || cfg.Sync.PlatformUpdateEvery != 30 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
relay:
  addr: ":9000"
  pingInterval: 5s
  readTimeout: 20s
world:
  viewWidth: 400
  hazards: false
sync:
  platformUpdateEvery: 10
logging:
  minSeverity: warn
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Relay.Addr != ":9000" || cfg.Relay.PingInterval != 5*time.Second || cfg.Relay.ReadTimeout != 20*time.Second {
		t.Fatalf("unexpected relay config %+v", cfg.Relay)
	}
	if cfg.World.ViewWidth != 400 || cfg.World.Hazards {
		t.Fatalf("unexpected world config %+v", cfg.World)
	}
	if !cfg.World.RequireHookCharge {
		t.Fatalf("expected unset fields to keep defaults")
	}
	if cfg.Sync.PlatformUpdateEvery != 10 || cfg.Sync.PlayerUpdateEvery != 1 {
		t.Fatalf("unexpected sync config %+v", cfg.Sync)
	}
	if cfg.Logging.MinimumSeverity != logging.SeverityWarn {
		t.Fatalf("expected warn severity, got %s", cfg.Logging.MinimumSeverity)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "relay:\n  bogus: true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RELAY_ADDR":       ":7000",
		"RELAY_URL":        "ws://relay.example/ws",
		"LOG_SINKS":        "console, json",
		"LOG_MIN_SEVERITY": "debug",
		"VIEWPORT_WIDTH":   "not-a-number",
		"WORLD_HAZARDS":    "false",
	}
	var warnings int
	cfg := ApplyEnv(Default(), func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}, telemetry.LoggerFunc(func(string, ...any) { warnings++ }))

	if cfg.Relay.Addr != ":7000" || cfg.Client.RelayURL != "ws://relay.example/ws" {
		t.Fatalf("unexpected addresses %+v %+v", cfg.Relay, cfg.Client)
	}
	if len(cfg.Logging.EnabledSinks) != 2 || cfg.Logging.EnabledSinks[1] != "json" {
		t.Fatalf("unexpected sinks %v", cfg.Logging.EnabledSinks)
	}
	if cfg.Logging.MinimumSeverity != logging.SeverityDebug {
		t.Fatalf("expected debug severity")
	}
	if cfg.World.ViewWidth != 800 || warnings != 1 {
		t.Fatalf("expected invalid width ignored with one warning, got %v/%d", cfg.World.ViewWidth, warnings)
	}
	if cfg.World.Hazards {
		t.Fatalf("expected hazards disabled")
	}
}
