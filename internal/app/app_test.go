package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/config"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

func TestRunServesHealthAndStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	settings := config.Default()
	settings.Logging.EnabledSinks = []string{"memory"}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Logger:   telemetry.Discard(),
			Settings: settings,
			Listener: listener,
			Ready:    ready,
		})
	}()

	addr := <-ready
	resp, err := http.Get("http://" + addr.String() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("expected ok, got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestNewRouterRejectsUnknownSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"carrier-pigeon"}
	if _, _, err := NewRouter(cfg, io.Discard); err == nil {
		t.Fatalf("expected unknown sink error")
	}
}

func TestNewRouterWritesJSONFile(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"json"}
	cfg.JSON.FilePath = filepath.Join(t.TempDir(), "events.jsonl")
	var console bytes.Buffer
	router, closeRouter, err := NewRouter(cfg, &console)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})
	if err := closeRouter(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if console.Len() != 0 {
		t.Fatalf("expected json written to file, not console")
	}
}
