package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/config"
	servernet "github.com/VasilisChatzivasileiou/forlackofabettername/internal/net"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/relay"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
	loggingSinks "github.com/VasilisChatzivasileiou/forlackofabettername/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
	// Listener, when set, is served instead of listening on Settings.Relay.Addr.
	Listener net.Listener
	// Ready is closed once the server is accepting connections.
	Ready chan<- net.Addr
}

// Run serves the relay until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	settings := cfg.Settings.Normalized()

	router, closeRouter, err := NewRouter(settings.Logging, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeRouter(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}
	hub := relay.NewHub(relay.HubDeps{
		Logger:    telemetryLogger,
		Metrics:   telemetry.WrapMetrics(metrics),
		Publisher: router,
	})
	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: settings.Relay.ClientDir,
		Logger:    telemetryLogger,
		Relay:     settings.Relay.Config,
		Metrics:   metrics,
		Router:    router,
	})

	listener := cfg.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", settings.Relay.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", settings.Relay.Addr, err)
		}
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	telemetryLogger.Printf("relay listening on %s", listener.Addr())
	if cfg.Ready != nil {
		cfg.Ready <- listener.Addr()
		close(cfg.Ready)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// NewRouter builds the logging router for cfg. The returned close function
// flushes the router and closes any file the JSON sink opened.
func NewRouter(cfg logging.Config, console io.Writer) (*logging.Router, func(context.Context) error, error) {
	var named []logging.NamedSink
	var file *os.File
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsole(console)})
		case "json":
			var w io.Writer = console
			if cfg.JSON.FilePath != "" {
				f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return nil, nil, fmt.Errorf("open json log: %w", err)
				}
				file, w = f, f
			}
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(w, cfg.JSON.FlushInterval)})
		case "memory":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemory()})
		default:
			return nil, nil, fmt.Errorf("unknown logging sink %q", name)
		}
	}
	router := logging.NewRouter(logging.SystemClock{}, cfg, named)
	closeFn := func(ctx context.Context) error {
		err := router.Close(ctx)
		if file != nil {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}
	return router, closeFn, nil
}
