// Command bot runs a headless climber against the local simulation, and
// optionally pairs it with another peer through the relay.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/app"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/config"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/game"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/netsync"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/render"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/store"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

type options struct {
	configPath string
	url        string
	code       string
	expectHost bool
	frames     uint64
	seed       string
}

const reportInterval = 10 * time.Second

var errWrongRole = errors.New("relay assigned the guest role")

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&opts.url, "url", "", "relay websocket URL (defaults to client.relayUrl)")
	flag.StringVar(&opts.code, "code", "", "room code to join; empty plays solo")
	flag.BoolVar(&opts.expectHost, "host", false, "fail unless this bot hosts the room")
	flag.Uint64Var(&opts.frames, "frames", 3600, "frames to run before exiting; 0 runs until interrupted")
	flag.StringVar(&opts.seed, "seed", "", "world seed override")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, opts options) error {
	logger := telemetry.WrapLogger(log.Default())
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	settings = config.ApplyEnv(settings, os.LookupEnv, logger)
	if opts.seed != "" {
		settings.World.Seed = opts.seed
	}
	if opts.url == "" {
		opts.url = settings.Client.RelayURL
	}

	router, closeRouter, err := app.NewRouter(settings.Logging, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeRouter(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}
	client, err := game.NewClient(game.Config{
		World: settings.World,
		Sync:  settings.Sync,
		Loop:  settings.Loop,
	}, game.Deps{
		Logger:    logger,
		Metrics:   telemetry.WrapMetrics(metrics),
		Publisher: router,
		Store:     store.NewHighScore(settings.Store.HighScorePath),
		Sink:      render.NewLogSink(logger, uint64(settings.Loop.TickRate)),
	})
	if err != nil {
		return err
	}

	if opts.code != "" {
		dialer := netsync.WSDialer{
			WriteWait:       settings.Relay.WriteWait,
			MaxMessageBytes: settings.Relay.MaxMessageBytes,
		}
		if err := client.JoinRoom(ctx, dialer, opts.url, opts.code); err != nil {
			return err
		}
		defer client.Session().Disconnect(context.Background())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var failure atomic.Value
	climber := &game.Climber{}
	source := game.InputFunc(func(snap sim.Snapshot) sim.Input {
		for _, notice := range client.Session().Notices() {
			logger.Printf("[bot] %s", notice)
		}
		if opts.expectHost && client.Session().State() == netsync.StateActive && !client.Session().IsHost() {
			failure.Store(errWrongRole)
			cancel()
		}
		if opts.frames > 0 && snap.Frame >= opts.frames {
			cancel()
			return sim.Input{}
		}
		return climber.Next(snap)
	})

	g.Go(func() error {
		err := client.Run(gctx, logging.SystemClock{}, source)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return report(gctx, logger, metrics, reportInterval)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err, ok := failure.Load().(error); ok {
		return err
	}

	world := client.World()
	avatar := world.Avatar()
	logger.Printf("[bot] finished frame=%d score=%d best=%d role=%s", world.Frame(), avatar.Score(), world.HighScore(), world.Role())
	return nil
}

// report logs the counters every interval until ctx ends.
func report(ctx context.Context, logger telemetry.Logger, metrics *logging.Metrics, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snapshot := metrics.Snapshot()
			logger.Printf("[bot] frames=%d resets=%d inbound_overflow=%d",
				snapshot["game_frames_total"], snapshot["game_run_resets_total"], snapshot["netsync_inbound_queue_overflow_total"])
		}
	}
}
