// Package game composes one peer: the local world, its relay session, the
// high-score store and a render sink, advanced one frame at a time.
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/netsync"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/render"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/store"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
	simlog "github.com/VasilisChatzivasileiou/forlackofabettername/logging/simulation"
)

const (
	metricFrames     = "game_frames_total"
	metricRunResets  = "game_run_resets_total"
	metricHighScore  = "game_high_score"
	metricSaveErrors = "game_high_score_save_errors_total"
)

// Config groups the settings a client passes to its world, session and loop.
type Config struct {
	World sim.WorldConfig
	Sync  netsync.Config
	Loop  sim.LoopConfig
}

// Deps are the client's collaborators. Nil fields fall back to no-ops;
// a nil Store keeps the record in memory.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Store     store.HighScoreStore
	Sink      render.Sink
	Palette   *render.Palette
}

// InputSource supplies the intent for the next frame.
type InputSource interface {
	Next(snap sim.Snapshot) sim.Input
}

// InputFunc adapts a function to InputSource.
type InputFunc func(snap sim.Snapshot) sim.Input

func (f InputFunc) Next(snap sim.Snapshot) sim.Input { return f(snap) }

// Client runs one peer. Frame must be called from a single goroutine.
type Client struct {
	world     *sim.World
	session   *netsync.Session
	loopCfg   sim.LoopConfig
	store     store.HighScoreStore
	sink      render.Sink
	palette   render.Palette
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// NewClient loads the stored record and builds the world and session.
func NewClient(cfg Config, deps Deps) (*Client, error) {
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	highScores := deps.Store
	if highScores == nil {
		highScores = &store.Memory{}
	}
	best, err := highScores.Load()
	if err != nil {
		return nil, fmt.Errorf("load high score: %w", err)
	}
	palette := render.DefaultPalette()
	if deps.Palette != nil {
		palette = *deps.Palette
	}

	loopCfg := cfg.Loop.Normalized()
	world := sim.NewWorld(cfg.World,
		sim.WithHighScore(best),
		sim.WithStepDuration(time.Second/time.Duration(loopCfg.TickRate)),
	)
	session := netsync.NewSession(world, cfg.Sync, netsync.Deps{
		Logger:    logger,
		Metrics:   deps.Metrics,
		Publisher: publisher,
	})
	return &Client{
		world:     world,
		session:   session,
		loopCfg:   loopCfg,
		store:     highScores,
		sink:      deps.Sink,
		palette:   palette,
		logger:    logger,
		metrics:   deps.Metrics,
		publisher: publisher,
	}, nil
}

// World exposes the local simulation for inspection.
func (c *Client) World() *sim.World { return c.world }

// Session exposes the relay session.
func (c *Client) Session() *netsync.Session { return c.session }

// JoinRoom connects to the relay at url and claims code.
func (c *Client) JoinRoom(ctx context.Context, dialer netsync.Dialer, url, code string) error {
	if err := c.session.Connect(ctx, dialer, url); err != nil {
		return err
	}
	if err := c.session.Join(ctx, code); err != nil {
		c.session.Disconnect(ctx)
		return fmt.Errorf("join %s: %w", code, err)
	}
	return nil
}

// Frame runs one full frame: apply inbound sync messages, step the world,
// publish outbound state, then present.
func (c *Client) Frame(ctx context.Context, in sim.Input) sim.StepEvents {
	c.session.Drain(ctx)
	previousBest := c.world.HighScore()
	events := c.world.Step(in)
	c.session.Publish(ctx, in, events)
	c.observe(ctx, events, previousBest)

	if c.sink != nil {
		if err := c.sink.Present(ctx, render.Build(c.world.Snapshot(), c.palette)); err != nil {
			c.logger.Printf("[game] render failed: %v", err)
		}
	}
	return events
}

// Reset ends the current run as if the avatar had fallen.
func (c *Client) Reset(ctx context.Context) sim.StepEvents {
	previousBest := c.world.HighScore()
	events := c.world.Reset()
	c.observe(ctx, events, previousBest)
	return events
}

// Run drives Frame from a fixed-step loop until ctx is cancelled.
func (c *Client) Run(ctx context.Context, clock logging.Clock, source InputSource) error {
	loop := c.NewLoop(ctx, source)
	return loop.Run(ctx, clock)
}

// NewLoop wires Frame into a fixed-step loop without starting it.
func (c *Client) NewLoop(ctx context.Context, source InputSource) *sim.Loop {
	return sim.NewLoop(c.loopCfg, sim.LoopHooks{
		Step: func(sim.LoopTick) {
			c.Frame(ctx, source.Next(c.world.Snapshot()))
		},
		OnClamp: func(dropped time.Duration) {
			c.logger.Printf("[game] frame loop fell behind, dropped %s", dropped)
		},
	}, c.metrics)
}

func (c *Client) observe(ctx context.Context, events sim.StepEvents, previousBest int) {
	c.addMetric(metricFrames, 1)
	if events.RowsGenerated > 0 {
		simlog.RowGenerated(ctx, c.publisher, events.Frame, simlog.RowGeneratedPayload{
			Elevation: c.world.HighestGenerated(),
			Platforms: len(c.world.Platforms()),
			Pruned:    events.Pruned,
		})
	}
	if !events.Reset {
		return
	}
	c.addMetric(metricRunResets, 1)
	simlog.RunReset(ctx, c.publisher, events.Frame, simlog.RunResetPayload{
		Score:        events.Score,
		GhostFrames:  events.GhostFrames,
		GhostsStored: c.world.Ghosts().Runs(),
		Archived:     events.Archived,
	})
	if !events.NewHighScore {
		return
	}
	simlog.HighScore(ctx, c.publisher, events.Frame, simlog.HighScorePayload{
		Previous: previousBest,
		Score:    events.HighScore,
	})
	if c.metrics != nil {
		c.metrics.Store(metricHighScore, uint64(events.HighScore))
	}
	if err := c.store.Save(events.HighScore); err != nil {
		c.addMetric(metricSaveErrors, 1)
		c.logger.Printf("[game] failed to save high score: %v", err)
	}
}

func (c *Client) addMetric(key string, delta uint64) {
	if c.metrics != nil {
		c.metrics.Add(key, delta)
	}
}
