package sim

import (
	"context"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

// LoopConfig tunes the fixed-timestep runner.
type LoopConfig struct {
	TickRate        int `yaml:"tickRate"`
	CatchupMaxSteps int `yaml:"catchupMaxSteps"`
}

// Normalized fills defaults.
func (cfg LoopConfig) Normalized() LoopConfig {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultStepsPerSec
	}
	if cfg.CatchupMaxSteps <= 0 {
		cfg.CatchupMaxSteps = DefaultCatchupSteps
	}
	return cfg
}

// LoopTick describes one fixed step the loop is about to run.
type LoopTick struct {
	Step  uint64
	Now   time.Time
	Delta time.Duration
}

// LoopHooks lets the owner run the actual frame. Step is required.
type LoopHooks struct {
	Step func(LoopTick)
	// OnClamp fires when elapsed time exceeded the catch-up budget and the
	// surplus was dropped.
	OnClamp func(dropped time.Duration)
}

// Loop accumulates wall-clock time and runs whole fixed steps.
type Loop struct {
	config      LoopConfig
	hooks       LoopHooks
	step        time.Duration
	accumulated time.Duration
	steps       uint64
	metrics     telemetry.Metrics
}

const (
	metricLoopSteps   = "sim_loop_steps_total"
	metricLoopClamped = "sim_loop_clamped_total"
)

// NewLoop builds a loop. A nil metrics sink is allowed.
func NewLoop(cfg LoopConfig, hooks LoopHooks, metrics telemetry.Metrics) *Loop {
	cfg = cfg.Normalized()
	return &Loop{
		config:  cfg,
		hooks:   hooks,
		step:    time.Second / time.Duration(cfg.TickRate),
		metrics: metrics,
	}
}

// StepDuration is the fixed step length.
func (l *Loop) StepDuration() time.Duration { return l.step }

// Steps returns the number of steps run so far.
func (l *Loop) Steps() uint64 { return l.steps }

// Advance adds elapsed time and runs as many whole steps as fit, at most
// CatchupMaxSteps. It returns the number of steps run.
func (l *Loop) Advance(now time.Time, elapsed time.Duration) int {
	if l == nil || elapsed <= 0 {
		return 0
	}
	l.accumulated += elapsed
	budget := l.step * time.Duration(l.config.CatchupMaxSteps)
	if l.accumulated > budget {
		dropped := l.accumulated - budget
		l.accumulated = budget
		if l.metrics != nil {
			l.metrics.Add(metricLoopClamped, 1)
		}
		if l.hooks.OnClamp != nil {
			l.hooks.OnClamp(dropped)
		}
	}
	ran := 0
	for l.accumulated >= l.step {
		l.accumulated -= l.step
		l.steps++
		ran++
		if l.hooks.Step != nil {
			l.hooks.Step(LoopTick{Step: l.steps, Now: now, Delta: l.step})
		}
	}
	if ran > 0 && l.metrics != nil {
		l.metrics.Add(metricLoopSteps, uint64(ran))
	}
	return ran
}

// Run drives Advance from a ticker until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, clock logging.Clock) error {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()

	last := clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := clock.Now()
			l.Advance(now, now.Sub(last))
			last = now
		}
	}
}
