package render

import (
	"context"
	"sync"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
)

// Sink presents built frames.
type Sink interface {
	Present(ctx context.Context, frame Frame) error
}

// LogSink summarises every Nth frame through a logger. It stands in for a
// display in headless runs.
type LogSink struct {
	logger telemetry.Logger
	every  uint64
}

// NewLogSink logs one line every `every` frames.
func NewLogSink(logger telemetry.Logger, every uint64) *LogSink {
	if logger == nil {
		logger = telemetry.Discard()
	}
	if every == 0 {
		every = 60
	}
	return &LogSink{logger: logger, every: every}
}

func (s *LogSink) Present(_ context.Context, frame Frame) error {
	if frame.Frame%s.every != 0 {
		return nil
	}
	s.logger.Printf("[render] frame=%d score=%d best=%d rects=%d lines=%d jumps=%d hooks=%d",
		frame.Frame, frame.Score, frame.HighScore, len(frame.Rects), len(frame.Lines), frame.DoubleJumps, frame.Hooks)
	return nil
}

// Recorder keeps the most recent frame.
type Recorder struct {
	mu    sync.Mutex
	last  Frame
	count int
}

func (r *Recorder) Present(_ context.Context, frame Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = frame
	r.count++
	return nil
}

// Last returns the latest frame and how many were presented.
func (r *Recorder) Last() (Frame, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.count
}
