package logging

import (
	"context"
	"log"
	"os"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

type RouterStats struct {
	EventsTotal   uint64               `json:"eventsTotal"`
	DroppedTotal  uint64               `json:"droppedTotal"`
	FilteredTotal uint64               `json:"filteredTotal"`
	Sinks         map[string]SinkStats `json:"sinks,omitempty"`
}

type SinkStats struct {
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

// Router accepts events from the frame loop and the relay read loops and
// hands them to each sink's own worker, so a stalled sink only loses its own
// backlog.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	floor    Severity
	floors   map[string]Severity
	fields   map[string]any

	in      chan Event
	stop    chan struct{}
	done    chan struct{}
	workers []*sinkWorker
	closed  atomic.Bool

	accepted atomic.Uint64
	dropped  atomic.Uint64
	filtered atomic.Uint64
	warnAt   atomic.Int64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 512
	}
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		floor:    cfg.MinimumSeverity,
		floors:   cfg.CategoryFloors(),
		fields:   cfg.CloneFields(),
		in:       make(chan Event, size),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	perSink := min(max(size, 32), 1024)
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		w := &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			events:   make(chan Event, perSink),
			fallback: r.fallback,
			done:     make(chan struct{}),
		}
		r.workers = append(r.workers, w)
		go w.run()
	}
	go r.dispatch()
	return r
}

func (r *Router) dispatch() {
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
		close(r.done)
	}()
	for {
		select {
		case event := <-r.in:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.in:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) admits(event Event) bool {
	floor := r.floor
	if f, ok := r.floors[event.Category]; ok {
		floor = f
	}
	return event.Severity >= floor
}

func (r *Router) route(event Event) {
	if !r.admits(event) {
		r.filtered.Add(1)
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.accepted.Add(1)
	for _, w := range r.workers {
		w.offer(event)
	}
}

func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.in <- event:
	default:
		r.dropped.Add(1)
		r.warnDrop(event)
	}
}

// warnDrop reports queue overflow on the fallback logger at most once per
// DropWarnInterval.
func (r *Router) warnDrop(event Event) {
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := r.clock.Now().UnixNano()
	due := r.warnAt.Load()
	if now < due || !r.warnAt.CompareAndSwap(due, now+int64(interval)) {
		return
	}
	r.fallback.Printf("queue full, dropping %s (frame %d, %d dropped so far)", event.Type, event.Frame, r.dropped.Load())
}

// Close stops accepting events, flushes what is queued and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	for _, wait := range r.waits() {
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) waits() []<-chan struct{} {
	out := []<-chan struct{}{r.done}
	for _, w := range r.workers {
		out = append(out, w.done)
	}
	return out
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:   r.accepted.Load(),
		DroppedTotal:  r.dropped.Load(),
		FilteredTotal: r.filtered.Load(),
	}
	if len(r.workers) > 0 {
		stats.Sinks = make(map[string]SinkStats, len(r.workers))
		for _, w := range r.workers {
			stats.Sinks[w.name] = SinkStats{
				Written: w.written.Load(),
				Failed:  w.failed.Load(),
				Dropped: w.dropped.Load(),
			}
		}
	}
	return stats
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger
	done     chan struct{}

	written atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64

	strikes int
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.events <- cloneEvent(event):
	default:
		w.dropped.Add(1)
	}
}

func (w *sinkWorker) run() {
	defer close(w.done)
	var resume time.Time
	for event := range w.events {
		if wait := time.Until(resume); wait > 0 {
			time.Sleep(wait)
		}
		if err := w.sink.Write(event); err != nil {
			resume = time.Now().Add(w.backoff(err))
			continue
		}
		w.written.Add(1)
		w.strikes = 0
		resume = time.Time{}
	}
}

// backoff doubles the pause after each consecutive failure, capped at 32s.
func (w *sinkWorker) backoff(err error) time.Duration {
	w.failed.Add(1)
	w.strikes++
	delay := time.Duration(1<<min(w.strikes, 5)) * time.Second
	w.fallback.Printf("sink %s: %v (pausing %s)", w.name, err, delay)
	return delay
}
