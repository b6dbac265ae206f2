package telemetry

import (
	"log"

	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

// Logger is the free-form diagnostic channel used by the relay hub, the
// websocket handlers, the sync session and the headless client. Structured
// events go through logging.Publisher instead.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc lets tests capture diagnostics with a closure.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

// WrapLogger routes diagnostics to a standard library logger. A nil logger
// discards everything.
func WrapLogger(logger *log.Logger) Logger {
	if logger == nil {
		return Discard()
	}
	return LoggerFunc(logger.Printf)
}

// Discard is the default for components constructed without a logger.
func Discard() Logger {
	return LoggerFunc(func(string, ...any) {})
}

// Metrics receives relay, session and frame-loop counters (Add) and gauges
// such as active rooms or queue occupancy (Store).
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics feeds a logging.Metrics registry, the one /diagnostics serves.
func WrapMetrics(registry *logging.Metrics) Metrics {
	return registryMetrics{registry: registry}
}

type registryMetrics struct {
	registry *logging.Metrics
}

func (m registryMetrics) Add(key string, delta uint64) {
	m.registry.TelemetryAdd(key, delta)
}

func (m registryMetrics) Store(key string, value uint64) {
	m.registry.TelemetryStore(key, value)
}
