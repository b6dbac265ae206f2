package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/relay"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
)

// MetricsSnapshotter exposes counters for /diagnostics.
type MetricsSnapshotter interface {
	Snapshot() map[string]uint64
}

// RouterStatser exposes logging router throughput for /diagnostics.
type RouterStatser interface {
	Stats() logging.RouterStats
}

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    telemetry.Logger
	Relay     relay.Config
	Metrics   MetricsSnapshotter
	Router    RouterStatser
}

// NewHTTPHandler serves the relay endpoint, health checks and the static client.
func NewHTTPHandler(hub *relay.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()
	relayCfg := cfg.Relay.Normalized()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var telemetrySnapshot map[string]uint64
		if cfg.Metrics != nil {
			telemetrySnapshot = cfg.Metrics.Snapshot()
		}
		var routerStats *logging.RouterStats
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			routerStats = &stats
		}

		payload := struct {
			Status       string               `json:"status"`
			ServerTime   int64                `json:"serverTime"`
			Relay        relay.HubStats       `json:"relay"`
			PingMillis   int64                `json:"pingMillis"`
			ReadTimeout  int64                `json:"readTimeoutMillis"`
			Telemetry    map[string]uint64    `json:"telemetry"`
			LoggingStats *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			Relay:        hub.Stats(),
			PingMillis:   relayCfg.PingInterval.Milliseconds(),
			ReadTimeout:  relayCfg.ReadTimeout.Milliseconds(),
			Telemetry:    telemetrySnapshot,
			LoggingStats: routerStats,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.Handle("/ws", relay.NewHandler(hub, relay.HandlerConfig{
		Logger: cfg.Logger,
		Relay:  relayCfg,
	}))

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
