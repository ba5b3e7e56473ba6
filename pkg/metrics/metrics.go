// Package metrics exposes the Prometheus collectors for domcorder's
// record/replay pipeline: a promauto-backed singleton keyed by
// namespace/subsystem, scoped to frame and asset traffic instead of
// HTTP events.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Options configures Collector construction.
type Options struct {
	// Namespace defaults to "domcorder" if empty.
	Namespace string
	// Registry defaults to prometheus.DefaultRegisterer if nil.
	Registry prometheus.Registerer
}

// Collector holds the counters/gauges/histograms for one recorder+player
// process. Construct once per process with New; it is safe for concurrent
// use, matching every Prometheus client type's own guarantee.
type Collector struct {
	FramesSent     *prometheus.CounterVec
	FramesReceived *prometheus.CounterVec
	BytesSent      prometheus.Counter
	BytesReceived  prometheus.Counter

	AssetsFetched   prometheus.Counter
	AssetFetchFails prometheus.Counter
	AssetCacheHits  prometheus.Counter

	OpenFrameStallSeconds prometheus.Histogram
	OpenFramesActive      prometheus.Gauge

	DroppedOperations *prometheus.CounterVec

	HeartbeatsSent prometheus.Counter
	Reconnects     prometheus.Counter
}

var (
	global     *Collector
	globalOnce sync.Once
)

// New creates a Collector registering its metrics against opts.Registry.
func New(opts Options) *Collector {
	if opts.Namespace == "" {
		opts.Namespace = "domcorder"
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(opts.Registry)
	ns := opts.Namespace

	return &Collector{
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "frames_sent_total", Help: "Total wire frames sent, by frame type.",
		}, []string{"type"}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "frames_received_total", Help: "Total wire frames received, by frame type.",
		}, []string{"type"}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "bytes_sent_total", Help: "Total encoded bytes sent.",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "bytes_received_total", Help: "Total bytes received.",
		}),
		AssetsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "assets_fetched_total", Help: "Total assets successfully fetched by the recorder.",
		}),
		AssetFetchFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "asset_fetch_failures_total", Help: "Total asset fetch attempts that failed or were omitted.",
		}),
		AssetCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "asset_cache_hits_total", Help: "Total assets resolved via a cache-hit AssetReference instead of a full Asset.",
		}),
		OpenFrameStallSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "open_frame_stall_seconds", Help: "Time an open frame spent waiting on gating assets before it could apply.",
			Buckets: prometheus.DefBuckets,
		}),
		OpenFramesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "open_frames_active", Help: "Current depth of the player's open-frame stack.",
		}),
		DroppedOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "dropped_operations_total", Help: "Operations dropped because their target node/parent was not observed, by reason.",
		}, []string{"reason"}),
		HeartbeatsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "heartbeats_sent_total", Help: "Total heartbeat frames sent by RecordingClient during DOM-mutation-free quiet periods.",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "reconnects_total", Help: "Total successful resync reconnections.",
		}),
	}
}

// Global returns a process-wide Collector, creating it against the default
// registry on first use.
func Global() *Collector {
	globalOnce.Do(func() {
		global = New(Options{})
	})
	return global
}
