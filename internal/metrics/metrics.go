package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame pipeline counters
	FramesProcessed      atomic.Uint64
	ObservationsReceived atomic.Uint64
	ObservationsDropped  atomic.Uint64
	Matches              atomic.Uint64
	Pivots               atomic.Uint64
	Promotions           atomic.Uint64
	Removals             atomic.Uint64
	Evictions            atomic.Uint64
	Duplicates           atomic.Uint64

	// Translation counters
	TranslationRequests atomic.Uint64
	TranslationApplied  atomic.Uint64
	TranslationFailed   atomic.Uint64
	CacheHits           atomic.Uint64

	// Current state gauges
	TrackedCount atomic.Uint64
	PendingCount atomic.Uint64
	CacheSize    atomic.Uint64

	// Latency tracking
	FrameLatencyMs atomic.Uint64 // last frame processing time in ms

	// Connection tracking
	ActiveConnections atomic.Uint64
	SceneChanges      atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name string
		help string
		load func() uint64
	}{
		{"tracker_frames_processed_total", "Total OCR frames processed", m.FramesProcessed.Load},
		{"tracker_observations_received_total", "Total OCR observations received", m.ObservationsReceived.Load},
		{"tracker_observations_dropped_total", "Observations dropped as unrecoverable noise", m.ObservationsDropped.Load},
		{"tracker_matches_total", "Observations matched to existing identities", m.Matches.Load},
		{"tracker_pivots_total", "Content pivots on tracked identities", m.Pivots.Load},
		{"tracker_promotions_total", "Pending candidates promoted to tracked", m.Promotions.Load},
		{"tracker_removals_total", "Identities removed by lifecycle rules", m.Removals.Load},
		{"tracker_evictions_total", "Identities evicted by the capacity cap", m.Evictions.Load},
		{"tracker_duplicates_total", "Observations suppressed as duplicates", m.Duplicates.Load},
		{"tracker_translation_requests_total", "Texts sent to the translation service", m.TranslationRequests.Load},
		{"tracker_translation_applied_total", "Translation results accepted", m.TranslationApplied.Load},
		{"tracker_translation_failed_total", "Translation results rejected", m.TranslationFailed.Load},
		{"tracker_cache_hits_total", "Translation cache hits on promotion", m.CacheHits.Load},
		{"tracker_tracked_count", "Current number of tracked identities", m.TrackedCount.Load},
		{"tracker_pending_count", "Current number of pending candidates", m.PendingCount.Load},
		{"tracker_cache_size", "Current translation cache size", m.CacheSize.Load},
		{"tracker_frame_latency_ms", "Last frame processing time in milliseconds", m.FrameLatencyMs.Load},
		{"tracker_active_connections", "Active WebSocket connections", m.ActiveConnections.Load},
		{"tracker_scene_changes_total", "Scene change signals received", m.SceneChanges.Load},
	}
	for _, c := range counters {
		load := c.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(load()) },
		))
	}
}

// UpdateFrameLatency records how long the last frame took to process.
func (m *Metrics) UpdateFrameLatency(start time.Time) {
	m.FrameLatencyMs.Store(uint64(time.Since(start).Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
