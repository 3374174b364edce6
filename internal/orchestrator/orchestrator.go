// Package orchestrator serializes all tracker mutation behind one mutex
package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/puritysb/yomilingo/internal/cache"
	"github.com/puritysb/yomilingo/internal/config"
	"github.com/puritysb/yomilingo/internal/metrics"
	"github.com/puritysb/yomilingo/internal/syncx"
	"github.com/puritysb/yomilingo/internal/track"
	"github.com/puritysb/yomilingo/internal/translate"
)

// sceneState is the scene-change window: while now is before until, the
// tracker runs with reduced persistence so stale text drains fast.
type sceneState struct {
	until      time.Time
	multiplier float64
}

// Orchestrator is the single writer over the tracker. Frame updates,
// translation results, mode switches and clears all pass through its mutex;
// the tracker itself stays lock-free.
type Orchestrator struct {
	cfg *config.Config

	mu      sync.Mutex
	tracker *track.Tracker
	mode    track.Mode

	cache   *cache.Translations
	batcher *translate.Batcher
	metrics *metrics.Metrics
	scene   *syncx.RWGuard[sceneState]
	events  chan []track.Snapshot
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New wires the tracker, translation batcher and cache together.
func New(cfg *config.Config, svc translate.Service, m *metrics.Metrics, opts ...Option) *Orchestrator {
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = cache.DefaultCapacity
	}

	o := &Orchestrator{
		cfg:     cfg,
		cache:   cache.New(capacity),
		metrics: m,
		scene:   syncx.NewGuard(sceneState{multiplier: cfg.ScenePersistence}),
		events:  make(chan []track.Snapshot, EventBufferSize),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.mode = track.ParseMode(cfg.Mode)
	o.tracker = track.New(o.policyFor(o.mode), o.cache, track.WithClock(o.now))
	o.batcher = translate.NewBatcher(svc, cfg.BatchMax,
		time.Duration(cfg.BatchDelay*float64(time.Second)), o.handleResult)

	return o
}

// policyFor builds the mode preset with configuration overrides applied.
func (o *Orchestrator) policyFor(m track.Mode) track.Policy {
	p := track.PolicyForMode(m)
	if o.cfg.MaxTracked > 0 {
		p.MaxTracked = o.cfg.MaxTracked
	}
	if o.cfg.PromoteFramesLatin > 0 {
		p.PromoteFramesLatin = o.cfg.PromoteFramesLatin
	}
	if o.cfg.PromoteFramesCJK > 0 {
		p.PromoteFramesCJK = o.cfg.PromoteFramesCJK
	}
	return p
}

// ProcessFrame runs one OCR frame through the tracker and queues any texts
// that need translation. Returns the resulting tracked set.
func (o *Orchestrator) ProcessFrame(observations []track.Observation) ([]track.Snapshot, track.FrameStats) {
	start := o.now()

	o.mu.Lock()
	o.tracker.SetPersistence(o.currentPersistence(start))
	snaps, stats := o.tracker.Update(observations)
	batches := o.tracker.TakeTranslationBatch()
	trackedLen, pendingLen := o.tracker.Len(), o.tracker.PendingLen()
	o.mu.Unlock()

	for lang, texts := range batches {
		o.batcher.Enqueue(lang, texts)
	}

	o.record(stats, batches, trackedLen, pendingLen, start)
	o.emit(snaps)
	return snaps, stats
}

// currentPersistence resolves the scene-change multiplier for this frame.
func (o *Orchestrator) currentPersistence(now time.Time) float64 {
	s := o.scene.Get()
	if now.Before(s.until) {
		return s.multiplier
	}
	return 1
}

// SceneChange applies a persistence multiplier from the scene classifier
// for the hold window: low values drain stale identities fast during a
// transition, values above 1 keep them sticky on a stable scene. A
// non-positive multiplier is a bare transition signal and falls back to
// the configured scene persistence.
func (o *Orchestrator) SceneChange(multiplier float64) {
	if multiplier <= 0 {
		multiplier = o.cfg.ScenePersistence
	}
	hold := time.Duration(o.cfg.SceneHold * float64(time.Second))
	o.scene.Set(sceneState{until: o.now().Add(hold), multiplier: multiplier})
	if o.metrics != nil {
		o.metrics.SceneChanges.Add(1)
	}
	slog.Info("scene change", "multiplier", multiplier, "hold", hold)
}

// Clear drops all tracked and pending state, e.g. on app switch.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.tracker.Clear()
	o.mu.Unlock()
	o.emit(nil)
	slog.Info("tracker cleared")
}

// SetMode switches between the standard and immersive presets. Tracked
// identities survive the switch; only thresholds change.
func (o *Orchestrator) SetMode(mode string) track.Mode {
	m := track.ParseMode(mode)
	o.mu.Lock()
	o.mode = m
	o.tracker.SetPolicy(o.policyFor(m))
	o.mu.Unlock()
	slog.Info("mode switched", "mode", m.String())
	return m
}

// Mode returns the active mode.
func (o *Orchestrator) Mode() track.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Snapshot returns the current tracked set without advancing a frame.
func (o *Orchestrator) Snapshot() []track.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tracker.Snapshot()
}

// Events returns the snapshot feed. Emission is non-blocking: slow
// consumers miss intermediate states, never stall the frame loop.
func (o *Orchestrator) Events() <-chan []track.Snapshot {
	return o.events
}

// Close flushes pending translation batches and waits for them.
func (o *Orchestrator) Close() {
	o.batcher.Close()
}

// handleResult applies one translation batch outcome under the mutex.
// Failed or missing results release their identities for a later attempt.
func (o *Orchestrator) handleResult(res translate.Result) {
	o.mu.Lock()
	applied := 0
	if res.Err != nil {
		o.tracker.ReleaseInFlight(res.Texts)
	} else {
		applied = o.tracker.UpdateTranslations(res.Translations)
		var unresolved []string
		for _, text := range res.Texts {
			if _, ok := res.Translations[text]; !ok {
				unresolved = append(unresolved, text)
			}
		}
		o.tracker.ReleaseInFlight(unresolved)
	}
	snaps := o.tracker.Snapshot()
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.TranslationApplied.Add(uint64(applied))
		if res.Err != nil {
			o.metrics.TranslationFailed.Add(uint64(len(res.Texts)))
		} else if failed := len(res.Translations) - applied; failed > 0 {
			o.metrics.TranslationFailed.Add(uint64(failed))
		}
	}
	o.emit(snaps)
}

func (o *Orchestrator) record(stats track.FrameStats, batches map[string][]string, tracked, pending int, start time.Time) {
	if o.metrics == nil {
		return
	}
	m := o.metrics
	m.FramesProcessed.Add(1)
	m.ObservationsReceived.Add(uint64(stats.Observations))
	m.ObservationsDropped.Add(uint64(stats.Dropped))
	m.Matches.Add(uint64(stats.Matched))
	m.Pivots.Add(uint64(stats.Pivots))
	m.Promotions.Add(uint64(stats.Promoted))
	m.Removals.Add(uint64(stats.Removed))
	m.Evictions.Add(uint64(stats.Evicted))
	m.Duplicates.Add(uint64(stats.Duplicates))
	m.CacheHits.Add(uint64(stats.CacheHits))
	m.TrackedCount.Store(uint64(tracked))
	m.PendingCount.Store(uint64(pending))
	m.CacheSize.Store(uint64(o.cache.Len()))
	for _, texts := range batches {
		m.TranslationRequests.Add(uint64(len(texts)))
	}
	m.UpdateFrameLatency(start)
}

func (o *Orchestrator) emit(snaps []track.Snapshot) {
	select {
	case o.events <- snaps:
	default:
		// no listener keeping up, drop this state
	}
}
