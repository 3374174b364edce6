package track

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/puritysb/yomilingo/internal/cache"
	"github.com/puritysb/yomilingo/internal/fusion"
	"github.com/puritysb/yomilingo/internal/textutil"
)

// Tracker owns the tracked-identity set and the pending-confirmation queue.
// It is deliberately not goroutine-safe: the orchestrator is the single
// writer and serializes frame updates, translation updates and Clear.
type Tracker struct {
	policy      Policy
	cache       *cache.Translations
	tracked     []*Tracked
	pending     []*Pending
	persistence float64
	now         func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, used by tests to drive timeouts.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a tracker with the given policy and an injected translation
// cache. The cache may be shared across sessions; the tracker never owns
// its lifecycle.
func New(p Policy, translations *cache.Translations, opts ...Option) *Tracker {
	t := &Tracker{
		policy:      p,
		cache:       translations,
		persistence: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetPolicy swaps the active policy, e.g. on a mode switch. Existing
// identities are kept; only future decisions use the new thresholds.
func (tr *Tracker) SetPolicy(p Policy) {
	tr.policy = p
}

// SetPersistence sets the scene-change multiplier applied to removal
// thresholds. Values are clamped to a sane range.
func (tr *Tracker) SetPersistence(m float64) {
	if m < 0.05 {
		m = 0.05
	} else if m > 3 {
		m = 3
	}
	tr.persistence = m
}

// Clear atomically empties tracked and pending state.
func (tr *Tracker) Clear() {
	tr.tracked = nil
	tr.pending = nil
}

// Len returns the number of tracked identities.
func (tr *Tracker) Len() int { return len(tr.tracked) }

// PendingLen returns the number of unconfirmed candidates.
func (tr *Tracker) PendingLen() int { return len(tr.pending) }

// Snapshot returns the current tracked set without mutating anything.
func (tr *Tracker) Snapshot() []Snapshot {
	out := make([]Snapshot, len(tr.tracked))
	for i, t := range tr.tracked {
		out[i] = t.snapshot()
	}
	return out
}

// Update runs one frame: match observations against tracked identities,
// age the unmatched, register or refresh pending candidates, promote the
// corroborated ones, and enforce capacity. Returns the resulting tracked
// set and per-frame statistics.
func (tr *Tracker) Update(observations []Observation) ([]Snapshot, FrameStats) {
	now := tr.now()
	p := tr.policy
	stats := FrameStats{Observations: len(observations)}

	matched := make([]bool, len(observations))

	// Pass 1: each tracked identity claims its best-scoring unmatched
	// observation, or ages.
	survivors := tr.tracked[:0]
	for _, t := range tr.tracked {
		bestIdx := -1
		bestScore := p.MatchThreshold
		for i, obs := range observations {
			if matched[i] {
				continue
			}
			if s := tr.matchScore(t, obs); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx >= 0 {
			matched[bestIdx] = true
			tr.updateMatched(t, observations[bestIdx], now, &stats)
			survivors = append(survivors, t)
			continue
		}

		tr.age(t, now)
		if tr.shouldRemove(t, now) {
			stats.Removed++
			continue
		}
		survivors = append(survivors, t)
	}
	tr.tracked = survivors

	// Pass 2: unmatched observations go through recovery, duplicate
	// suppression and the pending queue.
	for i, obs := range observations {
		if matched[i] {
			continue
		}
		text, ok := fusion.RecoverText(obs.Text)
		if !ok {
			stats.Dropped++
			continue
		}
		obs.Text = text
		if tr.isDuplicate(obs) {
			stats.Duplicates++
			continue
		}
		tr.registerPending(obs, now)
	}

	// Pass 3: expire stale pending entries and promote corroborated ones.
	keptPending := tr.pending[:0]
	for _, pd := range tr.pending {
		timeout := p.PendingTimeout
		if pd.CJK {
			timeout = p.PendingTimeoutCJK
		}
		if now.Sub(pd.LastSeen) > timeout {
			stats.ExpiredPending++
			continue
		}
		threshold := p.PromoteFramesLatin
		if pd.CJK {
			threshold = p.PromoteFramesCJK
		}
		if pd.FramesSeen >= threshold {
			tr.promote(pd, now, &stats)
			continue
		}
		keptPending = append(keptPending, pd)
	}
	tr.pending = keptPending

	tr.enforceCapacity(&stats)

	return tr.Snapshot(), stats
}

// matchScore combines text similarity and spatial overlap. The hard text
// gate keeps unrelated short strings with overlapping boxes from merging
// into one identity.
func (tr *Tracker) matchScore(t *Tracked, obs Observation) float64 {
	sim := fusion.TextSimilarity(t.Text, obs.Text)
	if sim < tr.policy.TextGate {
		return 0
	}
	return tr.policy.TextWeight*sim + tr.policy.BoxWeight*t.SmoothedBox.IoU(obs.Box)
}

// updateMatched folds a matched observation into the identity: text fusion,
// pivot detection, adaptive box smoothing, freshness reset.
func (tr *Tracker) updateMatched(t *Tracked, obs Observation, now time.Time, stats *FrameStats) {
	p := tr.policy

	t.history.Add(obs.Text, obs.Confidence, now)
	if fused, ok := t.history.BestText(now); ok {
		if fusion.TextSimilarity(fused, t.Text) < p.PivotSimilarity {
			// Content pivot: this is new text wearing an old identity.
			// Drop every trace of the previous translation.
			t.transition(eventPivot)
			t.Translation = ""
			t.BestTranslation = ""
			t.TranslationFailed = false
			t.TranslationAttempts = 0
			stats.Pivots++
		}
		t.Text = fused
		t.refreshScript()
	}

	t.Confidence = obs.Confidence
	if obs.Confidence > t.BestConfidence {
		t.BestText = t.Text
		t.BestConfidence = obs.Confidence
	}

	// Blend factor adapts to observed movement: fast response under real
	// motion, sticky near rest to suppress jitter.
	sticky := p.SmoothSticky
	if t.CJK {
		sticky = p.SmoothStickyCJK
	}
	displacement := t.SmoothedBox.CenterDistance(obs.Box)
	alpha := sticky + (p.SmoothFast-sticky)*math.Min(1, displacement/p.SmoothMotionScale)
	t.Box = obs.Box
	t.SmoothedBox = t.SmoothedBox.Lerp(obs.Box, alpha)

	t.Vertical = obs.Vertical
	t.Orientation = obs.Orientation
	if obs.Language != "" {
		t.Language = obs.Language
	}

	t.FramesSinceLastSeen = 0
	t.LastSeen = now

	t.updateVisibility(p, now)
	t.updateQuality(p)
	stats.Matched++
}

// age advances an unmatched identity by one frame.
func (tr *Tracker) age(t *Tracked, now time.Time) {
	t.FramesSinceLastSeen++
	t.updateVisibility(tr.policy, now)
	t.updateQuality(tr.policy)
}

// shouldRemove decides whether an unmatched identity has expired. OCR not
// seeing off-screen text is expected; OCR not seeing on-screen text is
// strong evidence it left the field of view, so off-screen identities are
// removed near-immediately.
func (tr *Tracker) shouldRemove(t *Tracked, now time.Time) bool {
	p := tr.policy

	if t.TranslationFailed && t.FramesSinceLastSeen > p.FailedRemovalFrames {
		return true
	}
	if t.FramesSinceLastSeen == 0 {
		return false
	}
	if !t.OnScreen && t.FramesSinceLastSeen >= p.OffScreenFrames {
		return true
	}

	scale := tr.persistence
	if t.OnScreen {
		scale *= p.OnScreenScale
	}
	if t.Quality > QualityHighBar {
		scale *= 1 + p.HighQualityBonus
	}

	if float64(t.FramesSinceLastSeen) >= float64(p.RemovalFrames)*scale {
		return true
	}
	if now.Sub(t.LastSeen) >= time.Duration(float64(p.RemovalAge)*scale) {
		return true
	}
	return false
}

// isDuplicate suppresses observations that textually and spatially overlap
// an already-tracked identity. Identical text at a clearly different
// position is a distinct instance, which the IoU requirement preserves.
func (tr *Tracker) isDuplicate(obs Observation) bool {
	p := tr.policy
	simThresh, iouThresh := p.DedupSimilarity, p.DedupMinIoU
	if textutil.ContainsCJK(obs.Text) {
		simThresh, iouThresh = p.DedupSimilarityCJK, p.DedupMinIoUCJK
	}
	for _, t := range tr.tracked {
		sim := fusion.TextSimilarity(t.Text, obs.Text)
		iou := t.SmoothedBox.IoU(obs.Box)
		if sim >= simThresh && iou >= iouThresh {
			return true
		}
	}
	return false
}

// registerPending refreshes a matching pending entry or creates a new one.
// Repeat sightings inside the timeout window accumulate FramesSeen; a
// sighting after the window starts the count over.
func (tr *Tracker) registerPending(obs Observation, now time.Time) {
	p := tr.policy
	cjk := textutil.ContainsCJK(obs.Text)
	simThresh, iouThresh := p.DedupSimilarity, p.DedupMinIoU
	if cjk {
		simThresh, iouThresh = p.DedupSimilarityCJK, p.DedupMinIoUCJK
	}

	for _, pd := range tr.pending {
		sim := fusion.TextSimilarity(pd.Text, obs.Text)
		iou := pd.Box.IoU(obs.Box)
		if sim < simThresh || iou < iouThresh {
			continue
		}

		timeout := p.PendingTimeout
		if pd.CJK {
			timeout = p.PendingTimeoutCJK
		}
		if now.Sub(pd.LastSeen) > timeout {
			pd.FramesSeen = 1
			pd.FirstSeen = now
		} else {
			pd.FramesSeen++
		}
		if obs.Confidence >= pd.Confidence {
			pd.Text = obs.Text
			pd.Confidence = obs.Confidence
		}
		pd.Box = obs.Box
		pd.LastSeen = now
		if obs.Language != "" {
			pd.Language = obs.Language
		}
		return
	}

	tr.pending = append(tr.pending, &Pending{
		Text:       obs.Text,
		Box:        obs.Box,
		Confidence: obs.Confidence,
		FramesSeen: 1,
		FirstSeen:  now,
		LastSeen:   now,
		Language:   obs.Language,
		CJK:        cjk,
	})
}

// promote turns a corroborated pending entry into a tracked identity. A
// translation-cache hit skips the whole request round-trip.
func (tr *Tracker) promote(pd *Pending, now time.Time, stats *FrameStats) {
	lang := pd.Language
	if lang == "" {
		lang = textutil.LanguageHint(pd.Text)
	}

	t := &Tracked{
		ID:             uuid.NewString(),
		Text:           pd.Text,
		Box:            pd.Box,
		SmoothedBox:    pd.Box,
		Confidence:     pd.Confidence,
		BestText:       pd.Text,
		BestConfidence: pd.Confidence,
		State:          StateDetected,
		FirstSeen:      pd.FirstSeen,
		LastSeen:       now,
		Language:       lang,
		history:        fusion.NewAccumulator(),
	}
	t.refreshScript()
	t.history.Add(pd.Text, pd.Confidence, now)

	if tr.cache != nil {
		if translated, ok := tr.cache.Get(pd.Text); ok {
			t.Translation = translated
			t.BestTranslation = translated
			t.State = StateTranslated
			stats.CacheHits++
		}
	}

	t.updateVisibility(tr.policy, now)
	t.updateQuality(tr.policy)

	tr.tracked = append(tr.tracked, t)
	stats.Promoted++
}

// enforceCapacity evicts the oldest-by-LastSeen identities beyond the cap.
func (tr *Tracker) enforceCapacity(stats *FrameStats) {
	max := tr.policy.MaxTracked
	if max <= 0 || len(tr.tracked) <= max {
		return
	}
	sort.SliceStable(tr.tracked, func(i, j int) bool {
		a, b := tr.tracked[i], tr.tracked[j]
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		return a.FirstSeen.After(b.FirstSeen)
	})
	stats.Evicted += len(tr.tracked) - max
	tr.tracked = tr.tracked[:max]
}

// TakeTranslationBatch collects texts that still need translation, grouped
// by source language, and marks their identities as Translating. Identities
// that exhausted their attempts are failed in place.
func (tr *Tracker) TakeTranslationBatch() map[string][]string {
	p := tr.policy
	batches := make(map[string][]string)
	for _, t := range tr.tracked {
		if t.State != StateDetected || t.Translation != "" || t.TranslationFailed {
			continue
		}
		if t.Confidence <= p.MinTranslateConfidence {
			continue
		}
		if t.TranslationAttempts >= p.MaxTranslationAttempts {
			if t.transition(eventResultInvalid) {
				t.TranslationFailed = true
			}
			continue
		}
		if !t.transition(eventRequestSent) {
			continue
		}
		t.TranslationAttempts++
		lang := t.Language
		if lang == "" {
			lang = textutil.LanguageHint(t.Text)
		}
		batches[lang] = append(batches[lang], t.Text)
	}
	return batches
}

// ReleaseInFlight returns identities whose translation request never
// produced a result back to Detected, so a later batch retries them. The
// attempt already counted; identities out of attempts fail on the next
// batch collection instead. Matching is exact and scoped to in-flight
// identities: requests were keyed by the exact text, and a fuzzy match
// could hit a settled identity while the one actually waiting is skipped.
func (tr *Tracker) ReleaseInFlight(texts []string) {
	for _, text := range texts {
		for _, t := range tr.tracked {
			if t.State == StateTranslating && (t.Text == text || t.BestText == text) {
				t.transition(eventPivot)
			}
		}
	}
}
