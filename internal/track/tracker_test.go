package track

import (
	"fmt"
	"testing"
	"time"

	"github.com/puritysb/yomilingo/internal/cache"
	"github.com/puritysb/yomilingo/internal/fusion"
	"github.com/puritysb/yomilingo/internal/geom"
)

type clock struct{ t time.Time }

func newTestClock() *clock {
	return &clock{t: time.Unix(1700000000, 0)}
}

func (c *clock) now() time.Time { return c.t }

// tick advances by one 30fps frame interval.
func (c *clock) tick() { c.t = c.t.Add(33 * time.Millisecond) }

func obs(text string, confidence float64, box geom.Rect) Observation {
	return Observation{Text: text, Confidence: confidence, Box: box}
}

func centerBox() geom.Rect {
	return geom.Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.05}
}

// seed injects a tracked identity directly, bypassing promotion.
func seed(tr *Tracker, text string, box geom.Rect, state DetectionState, at time.Time) *Tracked {
	t := &Tracked{
		ID:             "seed-" + text,
		Text:           text,
		Box:            box,
		SmoothedBox:    box,
		Confidence:     0.9,
		BestText:       text,
		BestConfidence: 0.9,
		State:          state,
		LastSeen:       at,
		FirstSeen:      at,
		history:        fusion.NewAccumulator(),
	}
	t.refreshScript()
	tr.tracked = append(tr.tracked, t)
	return t
}

func TestPromotionRequiresCorroboration(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))

	// Default Latin threshold is 3: a single frame never promotes.
	snaps, _ := tr.Update([]Observation{obs("Hello", 0.9, centerBox())})
	if len(snaps) != 0 {
		t.Fatalf("tracked after 1 frame = %d, want 0", len(snaps))
	}
	if tr.PendingLen() != 1 {
		t.Fatalf("pending = %d, want 1", tr.PendingLen())
	}

	c.tick()
	snaps, _ = tr.Update([]Observation{obs("Hello", 0.9, centerBox())})
	if len(snaps) != 0 {
		t.Fatalf("tracked after 2 frames = %d, want 0 under threshold 3", len(snaps))
	}

	c.tick()
	snaps, stats := tr.Update([]Observation{obs("Hello", 0.9, centerBox())})
	if len(snaps) != 1 || stats.Promoted != 1 {
		t.Fatalf("tracked after 3 frames = %d (promoted %d), want 1", len(snaps), stats.Promoted)
	}
	if snaps[0].State != "detected" {
		t.Errorf("state = %q, want detected", snaps[0].State)
	}
}

func TestScenarioAPromotionAtThresholdTwo(t *testing.T) {
	c := newTestClock()
	p := StandardPolicy()
	p.PromoteFramesLatin = 2
	tr := New(p, cache.New(10), WithClock(c.now))

	box := geom.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.05}
	snaps, _ := tr.Update([]Observation{obs("Hello", 0.9, box)})
	if len(snaps) != 0 {
		t.Fatal("promoted on first frame")
	}

	c.tick()
	snaps, _ = tr.Update([]Observation{obs("Hello", 0.9, box)})
	if len(snaps) != 1 {
		t.Fatalf("tracked = %d, want 1 on frame 2", len(snaps))
	}
	if snaps[0].Text != "Hello" || snaps[0].State != "detected" {
		t.Errorf("snapshot = %+v, want Hello/detected", snaps[0])
	}
}

func TestCJKPromotesFasterThanLatin(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))

	latinBox := geom.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.05}
	cjkBox := geom.Rect{X: 0.6, Y: 0.6, W: 0.2, H: 0.05}
	frame := []Observation{
		obs("Hello there", 0.9, latinBox),
		obs("こんにちは", 0.5, cjkBox),
	}

	tr.Update(frame)
	c.tick()
	snaps, _ := tr.Update(frame)

	// CJK threshold 2 promotes now; Latin threshold 3 still pending.
	if len(snaps) != 1 {
		t.Fatalf("tracked = %d, want only the CJK identity", len(snaps))
	}
	if snaps[0].Text != "こんにちは" {
		t.Errorf("promoted = %q, want こんにちは", snaps[0].Text)
	}
	if tr.PendingLen() != 1 {
		t.Errorf("pending = %d, want the Latin candidate", tr.PendingLen())
	}
}

func TestMatchScoreHardGate(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	tracked := seed(tr, "abcdef", centerBox(), StateDetected, c.now())

	// Unrelated text at an identical box: similarity 0 forces score 0.
	if got := tr.matchScore(tracked, obs("xyzxyz", 0.9, centerBox())); got != 0 {
		t.Errorf("score = %v, want 0 for dissimilar text despite IoU 1", got)
	}

	// Above the gate the spatial term contributes again.
	if got := tr.matchScore(tracked, obs("abcxyz", 0.9, centerBox())); got <= 0.5 {
		t.Errorf("score = %v, want > 0.5 for half-similar text at same box", got)
	}
}

func TestContentPivotClearsTranslation(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	tracked := seed(tr, "Hello World", centerBox(), StateTranslated, c.now())
	tracked.Translation = "Bonjour le monde"
	tracked.BestTranslation = tracked.Translation
	tracked.TranslationAttempts = 1

	c.tick()
	_, stats := tr.Update([]Observation{obs("Hello Mundo", 0.9, centerBox())})
	if stats.Matched != 1 {
		t.Fatalf("matched = %d, want 1", stats.Matched)
	}
	if stats.Pivots != 1 {
		t.Fatalf("pivots = %d, want 1", stats.Pivots)
	}
	if tracked.State != StateDetected {
		t.Errorf("state = %v, want Detected after pivot", tracked.State)
	}
	if tracked.Translation != "" || tracked.BestTranslation != "" {
		t.Error("pivot must clear translation state")
	}
	if tracked.TranslationAttempts != 0 || tracked.TranslationFailed {
		t.Error("pivot must reset translation attempts and failure flag")
	}
}

func TestMinorVariationDoesNotPivot(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	tracked := seed(tr, "Hello Worlds", centerBox(), StateTranslated, c.now())
	tracked.Translation = "Bonjour"

	c.tick()
	_, stats := tr.Update([]Observation{obs("Hello World", 0.9, centerBox())})
	if stats.Matched != 1 || stats.Pivots != 0 {
		t.Fatalf("matched=%d pivots=%d, want 1/0", stats.Matched, stats.Pivots)
	}
	if tracked.State != StateTranslated || tracked.Translation != "Bonjour" {
		t.Error("similar text must not discard translation state")
	}
}

func TestOffScreenRemovedQuickly(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	offBox := geom.Rect{X: 2, Y: 2, W: 0.2, H: 0.05}
	seed(tr, "Edge text", offBox, StateDetected, c.now())

	c.tick()
	snaps, _ := tr.Update(nil)
	if len(snaps) != 1 {
		t.Fatalf("removed after 1 unmatched frame, policy allows %d", StandardPolicy().OffScreenFrames)
	}

	c.tick()
	snaps, stats := tr.Update(nil)
	if len(snaps) != 0 || stats.Removed != 1 {
		t.Errorf("off-screen identity should be gone after 2 unmatched frames, have %d", len(snaps))
	}
}

func TestFailedTranslationForcesRemoval(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	tracked := seed(tr, "Broken text", centerBox(), StateFailed, c.now())
	tracked.TranslationFailed = true

	p := StandardPolicy()
	for i := 0; i < p.FailedRemovalFrames; i++ {
		c.tick()
		if snaps, _ := tr.Update(nil); len(snaps) == 0 {
			t.Fatalf("removed too early at unmatched frame %d", i+1)
		}
	}

	c.tick()
	if snaps, _ := tr.Update(nil); len(snaps) != 0 {
		t.Error("translation-failed identity must be removed once past the frame limit")
	}
}

func TestPersistenceMultiplierScalesRemoval(t *testing.T) {
	run := func(persistence float64, frames int) int {
		c := newTestClock()
		tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
		seed(tr, "Scene text", centerBox(), StateDetected, c.now())
		tr.SetPersistence(persistence)
		remaining := 1
		for i := 0; i < frames; i++ {
			c.tick()
			snaps, _ := tr.Update(nil)
			remaining = len(snaps)
		}
		return remaining
	}

	// Standard on-screen budget is 30 × 1.5 = 45 frames; a scene-change
	// multiplier of 0.2 shrinks it to 9.
	if got := run(1.0, 12); got != 1 {
		t.Error("identity should survive 12 unmatched frames at persistence 1.0")
	}
	if got := run(0.2, 12); got != 0 {
		t.Error("identity should be removed within 12 unmatched frames at persistence 0.2")
	}
}

func TestDuplicateSuppression(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	seed(tr, "Hello", centerBox(), StateDetected, c.now())

	overlap := geom.Rect{X: 0.41, Y: 0.4, W: 0.2, H: 0.05}
	far := geom.Rect{X: 0.05, Y: 0.85, W: 0.2, H: 0.05}

	c.tick()
	_, stats := tr.Update([]Observation{
		obs("Hello", 0.9, centerBox()), // claimed by the tracked identity
		obs("Hello", 0.8, overlap),     // duplicate: same text, overlapping box
		obs("Hello", 0.8, far),         // distinct: same text, non-overlapping box
	})

	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", stats.Duplicates)
	}
	if tr.PendingLen() != 1 {
		t.Errorf("pending = %d, want 1 (the far instance)", tr.PendingLen())
	}
}

func TestCacheHitOnPromotion(t *testing.T) {
	c := newTestClock()
	translations := cache.New(10)
	translations.Put("Hello", "Bonjour")

	p := StandardPolicy()
	p.PromoteFramesLatin = 2
	tr := New(p, translations, WithClock(c.now))

	tr.Update([]Observation{obs("Hello", 0.9, centerBox())})
	c.tick()
	snaps, stats := tr.Update([]Observation{obs("Hello", 0.9, centerBox())})

	if len(snaps) != 1 || stats.CacheHits != 1 {
		t.Fatalf("tracked=%d cacheHits=%d, want 1/1", len(snaps), stats.CacheHits)
	}
	if snaps[0].State != "translated" || snaps[0].Translation != "Bonjour" {
		t.Errorf("snapshot = %+v, want translated/Bonjour", snaps[0])
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := newTestClock()
	p := StandardPolicy()
	p.PromoteFramesLatin = 1
	tr := New(p, cache.New(10), WithClock(c.now))

	// 15 identities with staggered recency; index 0 is the stalest.
	for i := 0; i < p.MaxTracked; i++ {
		box := geom.Rect{X: 0.05 * float64(i), Y: 0.3, W: 0.04, H: 0.04}
		at := c.now().Add(-time.Duration(p.MaxTracked-i) * 10 * time.Millisecond)
		seed(tr, fmt.Sprintf("Seed text %02d", i), box, StateDetected, at)
	}
	oldest := tr.tracked[0].ID

	c.tick()
	snaps, stats := tr.Update([]Observation{
		obs("Completely new arrival", 0.9, geom.Rect{X: 0.4, Y: 0.8, W: 0.2, H: 0.05}),
	})

	if len(snaps) != p.MaxTracked {
		t.Fatalf("tracked = %d, want %d", len(snaps), p.MaxTracked)
	}
	if stats.Evicted != 1 {
		t.Fatalf("evicted = %d, want 1", stats.Evicted)
	}
	for _, s := range snaps {
		if s.ID == oldest {
			t.Error("oldest-by-LastSeen identity should have been evicted")
		}
	}
}

func TestRemovalThresholdProperty(t *testing.T) {
	c := newTestClock()
	p := StandardPolicy()
	tr := New(p, cache.New(10), WithClock(c.now))
	seed(tr, "Fading text", centerBox(), StateDetected, c.now())

	// On-screen budget: RemovalFrames × OnScreenScale unmatched frames.
	limit := int(float64(p.RemovalFrames) * p.OnScreenScale)
	for i := 0; i < limit-1; i++ {
		c.tick()
		if snaps, _ := tr.Update(nil); len(snaps) != 1 {
			t.Fatalf("removed early at unmatched frame %d of %d", i+1, limit)
		}
	}

	c.tick()
	if snaps, _ := tr.Update(nil); len(snaps) != 0 {
		t.Error("identity at the removal threshold must be absent next frame")
	}
}

func TestTakeTranslationBatch(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	ready := seed(tr, "Hello world", centerBox(), StateDetected, c.now())
	weak := seed(tr, "Faint text", geom.Rect{X: 0.1, Y: 0.7, W: 0.2, H: 0.05}, StateDetected, c.now())
	weak.Confidence = 0.2
	jp := seed(tr, "こんにちは", geom.Rect{X: 0.7, Y: 0.1, W: 0.2, H: 0.05}, StateDetected, c.now())
	jp.Language = "ja"

	batches := tr.TakeTranslationBatch()
	if len(batches["en"]) != 1 || batches["en"][0] != "Hello world" {
		t.Errorf("en batch = %v, want [Hello world]", batches["en"])
	}
	if len(batches["ja"]) != 1 {
		t.Errorf("ja batch = %v, want one entry", batches["ja"])
	}
	if ready.State != StateTranslating || jp.State != StateTranslating {
		t.Error("batched identities must transition to Translating")
	}
	if weak.State != StateDetected {
		t.Error("low-confidence identity must not be batched")
	}
	if ready.TranslationAttempts != 1 {
		t.Errorf("attempts = %d, want 1", ready.TranslationAttempts)
	}

	// Second call drains nothing: everything is already in flight.
	if again := tr.TakeTranslationBatch(); len(again) != 0 {
		t.Errorf("second batch = %v, want empty", again)
	}
}

func TestAttemptCapFailsIdentity(t *testing.T) {
	c := newTestClock()
	p := StandardPolicy()
	tr := New(p, cache.New(10), WithClock(c.now))
	spent := seed(tr, "Stubborn text", centerBox(), StateDetected, c.now())
	spent.TranslationAttempts = p.MaxTranslationAttempts

	if batches := tr.TakeTranslationBatch(); len(batches) != 0 {
		t.Errorf("batch = %v, want empty for exhausted identity", batches)
	}
	if spent.State != StateFailed || !spent.TranslationFailed {
		t.Error("exhausted identity must be marked Failed")
	}
}

func TestClear(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))
	seed(tr, "Some text", centerBox(), StateDetected, c.now())
	tr.Update([]Observation{obs("Other text", 0.9, geom.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.05})})

	tr.Clear()
	if tr.Len() != 0 || tr.PendingLen() != 0 {
		t.Error("Clear must empty tracked and pending state")
	}
}

func TestPendingExpiry(t *testing.T) {
	c := newTestClock()
	tr := New(StandardPolicy(), cache.New(10), WithClock(c.now))

	tr.Update([]Observation{obs("Hello", 0.9, centerBox())})
	if tr.PendingLen() != 1 {
		t.Fatal("expected one pending candidate")
	}

	// Nothing for longer than the Latin pending timeout.
	c.t = c.t.Add(2 * time.Second)
	_, stats := tr.Update(nil)
	if tr.PendingLen() != 0 || stats.ExpiredPending != 1 {
		t.Errorf("pending = %d expired = %d, want 0/1", tr.PendingLen(), stats.ExpiredPending)
	}
}
