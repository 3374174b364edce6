package track

import (
	"time"

	"github.com/puritysb/yomilingo/internal/geom"
)

// updateVisibility recomputes the on/off-screen flag and the suspicion
// fade signal. The hysteresis is deliberately asymmetric and fast: a stale
// overlay is worse than a briefly hidden one, so a single off-screen
// reading flips the flag.
func (t *Tracked) updateVisibility(p Policy, now time.Time) {
	region := geom.Unit.Expand(p.ScreenMargin)
	boxArea := t.SmoothedBox.Area()
	visible := boxArea > 0 &&
		t.SmoothedBox.Intersect(region).Area() >= p.VisibleAreaFraction*boxArea

	if visible {
		t.onStreak++
		t.offStreak = 0
		if !t.OnScreen && t.onStreak >= p.OnFlipFrames {
			t.OnScreen = true
		}
		t.Suspicion = 0
		t.offSince = time.Time{}
	} else {
		t.offStreak++
		t.onStreak = 0
		if t.OnScreen && t.offStreak >= p.OffFlipFrames {
			t.OnScreen = false
		}
		if t.offSince.IsZero() {
			t.offSince = now
		}

		// Suspicion combines per-frame accrual with a wall-clock ramp so
		// the fade looks the same at any frame rate.
		frameSusp := float64(t.offStreak) * p.SuspicionPerFrame
		timeSusp := float64(now.Sub(t.offSince)) / float64(p.SuspicionRamp)
		t.Suspicion = clamp01(maxFloat(frameSusp, timeSusp))
	}

	// Text that stays in-bounds but silently stops being detected also
	// grows suspect, independent of the visibility flag.
	if t.FramesSinceLastSeen > p.UnseenSuspicionAfter {
		unseen := float64(t.FramesSinceLastSeen-p.UnseenSuspicionAfter) * p.UnseenSuspicionRate
		if s := clamp01(unseen); s > t.Suspicion {
			t.Suspicion = s
		}
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
