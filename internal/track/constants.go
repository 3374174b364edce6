// Package track maintains stable, de-duplicated tracked-text identities
// over a stream of noisy per-frame OCR observations.
package track

import "time"

// Quality scoring weights. These are additive contributions to the raw
// score before clamping and smoothing.
const (
	QualityConfidenceWeight = 0.35
	QualityLengthBonus      = 0.2
	QualityShortLatinBonus  = 0.1
	QualitySymbolPenalty    = 0.2
	QualityNoisePenalty     = 0.25
	QualityTranslationBonus = 0.15
	QualityScriptBonus      = 0.15 // Korean/Japanese script
	QualityHanBonus         = 0.08 // ambiguous Han-only text
	QualitySymbolRatioLimit = 0.3
	QualityHighBar          = 0.7 // quality above this earns slower removal
)

// Displayability thresholds.
const (
	DisplayQualityFloor    = 0.5
	DisplayStableFrames    = 2
	DisplayConfidenceFloor = 0.7
	DisplayKoreanFloor     = 0.3
	DisplayCJKFloor        = 0.4
)

// Policy bundles every tunable threshold of the tracker. The values are
// empirically tuned; their relative ordering matters more than the exact
// numbers, so they are grouped here and selected per mode rather than
// scattered through the matching code.
type Policy struct {
	// Matching
	TextWeight      float64 // text-similarity share of the match score
	BoxWeight       float64 // IoU share of the match score
	TextGate        float64 // below this similarity the score is forced to 0
	MatchThreshold  float64 // minimum score to accept a match
	PivotSimilarity float64 // below this the matched text counts as new content

	// Pending queue / promotion
	PromoteFramesLatin int
	PromoteFramesCJK   int
	PendingTimeout     time.Duration
	PendingTimeoutCJK  time.Duration

	// Duplicate suppression. CJK OCR is less consistent, so its thresholds
	// are more permissive.
	DedupSimilarity    float64
	DedupSimilarityCJK float64
	DedupMinIoU        float64
	DedupMinIoUCJK     float64

	// Box smoothing
	SmoothFast        float64 // blend factor under large displacement
	SmoothSticky      float64 // blend factor near rest
	SmoothStickyCJK   float64 // stickier baseline for CJK text
	SmoothMotionScale float64 // displacement at which blending reaches SmoothFast

	// Removal
	RemovalFrames       int
	RemovalAge          time.Duration
	OnScreenScale       float64 // removal thresholds stretched while visible
	HighQualityBonus    float64 // extra stretch for high-quality text
	OffScreenFrames     int     // unmatched frames before an off-screen identity goes
	FailedRemovalFrames int     // unmatched frames before a translation-failed identity goes
	MaxTracked          int

	// Visibility hysteresis
	ScreenMargin         float64
	VisibleAreaFraction  float64
	OffFlipFrames        int
	OnFlipFrames         int
	SuspicionPerFrame    float64
	SuspicionRamp        time.Duration
	UnseenSuspicionAfter int
	UnseenSuspicionRate  float64

	// Quality smoothing
	QualityNewWeight float64 // share of the fresh computation in the smoothed score
	StableDelta      float64
	MaxNoiseCount    int

	// Translation
	MaxTranslationAttempts int
	MinTranslateConfidence float64
	FuzzyResultSimilarity  float64
}

// StandardPolicy returns the thresholds for normal on-screen overlay use.
func StandardPolicy() Policy {
	return Policy{
		TextWeight:      0.7,
		BoxWeight:       0.3,
		TextGate:        0.3,
		MatchThreshold:  0.5,
		PivotSimilarity: 0.7,

		PromoteFramesLatin: 3,
		PromoteFramesCJK:   2,
		PendingTimeout:     1500 * time.Millisecond,
		PendingTimeoutCJK:  3 * time.Second,

		DedupSimilarity:    0.8,
		DedupSimilarityCJK: 0.65,
		DedupMinIoU:        0.2,
		DedupMinIoUCJK:     0.1,

		SmoothFast:        0.95,
		SmoothSticky:      0.3,
		SmoothStickyCJK:   0.22,
		SmoothMotionScale: 0.08,

		RemovalFrames:       30,
		RemovalAge:          3 * time.Second,
		OnScreenScale:       1.5,
		HighQualityBonus:    0.25,
		OffScreenFrames:     2,
		FailedRemovalFrames: 5,
		MaxTracked:          15,

		ScreenMargin:         0.05,
		VisibleAreaFraction:  0.10,
		OffFlipFrames:        1,
		OnFlipFrames:         1,
		SuspicionPerFrame:    0.1,
		SuspicionRamp:        2 * time.Second,
		UnseenSuspicionAfter: 30,
		UnseenSuspicionRate:  0.05,

		QualityNewWeight: 0.3,
		StableDelta:      0.05,
		MaxNoiseCount:    5,

		MaxTranslationAttempts: 3,
		MinTranslateConfidence: 0.3,
		FuzzyResultSimilarity:  0.8,
	}
}

// ImmersivePolicy returns the thresholds for immersive/AR mode: stickier
// smoothing, a wider off-screen margin, and slower removal, because anchored
// overlays tolerate staleness better than jitter.
func ImmersivePolicy() Policy {
	p := StandardPolicy()
	p.SmoothFast = 0.9
	p.SmoothSticky = 0.25
	p.SmoothStickyCJK = 0.18
	p.RemovalFrames = 45
	p.RemovalAge = 5 * time.Second
	p.ScreenMargin = 0.12
	return p
}

// Mode selects a policy preset.
type Mode int

const (
	ModeStandard Mode = iota
	ModeImmersive
)

func (m Mode) String() string {
	if m == ModeImmersive {
		return "immersive"
	}
	return "standard"
}

// ParseMode maps a configuration string to a Mode, defaulting to standard.
func ParseMode(s string) Mode {
	if s == "immersive" || s == "ar" {
		return ModeImmersive
	}
	return ModeStandard
}

// PolicyForMode returns the preset for m.
func PolicyForMode(m Mode) Policy {
	if m == ModeImmersive {
		return ImmersivePolicy()
	}
	return StandardPolicy()
}
