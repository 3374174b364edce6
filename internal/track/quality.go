package track

import (
	"github.com/puritysb/yomilingo/internal/fusion"
	"github.com/puritysb/yomilingo/internal/textutil"
)

// updateQuality recomputes the quality score and displayability. The raw
// score is additive from confidence, length appropriateness, noise
// penalties and script bonuses, then smoothed against history so a single
// bad frame does not flicker the display decision.
func (t *Tracked) updateQuality(p Policy) {
	score := QualityConfidenceWeight * t.Confidence

	runes := len([]rune(t.Text))
	if t.CJK {
		if runes >= 1 {
			score += QualityLengthBonus
		}
	} else {
		switch {
		case runes >= 3:
			score += QualityLengthBonus
		case runes == 2:
			score += QualityShortLatinBonus
		}
	}

	if textutil.SymbolRatio(t.Text) > QualitySymbolRatioLimit {
		score -= QualitySymbolPenalty
	}
	if fusion.LooksNoisy(t.Text) {
		score -= QualityNoisePenalty
	}
	if t.Translation != "" {
		score += QualityTranslationBonus
	}
	switch t.Script {
	case textutil.ScriptJapanese, textutil.ScriptKorean:
		score += QualityScriptBonus
	case textutil.ScriptHan:
		score += QualityHanBonus
	}

	score = clamp01(score)

	prev := t.Quality
	if !t.scored {
		t.Quality = score
		t.scored = true
	} else {
		t.Quality = clamp01(p.QualityNewWeight*score + (1-p.QualityNewWeight)*prev)
	}

	delta := t.Quality - prev
	if delta < 0 {
		delta = -delta
	}
	if delta < p.StableDelta {
		t.StableFrames++
	} else {
		t.StableFrames = 0
	}

	t.updateDisplayable(p)
}

// updateDisplayable decides whether the identity should be offered to the
// renderer. Accumulated noise overrides everything else.
func (t *Tracked) updateDisplayable(p Policy) {
	if t.NoiseCount >= p.MaxNoiseCount {
		t.Displayable = false
		return
	}

	runes := len([]rune(t.Text))
	switch {
	case t.Translation != "":
		t.Displayable = true
	case t.Quality > DisplayQualityFloor && t.StableFrames >= DisplayStableFrames:
		t.Displayable = true
	case t.Confidence > DisplayConfidenceFloor && runes >= 2:
		t.Displayable = true
	case t.Script == textutil.ScriptKorean && t.Confidence > DisplayKoreanFloor:
		t.Displayable = true
	case t.CJK && t.Confidence > DisplayCJKFloor:
		t.Displayable = true
	default:
		t.Displayable = false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
