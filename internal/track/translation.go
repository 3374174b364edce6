package track

import (
	"strings"

	yerrors "github.com/puritysb/yomilingo/internal/errors"
	"github.com/puritysb/yomilingo/internal/fusion"
	"github.com/puritysb/yomilingo/internal/textutil"
)

// Translation result validation bounds.
const (
	minResultLetterRatio = 1.0 / 3.0
	relativeLengthLimit  = 3  // result may be at most 3x the source length...
	relativeLengthFloor  = 32 // ...once it exceeds this absolute size
	absoluteLengthLimit  = 200
)

// UpdateTranslations applies an async batch of source→translated results to
// the tracked set. Results are matched first by exact text key (current or
// best text), then by fuzzy similarity to tolerate drift between request
// and response. The same text can be tracked at several screen positions,
// so an exact-key result is applied to every identity carrying that text.
// Invalid results fail the identity instead of erroring. Returns the number
// of successfully applied translations.
func (tr *Tracker) UpdateTranslations(results map[string]string) int {
	applied := 0
	for source, translated := range results {
		exact := false
		for _, t := range tr.tracked {
			if t.Text == source || t.BestText == source {
				exact = true
				if tr.applyTranslation(t, source, translated) {
					applied++
				}
			}
		}
		if exact {
			continue
		}
		if t := tr.findFuzzy(source); t != nil && tr.applyTranslation(t, source, translated) {
			applied++
		}
	}
	return applied
}

// findFuzzy locates the closest identity above the drift-tolerance bar, for
// results whose source text no longer matches any tracked text exactly.
func (tr *Tracker) findFuzzy(source string) *Tracked {
	var best *Tracked
	bestSim := tr.policy.FuzzyResultSimilarity
	for _, t := range tr.tracked {
		if sim := fusion.TextSimilarity(t.Text, source); sim >= bestSim {
			best, bestSim = t, sim
		}
	}
	return best
}

// applyTranslation validates and installs one result.
func (tr *Tracker) applyTranslation(t *Tracked, source, translated string) bool {
	if err := ValidateTranslation(source, translated); err != nil {
		if t.transition(eventResultInvalid) {
			t.TranslationFailed = true
		}
		t.NoiseCount++
		t.updateDisplayable(tr.policy)
		return false
	}

	if !t.transition(eventResultValid) {
		// Already failed or otherwise not accepting results; drop it.
		return false
	}
	t.Translation = translated
	t.BestTranslation = translated
	t.TranslationFailed = false
	if tr.cache != nil {
		tr.cache.Put(source, translated)
	}
	t.updateDisplayable(tr.policy)
	return true
}

// ValidateTranslation rejects translation results that cannot plausibly be
// a rendering of the source: empty, an echo of the input, mostly
// non-letters, or wildly over-long.
func ValidateTranslation(source, result string) error {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return yerrors.New(yerrors.CodeTranslateResultEmpty, "empty translation result")
	}
	if trimmed == source {
		return yerrors.New(yerrors.CodeTranslateResultEcho, "translation identical to source")
	}
	if textutil.LetterRatio(trimmed) < minResultLetterRatio {
		return yerrors.Newf(yerrors.CodeTranslateResultGarbage,
			"translation is mostly non-letters: %q", trimmed)
	}

	resultRunes := len([]rune(trimmed))
	sourceRunes := len([]rune(source))
	if resultRunes > absoluteLengthLimit {
		return yerrors.Newf(yerrors.CodeTranslateResultTooLong,
			"translation length %d exceeds absolute limit", resultRunes)
	}
	if resultRunes > relativeLengthFloor && resultRunes > relativeLengthLimit*sourceRunes {
		return yerrors.Newf(yerrors.CodeTranslateResultTooLong,
			"translation length %d unreasonable for source length %d", resultRunes, sourceRunes)
	}
	return nil
}
