package fusion

import (
	"strings"

	"github.com/puritysb/yomilingo/internal/textutil"
)

// RecoverText cleans s and applies language-aware correction: script-specific
// substitution tables, detached-diacritic rejoining, and cross-script
// resolution when Korean and Japanese runes appear together. The second
// return value is false when the text cannot be recovered into something
// plausibly readable.
func RecoverText(s string) (string, bool) {
	out, ok := CleanText(s)
	if !ok {
		return "", false
	}

	c := textutil.Count(out)

	if c.Kana > 0 || (c.Han > 0 && c.Hangul == 0) {
		out = rejoinDakuten(out)
		for _, r := range kanaRules {
			out = r.pattern.ReplaceAllString(out, r.replace)
		}
		out = japaneseWordFixer.Replace(out)
	}

	if c.Hangul > 0 {
		out = hangulPairFixer.Replace(out)
		for _, r := range hangulRules {
			out = r.pattern.ReplaceAllString(out, r.replace)
		}
	}

	if c.Hangul > 0 && c.Kana > 0 {
		out = resolveScriptConflict(out)
	}

	if c.Latin > 0 && c.Kana == 0 && c.Hangul == 0 && c.Han == 0 {
		for _, r := range latinRules {
			out = r.pattern.ReplaceAllString(out, r.replace)
		}
		out = latinWordFixer.Replace(out)
	}

	out = strings.Join(strings.Fields(out), " ")
	if !validRecovered(out) {
		return "", false
	}
	return out, true
}

// resolveScriptConflict handles text where Korean and Japanese runes are
// simultaneously present, which a single detection can never legitimately
// contain. The numerically dominant script wins: scattered minority runes
// are treated as misreads and dropped. Near-even mixes are left alone and
// fail validation downstream if genuinely broken.
func resolveScriptConflict(s string) string {
	c := textutil.Count(s)
	var drop func(rune) bool
	switch {
	case c.Hangul >= 2*c.Kana:
		drop = textutil.IsKana
	case c.Kana >= 2*c.Hangul:
		drop = textutil.IsHangul
	default:
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if drop(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validRecovered accepts text containing at least one letter (or any CJK
// rune) that is not dominated by a single repeated character.
func validRecovered(s string) bool {
	if s == "" {
		return false
	}
	if !textutil.ContainsLetter(s) && !textutil.ContainsCJK(s) {
		return false
	}
	if repeatedSingleRune(s) {
		return false
	}
	minRunes := MinTextRunes
	if textutil.ContainsCJK(s) {
		minRunes = MinTextRunesCJK
	}
	return len([]rune(s)) >= minRunes
}
