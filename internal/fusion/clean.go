package fusion

import (
	"strings"

	"github.com/puritysb/yomilingo/internal/textutil"
)

// CleanText strips known noise tokens and collapses whitespace. The second
// return value is false when nothing usable remains: fewer than 2 runes, or
// 1 for CJK text where single-character words are legitimate.
func CleanText(s string) (string, bool) {
	out := s
	for _, p := range noisePatterns {
		out = p.ReplaceAllString(out, " ")
	}
	out = strings.Join(strings.Fields(out), " ")
	if out == "" {
		return "", false
	}

	minRunes := MinTextRunes
	if textutil.ContainsCJK(out) {
		minRunes = MinTextRunesCJK
	}
	if len([]rune(out)) < minRunes {
		return "", false
	}
	return out, true
}

// LooksNoisy reports whether s still matches a known noise pattern or is
// mostly one repeated rune. Used both for candidate rejection and for
// quality-score penalties.
func LooksNoisy(s string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return repeatedSingleRune(s)
}

// repeatedSingleRune reports whether one rune makes up more than
// RepeatRatioLimit of the string. Short strings are exempt.
func repeatedSingleRune(s string) bool {
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		if r == ' ' {
			continue
		}
		counts[r]++
		total++
	}
	if total < 4 {
		return false
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	return float64(max)/float64(total) > RepeatRatioLimit
}
