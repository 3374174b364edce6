// Package textutil provides Unicode script detection for OCR text.
// OCR confidence behaves very differently across scripts, so most tracking
// thresholds branch on the predicates defined here.
package textutil

import "unicode"

// Script classifies the dominant writing system of a string.
type Script int

const (
	ScriptUnknown Script = iota
	ScriptLatin
	ScriptJapanese
	ScriptKorean
	ScriptHan // Han characters with no kana/hangul context
)

func (s Script) String() string {
	switch s {
	case ScriptLatin:
		return "latin"
	case ScriptJapanese:
		return "japanese"
	case ScriptKorean:
		return "korean"
	case ScriptHan:
		return "han"
	default:
		return "unknown"
	}
}

// IsKana reports whether r is hiragana or katakana, including the
// prolonged sound mark.
func IsKana(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana) || r == 'ー'
}

// IsHangul reports whether r is a hangul syllable or jamo.
func IsHangul(r rune) bool {
	return unicode.In(r, unicode.Hangul)
}

// IsHan reports whether r is a CJK ideograph.
func IsHan(r rune) bool {
	return unicode.In(r, unicode.Han)
}

// IsCJKRune reports whether r belongs to any CJK script.
func IsCJKRune(r rune) bool {
	return IsKana(r) || IsHangul(r) || IsHan(r)
}

// ContainsCJK reports whether s has at least one CJK rune.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if IsCJKRune(r) {
			return true
		}
	}
	return false
}

// ContainsKana reports whether s has at least one kana rune.
func ContainsKana(s string) bool {
	for _, r := range s {
		if IsKana(r) {
			return true
		}
	}
	return false
}

// ContainsHangul reports whether s has at least one hangul rune.
func ContainsHangul(s string) bool {
	for _, r := range s {
		if IsHangul(r) {
			return true
		}
	}
	return false
}

// ContainsLetter reports whether s has at least one letter in any script.
func ContainsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Counts holds per-script rune tallies for one string.
type Counts struct {
	Kana   int
	Hangul int
	Han    int
	Latin  int
	Other  int
	Total  int
}

// Count tallies the script membership of every rune in s. Whitespace is
// ignored entirely.
func Count(s string) Counts {
	var c Counts
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		c.Total++
		switch {
		case IsKana(r):
			c.Kana++
		case IsHangul(r):
			c.Hangul++
		case IsHan(r):
			c.Han++
		case unicode.In(r, unicode.Latin):
			c.Latin++
		default:
			c.Other++
		}
	}
	return c
}

// Detect returns the dominant script of s. Kana anywhere marks the text
// Japanese (Han characters in running Japanese are the norm); hangul
// dominance marks it Korean; bare Han with no phonetic context is reported
// separately because it cannot be attributed to one language.
func Detect(s string) Script {
	c := Count(s)
	if c.Total == 0 {
		return ScriptUnknown
	}
	switch {
	case c.Kana > 0 && c.Kana >= c.Hangul:
		return ScriptJapanese
	case c.Hangul > 0:
		return ScriptKorean
	case c.Han > 0:
		return ScriptHan
	case c.Latin > 0:
		return ScriptLatin
	default:
		return ScriptUnknown
	}
}

// LetterRatio returns the fraction of non-space runes that are letters.
func LetterRatio(s string) float64 {
	total, letters := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// SymbolRatio returns the fraction of non-space runes that are neither
// letters nor digits.
func SymbolRatio(s string) float64 {
	total, symbols := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}

// LanguageHint maps a detected script to an ISO 639-1 code usable for
// grouping translation requests. Ambiguous Han text defaults to Japanese,
// which matches the primary deployment.
func LanguageHint(s string) string {
	switch Detect(s) {
	case ScriptJapanese, ScriptHan:
		return "ja"
	case ScriptKorean:
		return "ko"
	case ScriptLatin:
		return "en"
	default:
		return "und"
	}
}
