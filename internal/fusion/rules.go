package fusion

import (
	"regexp"
	"strings"
)

// rule is one ordered pattern -> replacement correction. Rules are applied
// in table order; earlier rules may feed later ones.
type rule struct {
	pattern *regexp.Regexp
	replace string
}

// noisePatterns match OCR artifacts that carry no text content. Matches are
// replaced with a space before any other processing.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile("�+"),           // broken-character markers
	regexp.MustCompile(`[•●○◦·・]{2,}`),      // bullet runs
	regexp.MustCompile(`\.{4,}`),            // leader dots
	regexp.MustCompile(`[■□▪▫◆◇▲△▼▽]+`),     // geometric fill glyphs
	regexp.MustCompile(`[|｜]{2,}`),          // table-edge bar runs
	regexp.MustCompile(`[~˜]{3,}`),          // underline bleed
}

// latinRules fix common Latin OCR confusions. Digit/letter swaps are only
// corrected inside alphabetic context so real numbers survive.
var latinRules = []rule{
	{regexp.MustCompile(`([a-z])0([a-z])`), `${1}o${2}`},
	{regexp.MustCompile(`([A-Z])0([A-Z])`), `${1}O${2}`},
	{regexp.MustCompile(`([a-z])1([a-z])`), `${1}l${2}`},
	{regexp.MustCompile(`([a-z])I([a-z])`), `${1}l${2}`},
	{regexp.MustCompile(`([A-Z])l([A-Z])`), `${1}I${2}`},
}

// latinWordFixer corrects whole tokens the per-rune rules cannot reach.
var latinWordFixer = strings.NewReplacer(
	"0K", "OK",
	"N0", "NO",
	"0N", "ON",
	"0FF", "OFF",
	"ST0P", "STOP",
	"EXlT", "EXIT",
)

// kanaRules fix kana-context confusions. The CJK ideograph 一 (one) next to
// katakana is nearly always a misread prolonged sound mark.
var kanaRules = []rule{
	{regexp.MustCompile(`([ァ-ヶ])一`), `${1}ー`},
	{regexp.MustCompile(`一([ァ-ヶ])`), `ー${1}`},
	{regexp.MustCompile(`ヵ`), `カ`},
	{regexp.MustCompile(`ヶ`), `ケ`},
}

// japaneseWordFixer repairs known multi-character misreads, chiefly the
// 曰/日 confusion in date words.
var japaneseWordFixer = strings.NewReplacer(
	"今曰", "今日",
	"明曰", "明日",
	"昨曰", "昨日",
	"曜曰", "曜日",
	"毎曰", "毎日",
)

// hangulRules drop stray compatibility jamo that OCR scatters between
// complete syllables.
var hangulRules = []rule{
	{regexp.MustCompile(`([가-힣])[ㄱ-ㅎㅏ-ㅣ]([가-힣])`), `${1}${2}`},
	{regexp.MustCompile(`([가-힣])[ㄱ-ㅎㅏ-ㅣ]$`), `${1}`},
}

// hangulPairFixer recomposes jamo pairs that OCR split out of a syllable.
var hangulPairFixer = strings.NewReplacer(
	"ㅇㅏ", "아",
	"ㅇㅣ", "이",
	"ㅇㅓ", "어",
	"ㄱㅏ", "가",
	"ㄴㅏ", "나",
	"ㅅㅓ", "서",
	"ㅎㅏ", "하",
)

// dakutenCompose maps a base kana followed by a detached (han)dakuten mark
// to its composed form.
var dakutenCompose = map[rune]map[rune]rune{
	'゛': {
		'か': 'が', 'き': 'ぎ', 'く': 'ぐ', 'け': 'げ', 'こ': 'ご',
		'さ': 'ざ', 'し': 'じ', 'す': 'ず', 'せ': 'ぜ', 'そ': 'ぞ',
		'た': 'だ', 'ち': 'ぢ', 'つ': 'づ', 'て': 'で', 'と': 'ど',
		'は': 'ば', 'ひ': 'び', 'ふ': 'ぶ', 'へ': 'べ', 'ほ': 'ぼ',
		'カ': 'ガ', 'キ': 'ギ', 'ク': 'グ', 'ケ': 'ゲ', 'コ': 'ゴ',
		'サ': 'ザ', 'シ': 'ジ', 'ス': 'ズ', 'セ': 'ゼ', 'ソ': 'ゾ',
		'タ': 'ダ', 'チ': 'ヂ', 'ツ': 'ヅ', 'テ': 'デ', 'ト': 'ド',
		'ハ': 'バ', 'ヒ': 'ビ', 'フ': 'ブ', 'ヘ': 'ベ', 'ホ': 'ボ',
		'ウ': 'ヴ',
	},
	'゜': {
		'は': 'ぱ', 'ひ': 'ぴ', 'ふ': 'ぷ', 'へ': 'ぺ', 'ほ': 'ぽ',
		'ハ': 'パ', 'ヒ': 'ピ', 'フ': 'プ', 'ヘ': 'ペ', 'ホ': 'ポ',
	},
}

// rejoinDakuten merges detached voicing marks back into the preceding kana.
// Halfwidth marks are normalized to their fullwidth equivalents first.
func rejoinDakuten(s string) string {
	s = strings.NewReplacer("ﾞ", "゛", "ﾟ", "゜", "゙", "゛", "゚", "゜").Replace(s)
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if i+1 < len(runes) {
			if table, ok := dakutenCompose[runes[i+1]]; ok {
				if composed, ok := table[r]; ok {
					out = append(out, composed)
					i++
					continue
				}
			}
		}
		// A mark with no composable base is dropped outright.
		if r == '゛' || r == '゜' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
