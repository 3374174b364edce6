package fusion

import "strings"

// Candidate is one OCR reading of a piece of text.
type Candidate struct {
	Text       string
	Confidence float64
}

// TextSimilarity returns 1 − levenshtein(a,b)/max(len(a),len(b)) in [0,1].
// It is symmetric and returns 1 for equal strings, including two empties.
func TextSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes edit distance with a two-row DP table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// FuseCandidates merges multiple OCR readings of one observation into a
// single best string. A lone candidate goes through RecoverText. When all
// cleaned candidates are mutually similar the highest-confidence one wins;
// otherwise the result is built by confidence-weighted per-position
// character voting.
func FuseCandidates(candidates []Candidate) (string, bool) {
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return RecoverText(candidates[0].Text)
	}

	cleaned := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if text, ok := CleanText(c.Text); ok {
			cleaned = append(cleaned, Candidate{Text: text, Confidence: c.Confidence})
		}
	}
	switch len(cleaned) {
	case 0:
		return "", false
	case 1:
		return RecoverText(cleaned[0].Text)
	}

	if mutuallySimilar(cleaned) {
		best := cleaned[0]
		for _, c := range cleaned[1:] {
			if c.Confidence > best.Confidence {
				best = c
			}
		}
		return best.Text, true
	}

	voted := strings.TrimSpace(voteCharacters(cleaned))
	if voted == "" {
		return "", false
	}
	return voted, true
}

// mutuallySimilar reports whether every pair of candidates clears the
// similarity threshold.
func mutuallySimilar(cands []Candidate) bool {
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			if TextSimilarity(cands[i].Text, cands[j].Text) < SimilarCandidateThreshold {
				return false
			}
		}
	}
	return true
}

// voteCharacters picks the highest-weighted rune at each position up to the
// longest candidate, weighting votes by candidate confidence.
func voteCharacters(cands []Candidate) string {
	runeSets := make([][]rune, len(cands))
	longest := 0
	for i, c := range cands {
		runeSets[i] = []rune(c.Text)
		if len(runeSets[i]) > longest {
			longest = len(runeSets[i])
		}
	}

	var b strings.Builder
	for pos := 0; pos < longest; pos++ {
		weights := make(map[rune]float64)
		for i, runes := range runeSets {
			if pos < len(runes) {
				weights[runes[pos]] += cands[i].Confidence
			}
		}
		var bestRune rune
		bestWeight := -1.0
		for r, w := range weights {
			if w > bestWeight {
				bestRune, bestWeight = r, w
			}
		}
		if bestWeight > 0 {
			b.WriteRune(bestRune)
		}
	}
	return b.String()
}
