// Package fusion cleans noisy OCR strings and fuses multiple candidate
// readings of the same text into one best string.
package fusion

import "time"

// Fusion thresholds
const (
	// Minimum cleaned length to keep a candidate
	MinTextRunes    = 2
	MinTextRunesCJK = 1

	// Pairwise similarity above which candidates are considered readings
	// of the same string
	SimilarCandidateThreshold = 0.8

	// Fraction of a string allowed to be one repeated rune before it is
	// rejected as noise
	RepeatRatioLimit = 0.7

	// Temporal accumulator bounds
	AccumulatorCapacity = 5
	AccumulatorWindow   = time.Second
)
