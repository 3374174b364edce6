package fusion

import "time"

type sample struct {
	text       string
	confidence float64
	seenAt     time.Time
}

// Accumulator keeps a small rolling window of recent readings for one
// tracked identity and fuses them on demand. It is not safe for concurrent
// use; the tracker is the single writer.
type Accumulator struct {
	samples  []sample
	capacity int
	window   time.Duration
}

// NewAccumulator creates an accumulator with the default bounds.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		samples:  make([]sample, 0, AccumulatorCapacity),
		capacity: AccumulatorCapacity,
		window:   AccumulatorWindow,
	}
}

// Add appends a reading and evicts entries that fall outside the window or
// exceed capacity, oldest first.
func (a *Accumulator) Add(text string, confidence float64, at time.Time) {
	a.samples = append(a.samples, sample{text: text, confidence: confidence, seenAt: at})
	a.evict(at)
}

// BestText fuses the in-window readings into one string.
func (a *Accumulator) BestText(now time.Time) (string, bool) {
	a.evict(now)
	if len(a.samples) == 0 {
		return "", false
	}
	cands := make([]Candidate, len(a.samples))
	for i, s := range a.samples {
		cands[i] = Candidate{Text: s.text, Confidence: s.confidence}
	}
	return FuseCandidates(cands)
}

// Len returns the number of retained readings.
func (a *Accumulator) Len() int {
	return len(a.samples)
}

func (a *Accumulator) evict(now time.Time) {
	cutoff := now.Add(-a.window)
	kept := a.samples[:0]
	for _, s := range a.samples {
		if !s.seenAt.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	a.samples = kept
	if excess := len(a.samples) - a.capacity; excess > 0 {
		a.samples = a.samples[excess:]
	}
}
