package track

import (
	"time"

	"github.com/puritysb/yomilingo/internal/fusion"
	"github.com/puritysb/yomilingo/internal/geom"
	"github.com/puritysb/yomilingo/internal/textutil"
)

// Observation is one OCR detection for one frame. It is consumed during
// matching and never retained.
type Observation struct {
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
	Box         geom.Rect `json:"box"`
	Language    string    `json:"language,omitempty"`
	Vertical    bool      `json:"vertical,omitempty"`
	Orientation float64   `json:"orientation,omitempty"`
}

// DetectionState is the translation lifecycle of a tracked identity.
type DetectionState int

const (
	StateDetected DetectionState = iota
	StateTranslating
	StateTranslated
	StateFailed
)

func (s DetectionState) String() string {
	switch s {
	case StateDetected:
		return "detected"
	case StateTranslating:
		return "translating"
	case StateTranslated:
		return "translated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is a candidate text awaiting corroboration before it becomes a
// tracked identity.
type Pending struct {
	Text       string
	Box        geom.Rect
	Confidence float64
	FramesSeen int
	FirstSeen  time.Time
	LastSeen   time.Time
	Language   string
	CJK        bool
}

// Tracked is one durable text identity. All mutation happens inside the
// tracker under its single-writer discipline.
type Tracked struct {
	ID          string
	Text        string
	Box         geom.Rect
	SmoothedBox geom.Rect
	Confidence  float64

	Translation         string
	TranslationFailed   bool
	TranslationAttempts int
	State               DetectionState

	Quality         float64
	BestText        string
	BestConfidence  float64
	BestTranslation string
	NoiseCount      int
	StableFrames    int

	Displayable bool
	OnScreen    bool
	Suspicion   float64

	FirstSeen           time.Time
	LastSeen            time.Time
	FramesSinceLastSeen int

	Vertical    bool
	Orientation float64
	Language    string
	CJK         bool
	Script      textutil.Script

	history   *fusion.Accumulator
	onStreak  int
	offStreak int
	offSince  time.Time
	scored    bool
}

// refreshScript recomputes the script classification after the text changes.
func (t *Tracked) refreshScript() {
	t.Script = textutil.Detect(t.Text)
	t.CJK = textutil.ContainsCJK(t.Text)
}

// Snapshot is the exported read-only view of a tracked identity, consumed
// by the renderer feed.
type Snapshot struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Box         geom.Rect `json:"box"`
	SmoothedBox geom.Rect `json:"smoothedBox"`
	Confidence  float64   `json:"confidence"`
	Translation string    `json:"translation,omitempty"`
	State       string    `json:"state"`
	Quality     float64   `json:"quality"`
	Displayable bool      `json:"displayable"`
	OnScreen    bool      `json:"onScreen"`
	Suspicion   float64   `json:"suspicion"`
	Language    string    `json:"language,omitempty"`
	Vertical    bool      `json:"vertical,omitempty"`
}

func (t *Tracked) snapshot() Snapshot {
	return Snapshot{
		ID:          t.ID,
		Text:        t.Text,
		Box:         t.Box,
		SmoothedBox: t.SmoothedBox,
		Confidence:  t.Confidence,
		Translation: t.Translation,
		State:       t.State.String(),
		Quality:     t.Quality,
		Displayable: t.Displayable,
		OnScreen:    t.OnScreen,
		Suspicion:   t.Suspicion,
		Language:    t.Language,
		Vertical:    t.Vertical,
	}
}

// FrameStats summarizes what one Update pass did, for logging and metrics.
type FrameStats struct {
	Observations   int
	Matched        int
	Pivots         int
	Removed        int
	Promoted       int
	Evicted        int
	Duplicates     int
	Dropped        int
	ExpiredPending int
	CacheHits      int
}
