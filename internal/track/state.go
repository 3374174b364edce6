package track

// stateEvent is a trigger for the detection-state machine.
type stateEvent int

const (
	// eventRequestSent fires when the identity is selected for a
	// translation request batch.
	eventRequestSent stateEvent = iota
	// eventResultValid fires when an applied translation passes validation.
	eventResultValid
	// eventResultInvalid fires when an applied translation fails
	// validation or the attempt cap is reached.
	eventResultInvalid
	// eventPivot fires when matched text changes enough to count as new
	// content; prior translation state is discarded.
	eventPivot
)

// transitions is the full guarded transition table. A missing entry means
// the event is ignored in that state. There is no terminal state: a pivot
// returns any state to Detected.
var transitions = map[DetectionState]map[stateEvent]DetectionState{
	StateDetected: {
		eventRequestSent:   StateTranslating,
		eventResultValid:   StateTranslated,
		eventResultInvalid: StateFailed,
		eventPivot:         StateDetected,
	},
	StateTranslating: {
		eventResultValid:   StateTranslated,
		eventResultInvalid: StateFailed,
		eventPivot:         StateDetected,
	},
	StateTranslated: {
		eventPivot: StateDetected,
	},
	StateFailed: {
		eventPivot: StateDetected,
	},
}

// transition applies ev if the table allows it and reports whether the
// event was accepted. A self-transition (pivot while Detected) counts as
// accepted.
func (t *Tracked) transition(ev stateEvent) bool {
	next, ok := transitions[t.State][ev]
	if !ok {
		return false
	}
	t.State = next
	return true
}
