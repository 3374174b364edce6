// Package orchestrator serializes all tracker mutation behind one mutex
package orchestrator

// Orchestrator configuration constants
const (
	// Buffered snapshot events before the emitter starts dropping.
	EventBufferSize = 8
)
