// Package translate provides the client for the external translation service
package translate

import "time"

// Client and batching configuration constants
const (
	DefaultTimeout    = 10 * time.Second
	DefaultBatchMax   = 10
	DefaultBatchDelay = 250 * time.Millisecond

	// Dispatch deadline for one batch, independent of caller lifetime.
	DispatchTimeout = 15 * time.Second
)
