// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection message rate limiting. The budget covers a 30 fps
	// frame stream with headroom for control messages.
	RateLimitMessages = 45          // Max messages per connection per window
	RateLimitWindow   = time.Second // Sliding window duration
)
