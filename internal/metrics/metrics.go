// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Auth gate metrics
	IncAuthCacheHit()
	IncAuthCacheMiss()
	IncAuthRejected()

	// Channel management metrics
	IncChannelCreated()
	IncChannelUpdated()
	IncChannelDeleted()

	// Feed metrics
	IncFeedInserted()
	ObserveFeedQueryDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
