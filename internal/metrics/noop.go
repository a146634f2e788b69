package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthCacheHit is a no-op.
func (n *NoopRecorder) IncAuthCacheHit() {}

// IncAuthCacheMiss is a no-op.
func (n *NoopRecorder) IncAuthCacheMiss() {}

// IncAuthRejected is a no-op.
func (n *NoopRecorder) IncAuthRejected() {}

// IncChannelCreated is a no-op.
func (n *NoopRecorder) IncChannelCreated() {}

// IncChannelUpdated is a no-op.
func (n *NoopRecorder) IncChannelUpdated() {}

// IncChannelDeleted is a no-op.
func (n *NoopRecorder) IncChannelDeleted() {}

// IncFeedInserted is a no-op.
func (n *NoopRecorder) IncFeedInserted() {}

// ObserveFeedQueryDuration is a no-op.
func (n *NoopRecorder) ObserveFeedQueryDuration(duration time.Duration) {}
