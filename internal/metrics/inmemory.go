package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthCacheHits          uint64
	AuthCacheMisses        uint64
	AuthRejected           uint64
	ChannelsCreated        uint64
	ChannelsUpdated        uint64
	ChannelsDeleted        uint64
	FeedsInserted          uint64
	FeedQueryDurationCount uint64
	FeedQueryDurationTotal int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	authCacheHits          uint64
	authCacheMisses        uint64
	authRejected           uint64
	channelsCreated        uint64
	channelsUpdated        uint64
	channelsDeleted        uint64
	feedsInserted          uint64
	feedQueryDurationCount uint64
	feedQueryDurationTotal int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AuthCacheHits:          atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:        atomic.LoadUint64(&m.authCacheMisses),
		AuthRejected:           atomic.LoadUint64(&m.authRejected),
		ChannelsCreated:        atomic.LoadUint64(&m.channelsCreated),
		ChannelsUpdated:        atomic.LoadUint64(&m.channelsUpdated),
		ChannelsDeleted:        atomic.LoadUint64(&m.channelsDeleted),
		FeedsInserted:          atomic.LoadUint64(&m.feedsInserted),
		FeedQueryDurationCount: atomic.LoadUint64(&m.feedQueryDurationCount),
		FeedQueryDurationTotal: atomic.LoadInt64(&m.feedQueryDurationTotal),
	}
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncAuthRejected increments the rejected-authentication counter.
func (m *InMemoryRecorder) IncAuthRejected() {
	atomic.AddUint64(&m.authRejected, 1)
}

// IncChannelCreated increments the channel created counter.
func (m *InMemoryRecorder) IncChannelCreated() {
	atomic.AddUint64(&m.channelsCreated, 1)
}

// IncChannelUpdated increments the channel updated counter.
func (m *InMemoryRecorder) IncChannelUpdated() {
	atomic.AddUint64(&m.channelsUpdated, 1)
}

// IncChannelDeleted increments the channel deleted counter.
func (m *InMemoryRecorder) IncChannelDeleted() {
	atomic.AddUint64(&m.channelsDeleted, 1)
}

// IncFeedInserted increments the feed inserted counter.
func (m *InMemoryRecorder) IncFeedInserted() {
	atomic.AddUint64(&m.feedsInserted, 1)
}

// ObserveFeedQueryDuration records a feed query duration.
func (m *InMemoryRecorder) ObserveFeedQueryDuration(duration time.Duration) {
	atomic.AddUint64(&m.feedQueryDurationCount, 1)
	atomic.AddInt64(&m.feedQueryDurationTotal, duration.Nanoseconds())
}
