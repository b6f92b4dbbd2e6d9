// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for server-level monitoring.
// Exposes counters in a thread-safe map with dynamic registration.

package control

import (
	"sync"
	"time"
)

// Metric keys maintained by the chat server.
const (
	MetricAccepted   = "chat.accepted"
	MetricRejected   = "chat.rejected"
	MetricRegistered = "chat.registered"
	MetricRelayed    = "chat.relayed"
	MetricSendFailed = "chat.send_failed"
	MetricSessions   = "chat.sessions"
	MetricActive     = "chat.active"

	// MetricEvictedPrefix is joined with an eviction reason.
	MetricEvictedPrefix = "chat.evicted."
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments the counter at key by n. A key holding a non-counter value
// is overwritten.
func (mr *MetricsRegistry) Add(key string, n uint64) {
	mr.mu.Lock()
	cur, _ := mr.metrics[key].(uint64)
	mr.metrics[key] = cur + n
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Inc increments the counter at key.
func (mr *MetricsRegistry) Inc(key string) {
	mr.Add(key, 1)
}

// Counter reads the counter at key, zero when absent.
func (mr *MetricsRegistry) Counter(key string) uint64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.metrics[key].(uint64)
	return v
}

// Gauge reads an int value set with Set, zero when absent.
func (mr *MetricsRegistry) Gauge(key string) int {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.metrics[key].(int)
	return v
}

// Updated returns the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
