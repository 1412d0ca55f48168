package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	RunsStarted       uint64 `json:"runs_started"`
	RunsCompleted     uint64 `json:"runs_completed"`
	RunsPartial       uint64 `json:"runs_partial"`
	RunsFailed        uint64 `json:"runs_failed"`
	StageFailures     uint64 `json:"stage_failures"`
	SnapshotsEvicted  uint64 `json:"snapshots_evicted"`
	WebhooksReceived  uint64 `json:"webhooks_received"`
	WebhooksProcessed uint64 `json:"webhooks_processed"`
}

var global = &Metrics{}

// RunStarted increments the count of pipeline runs started.
func RunStarted() { atomic.AddUint64(&global.RunsStarted, 1) }

// RunCompleted increments the count of runs that finished with every stage succeeding.
func RunCompleted() { atomic.AddUint64(&global.RunsCompleted, 1) }

// RunPartial increments the count of runs where some stages failed.
func RunPartial() { atomic.AddUint64(&global.RunsPartial, 1) }

// RunFailed increments the count of runs that failed outright.
func RunFailed() { atomic.AddUint64(&global.RunsFailed, 1) }

// StageFailed increments the count of individual stage failures.
func StageFailed() { atomic.AddUint64(&global.StageFailures, 1) }

// SnapshotEvicted increments the count of workspace snapshots evicted.
func SnapshotEvicted() { atomic.AddUint64(&global.SnapshotsEvicted, 1) }

// WebhookReceived increments the count of webhooks received.
func WebhookReceived() { atomic.AddUint64(&global.WebhooksReceived, 1) }

// WebhookProcessed increments the count of webhooks processed.
func WebhookProcessed() { atomic.AddUint64(&global.WebhooksProcessed, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		RunsStarted:       atomic.LoadUint64(&global.RunsStarted),
		RunsCompleted:     atomic.LoadUint64(&global.RunsCompleted),
		RunsPartial:       atomic.LoadUint64(&global.RunsPartial),
		RunsFailed:        atomic.LoadUint64(&global.RunsFailed),
		StageFailures:     atomic.LoadUint64(&global.StageFailures),
		SnapshotsEvicted:  atomic.LoadUint64(&global.SnapshotsEvicted),
		WebhooksReceived:  atomic.LoadUint64(&global.WebhooksReceived),
		WebhooksProcessed: atomic.LoadUint64(&global.WebhooksProcessed),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.RunsStarted, 0)
	atomic.StoreUint64(&global.RunsCompleted, 0)
	atomic.StoreUint64(&global.RunsPartial, 0)
	atomic.StoreUint64(&global.RunsFailed, 0)
	atomic.StoreUint64(&global.StageFailures, 0)
	atomic.StoreUint64(&global.SnapshotsEvicted, 0)
	atomic.StoreUint64(&global.WebhooksReceived, 0)
	atomic.StoreUint64(&global.WebhooksProcessed, 0)
}
