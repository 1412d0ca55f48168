package event

import (
	"sync"
	"time"
)

// Debouncer suppresses repeat events for the same change inside a time
// window, so a force-push storm does not start duplicate pipeline runs.
// Entries too old to suppress anything are pruned on every call, which
// keeps the tracked set bounded by the changes active within the last
// two windows.
type Debouncer struct {
	window time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewDebouncer creates a debouncer with the given suppression window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:   window,
		lastSeen: make(map[string]time.Time),
	}
}

// ShouldProcess reports whether the event falls outside the suppression
// window for its key, and records accepted events.
func (d *Debouncer) ShouldProcess(e *Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.prune(now)

	key := e.Key()
	if last, ok := d.lastSeen[key]; ok && now.Sub(last) < d.window {
		return false
	}

	d.lastSeen[key] = now
	return true
}

// Tracked reports how many event keys are currently remembered.
func (d *Debouncer) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSeen)
}

// prune drops entries beyond twice the window. Caller holds the lock.
func (d *Debouncer) prune(now time.Time) {
	cutoff := now.Add(-2 * d.window)
	for key, last := range d.lastSeen {
		if last.Before(cutoff) {
			delete(d.lastSeen, key)
		}
	}
}
