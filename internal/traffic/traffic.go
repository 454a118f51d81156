// Package traffic keeps sliding windows of data-endpoint outcomes so /health
// can report recent load, rate-limit pressure and upstream failure rate.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how far back any window can look.
const retention = 5 * time.Minute

var defaultTracker = NewTracker(time.Now)

// RecordServed records a data request answered without an upstream or internal failure.
func RecordServed() {
	defaultTracker.RecordServed()
}

// RecordFailed records a data request that failed upstream (geocoder down, timeout) or internally.
func RecordFailed() {
	defaultTracker.RecordFailed()
}

// RecordDenied records a rate-limit denial (429).
func RecordDenied() {
	defaultTracker.RecordDenied()
}

// Snapshot returns the default tracker's counts within the window.
func Snapshot(window time.Duration) Counts {
	return defaultTracker.Snapshot(window)
}

// Degraded reports whether the default tracker's failure ratio is at or above ratio
// over at least minSample answered requests in the window.
func Degraded(window time.Duration, minSample int, ratio float64) bool {
	return defaultTracker.Degraded(window, minSample, ratio)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Counts are outcome totals within a window. Requests includes denials.
type Counts struct {
	Requests int `json:"requests"`
	Served   int `json:"served"`
	Failed   int `json:"failed"`
	Denied   int `json:"denied"`
}

// Tracker maintains sliding windows of outcome timestamps.
type Tracker struct {
	now func() time.Time

	mu     sync.Mutex
	served []time.Time
	failed []time.Time
	denied []time.Time
}

// NewTracker returns an empty Tracker reading time from now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

func (t *Tracker) RecordServed() { t.record(&t.served) }
func (t *Tracker) RecordFailed() { t.record(&t.failed) }
func (t *Tracker) RecordDenied() { t.record(&t.denied) }

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// Snapshot counts outcomes not older than window.
func (t *Tracker) Snapshot(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	c := Counts{
		Served: countSince(t.served, cutoff),
		Failed: countSince(t.failed, cutoff),
		Denied: countSince(t.denied, cutoff),
	}
	c.Requests = c.Served + c.Failed + c.Denied
	return c
}

// Degraded reports whether Failed/(Served+Failed) >= ratio with at least
// minSample answered requests. Denials are not part of the ratio.
func (t *Tracker) Degraded(window time.Duration, minSample int, ratio float64) bool {
	c := t.Snapshot(window)
	answered := c.Served + c.Failed
	if answered == 0 || answered < minSample {
		return false
	}
	return float64(c.Failed)/float64(answered) >= ratio
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.served, t.failed, t.denied = nil, nil, nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.served)
	prune(&t.failed)
	prune(&t.denied)
}
