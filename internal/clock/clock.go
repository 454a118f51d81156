// Package clock abstracts fixed-duration timers so expiring UI elements
// (notifications, ripple markers) can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback. Stop reports whether the call was prevented.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Real schedules on the runtime timer heap.
func Real(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a hand-advanced clock. Callbacks run synchronously inside Advance,
// in deadline order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	clock   *Manual
	seq     int
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewManual returns a Manual clock at offset zero.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc implements the AfterFunc signature.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{clock: m, seq: m.seq, at: m.now + d, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward and fires every timer whose deadline passed.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []*manualTimer
	rest := m.pending[:0]
	for _, t := range m.pending {
		if t.at <= m.now {
			t.fired = true
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.pending = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	return true
}
