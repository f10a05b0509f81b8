// Package gesturetest provides a manually advanced scheduler for tests that
// exercise the grace timer.
package gesturetest

import (
	"sort"
	"sync"
	"time"

	"github.com/mutelink/mutelink/internal/daemon/gesture"
)

// Scheduler is a gesture.Scheduler driven by Advance instead of wall time.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*timer
}

type timer struct {
	s       *Scheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New returns a scheduler at time zero.
func New() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements gesture.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, f func()) gesture.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &timer{s: s, at: s.now + d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward by d and runs every timer that became due, in
// deadline order, on the calling goroutine.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*timer
	var keep []*timer
	for _, t := range s.pending {
		switch {
		case t.stopped || t.fired:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	s.pending = keep
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// FireStopped runs the callbacks of stopped timers anyway, simulating a timer
// that fired concurrently with Stop.
func (s *Scheduler) FireStopped() {
	s.mu.Lock()
	var stale []*timer
	for _, t := range s.pending {
		if t.stopped {
			stale = append(stale, t)
		}
	}
	s.mu.Unlock()
	for _, t := range stale {
		t.f()
	}
}
