// Package gesture turns raw press/release timing from the device into mute
// intents according to the active interaction mode.
package gesture

import (
	"time"

	"github.com/mutelink/mutelink/internal/models"
)

const (
	// TapThreshold separates a tap from a hold. A release strictly shorter
	// than this is a tap.
	TapThreshold = 500 * time.Millisecond

	// GracePeriod is how long a press must be held before push-to-talk
	// unmutes, so a quick tap never unmutes and re-mutes.
	GracePeriod = 200 * time.Millisecond
)

// Intent is a semantic mute-change request.
type Intent int

// Intents.
const (
	IntentToggle Intent = iota + 1
	IntentBeginTalk
	IntentEndTalk
)

func (i Intent) String() string {
	switch i {
	case IntentToggle:
		return "toggle"
	case IntentBeginTalk:
		return "begin_talk"
	case IntentEndTalk:
		return "end_talk"
	}
	return "unknown"
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The coordinator supplies a scheduler that
// delivers f on its own event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer heap.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Interpreter is the per-touch-cycle state machine:
// Idle -> Holding -> (Idle | TapConfirmed). It is not safe for concurrent use;
// the coordinator drives it from its event loop.
type Interpreter struct {
	sched Scheduler
	emit  func(Intent)

	holding  bool
	pttArmed bool
	mode     models.InteractionMode
	grace    Timer
	cycle    uint64
}

// New creates an interpreter that reports intents through emit.
func New(sched Scheduler, emit func(Intent)) *Interpreter {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Interpreter{sched: sched, emit: emit}
}

// State returns the hold bookkeeping.
func (in *Interpreter) State() models.HoldState {
	return models.HoldState{IsHolding: in.holding, PTTArmed: in.pttArmed}
}

// Press starts a touch cycle. mode is captured for the whole cycle; muted is
// the canonical mute state at press time (nil when unknown).
func (in *Interpreter) Press(mode models.InteractionMode, muted *bool) {
	if in.holding || in.grace != nil {
		return
	}
	in.cycle++
	in.holding = true
	in.pttArmed = false
	in.mode = mode

	if mode == models.ModeToggle || muted == nil || !*muted {
		return
	}

	cycle := in.cycle
	in.grace = in.sched.AfterFunc(GracePeriod, func() {
		in.graceElapsed(cycle)
	})
}

func (in *Interpreter) graceElapsed(cycle uint64) {
	// A timer whose cycle has ended (release or reset) may still fire if Stop
	// lost the race; the cycle token discards it.
	if cycle != in.cycle || !in.holding || in.grace == nil {
		return
	}
	in.grace = nil
	in.pttArmed = true
	in.emit(IntentBeginTalk)
}

// Release ends the touch cycle after the finger was held for held.
func (in *Interpreter) Release(held time.Duration) {
	if !in.holding {
		return
	}
	armed := in.pttArmed
	mode := in.mode
	in.endCycle()

	isTap := held < TapThreshold
	switch mode {
	case models.ModeToggle:
		if isTap {
			in.emit(IntentToggle)
		}
	case models.ModePushToTalk:
		if armed {
			in.emit(IntentEndTalk)
		}
	case models.ModeSmart:
		if armed {
			in.emit(IntentEndTalk)
		} else if isTap {
			in.emit(IntentToggle)
		}
	}
}

// Reset abandons the current cycle without emitting anything. Called when the
// device disconnects.
func (in *Interpreter) Reset() {
	in.endCycle()
}

func (in *Interpreter) endCycle() {
	if in.grace != nil {
		in.grace.Stop()
		in.grace = nil
	}
	in.holding = false
	in.pttArmed = false
	in.cycle++
}
