// Package coordinator owns the single logical mute state shared by the
// device, the tab observers and the UI clients. All state lives on one event
// loop goroutine; every exported operation is queued onto that loop and
// returns once it has been applied.
package coordinator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
	"github.com/mutelink/mutelink/internal/daemon/gesture"
	"github.com/mutelink/mutelink/internal/models"
)

// DefaultReconcileInterval is how often device presence and call liveness
// are re-checked against the collaborators.
const DefaultReconcileInterval = 2 * time.Second

// Device is the LED puck as seen by the coordinator. Implementations must not
// block: commands are queued for a writer goroutine.
type Device interface {
	SetLED(a feedback.Appearance) bool
	PlayAnimation(frames []feedback.Frame) bool
	Available() bool
}

// Observers is the set of per-tab call observers. Implementations must not
// block and must never call back into the coordinator synchronously.
type Observers interface {
	SetMute(sessionID string, muted bool) error
	Focus(sessionID string) error
	Visible(sessionID string) bool
	Alive(sessionID string) bool
	// Sessions returns live in-call sessions, earliest started first.
	Sessions() []models.CallSession
}

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	SavePreferences(prefs models.Preferences) error
}

// Tracker receives usage events. Track must not block.
type Tracker interface {
	Track(event string, props map[string]interface{})
}

// Options configures a Coordinator.
type Options struct {
	Device    Device
	Observers Observers
	Store     PreferenceStore
	Tracker   Tracker

	Preferences         models.Preferences
	AckFlashWithoutCall bool

	// Scheduler drives the push-to-talk grace timer. Defaults to wall time.
	Scheduler         gesture.Scheduler
	ReconcileInterval time.Duration
}

// state is the coordinator-owned mutable state. Only the loop touches it.
type state struct {
	deviceConnected bool
	device          *models.DeviceInfo
	activeCall      *models.CallSession
	muted           *bool
	prefs           models.Preferences
}

// Coordinator is the state coordinator.
type Coordinator struct {
	opts   Options
	events chan func()
	done   chan struct{}

	// Loop-owned.
	st       state
	interp   *gesture.Interpreter
	seq      uint64
	last     models.Snapshot
	led      feedback.Appearance
	ledValid bool
	subs     map[*subscriber]struct{}
	prefSeq  uint64

	// saveMu serializes preference writes; savedSeq is the loop sequence of
	// the newest value written.
	saveMu   sync.Mutex
	savedSeq uint64
}

// New creates a coordinator. Call Run to start processing operations.
func New(opts Options) *Coordinator {
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = DefaultReconcileInterval
	}
	if opts.Scheduler == nil {
		opts.Scheduler = gesture.RealScheduler{}
	}
	if !opts.Preferences.InteractionMode.Valid() {
		opts.Preferences.InteractionMode = models.ModeToggle
	}

	c := &Coordinator{
		opts:   opts,
		events: make(chan func(), 64),
		done:   make(chan struct{}),
		st:     state{prefs: opts.Preferences},
		subs:   make(map[*subscriber]struct{}),
	}
	c.interp = gesture.New(loopScheduler{c: c, inner: opts.Scheduler}, c.handleIntent)
	return c
}

// Run processes operations until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer func() {
		for sub := range c.subs {
			close(sub.ch)
			delete(c.subs, sub)
		}
		close(c.done)
	}()

	ticker := time.NewTicker(c.opts.ReconcileInterval)
	defer ticker.Stop()

	c.commit()
	log.Printf("[coordinator] Started (mode=%s, auto_focus=%v)", c.st.prefs.InteractionMode, c.st.prefs.AutoFocusOnPress)

	for {
		select {
		case <-ctx.Done():
			c.interp.Reset()
			log.Println("[coordinator] Stopped")
			return nil
		case fn := <-c.events:
			fn()
		case <-ticker.C:
			c.reconcile()
			c.commit()
		}
	}
}

// do queues fn onto the loop and waits until it has run. It reports false if
// the loop has stopped. Must never be called from the loop itself.
func (c *Coordinator) do(fn func()) bool {
	applied := make(chan struct{})
	select {
	case c.events <- func() { fn(); close(applied) }:
	case <-c.done:
		return false
	}
	select {
	case <-applied:
		return true
	case <-c.done:
		return false
	}
}

// transition runs a state mutation on the loop followed by feedback
// recomputation and broadcast.
func (c *Coordinator) transition(fn func()) bool {
	return c.do(func() {
		fn()
		c.commit()
	})
}

// loopScheduler delivers gesture timer expiries as loop transitions.
type loopScheduler struct {
	c     *Coordinator
	inner gesture.Scheduler
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) gesture.Timer {
	return s.inner.AfterFunc(d, func() {
		s.c.transition(f)
	})
}

func (c *Coordinator) track(event string, props map[string]interface{}) {
	if c.opts.Tracker != nil {
		c.opts.Tracker.Track(event, props)
	}
}
