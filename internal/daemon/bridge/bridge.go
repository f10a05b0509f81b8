// Package bridge is the daemon side of the browser observers. Each call tab
// runs a content script that polls POST /sync with what it sees (URL, in-call,
// mute button state, visibility) and receives queued commands in the reply.
package bridge

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mutelink/mutelink/internal/models"
)

// ErrSessionGone is returned for commands addressed to a session whose tab
// has left the call or stopped polling.
var ErrSessionGone = errors.New("call session gone")

// Command types delivered to observers.
const (
	CommandSetMute = "set_mute"
	CommandFocus   = "focus"
)

const reapInterval = 2 * time.Second

// Sink receives call lifecycle and mute observations. Calls happen outside
// the bridge lock but are serialized, in the order the state changed.
type Sink interface {
	CallStarted(sessionID string, platform models.Platform)
	CallEnded(sessionID string)
	MuteObserved(sessionID string, muted *bool)
}

// Config tunes observer polling.
type Config struct {
	// PollHint is returned to observers as next_poll_ms.
	PollHint time.Duration
	// StaleAfter is how long a tab may stay silent before its call is ended.
	StaleAfter time.Duration
}

// Command is a queued instruction for one tab.
type Command struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Muted *bool  `json:"muted,omitempty"`
}

type tab struct {
	id        int
	url       string
	title     string
	visible   bool
	lastSeen  time.Time
	sessionID string
	platform  models.Platform
	meeting   string
	startedAt time.Time
	muted     *bool
	pending   []Command
}

// Bridge tracks observer tabs and their call sessions.
type Bridge struct {
	cfg   Config
	now   func() time.Time
	newID func() string

	// deliverMu is held from a state change until its events reach the
	// sink, so overlapping reports cannot reorder CallStarted and CallEnded.
	// Lock order: deliverMu, then mu.
	deliverMu sync.Mutex

	mu       sync.Mutex
	sink     Sink
	tabs     map[int]*tab
	sessions map[string]*tab
}

// New creates a bridge.
func New(cfg Config) *Bridge {
	if cfg.PollHint <= 0 {
		cfg.PollHint = 500 * time.Millisecond
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Second
	}
	return &Bridge{
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
		tabs:     make(map[int]*tab),
		sessions: make(map[string]*tab),
	}
}

// SetSink installs the event receiver.
func (b *Bridge) SetSink(s Sink) {
	b.mu.Lock()
	b.sink = s
	b.mu.Unlock()
}

// event is a sink call captured under the lock and delivered after it.
type event func(Sink)

func (b *Bridge) deliver(sink Sink, events []event) {
	if sink == nil {
		return
	}
	for _, ev := range events {
		ev(sink)
	}
}

// Report is one observation from a tab.
type Report struct {
	TabID   int
	URL     string
	Title   string
	InCall  bool
	Muted   *bool
	Visible bool
}

// Observe applies a tab report and returns the commands queued for the tab.
func (b *Bridge) Observe(r Report) []Command {
	platform, meeting := RecognizeCall(r.URL)
	inCall := r.InCall && platform != models.PlatformUnknown

	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	now := b.now()
	t, ok := b.tabs[r.TabID]
	if !ok {
		t = &tab{id: r.TabID}
		b.tabs[r.TabID] = t
	}
	t.url, t.title, t.visible, t.lastSeen = r.URL, r.Title, r.Visible, now

	var events []event
	// Leaving the call page or moving to another meeting ends the session.
	if t.sessionID != "" && (!inCall || platform != t.platform || meeting != t.meeting) {
		events = append(events, b.endSessionLocked(t))
	}
	if inCall && t.sessionID == "" {
		sid := b.newID()
		t.sessionID, t.platform, t.meeting, t.startedAt = sid, platform, meeting, now
		b.sessions[sid] = t
		log.Printf("[bridge] Tab %d joined a %s call (session=%s)", t.id, platform, sid)
		events = append(events, func(s Sink) { s.CallStarted(sid, platform) })
	}
	if t.sessionID != "" {
		sid := t.sessionID
		muted := copyBool(r.Muted)
		t.muted = muted
		events = append(events, func(s Sink) { s.MuteObserved(sid, muted) })
	}

	commands := t.pending
	t.pending = nil
	sink := b.sink
	b.mu.Unlock()

	b.deliver(sink, events)
	return commands
}

// TabClosed forgets a tab.
func (b *Bridge) TabClosed(tabID int) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	var events []event
	if t, ok := b.tabs[tabID]; ok {
		if t.sessionID != "" {
			events = append(events, b.endSessionLocked(t))
		}
		delete(b.tabs, tabID)
	}
	sink := b.sink
	b.mu.Unlock()

	b.deliver(sink, events)
}

func (b *Bridge) endSessionLocked(t *tab) event {
	sid := t.sessionID
	log.Printf("[bridge] Tab %d left call (session=%s)", t.id, sid)
	delete(b.sessions, sid)
	t.sessionID = ""
	t.platform = ""
	t.meeting = ""
	t.muted = nil
	t.pending = nil
	return func(s Sink) { s.CallEnded(sid) }
}

// Reap removes tabs that stopped polling.
func (b *Bridge) Reap() {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	now := b.now()
	var events []event
	for id, t := range b.tabs {
		if now.Sub(t.lastSeen) <= b.cfg.StaleAfter {
			continue
		}
		log.Printf("[bridge] Tab %d silent for %s, dropping", id, now.Sub(t.lastSeen).Round(time.Millisecond))
		if t.sessionID != "" {
			events = append(events, b.endSessionLocked(t))
		}
		delete(b.tabs, id)
	}
	sink := b.sink
	b.mu.Unlock()

	b.deliver(sink, events)
}

// RunReaper reaps stale tabs until ctx is cancelled.
func (b *Bridge) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Reap()
		}
	}
}

// SetMute queues a mute command for the session's tab. A newer set_mute
// replaces one that has not been delivered yet.
func (b *Bridge) SetMute(sessionID string, muted bool) error {
	return b.enqueue(sessionID, Command{Type: CommandSetMute, Muted: &muted})
}

// Focus queues a request to bring the session's tab to the front.
func (b *Bridge) Focus(sessionID string) error {
	return b.enqueue(sessionID, Command{Type: CommandFocus})
}

func (b *Bridge) enqueue(sessionID string, cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.sessions[sessionID]
	if !ok {
		return ErrSessionGone
	}
	cmd.ID = b.newID()
	for i, p := range t.pending {
		if p.Type == cmd.Type {
			t.pending[i] = cmd
			return nil
		}
	}
	t.pending = append(t.pending, cmd)
	return nil
}

// Visible reports whether the session's tab was last seen in the foreground.
func (b *Bridge) Visible(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.sessions[sessionID]
	return ok && t.visible
}

// Alive reports whether the session exists and its tab is still polling.
func (b *Bridge) Alive(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.sessions[sessionID]
	return ok && b.now().Sub(t.lastSeen) <= b.cfg.StaleAfter
}

// Sessions returns live call sessions, earliest started first.
func (b *Bridge) Sessions() []models.CallSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	live := make([]*tab, 0, len(b.sessions))
	for _, t := range b.sessions {
		if now.Sub(t.lastSeen) <= b.cfg.StaleAfter {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].startedAt.Equal(live[j].startedAt) {
			return live[i].id < live[j].id
		}
		return live[i].startedAt.Before(live[j].startedAt)
	})
	out := make([]models.CallSession, len(live))
	for i, t := range live {
		out[i] = models.CallSession{SessionID: t.sessionID, Platform: t.platform}
	}
	return out
}

// Stats is a summary for the health endpoint.
type Stats struct {
	Tabs     int `json:"tabs"`
	Sessions int `json:"sessions"`
}

// Stats counts tracked tabs and sessions.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Tabs: len(b.tabs), Sessions: len(b.sessions)}
}

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
