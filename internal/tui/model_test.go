package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/mutelink/mutelink/internal/models"
)

type fakeClient struct {
	mu        sync.Mutex
	calls     []string
	focusErr  error
	snapshot  models.Snapshot
	lastMode  models.InteractionMode
	lastFocus bool
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) ToggleMute(ctx context.Context) (models.Snapshot, error) {
	f.record("toggle")
	return f.snapshot, nil
}

func (f *fakeClient) SetInteractionMode(ctx context.Context, mode models.InteractionMode) (models.Snapshot, error) {
	f.record("mode")
	f.lastMode = mode
	s := f.snapshot
	s.InteractionMode = mode
	return s, nil
}

func (f *fakeClient) SetAutoFocus(ctx context.Context, enabled bool) (models.Snapshot, error) {
	f.record("autofocus")
	f.lastFocus = enabled
	s := f.snapshot
	s.AutoFocusOnPress = enabled
	return s, nil
}

func (f *fakeClient) FocusActiveTab(ctx context.Context) error {
	f.record("focus")
	return f.focusErr
}

func boolPtr(b bool) *bool { return &b }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func mutedSnapshot(seq uint64) models.Snapshot {
	return models.Snapshot{
		Seq:             seq,
		DeviceConnected: true,
		Device:          &models.DeviceInfo{Product: "MuteMe Mini"},
		ActiveCall:      &models.CallSession{SessionID: "s1", Platform: models.PlatformMeet},
		Muted:           boolPtr(true),
		InteractionMode: models.ModeToggle,
		LED:             "red",
	}
}

func TestViewWaitsForFirstSnapshot(t *testing.T) {
	m := NewModel(&fakeClient{})
	if !strings.Contains(m.View(), waitingMessage) {
		t.Fatalf("expected waiting message, got:\n%s", m.View())
	}

	m, _ = update(t, m, SnapshotMsg{Snapshot: mutedSnapshot(1)})
	view := m.View()
	for _, want := range []string{"MUTED", "MuteMe Mini", "Google Meet", "Toggle"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStaleSnapshotIsDiscarded(t *testing.T) {
	m := NewModel(&fakeClient{})
	m, _ = update(t, m, SnapshotMsg{Snapshot: mutedSnapshot(5)})

	stale := mutedSnapshot(3)
	stale.Muted = boolPtr(false)
	m, _ = update(t, m, SnapshotMsg{Snapshot: stale})
	if m.snap.Seq != 5 || !*m.snap.Muted {
		t.Fatalf("stale snapshot applied: %+v", m.snap)
	}

	// After the stream drops a restarted daemon counts from 1 again.
	m, _ = update(t, m, DisconnectedMsg{})
	m, _ = update(t, m, SnapshotMsg{Snapshot: stale})
	if m.snap.Seq != 3 {
		t.Fatalf("snapshot after reconnect not applied: seq %d", m.snap.Seq)
	}
}

func TestKeysDriveClient(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{"toggle", runeKey('t'), "toggle"},
		{"space toggles", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "toggle"},
		{"mode", runeKey('m'), "mode"},
		{"autofocus", runeKey('a'), "autofocus"},
		{"focus", runeKey('f'), "focus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{snapshot: mutedSnapshot(1)}
			m := NewModel(fc)
			m, _ = update(t, m, SnapshotMsg{Snapshot: mutedSnapshot(1)})

			_, cmd := update(t, m, tt.key)
			if cmd == nil {
				t.Fatal("expected a command")
			}
			msg := cmd()
			done, ok := msg.(ActionDoneMsg)
			if !ok {
				t.Fatalf("expected ActionDoneMsg, got %T", msg)
			}
			if done.Err != nil {
				t.Fatalf("unexpected error: %v", done.Err)
			}
			if len(fc.calls) != 1 || fc.calls[0] != tt.want {
				t.Fatalf("calls = %v, want [%s]", fc.calls, tt.want)
			}
		})
	}
}

func TestKeysIgnoredWhileDisconnected(t *testing.T) {
	fc := &fakeClient{}
	m := NewModel(fc)
	if _, cmd := update(t, m, runeKey('t')); cmd != nil {
		t.Fatal("toggle should be ignored before the first snapshot")
	}
}

func TestModeCyclesAndAutoFocusFlips(t *testing.T) {
	fc := &fakeClient{snapshot: mutedSnapshot(1)}
	m := NewModel(fc)
	m, _ = update(t, m, SnapshotMsg{Snapshot: mutedSnapshot(1)})

	_, cmd := update(t, m, runeKey('m'))
	done := cmd().(ActionDoneMsg)
	if fc.lastMode != models.ModeSmart {
		t.Fatalf("mode = %s, want smart", fc.lastMode)
	}
	m, _ = update(t, m, done)
	if m.snap.InteractionMode != models.ModeSmart {
		t.Fatalf("returned snapshot not applied: %s", m.snap.InteractionMode)
	}

	_, cmd = update(t, m, runeKey('a'))
	cmd()
	if !fc.lastFocus {
		t.Fatal("auto-focus should have been enabled")
	}

	for _, tt := range []struct{ from, to models.InteractionMode }{
		{models.ModeToggle, models.ModeSmart},
		{models.ModeSmart, models.ModePushToTalk},
		{models.ModePushToTalk, models.ModeToggle},
	} {
		if got := nextMode(tt.from); got != tt.to {
			t.Errorf("nextMode(%s) = %s, want %s", tt.from, got, tt.to)
		}
	}
}

func TestActionErrorIsShownThenCleared(t *testing.T) {
	fc := &fakeClient{focusErr: errors.New("no active call")}
	m := NewModel(fc)
	m, _ = update(t, m, SnapshotMsg{Snapshot: mutedSnapshot(1)})

	_, cmd := update(t, m, runeKey('f'))
	m, clearCmd := update(t, m, cmd())
	if clearCmd == nil {
		t.Fatal("expected a clear-error tick")
	}
	if !strings.Contains(m.View(), "no active call") {
		t.Fatalf("error not rendered:\n%s", m.View())
	}

	m, _ = update(t, m, ClearErrorMsg{})
	if strings.Contains(m.View(), "no active call") {
		t.Fatal("error still rendered after clear")
	}
}

func TestViewClipsToWidth(t *testing.T) {
	m := NewModel(&fakeClient{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 10, Height: 20})
	m, _ = update(t, m, SnapshotMsg{Snapshot: mutedSnapshot(1)})

	for _, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > 10 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
}

func TestBadge(t *testing.T) {
	live := mutedSnapshot(1)
	live.Muted = boolPtr(false)
	unknown := mutedSnapshot(1)
	unknown.Muted = nil
	talking := mutedSnapshot(1)
	talking.Hold = models.HoldState{IsHolding: true, PTTArmed: true}

	tests := []struct {
		name string
		snap models.Snapshot
		want string
	}{
		{"no call", models.Snapshot{}, "NO CALL"},
		{"muted", mutedSnapshot(1), "MUTED"},
		{"live", live, "LIVE"},
		{"unknown", unknown, "UNKNOWN"},
		{"talking", talking, "TALKING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderBadge(tt.snap); !strings.Contains(got, tt.want) {
				t.Errorf("renderBadge = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(&fakeClient{})
	_, cmd := update(t, m, runeKey('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
