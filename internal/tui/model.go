package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/mutelink/mutelink/internal/models"
)

const (
	actionTimeout  = 5 * time.Second
	errorLinger    = 4 * time.Second
	waitingMessage = "Waiting for daemon..."
)

// Model is the root Bubbletea model of the watch view.
type Model struct {
	client Client
	help   help.Model

	snap      models.Snapshot
	haveSnap  bool
	connected bool

	notice string
	err    error

	width int
}

// NewModel creates the initial model.
func NewModel(client Client) Model {
	return Model{
		client: client,
		help:   help.New(),
	}
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update processes messages and returns an updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		// A restarted daemon starts over at seq 1; DisconnectedMsg resets
		// haveSnap so the first snapshot after reconnecting is accepted.
		if m.haveSnap && msg.Snapshot.Seq < m.snap.Seq {
			return m, nil
		}
		m.snap = msg.Snapshot
		m.haveSnap = true
		m.connected = true
		return m, nil

	case DisconnectedMsg:
		m.connected = false
		m.haveSnap = false
		return m, nil

	case ActionDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.notice = ""
			return m, clearErrorAfter(errorLinger)
		}
		m.err = nil
		m.notice = msg.Action
		if msg.Snapshot != nil && m.haveSnap && msg.Snapshot.Seq >= m.snap.Seq {
			m.snap = *msg.Snapshot
		}
		return m, nil

	case ClearErrorMsg:
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if !m.connected {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Toggle):
		return m, m.action("Toggle sent", func(ctx context.Context) (*models.Snapshot, error) {
			snap, err := m.client.ToggleMute(ctx)
			return &snap, err
		})
	case key.Matches(msg, keys.Mode):
		next := nextMode(m.snap.InteractionMode)
		return m, m.action("Mode set to "+next.Label(), func(ctx context.Context) (*models.Snapshot, error) {
			snap, err := m.client.SetInteractionMode(ctx, next)
			return &snap, err
		})
	case key.Matches(msg, keys.AutoFocus):
		enable := !m.snap.AutoFocusOnPress
		return m, m.action("Auto-focus "+onOff(enable), func(ctx context.Context) (*models.Snapshot, error) {
			snap, err := m.client.SetAutoFocus(ctx, enable)
			return &snap, err
		})
	case key.Matches(msg, keys.Focus):
		return m, m.action("Focus requested", func(ctx context.Context) (*models.Snapshot, error) {
			return nil, m.client.FocusActiveTab(ctx)
		})
	}
	return m, nil
}

func (m Model) action(label string, fn func(ctx context.Context) (*models.Snapshot, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		snap, err := fn(ctx)
		return ActionDoneMsg{Action: label, Snapshot: snap, Err: err}
	}
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return ClearErrorMsg{} })
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("MuteLink"))
	if m.haveSnap {
		b.WriteString(hintStyle.Render(fmt.Sprintf("  #%d", m.snap.Seq)))
	}
	b.WriteString("\n")

	if !m.haveSnap {
		b.WriteString("\n" + hintStyle.Render(waitingMessage) + "\n")
	} else {
		b.WriteString(renderBadge(m.snap) + "\n")
		b.WriteString(row("Button", deviceText(m.snap)))
		b.WriteString(row("Call", callText(m.snap)))
		b.WriteString(row("Mode", m.snap.InteractionMode.Label()))
		b.WriteString(row("Auto-focus", onOff(m.snap.AutoFocusOnPress)))
		b.WriteString(row("LED", m.snap.LED))
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	case m.notice != "":
		b.WriteString(hintStyle.Render(m.notice) + "\n")
	default:
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))

	return m.clip(b.String())
}

// clip truncates every line to the terminal width.
func (m Model) clip(s string) string {
	if m.width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, m.width, "…")
	}
	return strings.Join(lines, "\n")
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value)) + "\n"
}

func renderBadge(snap models.Snapshot) string {
	label := strings.ToUpper(snap.MuteLabel())
	switch {
	case snap.ActiveCall == nil:
		return badgeIdleStyle.Render(label)
	case snap.Hold.PTTArmed:
		return badgeTalkingStyle.Render("TALKING")
	case snap.Muted == nil:
		return badgeUnknownStyle.Render(label)
	case *snap.Muted:
		return badgeMutedStyle.Render(label)
	default:
		return badgeLiveStyle.Render(label)
	}
}

func deviceText(snap models.Snapshot) string {
	switch {
	case !snap.DeviceConnected:
		return "not connected"
	case snap.Device != nil && snap.Device.Product != "":
		return snap.Device.Product
	default:
		return "connected"
	}
}

func callText(snap models.Snapshot) string {
	if snap.ActiveCall == nil {
		return "none"
	}
	return snap.ActiveCall.Platform.Label()
}

func nextMode(m models.InteractionMode) models.InteractionMode {
	switch m {
	case models.ModeToggle:
		return models.ModeSmart
	case models.ModeSmart:
		return models.ModePushToTalk
	}
	return models.ModeToggle
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
