// Package models defines the data shared between the daemon, its clients and
// the files under ~/.mutelink/.
package models

import "fmt"

// InteractionMode selects how button gestures are turned into mute intents.
type InteractionMode string

// Interaction modes.
const (
	ModeToggle     InteractionMode = "toggle"
	ModeSmart      InteractionMode = "smart"
	ModePushToTalk InteractionMode = "push_to_talk"
)

// Valid reports whether m is one of the known modes.
func (m InteractionMode) Valid() bool {
	switch m {
	case ModeToggle, ModeSmart, ModePushToTalk:
		return true
	}
	return false
}

// ParseInteractionMode accepts the canonical names plus a few CLI spellings.
func ParseInteractionMode(s string) (InteractionMode, error) {
	switch s {
	case "toggle":
		return ModeToggle, nil
	case "smart":
		return ModeSmart, nil
	case "push_to_talk", "push-to-talk", "ptt":
		return ModePushToTalk, nil
	}
	return "", fmt.Errorf("unknown interaction mode %q (expected toggle, smart or push-to-talk)", s)
}

// Label returns a human readable name.
func (m InteractionMode) Label() string {
	switch m {
	case ModeToggle:
		return "Toggle"
	case ModeSmart:
		return "Smart"
	case ModePushToTalk:
		return "Push to talk"
	}
	return string(m)
}

// Platform identifies the call platform a tab observer is running on.
type Platform string

// Call platforms.
const (
	PlatformMeet    Platform = "meet"
	PlatformTeams   Platform = "teams"
	PlatformUnknown Platform = "unknown"
)

// Label returns a human readable name.
func (p Platform) Label() string {
	switch p {
	case PlatformMeet:
		return "Google Meet"
	case PlatformTeams:
		return "Microsoft Teams"
	}
	return "Unknown platform"
}

// DeviceInfo describes the connected USB device.
type DeviceInfo struct {
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	Product   string `json:"product"`
	Path      string `json:"path"`
}

// CallSession identifies the active call. The session itself is owned by the
// observer that reported it.
type CallSession struct {
	SessionID string   `json:"session_id"`
	Platform  Platform `json:"platform"`
}

// HoldState is the transient touch bookkeeping of the gesture interpreter.
type HoldState struct {
	IsHolding bool `json:"is_holding"`
	PTTArmed  bool `json:"ptt_armed"`
}

// Snapshot is the public view of the coordinator state, broadcast to UI
// clients after every transition.
type Snapshot struct {
	Seq              uint64          `json:"seq"`
	DeviceConnected  bool            `json:"device_connected"`
	Device           *DeviceInfo     `json:"device,omitempty"`
	ActiveCall       *CallSession    `json:"active_call,omitempty"`
	Muted            *bool           `json:"muted"`
	InteractionMode  InteractionMode `json:"interaction_mode"`
	AutoFocusOnPress bool            `json:"auto_focus_on_press"`
	Hold             HoldState       `json:"hold"`
	LED              string          `json:"led"`
	Icon             string          `json:"icon"`
}

// MuteLabel renders the mute field for display.
func (s Snapshot) MuteLabel() string {
	switch {
	case s.ActiveCall == nil:
		return "no call"
	case s.Muted == nil:
		return "unknown"
	case *s.Muted:
		return "muted"
	default:
		return "live"
	}
}
