// Package tray implements the system tray icon and menu for the daemon.
package tray

import (
	"context"
	"fmt"

	"github.com/mutelink/mutelink/internal/models"
)

// DaemonState gives the tray access to the running daemon.
type DaemonState interface {
	Port() int
	BridgePort() int
	Subscribe(ctx context.Context) <-chan models.Snapshot
	ToggleMute()
	SetInteractionMode(mode models.InteractionMode) error
	SetAutoFocus(enabled bool) error
	FocusActiveTab() error
	RequestShutdown()
}

func formatTooltip(snap models.Snapshot) string {
	if !snap.DeviceConnected {
		return "MuteLink: no button connected"
	}
	if snap.ActiveCall == nil {
		return "MuteLink: no active call"
	}
	return fmt.Sprintf("MuteLink: %s on %s", snap.MuteLabel(), snap.ActiveCall.Platform.Label())
}

func formatDevice(snap models.Snapshot) string {
	switch {
	case !snap.DeviceConnected:
		return "Button: not connected"
	case snap.Device != nil && snap.Device.Product != "":
		return "Button: " + snap.Device.Product
	default:
		return "Button: connected"
	}
}

func formatCall(snap models.Snapshot) string {
	if snap.ActiveCall == nil {
		return "Call: none"
	}
	return fmt.Sprintf("Call: %s (%s)", snap.ActiveCall.Platform.Label(), snap.MuteLabel())
}

func toggleTitle(snap models.Snapshot) string {
	if snap.Muted != nil && *snap.Muted {
		return "Unmute"
	}
	if snap.Muted != nil {
		return "Mute"
	}
	return "Toggle Mute"
}
