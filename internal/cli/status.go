package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mutelink/mutelink/internal/api"
	"github.com/mutelink/mutelink/internal/models"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Show button, call and mute state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			snap, err := c.GetState(ctx)
			if err != nil {
				return err
			}
			printSnapshot(snap)
			return nil
		})
	},
}

func printSnapshot(snap models.Snapshot) {
	fmt.Println(muteBadge(snap))
	printField("Device", deviceSummary(snap))
	printField("Call", callSummary(snap))
	printField("Mode", snap.InteractionMode.Label())
	printField("Auto-focus", onOff(snap.AutoFocusOnPress))
	printField("LED", snap.LED)
}

func muteBadge(snap models.Snapshot) string {
	label := strings.ToUpper(snap.MuteLabel())
	switch {
	case snap.ActiveCall == nil:
		return badgeNoCall.Render(label)
	case snap.Muted == nil:
		return badgeUnknown.Render(label)
	case *snap.Muted:
		return badgeMuted.Render(label)
	default:
		return badgeLive.Render(label)
	}
}

func deviceSummary(snap models.Snapshot) string {
	switch {
	case !snap.DeviceConnected:
		return "not connected"
	case snap.Device != nil && snap.Device.Product != "":
		return fmt.Sprintf("%s (%04x:%04x)", snap.Device.Product, snap.Device.VendorID, snap.Device.ProductID)
	case snap.Device != nil:
		return fmt.Sprintf("%04x:%04x", snap.Device.VendorID, snap.Device.ProductID)
	default:
		return "connected"
	}
}

func callSummary(snap models.Snapshot) string {
	if snap.ActiveCall == nil {
		return "none"
	}
	return fmt.Sprintf("%s, %s", snap.ActiveCall.Platform.Label(), snap.MuteLabel())
}

// snapshotLine renders a snapshot on one unstyled line for piped output.
func snapshotLine(snap models.Snapshot) string {
	device := "disconnected"
	if snap.DeviceConnected {
		device = "connected"
	}
	call := "none"
	if snap.ActiveCall != nil {
		call = string(snap.ActiveCall.Platform)
	}
	return fmt.Sprintf("seq=%d device=%s call=%s mute=%s mode=%s led=%s",
		snap.Seq, device, call, strings.ReplaceAll(snap.MuteLabel(), " ", "_"), snap.InteractionMode, snap.LED)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
