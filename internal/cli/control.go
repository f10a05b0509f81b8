package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutelink/mutelink/internal/api"
	"github.com/mutelink/mutelink/internal/models"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle mute on the active call",
	Long: `Toggle mute on the active call, the same as tapping the button.

The request is forwarded to the call tab; the printed state is what the daemon
knew when the request was sent. Run 'mutelink status' to see the confirmed state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			snap, err := c.ToggleMute(ctx)
			if err != nil {
				return err
			}
			if snap.ActiveCall == nil {
				fmt.Println(styleHint.Render("No active call."))
				return nil
			}
			fmt.Printf("Toggle sent to %s (was %s).\n", snap.ActiveCall.Platform.Label(), snap.MuteLabel())
			return nil
		})
	},
}

var modeCmd = &cobra.Command{
	Use:       "mode [toggle|smart|push-to-talk]",
	Short:     "Show or set the button interaction mode",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"toggle", "smart", "push-to-talk"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if len(args) == 0 {
				snap, err := c.GetState(ctx)
				if err != nil {
					return err
				}
				fmt.Println(snap.InteractionMode.Label())
				return nil
			}

			mode, err := models.ParseInteractionMode(args[0])
			if err != nil {
				return err
			}
			snap, err := c.SetInteractionMode(ctx, mode)
			if err != nil {
				return err
			}
			fmt.Printf("Interaction mode set to %s.\n", styleValue.Render(snap.InteractionMode.Label()))
			return nil
		})
	},
}

var autofocusCmd = &cobra.Command{
	Use:       "autofocus [on|off]",
	Short:     "Show or set focusing the call tab on button press",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if len(args) == 0 {
				snap, err := c.GetState(ctx)
				if err != nil {
					return err
				}
				fmt.Println(onOff(snap.AutoFocusOnPress))
				return nil
			}

			enabled, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			snap, err := c.SetAutoFocus(ctx, enabled)
			if err != nil {
				return err
			}
			fmt.Printf("Auto-focus is %s.\n", styleValue.Render(onOff(snap.AutoFocusOnPress)))
			return nil
		})
	},
}

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Bring the active call tab to the front",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			if err := c.FocusActiveTab(ctx); err != nil {
				return err
			}
			fmt.Println("Focus requested.")
			return nil
		})
	},
}
