package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mutelink/mutelink/internal/config"
	"github.com/mutelink/mutelink/internal/models"
)

var (
	settingsBridgePort   int
	settingsPollInterval time.Duration
	settingsAckFlash     string
	settingsTelemetry    string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change global settings",
	Long: `Show or change ~/.mutelink/settings.yaml.

Without flags the current settings are printed. Interaction mode and auto-focus
are applied by a running daemon immediately; bridge and device settings take
effect on the next daemon start.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func init() {
	f := settingsCmd.Flags()
	f.IntVar(&settingsBridgePort, "bridge-port", 0, "port the browser extension polls")
	f.DurationVar(&settingsPollInterval, "poll-interval", 0, "how often to look for the button")
	f.StringVar(&settingsAckFlash, "ack-flash", "", "flash the LED when pressed without a call (on|off)")
	f.StringVar(&settingsTelemetry, "telemetry", "", "send anonymous usage events (on|off)")
}

func runSettings(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	changed, err := applySettingsFlags(cmd, settings)
	if err != nil {
		return err
	}
	if changed {
		if err := config.SaveSettings(settings); err != nil {
			return err
		}
		fmt.Println(styleSuccess.Render("Settings saved."))
	}

	path, _ := config.GlobalSettingsFile()
	fmt.Println(styleLabel.Render(path))
	printSettings(settings)
	return nil
}

func applySettingsFlags(cmd *cobra.Command, s *models.Settings) (bool, error) {
	flags := cmd.Flags()
	changed := false

	if flags.Changed("bridge-port") {
		if settingsBridgePort <= 0 || settingsBridgePort > 65535 {
			return false, fmt.Errorf("invalid bridge port %d", settingsBridgePort)
		}
		s.Bridge.Port = settingsBridgePort
		changed = true
	}
	if flags.Changed("poll-interval") {
		if settingsPollInterval < 100*time.Millisecond {
			return false, fmt.Errorf("poll interval must be at least 100ms")
		}
		s.Device.PollIntervalMs = int(settingsPollInterval / time.Millisecond)
		changed = true
	}
	if flags.Changed("ack-flash") {
		v, err := parseOnOff(settingsAckFlash)
		if err != nil {
			return false, fmt.Errorf("--ack-flash: %w", err)
		}
		s.Interaction.AckFlashWithoutCall = v
		changed = true
	}
	if flags.Changed("telemetry") {
		v, err := parseOnOff(settingsTelemetry)
		if err != nil {
			return false, fmt.Errorf("--telemetry: %w", err)
		}
		s.Telemetry.Enabled = v
		changed = true
	}
	return changed, nil
}

func printSettings(s *models.Settings) {
	printField("Mode", s.Interaction.Mode.Label())
	printField("Auto-focus", onOff(s.Interaction.AutoFocusOnPress))
	printField("Ack flash", onOff(s.Interaction.AckFlashWithoutCall))
	printField("Poll", (time.Duration(s.Device.PollIntervalMs) * time.Millisecond).String())
	printField("Bridge port", fmt.Sprint(s.Bridge.Port))
	printField("Telemetry", onOff(s.Telemetry.Enabled))
}
