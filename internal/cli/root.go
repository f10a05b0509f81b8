// Package cli implements the mutelink CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mutelink",
	Short: "Control your USB mute button and the call it drives",
	Long: `Mutelink keeps a USB LED mute button in sync with the mute state of a
browser-based call. The CLI talks to the mutelinkd daemon.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(autofocusCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
}
