package cli

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mutelink/mutelink/internal/api"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the mutelink daemon",
	Long:  `Manage the mutelinkd daemon process.`,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	running, info, err := GetDaemonStatus()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Printf("Daemon already running (PID %d).\n", info.PID)
		return nil
	}

	fmt.Print(styleHint.Render("Starting mutelinkd... "))
	if err := startDaemon(); err != nil {
		fmt.Println()
		return err
	}

	if _, info, err := GetDaemonStatus(); err == nil && info != nil {
		fmt.Println(styleSuccess.Render(fmt.Sprintf("ready on port %d, bridge port %d.", info.Port, info.BridgePort)))
		return nil
	}
	fmt.Println(styleSuccess.Render("ready."))
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	running, info, err := GetDaemonStatus()
	if err != nil {
		return err
	}

	if !running || info == nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	uptime := time.Since(info.StartedAt).Truncate(time.Second)

	fmt.Println(styleSuccess.Render("Daemon is running."))
	printField("Host", info.Host)
	printField("Port", fmt.Sprint(info.Port))
	printField("Bridge port", fmt.Sprint(info.BridgePort))
	printField("PID", fmt.Sprint(info.PID))
	printField("Uptime", uptime.String())

	// Device and call summary is best effort.
	err = withClient(func(ctx context.Context, c *api.Client) error {
		snap, err := c.GetState(ctx)
		if err != nil {
			return err
		}
		fmt.Println()
		printField("Device", deviceSummary(snap))
		printField("Call", callSummary(snap))
		return nil
	})
	if err != nil {
		fmt.Println(styleHint.Render("\n(state unavailable: " + err.Error() + ")"))
	}
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	running, info, err := GetDaemonStatus()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running.")
		return nil
	}

	process, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal daemon (PID %d): %w", info.PID, err)
	}

	if !waitForDaemon(false) {
		return fmt.Errorf("daemon (PID %d) did not stop within %s", info.PID, daemonWait)
	}
	fmt.Println("Daemon stopped.")
	return nil
}
