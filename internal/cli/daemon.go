package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mutelink/mutelink/internal/config"
)

const (
	daemonBinary   = "mutelinkd"
	daemonWait     = 5 * time.Second
	daemonWaitTick = 100 * time.Millisecond
)

// waitForDaemon polls daemon.yaml until the daemon's liveness matches want.
func waitForDaemon(want bool) bool {
	deadline := time.Now().Add(daemonWait)
	for time.Now().Before(deadline) {
		time.Sleep(daemonWaitTick)
		if running, _, err := config.IsDaemonRunning(); err == nil && running == want {
			return true
		}
	}
	return false
}

// startDaemon starts the daemon process in the background.
func startDaemon() error {
	daemonPath, err := findDaemonBinary()
	if err != nil {
		return err
	}

	// Start daemon in background, detached from our stdio
	cmd := exec.Command(daemonPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	// The daemon outlives us; don't leave a zombie if it exits early.
	go func() { _ = cmd.Wait() }()

	// Ready once daemon.yaml names a live PID
	if !waitForDaemon(true) {
		return fmt.Errorf("daemon failed to start within %s", daemonWait)
	}
	return nil
}

// findDaemonBinary locates the mutelinkd binary.
func findDaemonBinary() (string, error) {
	// Try PATH first
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	// Installed side by side with the CLI.
	if execPath, err := os.Executable(); err == nil {
		daemonPath := filepath.Join(filepath.Dir(execPath), daemonBinary)
		if _, err := os.Stat(daemonPath); err == nil {
			return daemonPath, nil
		}
	}

	// Fall back to a local build tree (make build)
	buildPath := filepath.Join("build", daemonBinary)
	if _, err := os.Stat(buildPath); err == nil {
		return buildPath, nil
	}

	return "", fmt.Errorf("%s not found. Install or build it first", daemonBinary)
}

// GetDaemonStatus returns the daemon status.
func GetDaemonStatus() (bool, *DaemonStatusInfo, error) {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return false, nil, err
	}

	if !running || info == nil {
		return false, nil, nil
	}

	return true, &DaemonStatusInfo{
		Host:       info.Host,
		Port:       info.Port,
		BridgePort: info.BridgePort,
		PID:        info.PID,
		StartedAt:  info.StartedAt,
	}, nil
}

// DaemonStatusInfo contains daemon status information.
type DaemonStatusInfo struct {
	Host       string
	Port       int
	BridgePort int
	PID        int
	StartedAt  time.Time
}
