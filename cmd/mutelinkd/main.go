// Package main is the entry point for the mutelinkd daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mutelink/mutelink/internal/buildinfo"
	"github.com/mutelink/mutelink/internal/config"
	"github.com/mutelink/mutelink/internal/daemon/server"
	"github.com/mutelink/mutelink/internal/daemon/tray"
	"github.com/mutelink/mutelink/internal/models"
)

func main() {
	foreground := flag.Bool("foreground", false, "Run in foreground (no system tray)")
	port := flag.Int("port", 0, "Control port to listen on (0 for dynamic allocation)")
	bridgePort := flag.Int("bridge-port", 0, "Browser bridge port (0 to use settings.yaml)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mutelinkd", buildinfo.String())
		return
	}

	log.SetPrefix("[mutelinkd] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := config.EnsureGlobalDir(); err != nil {
		log.Fatalf("Failed to create global directory: %v", err)
	}

	running, info, err := config.IsDaemonRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Daemon already running on port %d (PID %d)", info.Port, info.PID)
	}

	if *foreground {
		log.Println("Running in foreground mode (no system tray)")
		runForeground(*port, *bridgePort)
	} else {
		log.Println("Running in background mode (with system tray)")
		runWithTray(*port, *bridgePort)
	}
}

// start creates the server and records daemon.yaml. A missing HID
// capability ends the process here.
func start(port, bridgePort int) *server.Server {
	srv, err := server.New(port, bridgePort)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	daemonInfo := models.NewDaemonInfo("127.0.0.1", srv.Port(), srv.BridgePort(), os.Getpid())
	if err := config.SaveDaemonInfo(daemonInfo); err != nil {
		log.Fatalf("Failed to write daemon info: %v", err)
	}

	log.Printf("Daemon %s started on port %d, bridge port %d (PID %d)", buildinfo.Version, srv.Port(), srv.BridgePort(), os.Getpid())
	return srv
}

func cleanup(srv *server.Server) {
	if srv != nil {
		srv.Stop()
	}
	if err := config.RemoveDaemonInfo(); err != nil {
		log.Printf("Failed to remove daemon info: %v", err)
	}
	fmt.Println("Daemon stopped")
}

// runForeground runs the daemon without a system tray, blocking on signals.
func runForeground(port, bridgePort int) {
	srv := start(port, bridgePort)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	cleanup(srv)
}

// runWithTray runs the daemon with a system tray icon on the main goroutine.
// systray.Run must occupy the main goroutine on macOS (Cocoa requirement).
func runWithTray(port, bridgePort int) {
	var srv *server.Server

	onStart := func() {
		srv = start(port, bridgePort)

		go func() {
			if err := srv.Serve(); err != nil {
				log.Printf("Server error: %v", err)
				tray.Quit()
			}
		}()

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Printf("Received signal %v, shutting down...", sig)
			tray.Quit()
		}()
	}

	onExit := func() {
		cleanup(srv)
	}

	// The tray needs a DaemonState before the server exists, so this lazy
	// wrapper defers to the real TrayState once onStart has run.
	lazyState := &lazyDaemonState{getSrv: func() *server.Server { return srv }}

	tray.Run(lazyState, onStart, onExit)
}

// lazyDaemonState wraps server.TrayState with lazy initialization.
type lazyDaemonState struct {
	getSrv func() *server.Server
}

func (l *lazyDaemonState) tray() *server.TrayState {
	if srv := l.getSrv(); srv != nil {
		return server.NewTrayState(srv)
	}
	return nil
}

func (l *lazyDaemonState) Port() int {
	if t := l.tray(); t != nil {
		return t.Port()
	}
	return 0
}

func (l *lazyDaemonState) BridgePort() int {
	if t := l.tray(); t != nil {
		return t.BridgePort()
	}
	return 0
}

func (l *lazyDaemonState) Subscribe(ctx context.Context) <-chan models.Snapshot {
	if t := l.tray(); t != nil {
		return t.Subscribe(ctx)
	}
	ch := make(chan models.Snapshot)
	close(ch)
	return ch
}

func (l *lazyDaemonState) ToggleMute() {
	if t := l.tray(); t != nil {
		t.ToggleMute()
	}
}

func (l *lazyDaemonState) SetInteractionMode(mode models.InteractionMode) error {
	if t := l.tray(); t != nil {
		return t.SetInteractionMode(mode)
	}
	return errNotStarted
}

func (l *lazyDaemonState) SetAutoFocus(enabled bool) error {
	if t := l.tray(); t != nil {
		return t.SetAutoFocus(enabled)
	}
	return errNotStarted
}

func (l *lazyDaemonState) FocusActiveTab() error {
	if t := l.tray(); t != nil {
		return t.FocusActiveTab()
	}
	return errNotStarted
}

func (l *lazyDaemonState) RequestShutdown() {
	if t := l.tray(); t != nil {
		t.RequestShutdown()
	}
}

var errNotStarted = errors.New("daemon not started")
