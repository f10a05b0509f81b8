// Package server wires the daemon together and serves the gRPC control API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"google.golang.org/grpc"

	"github.com/mutelink/mutelink/internal/api"
	"github.com/mutelink/mutelink/internal/config"
	"github.com/mutelink/mutelink/internal/daemon/bridge"
	"github.com/mutelink/mutelink/internal/daemon/coordinator"
	"github.com/mutelink/mutelink/internal/daemon/devicelink"
	"github.com/mutelink/mutelink/internal/daemon/watcher"
	"github.com/mutelink/mutelink/internal/models"
	"github.com/mutelink/mutelink/internal/telemetry"
)

// Server is the daemon: the coordinator and its collaborators plus the gRPC
// control listener.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	port       int
	bridgePort int
	settings   *models.Settings

	hid         *devicelink.HIDBackend
	link        *devicelink.Link
	bridge      *bridge.Bridge
	coordinator *coordinator.Coordinator
	watcher     *watcher.Watcher
	tracker     *telemetry.Tracker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error
	stop   sync.Once
}

// New creates a server with its gRPC listener on port (0 for dynamic
// allocation). bridgePort overrides the configured observer bridge port when
// non-zero. It fails if HID access is unavailable on this machine.
func New(port, bridgePort int) (*Server, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if bridgePort > 0 {
		settings.Bridge.Port = bridgePort
	}

	hidBackend, err := devicelink.InitHID()
	if err != nil {
		return nil, err
	}

	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		hidBackend.Close()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	tracker, err := newTracker(settings)
	if err != nil {
		log.Printf("[telemetry] %v", err)
		tracker, _ = telemetry.New(models.TelemetryConfig{})
	}

	link := devicelink.New(hidBackend, time.Duration(settings.Device.PollIntervalMs)*time.Millisecond)
	br := bridge.New(bridge.Config{
		PollHint:   time.Duration(settings.Bridge.PollHintMs) * time.Millisecond,
		StaleAfter: time.Duration(settings.Bridge.StaleAfterMs) * time.Millisecond,
	})
	coord := coordinator.New(coordinator.Options{
		Device:              link,
		Observers:           br,
		Store:               config.NewPreferenceStore(),
		Tracker:             tracker,
		Preferences:         settings.Preferences(),
		AckFlashWithoutCall: settings.Interaction.AckFlashWithoutCall,
	})
	link.SetSink(coord)
	br.SetSink(coord)

	grpcServer := grpc.NewServer()
	api.RegisterControlServer(grpcServer, &controlService{ctl: coord})

	w, err := watcher.New()
	if err != nil {
		listener.Close()
		hidBackend.Close()
		return nil, fmt.Errorf("failed to create settings watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		grpcServer:  grpcServer,
		listener:    listener,
		port:        listener.Addr().(*net.TCPAddr).Port,
		bridgePort:  settings.Bridge.Port,
		settings:    settings,
		hid:         hidBackend,
		link:        link,
		bridge:      br,
		coordinator: coord,
		watcher:     w,
		tracker:     tracker,
		ctx:         ctx,
		cancel:      cancel,
		errCh:       make(chan error, 2),
	}, nil
}

// newTracker creates the telemetry tracker, minting and saving an anonymous
// distinct ID the first time telemetry is enabled.
func newTracker(settings *models.Settings) (*telemetry.Tracker, error) {
	if settings.Telemetry.Enabled && settings.Telemetry.DistinctID == "" {
		settings.Telemetry.DistinctID = uuid.NewString()
		if err := config.SaveSettings(settings); err != nil {
			return nil, fmt.Errorf("failed to save telemetry id: %w", err)
		}
	}
	return telemetry.New(settings.Telemetry)
}

// Port returns the port the gRPC server is listening on.
func (s *Server) Port() int {
	return s.port
}

// BridgePort returns the observer bridge port.
func (s *Server) BridgePort() int {
	return s.bridgePort
}

// Coordinator returns the state coordinator.
func (s *Server) Coordinator() *coordinator.Coordinator {
	return s.coordinator
}

func (s *Server) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Serve starts every component and blocks until Stop is called or the gRPC
// or bridge listener fails.
func (s *Server) Serve() error {
	s.spawn(func() {
		if err := s.coordinator.Run(s.ctx); err != nil {
			log.Printf("[coordinator] %v", err)
		}
	})
	s.spawn(func() { s.link.Run(s.ctx) })
	s.spawn(func() { s.bridge.RunReaper(s.ctx) })

	web := grpcweb.WrapServer(s.grpcServer, grpcweb.WithOriginFunc(isExtensionOrigin))
	addr := fmt.Sprintf("127.0.0.1:%d", s.bridgePort)
	s.spawn(func() {
		if err := bridge.Serve(s.ctx, addr, s.settings.Bridge.MaxConnections, s.bridge.Handler(web)); err != nil {
			s.errCh <- err
		}
	})

	if err := s.watcher.Start(); err != nil {
		log.Printf("[watcher] Settings will not reload live: %v", err)
	} else {
		s.spawn(s.applySettingsChanges)
	}

	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			s.errCh <- err
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-s.errCh:
		return err
	}
}

// applySettingsChanges forwards edits of settings.yaml to the coordinator.
func (s *Server) applySettingsChanges() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.watcher.Events():
			prefs := ev.Settings.Preferences()
			log.Printf("[watcher] Settings changed: mode=%s auto_focus=%v", prefs.InteractionMode, prefs.AutoFocusOnPress)
			s.coordinator.ApplyPreferences(prefs)
		}
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.stop.Do(func() {
		s.cancel()
		s.grpcServer.GracefulStop()
		s.watcher.Stop()
		s.wg.Wait()
		if err := s.tracker.Close(); err != nil {
			log.Printf("[telemetry] Failed to flush: %v", err)
		}
		if err := s.hid.Close(); err != nil {
			log.Printf("[devicelink] Failed to release HID: %v", err)
		}
	})
}

func isExtensionOrigin(origin string) bool {
	return strings.HasPrefix(origin, "chrome-extension://") || strings.HasPrefix(origin, "moz-extension://")
}

// TrayState adapts a Server to the tray.DaemonState interface.
type TrayState struct {
	srv *Server
}

// NewTrayState creates a TrayState for the given server.
func NewTrayState(srv *Server) *TrayState {
	return &TrayState{srv: srv}
}

// Port returns the port the server is listening on.
func (t *TrayState) Port() int {
	return t.srv.Port()
}

// BridgePort returns the observer bridge port.
func (t *TrayState) BridgePort() int {
	return t.srv.BridgePort()
}

// Subscribe streams coordinator snapshots.
func (t *TrayState) Subscribe(ctx context.Context) <-chan models.Snapshot {
	return t.srv.coordinator.Subscribe(ctx)
}

// ToggleMute flips the active call's mute state.
func (t *TrayState) ToggleMute() {
	t.srv.coordinator.ToggleMute()
}

// SetInteractionMode changes the interaction mode.
func (t *TrayState) SetInteractionMode(mode models.InteractionMode) error {
	return t.srv.coordinator.SetInteractionMode(mode)
}

// SetAutoFocus changes the auto-focus preference.
func (t *TrayState) SetAutoFocus(enabled bool) error {
	return t.srv.coordinator.SetAutoFocus(enabled)
}

// FocusActiveTab brings the call tab forward.
func (t *TrayState) FocusActiveTab() error {
	return t.srv.coordinator.RequestFocusActiveTab()
}

// RequestShutdown sends SIGINT to the current process to trigger a graceful shutdown.
func (t *TrayState) RequestShutdown() {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(syscall.SIGINT)
}
