// Package telemetry sends opt-in anonymous usage events to PostHog.
package telemetry

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/posthog/posthog-go"

	"github.com/mutelink/mutelink/internal/buildinfo"
	"github.com/mutelink/mutelink/internal/models"
)

// Tracker captures usage events. A disabled Tracker drops everything.
type Tracker struct {
	client     posthog.Client
	distinctID string

	mu     sync.Mutex
	closed bool
}

// New creates a tracker from settings. Telemetry stays off unless it is
// enabled and has both an API key and a distinct ID.
func New(cfg models.TelemetryConfig) (*Tracker, error) {
	if !cfg.Enabled || cfg.APIKey == "" || cfg.DistinctID == "" {
		return &Tracker{}, nil
	}
	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry client: %w", err)
	}
	log.Printf("[telemetry] Enabled (endpoint=%s)", cfg.Endpoint)
	return &Tracker{client: client, distinctID: cfg.DistinctID}, nil
}

// Enabled reports whether events are sent.
func (t *Tracker) Enabled() bool {
	return t != nil && t.client != nil
}

// Track queues an event. It never blocks on the network.
func (t *Tracker) Track(event string, props map[string]interface{}) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	err := t.client.Enqueue(posthog.Capture{
		DistinctId: t.distinctID,
		Event:      event,
		Properties: Properties(props),
	})
	if err != nil {
		log.Printf("[telemetry] Failed to queue %s: %v", event, err)
	}
}

// Properties builds the event properties, adding the app version and OS.
func Properties(props map[string]interface{}) posthog.Properties {
	p := posthog.NewProperties().
		Set("app_version", buildinfo.Version).
		Set("os", runtime.GOOS)
	for k, v := range props {
		p.Set(k, v)
	}
	return p
}

// Close flushes queued events.
func (t *Tracker) Close() error {
	if !t.Enabled() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.client.Close()
}
