package models

// InteractionConfig holds the persisted button preferences.
type InteractionConfig struct {
	Mode                InteractionMode `yaml:"mode"`
	AutoFocusOnPress    bool            `yaml:"auto_focus_on_press"`
	AckFlashWithoutCall bool            `yaml:"ack_flash_without_call"`
}

// DeviceConfig holds settings for the USB device link.
type DeviceConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// BridgeConfig holds settings for the local observer bridge.
type BridgeConfig struct {
	Port           int `yaml:"port"`
	PollHintMs     int `yaml:"poll_hint_ms"`   // next_poll_ms handed to content scripts
	StaleAfterMs   int `yaml:"stale_after_ms"` // tab is considered closed after this silence
	MaxConnections int `yaml:"max_connections"`
}

// TelemetryConfig holds opt-in usage analytics settings.
type TelemetryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	DistinctID string `yaml:"distinct_id,omitempty"`
}

// Settings represents global application settings.
// This corresponds to ~/.mutelink/settings.yaml.
type Settings struct {
	Version     int               `yaml:"version"`
	Interaction InteractionConfig `yaml:"interaction"`
	Device      DeviceConfig      `yaml:"device"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Interaction: InteractionConfig{
			Mode:                ModeToggle,
			AutoFocusOnPress:    false,
			AckFlashWithoutCall: true,
		},
		Device: DeviceConfig{
			PollIntervalMs: 2000,
		},
		Bridge: BridgeConfig{
			Port:           48925,
			PollHintMs:     500,
			StaleAfterMs:   5000,
			MaxConnections: 64,
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "https://eu.i.posthog.com",
		},
	}
}

// Preferences returns the user preferences the coordinator owns.
func (s *Settings) Preferences() Preferences {
	return Preferences{
		InteractionMode:  s.Interaction.Mode,
		AutoFocusOnPress: s.Interaction.AutoFocusOnPress,
	}
}

// Normalize fills zero values left by hand-edited files with defaults.
func (s *Settings) Normalize() {
	def := NewSettings()
	if !s.Interaction.Mode.Valid() {
		s.Interaction.Mode = def.Interaction.Mode
	}
	if s.Device.PollIntervalMs <= 0 {
		s.Device.PollIntervalMs = def.Device.PollIntervalMs
	}
	if s.Bridge.Port <= 0 {
		s.Bridge.Port = def.Bridge.Port
	}
	if s.Bridge.PollHintMs <= 0 {
		s.Bridge.PollHintMs = def.Bridge.PollHintMs
	}
	if s.Bridge.StaleAfterMs <= 0 {
		s.Bridge.StaleAfterMs = def.Bridge.StaleAfterMs
	}
	if s.Bridge.MaxConnections <= 0 {
		s.Bridge.MaxConnections = def.Bridge.MaxConnections
	}
	if s.Telemetry.Endpoint == "" {
		s.Telemetry.Endpoint = def.Telemetry.Endpoint
	}
}

// Preferences are the two persisted scalars the coordinator reads at startup
// and writes back on change.
type Preferences struct {
	InteractionMode  InteractionMode
	AutoFocusOnPress bool
}
