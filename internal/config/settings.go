package config

import (
	"fmt"
	"sync"

	"github.com/mutelink/mutelink/internal/models"
)

// LoadSettings loads the global settings from ~/.mutelink/settings.yaml.
// If the file doesn't exist, returns default settings.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	settings.Normalize()
	return settings, nil
}

// SaveSettings saves the global settings to ~/.mutelink/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}

// PreferenceStore persists the coordinator's preferences into settings.yaml
// while leaving every other section of the file untouched.
type PreferenceStore struct {
	mu sync.Mutex
}

// NewPreferenceStore creates a store backed by the global settings file.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{}
}

// SavePreferences merges prefs into settings.yaml. Writing the same values
// again is skipped so the settings watcher is not triggered needlessly.
func (p *PreferenceStore) SavePreferences(prefs models.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	settings, err := LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.Preferences() == prefs {
		return nil
	}
	settings.Interaction.Mode = prefs.InteractionMode
	settings.Interaction.AutoFocusOnPress = prefs.AutoFocusOnPress
	if err := SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
