package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mutelink/mutelink/internal/models"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("MUTELINK_HOME", t.TempDir())

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.Interaction.Mode != models.ModeToggle || !settings.Interaction.AckFlashWithoutCall {
		t.Errorf("defaults = %+v", settings.Interaction)
	}
	if settings.Bridge.Port != 48925 {
		t.Errorf("bridge port = %d, want 48925", settings.Bridge.Port)
	}
}

func TestLoadSettingsPartialFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MUTELINK_HOME", dir)

	doc := "interaction:\n  mode: push_to_talk\nbridge:\n  port: 0\n"
	if err := os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.Interaction.Mode != models.ModePushToTalk {
		t.Errorf("mode = %s, want push_to_talk", settings.Interaction.Mode)
	}
	if !settings.Interaction.AckFlashWithoutCall {
		t.Error("missing key lost its default")
	}
	if settings.Bridge.Port != 48925 {
		t.Errorf("zero port not normalized: %d", settings.Bridge.Port)
	}
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MUTELINK_HOME", dir)
	if err := os.WriteFile(filepath.Join(dir, SettingsFileName), []byte("interaction: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(); err == nil {
		t.Error("LoadSettings() succeeded on invalid YAML")
	}
}

func TestPreferenceStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MUTELINK_HOME", dir)

	settings := models.NewSettings()
	settings.Bridge.Port = 50000
	if err := SaveSettings(settings); err != nil {
		t.Fatal(err)
	}

	store := NewPreferenceStore()
	prefs := models.Preferences{InteractionMode: models.ModeSmart, AutoFocusOnPress: true}
	if err := store.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences() error = %v", err)
	}

	loaded, err := LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Preferences() != prefs {
		t.Errorf("preferences = %+v, want %+v", loaded.Preferences(), prefs)
	}
	if loaded.Bridge.Port != 50000 {
		t.Errorf("unrelated setting changed: port = %d", loaded.Bridge.Port)
	}

	path := filepath.Join(dir, SettingsFileName)
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SavePreferences(prefs); err != nil {
		t.Fatal(err)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(before, after) {
		t.Error("unchanged preferences rewrote the file")
	}
}

func TestDaemonInfo(t *testing.T) {
	t.Setenv("MUTELINK_HOME", t.TempDir())

	info, err := LoadDaemonInfo()
	if err != nil || info != nil {
		t.Fatalf("LoadDaemonInfo() = %v, %v; want nil, nil", info, err)
	}

	want := models.NewDaemonInfo("127.0.0.1", 41000, 48925, os.Getpid())
	if err := SaveDaemonInfo(want); err != nil {
		t.Fatal(err)
	}
	running, got, err := IsDaemonRunning()
	if err != nil {
		t.Fatal(err)
	}
	if !running || got.Port != 41000 || got.BridgePort != 48925 {
		t.Errorf("IsDaemonRunning() = %v, %+v", running, got)
	}

	if err := RemoveDaemonInfo(); err != nil {
		t.Fatal(err)
	}
	if err := RemoveDaemonInfo(); err != nil {
		t.Errorf("second RemoveDaemonInfo() error = %v", err)
	}
}

func TestStaleDaemonInfoIsRemoved(t *testing.T) {
	t.Setenv("MUTELINK_HOME", t.TempDir())

	if err := SaveDaemonInfo(models.NewDaemonInfo("127.0.0.1", 41000, 48925, 0)); err != nil {
		t.Fatal(err)
	}
	running, info, err := IsDaemonRunning()
	if err != nil {
		t.Fatal(err)
	}
	if running {
		t.Error("IsDaemonRunning() = true for a dead PID")
	}
	if info == nil || info.Port != 41000 {
		t.Errorf("stale info not returned: %+v", info)
	}
	if left, err := LoadDaemonInfo(); err != nil || left != nil {
		t.Errorf("daemon.yaml still present: %+v, %v", left, err)
	}
}
