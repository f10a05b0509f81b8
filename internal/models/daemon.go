package models

import "time"

// DaemonInfo represents the daemon connection information.
// This corresponds to ~/.mutelink/daemon.yaml.
type DaemonInfo struct {
	Version    int       `yaml:"version"`
	Host       string    `yaml:"host"`
	Port       int       `yaml:"port"`
	BridgePort int       `yaml:"bridge_port"`
	PID        int       `yaml:"pid"`
	StartedAt  time.Time `yaml:"started_at"`
}

// NewDaemonInfo creates a new daemon info with current values.
func NewDaemonInfo(host string, port, bridgePort, pid int) *DaemonInfo {
	return &DaemonInfo{
		Version:    1,
		Host:       host,
		Port:       port,
		BridgePort: bridgePort,
		PID:        pid,
		StartedAt:  time.Now().UTC(),
	}
}
