package tui

import "github.com/mutelink/mutelink/internal/models"

// SnapshotMsg carries a state snapshot from the Subscribe stream.
type SnapshotMsg struct {
	Snapshot models.Snapshot
}

// DisconnectedMsg signals the snapshot stream ended.
type DisconnectedMsg struct {
	Err error
}

// ActionDoneMsg carries the outcome of a control request.
type ActionDoneMsg struct {
	Action   string
	Snapshot *models.Snapshot
	Err      error
}

// ClearErrorMsg clears the error display.
type ClearErrorMsg struct{}
