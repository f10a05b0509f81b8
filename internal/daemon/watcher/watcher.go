// Package watcher handles file system watching for the daemon.
package watcher

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mutelink/mutelink/internal/config"
	"github.com/mutelink/mutelink/internal/models"
)

// EventType represents the type of file system event.
type EventType int

// Event types for file system changes.
const (
	EventSettingsChanged EventType = iota
	EventSettingsRemoved
)

const debounceDelay = 100 * time.Millisecond

// Event represents a settings change. Settings holds the reloaded file
// (defaults after removal).
type Event struct {
	Type     EventType
	Path     string
	Settings *models.Settings
}

// Watcher watches ~/.mutelink for edits to settings.yaml.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	stopOnce   sync.Once
	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// New creates a new file system watcher.
func New() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 16),
		done:       make(chan struct{}),
		debounce:   make(map[string]*time.Timer),
	}, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start starts the watcher.
func (w *Watcher) Start() error {
	if err := config.EnsureGlobalDir(); err != nil {
		return err
	}
	globalDir, err := config.GlobalDir()
	if err != nil {
		return err
	}
	// The directory is watched rather than the file so atomic
	// replace-by-rename is seen.
	if err := w.fsWatcher.Add(globalDir); err != nil {
		return err
	}
	log.Printf("[watcher] Watching %s", globalDir)

	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.debounceMu.Lock()
		for path, timer := range w.debounce {
			timer.Stop()
			delete(w.debounce, path)
		}
		w.debounceMu.Unlock()
	})
}

// processEvents processes file system events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != config.SettingsFileName {
		return
	}
	// Rename is included: SaveYAML writes a temp file and renames it over
	// the target.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.debounceEvent(event.Name, func() {
		w.processFileChange(event.Name)
	})
}

// debounceEvent debounces events for the same path.
func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(debounceDelay, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()
		fn()
	})
}

// processFileChange reloads settings after the debounce settles. The file's
// state at that point decides the event type, not the last fsnotify op.
func (w *Watcher) processFileChange(path string) {
	ev := Event{Type: EventSettingsChanged, Path: path}
	if !config.FileExists(path) {
		ev.Type = EventSettingsRemoved
		ev.Settings = models.NewSettings()
	} else {
		settings, err := config.LoadSettings()
		if err != nil {
			log.Printf("[watcher] Ignoring unreadable %s: %v", path, err)
			return
		}
		ev.Settings = settings
	}

	select {
	case w.eventsChan <- ev:
	case <-w.done:
	}
}
