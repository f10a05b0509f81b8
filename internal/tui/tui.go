// Package tui implements the live terminal view of the daemon state.
package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mutelink/mutelink/internal/api"
	"github.com/mutelink/mutelink/internal/models"
)

const resubscribeDelay = 2 * time.Second

// Client is the subset of the control API the view drives.
type Client interface {
	ToggleMute(ctx context.Context) (models.Snapshot, error)
	SetInteractionMode(ctx context.Context, mode models.InteractionMode) (models.Snapshot, error)
	SetAutoFocus(ctx context.Context, enabled bool) (models.Snapshot, error)
	FocusActiveTab(ctx context.Context) error
}

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// Run shows the live view until the user quits or ctx is cancelled.
func Run(ctx context.Context, client *api.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ref := &programRef{}
	p := tea.NewProgram(NewModel(client), tea.WithAltScreen(), tea.WithContext(ctx))
	ref.Set(p)
	defer ref.Clear()

	go streamSnapshots(ctx, client, ref)

	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// streamSnapshots forwards the daemon's snapshot stream into the program,
// resubscribing after the daemon goes away.
func streamSnapshots(ctx context.Context, client *api.Client, ref *programRef) {
	for ctx.Err() == nil {
		stream, err := client.Subscribe(ctx)
		if err == nil {
			for {
				snap, recvErr := stream.Recv()
				if recvErr != nil {
					err = recvErr
					break
				}
				ref.Send(SnapshotMsg{Snapshot: snap})
			}
		}
		if ctx.Err() != nil {
			return
		}
		ref.Send(DisconnectedMsg{Err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}
