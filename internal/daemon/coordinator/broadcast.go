package coordinator

import (
	"errors"
	"log"
	"reflect"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
	"github.com/mutelink/mutelink/internal/models"
)

var (
	// ErrNoActiveCall is returned by operations that need a call.
	ErrNoActiveCall = errors.New("no active call")

	// ErrStopped is returned once the coordinator loop has exited.
	ErrStopped = errors.New("coordinator stopped")
)

type subscriber struct {
	ch chan models.Snapshot
}

// offer replaces any unread snapshot with snap. Only the loop sends, so the
// second send cannot block.
func (s *subscriber) offer(snap models.Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (c *Coordinator) inputs() feedback.Inputs {
	hold := c.interp.State()
	return feedback.Inputs{
		DeviceConnected: c.st.deviceConnected,
		InCall:          c.st.activeCall != nil,
		Muted:           c.st.muted,
		Mode:            c.st.prefs.InteractionMode,
		Holding:         hold.IsHolding,
	}
}

func (c *Coordinator) snapshot(out feedback.Output) models.Snapshot {
	snap := models.Snapshot{
		DeviceConnected:  c.st.deviceConnected,
		InteractionMode:  c.st.prefs.InteractionMode,
		AutoFocusOnPress: c.st.prefs.AutoFocusOnPress,
		Hold:             c.interp.State(),
		LED:              out.LED.String(),
		Icon:             out.Icon.String(),
	}
	if c.st.device != nil {
		d := *c.st.device
		snap.Device = &d
	}
	if c.st.activeCall != nil {
		call := *c.st.activeCall
		snap.ActiveCall = &call
	}
	if c.st.muted != nil {
		m := *c.st.muted
		snap.Muted = &m
	}
	return snap
}

// commit recomputes feedback after a transition: the LED is written when its
// appearance changed and subscribers are notified when the public state
// changed.
func (c *Coordinator) commit() {
	if c.st.activeCall == nil && c.st.muted != nil {
		c.st.muted = nil
	}

	out := feedback.Compute(c.inputs())
	if c.st.deviceConnected {
		app := out.LED.Appearance()
		if !c.ledValid || app != c.led {
			if c.opts.Device.SetLED(app) {
				c.led = app
				c.ledValid = true
			} else {
				log.Printf("[coordinator] LED write %s/%s not accepted", app.Color, app.Effect)
			}
		}
	}

	snap := c.snapshot(out)
	prev := c.last
	prev.Seq = 0
	if c.seq > 0 && reflect.DeepEqual(prev, snap) {
		return
	}
	c.seq++
	snap.Seq = c.seq
	c.last = snap
	for sub := range c.subs {
		sub.offer(snap)
	}
}

// lastStopped is used after the loop exited, when c.last is no longer written.
func (c *Coordinator) lastStopped() models.Snapshot {
	<-c.done
	return c.last
}
