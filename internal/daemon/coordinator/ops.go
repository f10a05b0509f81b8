package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
	"github.com/mutelink/mutelink/internal/daemon/gesture"
	"github.com/mutelink/mutelink/internal/models"
)

// DeviceConnected records that the device is present. The first connect plays
// the acknowledgment animation; a repeated connect is a no-op.
func (c *Coordinator) DeviceConnected(info models.DeviceInfo) {
	c.transition(func() { c.connect(&info) })
}

// DeviceDisconnected records that the device is gone and abandons any hold.
func (c *Coordinator) DeviceDisconnected() {
	c.transition(c.disconnect)
}

// TouchPressed starts a touch cycle.
func (c *Coordinator) TouchPressed() {
	c.transition(func() {
		if c.st.prefs.AutoFocusOnPress && c.st.activeCall != nil {
			sid := c.st.activeCall.SessionID
			if !c.opts.Observers.Visible(sid) {
				if err := c.opts.Observers.Focus(sid); err != nil {
					log.Printf("[coordinator] Failed to focus call tab %s: %v", sid, err)
				}
			}
		}
		c.interp.Press(c.st.prefs.InteractionMode, c.st.muted)
	})
}

// TouchReleased ends a touch cycle that lasted held.
func (c *Coordinator) TouchReleased(held time.Duration) {
	c.transition(func() { c.interp.Release(held) })
}

// CallStarted records a call reported by an observer. While a call is active
// further reports are ignored.
func (c *Coordinator) CallStarted(sessionID string, platform models.Platform) {
	c.transition(func() { c.startCall(sessionID, platform) })
}

// CallEnded clears the active call if it is sessionID.
func (c *Coordinator) CallEnded(sessionID string) {
	c.transition(func() {
		if c.st.activeCall == nil || c.st.activeCall.SessionID != sessionID {
			return
		}
		log.Printf("[coordinator] Call ended (session=%s)", sessionID)
		c.endCall()
	})
}

// MuteObserved applies an observer's mute report. A nil muted carries no
// information and leaves the state untouched.
func (c *Coordinator) MuteObserved(sessionID string, muted *bool) {
	if muted != nil {
		v := *muted
		muted = &v
	}
	c.transition(func() {
		if muted == nil || c.st.activeCall == nil || c.st.activeCall.SessionID != sessionID {
			return
		}
		c.st.muted = muted
	})
}

// GestureIntent applies a mute intent as if the device had produced it.
func (c *Coordinator) GestureIntent(intent gesture.Intent) {
	c.transition(func() { c.handleIntent(intent) })
}

// ToggleMute flips the mute state of the active call.
func (c *Coordinator) ToggleMute() {
	c.GestureIntent(gesture.IntentToggle)
}

// RequestFocusActiveTab brings the active call tab forward. It fails when no
// call is active.
func (c *Coordinator) RequestFocusActiveTab() error {
	var err error
	ok := c.do(func() {
		if c.st.activeCall == nil {
			err = ErrNoActiveCall
			return
		}
		err = c.opts.Observers.Focus(c.st.activeCall.SessionID)
	})
	if !ok {
		return ErrStopped
	}
	return err
}

// SetInteractionMode changes and persists the interaction mode.
func (c *Coordinator) SetInteractionMode(mode models.InteractionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid interaction mode %q", mode)
	}
	return c.updatePreferences(func(p *models.Preferences) { p.InteractionMode = mode })
}

// SetAutoFocus changes and persists the auto-focus-on-press preference.
func (c *Coordinator) SetAutoFocus(enabled bool) error {
	return c.updatePreferences(func(p *models.Preferences) { p.AutoFocusOnPress = enabled })
}

// ApplyPreferences adopts preferences changed outside the coordinator, such
// as an edited settings file. Nothing is persisted.
func (c *Coordinator) ApplyPreferences(prefs models.Preferences) {
	if !prefs.InteractionMode.Valid() {
		log.Printf("[coordinator] Ignoring invalid interaction mode %q", prefs.InteractionMode)
		return
	}
	c.transition(func() { c.st.prefs = prefs })
}

func (c *Coordinator) updatePreferences(mutate func(*models.Preferences)) error {
	var (
		prefs models.Preferences
		seq   uint64
	)
	if !c.transition(func() {
		mutate(&c.st.prefs)
		prefs = c.st.prefs
		c.prefSeq++
		seq = c.prefSeq
	}) {
		return ErrStopped
	}
	c.track("preferences_changed", map[string]interface{}{
		"mode":       string(prefs.InteractionMode),
		"auto_focus": prefs.AutoFocusOnPress,
	})
	return c.persist(prefs, seq)
}

// persist writes prefs off the loop, in loop order. A value older than the
// newest one written is skipped.
func (c *Coordinator) persist(prefs models.Preferences, seq uint64) error {
	if c.opts.Store == nil {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if seq <= c.savedSeq {
		return nil
	}
	if err := c.opts.Store.SavePreferences(prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	c.savedSeq = seq
	return nil
}

// Snapshot returns the current public state.
func (c *Coordinator) Snapshot() models.Snapshot {
	var snap models.Snapshot
	if !c.do(func() { snap = c.last }) {
		return c.lastStopped()
	}
	return snap
}

// Subscribe returns a channel that receives the current snapshot and then
// every later one. Slow readers only see the latest snapshot. The channel is
// closed when ctx ends or the coordinator stops.
func (c *Coordinator) Subscribe(ctx context.Context) <-chan models.Snapshot {
	sub := &subscriber{ch: make(chan models.Snapshot, 1)}
	if !c.do(func() {
		c.subs[sub] = struct{}{}
		sub.offer(c.last)
	}) {
		close(sub.ch)
		return sub.ch
	}

	go func() {
		select {
		case <-ctx.Done():
			c.do(func() {
				if _, ok := c.subs[sub]; ok {
					delete(c.subs, sub)
					close(sub.ch)
				}
			})
		case <-c.done:
		}
	}()
	return sub.ch
}

// Loop-side handlers. These never call exported operations.

func (c *Coordinator) connect(info *models.DeviceInfo) {
	if c.st.deviceConnected {
		if info != nil && c.st.device == nil {
			c.st.device = info
		}
		return
	}
	c.st.deviceConnected = true
	c.st.device = info
	if info != nil {
		log.Printf("[coordinator] Device connected: %s (%04x:%04x)", info.Product, info.VendorID, info.ProductID)
		c.track("device_connected", map[string]interface{}{
			"vendor_id":  info.VendorID,
			"product_id": info.ProductID,
		})
	} else {
		log.Println("[coordinator] Device connected")
	}
	c.playAnimation(feedback.ConnectAnimation)
}

func (c *Coordinator) disconnect() {
	if !c.st.deviceConnected {
		return
	}
	log.Println("[coordinator] Device disconnected")
	c.st.deviceConnected = false
	c.st.device = nil
	c.interp.Reset()
	c.ledValid = false
}

func (c *Coordinator) startCall(sessionID string, platform models.Platform) {
	if c.st.activeCall != nil {
		if c.st.activeCall.SessionID != sessionID {
			log.Printf("[coordinator] Ignoring call start from %s: %s already active", sessionID, c.st.activeCall.SessionID)
		}
		return
	}
	log.Printf("[coordinator] Call started (session=%s, platform=%s)", sessionID, platform)
	c.st.activeCall = &models.CallSession{SessionID: sessionID, Platform: platform}
	c.st.muted = nil
	c.track("call_started", map[string]interface{}{"platform": string(platform)})
}

func (c *Coordinator) endCall() {
	c.st.activeCall = nil
	c.st.muted = nil
}

func (c *Coordinator) handleIntent(intent gesture.Intent) {
	if c.st.activeCall == nil {
		log.Printf("[coordinator] Dropping %s: no active call", intent)
		if c.opts.AckFlashWithoutCall && c.st.deviceConnected {
			c.playAnimation(feedback.NoCallAnimation)
		}
		return
	}

	var target bool
	switch intent {
	case gesture.IntentToggle:
		if c.st.muted == nil {
			log.Printf("[coordinator] Dropping toggle: mute state of %s unknown", c.st.activeCall.SessionID)
			return
		}
		target = !*c.st.muted
	case gesture.IntentBeginTalk:
		target = false
	case gesture.IntentEndTalk:
		target = true
	default:
		return
	}

	sid := c.st.activeCall.SessionID
	if err := c.opts.Observers.SetMute(sid, target); err != nil {
		log.Printf("[coordinator] Failed to send set_mute(%v) to %s: %v", target, sid, err)
		return
	}
	c.track("mute_intent", map[string]interface{}{
		"intent":   intent.String(),
		"mode":     string(c.st.prefs.InteractionMode),
		"platform": string(c.st.activeCall.Platform),
	})
}

func (c *Coordinator) playAnimation(frames []feedback.Frame) {
	if c.opts.Device.PlayAnimation(frames) {
		// The steady preset is rewritten once the animation has been queued.
		c.ledValid = false
	}
}

// reconcile re-checks collaborators for events that were missed.
func (c *Coordinator) reconcile() {
	if avail := c.opts.Device.Available(); avail != c.st.deviceConnected {
		log.Printf("[coordinator] Reconcile: device available=%v, state connected=%v", avail, c.st.deviceConnected)
		if avail {
			c.connect(nil)
		} else {
			c.disconnect()
		}
	}

	if c.st.activeCall != nil && !c.opts.Observers.Alive(c.st.activeCall.SessionID) {
		log.Printf("[coordinator] Reconcile: call session %s is gone", c.st.activeCall.SessionID)
		c.endCall()
	}

	if c.st.activeCall == nil {
		if sessions := c.opts.Observers.Sessions(); len(sessions) > 0 {
			s := sessions[0]
			log.Printf("[coordinator] Reconcile: adopting call session %s", s.SessionID)
			c.startCall(s.SessionID, s.Platform)
		}
	}
}
