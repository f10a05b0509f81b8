// Package devicelink drives the USB mute button: it polls for presence,
// decodes touch reports into press/release events and serializes LED writes
// on a dedicated goroutine.
package devicelink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
	"github.com/mutelink/mutelink/internal/models"
)

// ErrNotConnected is returned when no device is open.
var ErrNotConnected = errors.New("device not connected")

const (
	// DefaultPollInterval is how often presence is checked.
	DefaultPollInterval = 2 * time.Second

	readTimeout = 250 * time.Millisecond
	reportSize  = 8
)

// Sink receives device events. Calls are made from the link's goroutines and
// may block until the receiver has applied them.
type Sink interface {
	TouchPressed()
	TouchReleased(held time.Duration)
	DeviceConnected(info models.DeviceInfo)
	DeviceDisconnected()
}

type writeOp struct {
	frames []feedback.Frame
}

// Link manages at most one open device.
type Link struct {
	backend Backend
	poll    time.Duration
	now     func() time.Time

	mu        sync.Mutex
	sink      Sink
	handle    Handle
	info      models.DeviceInfo
	gen       uint64
	steady    feedback.Appearance
	hasSteady bool
	pressedAt time.Time
	pressed   bool

	ops chan writeOp
}

// New creates a link. poll <= 0 selects DefaultPollInterval.
func New(backend Backend, poll time.Duration) *Link {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Link{
		backend: backend,
		poll:    poll,
		now:     time.Now,
		ops:     make(chan writeOp, 16),
	}
}

// SetSink installs the event receiver. It must be called before Run.
func (l *Link) SetSink(s Sink) {
	l.mu.Lock()
	l.sink = s
	l.mu.Unlock()
}

// Run polls for the device and drives the writer until ctx is cancelled.
func (l *Link) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.writeLoop(ctx)
	}()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	l.check(ctx)
	for {
		select {
		case <-ctx.Done():
			l.close()
			wg.Wait()
			return
		case <-ticker.C:
			l.check(ctx)
		}
	}
}

// Available reports whether a device is open.
func (l *Link) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle != nil
}

// SetLED records the steady appearance and queues a write. Writes are
// coalesced: the writer always sends the latest steady appearance.
func (l *Link) SetLED(a feedback.Appearance) bool {
	l.mu.Lock()
	if l.handle == nil {
		l.mu.Unlock()
		return false
	}
	l.steady = a
	l.hasSteady = true
	l.mu.Unlock()

	select {
	case l.ops <- writeOp{}:
	default:
	}
	return true
}

// PlayAnimation queues frames. The steady appearance is restored afterwards.
func (l *Link) PlayAnimation(frames []feedback.Frame) bool {
	if !l.Available() {
		return false
	}
	select {
	case l.ops <- writeOp{frames: frames}:
		return true
	default:
		log.Println("[devicelink] Write queue full, dropping animation")
		return false
	}
}

// check opens a device if none is open and drops the open one if it was
// unplugged.
func (l *Link) check(ctx context.Context) {
	devices, err := l.backend.Enumerate()
	if err != nil {
		log.Printf("[devicelink] %v", err)
		return
	}

	l.mu.Lock()
	open := l.handle != nil
	path := l.info.Path
	l.mu.Unlock()

	if open {
		for _, d := range devices {
			if d.Path == path {
				return
			}
		}
		log.Printf("[devicelink] Device %s no longer present", path)
		l.drop(l.generation())
		return
	}

	for _, d := range devices {
		h, err := l.backend.Open(d.Path)
		if err != nil {
			log.Printf("[devicelink] %v", err)
			continue
		}
		l.attach(ctx, h, d)
		return
	}
}

func (l *Link) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

func (l *Link) attach(ctx context.Context, h Handle, info models.DeviceInfo) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.handle = h
	l.info = info
	l.pressed = false
	l.hasSteady = false
	sink := l.sink
	l.mu.Unlock()

	log.Printf("[devicelink] Opened %s (%04x:%04x) at %s", info.Product, info.VendorID, info.ProductID, info.Path)
	go l.readLoop(ctx, h, gen)

	if sink != nil {
		sink.DeviceConnected(info)
	}
}

// drop closes the device of generation gen, if it is still the open one.
func (l *Link) drop(gen uint64) {
	l.mu.Lock()
	if l.handle == nil || l.gen != gen {
		l.mu.Unlock()
		return
	}
	h := l.handle
	l.handle = nil
	l.info = models.DeviceInfo{}
	l.pressed = false
	l.gen++
	sink := l.sink
	l.mu.Unlock()

	if err := h.Close(); err != nil {
		log.Printf("[devicelink] Failed to close device: %v", err)
	}
	if sink != nil {
		sink.DeviceDisconnected()
	}
}

func (l *Link) close() {
	l.mu.Lock()
	h := l.handle
	l.handle = nil
	l.gen++
	l.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

func (l *Link) readLoop(ctx context.Context, h Handle, gen uint64) {
	buf := make([]byte, reportSize)
	for {
		if ctx.Err() != nil || l.generation() != gen {
			return
		}
		n, err := h.ReadWithTimeout(buf, readTimeout)
		if err != nil {
			if l.generation() == gen {
				log.Printf("[devicelink] Read failed: %v", err)
			}
			l.drop(gen)
			return
		}
		if n == 0 {
			continue
		}
		if ev, ok := ParseInput(buf[:n]); ok {
			l.handleInput(ev, gen)
		}
	}
}

func (l *Link) handleInput(ev InputEvent, gen uint64) {
	l.mu.Lock()
	if l.gen != gen || l.sink == nil {
		l.mu.Unlock()
		return
	}
	sink := l.sink
	switch ev {
	case InputTouchStart:
		if l.pressed {
			l.mu.Unlock()
			return
		}
		l.pressed = true
		l.pressedAt = l.now()
		l.mu.Unlock()
		sink.TouchPressed()
	case InputTouchEnd:
		if !l.pressed {
			l.mu.Unlock()
			return
		}
		l.pressed = false
		held := l.now().Sub(l.pressedAt)
		l.mu.Unlock()
		sink.TouchReleased(held)
	default:
		l.mu.Unlock()
	}
}

func (l *Link) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-l.ops:
			for _, f := range op.frames {
				l.writeLogged(f.Appearance)
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.Hold):
				}
			}
			l.mu.Lock()
			steady, ok := l.steady, l.hasSteady
			l.mu.Unlock()
			if ok {
				l.writeLogged(steady)
			}
		}
	}
}

func (l *Link) write(a feedback.Appearance) error {
	l.mu.Lock()
	h := l.handle
	l.mu.Unlock()
	if h == nil {
		return ErrNotConnected
	}
	if _, err := h.Write(EncodeLED(a)); err != nil {
		return fmt.Errorf("failed to write LED report: %w", err)
	}
	return nil
}

func (l *Link) writeLogged(a feedback.Appearance) {
	if err := l.write(a); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Printf("[devicelink] %v", err)
	}
}
