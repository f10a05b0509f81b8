package devicelink

import (
	"errors"
	"fmt"
	"time"

	"github.com/sstallion/go-hid"

	"github.com/mutelink/mutelink/internal/models"
)

// Backend finds and opens supported devices.
type Backend interface {
	Enumerate() ([]models.DeviceInfo, error)
	Open(path string) (Handle, error)
}

// Handle is an open device.
type Handle interface {
	// ReadWithTimeout returns 0 bytes and a nil error when nothing arrived.
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// HIDBackend talks to devices through hidapi.
type HIDBackend struct{}

// InitHID initializes hidapi. Failure means the platform offers no HID access
// and the daemon cannot run.
func InitHID() (*HIDBackend, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize HID: %w", err)
	}
	return &HIDBackend{}, nil
}

// Close releases hidapi.
func (b *HIDBackend) Close() error {
	return hid.Exit()
}

// Enumerate lists supported devices that are plugged in.
func (b *HIDBackend) Enumerate() ([]models.DeviceInfo, error) {
	var found []models.DeviceInfo
	for _, vid := range Vendors() {
		err := hid.Enumerate(vid, 0, func(info *hid.DeviceInfo) error {
			if !Supported(info.VendorID, info.ProductID) {
				return nil
			}
			found = append(found, models.DeviceInfo{
				VendorID:  info.VendorID,
				ProductID: info.ProductID,
				Product:   info.ProductStr,
				Path:      info.Path,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate vendor %04x: %w", vid, err)
		}
	}
	return found, nil
}

// Open opens the device at path.
func (b *HIDBackend) Open(path string) (Handle, error) {
	d, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return hidHandle{d}, nil
}

type hidHandle struct {
	*hid.Device
}

func (h hidHandle) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	n, err := h.Device.ReadWithTimeout(p, timeout)
	if errors.Is(err, hid.ErrTimeout) {
		return 0, nil
	}
	return n, err
}
