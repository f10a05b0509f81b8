package devicelink

import "github.com/mutelink/mutelink/internal/daemon/feedback"

// Supported USB identifiers.
const (
	VendorMuteMe     uint16 = 0x20a0
	VendorMuteMeMini uint16 = 0x3603
)

var supportedProducts = map[uint16][]uint16{
	VendorMuteMe:     {0x42da, 0x42db},
	VendorMuteMeMini: {0x0001, 0x0002, 0x0003, 0x0004},
}

// Supported reports whether vid:pid is a known mute button.
func Supported(vid, pid uint16) bool {
	for _, p := range supportedProducts[vid] {
		if p == pid {
			return true
		}
	}
	return false
}

// Vendors returns the vendor IDs to enumerate.
func Vendors() []uint16 {
	return []uint16{VendorMuteMe, VendorMuteMeMini}
}

var effectBits = map[feedback.Effect]byte{
	feedback.EffectSolid:     0x00,
	feedback.EffectDim:       0x10,
	feedback.EffectFastPulse: 0x20,
	feedback.EffectSlowPulse: 0x30,
}

// EncodeLED builds the output report for an LED appearance: a zero report ID
// followed by the color in the low nibble and the effect in the high nibble.
func EncodeLED(a feedback.Appearance) []byte {
	return []byte{0x00, byte(a.Color)&0x0f | effectBits[a.Effect]}
}

// InputEvent is a decoded touch report.
type InputEvent int

// Input events.
const (
	InputIdle InputEvent = iota
	InputTouching
	InputTouchStart
	InputTouchEnd
)

const touchByte = 3

// ParseInput decodes an input report. Reports that are too short or carry an
// unknown code are rejected.
func ParseInput(report []byte) (InputEvent, bool) {
	if len(report) <= touchByte {
		return 0, false
	}
	switch report[touchByte] {
	case 0x00:
		return InputIdle, true
	case 0x01:
		return InputTouching, true
	case 0x02:
		return InputTouchEnd, true
	case 0x04:
		return InputTouchStart, true
	}
	return 0, false
}
