package devicelink

import (
	"bytes"
	"testing"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		vid, pid uint16
		want     bool
	}{
		{0x20a0, 0x42da, true},
		{0x20a0, 0x42db, true},
		{0x20a0, 0x42dc, false},
		{0x3603, 0x0001, true},
		{0x3603, 0x0004, true},
		{0x3603, 0x0005, false},
		{0x258a, 0x0001, false},
	}
	for _, tt := range tests {
		if got := Supported(tt.vid, tt.pid); got != tt.want {
			t.Errorf("Supported(%04x, %04x) = %v, want %v", tt.vid, tt.pid, got, tt.want)
		}
	}
}

func TestEncodeLED(t *testing.T) {
	tests := []struct {
		name string
		in   feedback.Appearance
		want []byte
	}{
		{"off", feedback.Appearance{Color: feedback.ColorOff, Effect: feedback.EffectSolid}, []byte{0x00, 0x00}},
		{"idle", feedback.PresetIdle.Appearance(), []byte{0x00, 0x14}},
		{"muted", feedback.PresetMutedSolid.Appearance(), []byte{0x00, 0x01}},
		{"muted pulsing", feedback.PresetMutedPulsing.Appearance(), []byte{0x00, 0x31}},
		{"unmuted", feedback.PresetUnmutedSolid.Appearance(), []byte{0x00, 0x02}},
		{"unmuted holding", feedback.PresetUnmutedPulsingFast.Appearance(), []byte{0x00, 0x22}},
		{"white", feedback.Appearance{Color: feedback.ColorWhite, Effect: feedback.EffectSolid}, []byte{0x00, 0x07}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeLED(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeLED() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name   string
		report []byte
		want   InputEvent
		ok     bool
	}{
		{"touch start", []byte{0, 0, 0, 0x04}, InputTouchStart, true},
		{"touch end", []byte{0, 0, 0, 0x02}, InputTouchEnd, true},
		{"touching", []byte{0, 0, 0, 0x01}, InputTouching, true},
		{"idle", []byte{0, 0, 0, 0x00, 0, 0, 0, 0}, InputIdle, true},
		{"short", []byte{0, 0, 0x04}, 0, false},
		{"unknown code", []byte{0, 0, 0, 0x08}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInput(tt.report)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseInput() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
