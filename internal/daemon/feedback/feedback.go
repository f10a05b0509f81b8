// Package feedback maps coordinator state to LED presets and tray icon states.
// Everything here is a pure function of its inputs.
package feedback

import (
	"time"

	"github.com/mutelink/mutelink/internal/models"
)

// Color is an LED color understood by the device.
type Color uint8

// LED colors, in device order.
const (
	ColorOff Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorPurple
	ColorCyan
	ColorWhite
)

var colorNames = [...]string{"off", "red", "green", "yellow", "blue", "purple", "cyan", "white"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "invalid"
}

// Effect is an LED brightness/animation effect.
type Effect uint8

// LED effects.
const (
	EffectSolid Effect = iota
	EffectDim
	EffectFastPulse
	EffectSlowPulse
)

var effectNames = [...]string{"solid", "dim", "fast_pulse", "slow_pulse"}

func (e Effect) String() string {
	if int(e) < len(effectNames) {
		return effectNames[e]
	}
	return "invalid"
}

// Appearance is one LED command: a color and an effect.
type Appearance struct {
	Color  Color
	Effect Effect
}

// Frame is one step of an LED animation.
type Frame struct {
	Appearance Appearance
	Hold       time.Duration
}

// Preset is the steady-state LED feedback for a coordinator state.
type Preset int

// LED presets.
const (
	PresetOff Preset = iota
	PresetIdle
	PresetMutedSolid
	PresetMutedPulsing
	PresetUnmutedSolid
	PresetUnmutedPulsingFast
)

var presetNames = map[Preset]string{
	PresetOff:                "off",
	PresetIdle:               "idle",
	PresetMutedSolid:         "muted",
	PresetMutedPulsing:       "muted_hold_ready",
	PresetUnmutedSolid:       "unmuted",
	PresetUnmutedPulsingFast: "unmuted_holding",
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return "invalid"
}

var presetAppearance = map[Preset]Appearance{
	PresetOff:                {ColorOff, EffectSolid},
	PresetIdle:               {ColorBlue, EffectDim},
	PresetMutedSolid:         {ColorRed, EffectSolid},
	PresetMutedPulsing:       {ColorRed, EffectSlowPulse},
	PresetUnmutedSolid:       {ColorGreen, EffectSolid},
	PresetUnmutedPulsingFast: {ColorGreen, EffectFastPulse},
}

// Appearance returns the LED command for the preset.
func (p Preset) Appearance() Appearance {
	return presetAppearance[p]
}

// Icon is the tray icon / badge state.
type Icon int

// Icon states.
const (
	IconDisconnected Icon = iota
	IconIdle
	IconMuted
	IconUnmuted
)

var iconNames = [...]string{"disconnected", "idle", "muted", "unmuted"}

func (i Icon) String() string {
	if int(i) >= 0 && int(i) < len(iconNames) {
		return iconNames[i]
	}
	return "invalid"
}

// Icons lists every icon state, for renderers that pre-build their images.
var Icons = []Icon{IconDisconnected, IconIdle, IconMuted, IconUnmuted}

// Inputs is the projection of coordinator state that feedback depends on.
type Inputs struct {
	DeviceConnected bool
	InCall          bool
	Muted           *bool
	Mode            models.InteractionMode
	Holding         bool
}

// LED computes the steady-state LED preset.
func LED(in Inputs) Preset {
	switch {
	case !in.DeviceConnected:
		return PresetOff
	case !in.InCall || in.Muted == nil:
		return PresetIdle
	case *in.Muted:
		if in.Mode == models.ModeToggle {
			return PresetMutedSolid
		}
		return PresetMutedPulsing
	case in.Holding:
		return PresetUnmutedPulsingFast
	default:
		return PresetUnmutedSolid
	}
}

// IconFor computes the tray icon state.
func IconFor(in Inputs) Icon {
	switch {
	case !in.DeviceConnected:
		return IconDisconnected
	case !in.InCall || in.Muted == nil:
		return IconIdle
	case *in.Muted:
		return IconMuted
	default:
		return IconUnmuted
	}
}

// Output is everything derived from one state.
type Output struct {
	LED  Preset
	Icon Icon
}

// Compute derives the full feedback output.
func Compute(in Inputs) Output {
	return Output{LED: LED(in), Icon: IconFor(in)}
}

// ConnectAnimation is played once when the device (re)connects.
var ConnectAnimation = []Frame{
	{Appearance{ColorPurple, EffectSolid}, 150 * time.Millisecond},
	{Appearance{ColorOff, EffectSolid}, 150 * time.Millisecond},
	{Appearance{ColorPurple, EffectSolid}, 150 * time.Millisecond},
	{Appearance{ColorOff, EffectSolid}, 150 * time.Millisecond},
}

// NoCallAnimation acknowledges a press while no call is active.
var NoCallAnimation = []Frame{
	{Appearance{ColorYellow, EffectSolid}, 200 * time.Millisecond},
}
