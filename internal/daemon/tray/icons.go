package tray

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/mutelink/mutelink/internal/daemon/feedback"
)

const (
	iconSize   = 32
	canvasSize = 128
)

var iconColors = map[feedback.Icon]color.NRGBA{
	feedback.IconDisconnected: {R: 0x8a, G: 0x8a, B: 0x8a, A: 0xff},
	feedback.IconIdle:         {R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
	feedback.IconMuted:        {R: 0xe5, G: 0x3e, B: 0x3e, A: 0xff},
	feedback.IconUnmuted:      {R: 0x22, G: 0xc5, B: 0x5e, A: 0xff},
}

var white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// fillDisc paints a disc of radius r (and inner radius inner, 0 for solid)
// centered on the canvas.
func fillDisc(img *image.NRGBA, r, inner float64, c color.NRGBA) {
	center := float64(canvasSize) / 2
	for y := 0; y < canvasSize; y++ {
		for x := 0; x < canvasSize; x++ {
			dx, dy := float64(x)+0.5-center, float64(y)+0.5-center
			d2 := dx*dx + dy*dy
			if d2 <= r*r && d2 >= inner*inner {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

// renderIcon draws the tray image for an icon state. Rendering happens at
// 4x and is downsampled for smooth edges.
func renderIcon(icon feedback.Icon) image.Image {
	c, ok := iconColors[icon]
	if !ok {
		c = iconColors[feedback.IconDisconnected]
	}
	canvas := imaging.New(canvasSize, canvasSize, color.NRGBA{})

	switch icon {
	case feedback.IconDisconnected:
		fillDisc(canvas, 58, 42, c)
	case feedback.IconMuted:
		fillDisc(canvas, 58, 0, c)
		slash := imaging.Rotate(imaging.New(92, 20, white), 45, color.NRGBA{})
		canvas = imaging.Overlay(canvas, slash, centered(slash), 1.0)
	case feedback.IconUnmuted:
		fillDisc(canvas, 58, 0, c)
		fillDisc(canvas, 18, 0, white)
	default:
		fillDisc(canvas, 58, 0, c)
	}
	return imaging.Resize(canvas, iconSize, iconSize, imaging.Lanczos)
}

func centered(img image.Image) image.Point {
	b := img.Bounds()
	return image.Pt((canvasSize-b.Dx())/2, (canvasSize-b.Dy())/2)
}

// encodeIcon renders icon as PNG bytes for systray.SetIcon.
func encodeIcon(icon feedback.Icon) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, renderIcon(icon), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode %s icon: %w", icon, err)
	}
	return buf.Bytes(), nil
}

// buildIcons renders every icon state once.
func buildIcons() (map[feedback.Icon][]byte, error) {
	icons := make(map[feedback.Icon][]byte, len(feedback.Icons))
	for _, icon := range feedback.Icons {
		data, err := encodeIcon(icon)
		if err != nil {
			return nil, err
		}
		icons[icon] = data
	}
	return icons, nil
}
