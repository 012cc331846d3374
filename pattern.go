package protectimg

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// Default watermark settings.
const (
	DefaultWatermarkText     = "© protected"
	DefaultWatermarkOpacity  = 0.2
	DefaultRotationDegrees   = -45.0
	DefaultHorizontalPeriod  = 100
	DefaultVerticalPeriod    = 50
	DefaultWatermarkFontSize = 20.0
)

// WatermarkPattern describes the tiled text stamp painted over a surface.
type WatermarkPattern struct {
	Text             string
	Opacity          float64
	RotationDegrees  float64
	HorizontalPeriod int
	VerticalPeriod   int
	// FontSize is in points at 72 DPI, so one point maps to one pixel.
	FontSize float64
	Color    color.NRGBA
}

// DefaultPattern returns the stock watermark: white "© protected" at 20%
// opacity, rotated -45 degrees on a 100x50 pixel grid.
func DefaultPattern() WatermarkPattern {
	return WatermarkPattern{
		Text:             DefaultWatermarkText,
		Opacity:          DefaultWatermarkOpacity,
		RotationDegrees:  DefaultRotationDegrees,
		HorizontalPeriod: DefaultHorizontalPeriod,
		VerticalPeriod:   DefaultVerticalPeriod,
		FontSize:         DefaultWatermarkFontSize,
		Color:            color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
}

// Validate reports whether the pattern can be rendered.
func (p WatermarkPattern) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return errors.New("watermark text must not be empty")
	}
	if p.Opacity < 0 || p.Opacity > 1 {
		return fmt.Errorf("watermark opacity %.3f outside [0, 1]", p.Opacity)
	}
	if p.HorizontalPeriod <= 0 || p.VerticalPeriod <= 0 {
		return fmt.Errorf("watermark periods must be positive, got %dx%d", p.HorizontalPeriod, p.VerticalPeriod)
	}
	if p.FontSize <= 0 {
		return fmt.Errorf("watermark font size must be positive, got %.2f", p.FontSize)
	}
	return nil
}
