package protectimg

import (
	"fmt"
	"image"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Renderer paints decoded bitmaps onto pixel surfaces and tiles the watermark
// pattern across them. The text stamp is rasterized lazily and reused, so a
// Renderer is safe for concurrent use once constructed.
type Renderer struct {
	pattern WatermarkPattern

	once     sync.Once
	stamp    *image.RGBA
	ascent   int
	stampErr error
}

// NewRenderer constructs a Renderer for the given pattern.
func NewRenderer(pattern WatermarkPattern) (*Renderer, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{pattern: pattern}, nil
}

var defaultRenderer struct {
	once sync.Once
	r    *Renderer
}

// RenderWatermark applies the default pattern to the provided image.
func RenderWatermark(img image.Image) (*image.RGBA, error) {
	defaultRenderer.once.Do(func() {
		defaultRenderer.r = &Renderer{pattern: DefaultPattern()}
	})

	return defaultRenderer.r.Render(img)
}

// Pattern returns the watermark pattern this renderer applies.
func (r *Renderer) Pattern() WatermarkPattern {
	return r.pattern
}

// Render copies img onto a new surface sized to its natural bounds and paints
// the watermark tiles over it. Identical inputs yield identical surfaces.
func (r *Renderer) Render(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image provided")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	stamp, ascent, err := r.getStamp()
	if err != nil {
		return nil, err
	}

	// draw.Src replaces every destination pixel, which doubles as the clear.
	surface := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(surface, surface.Bounds(), img, bounds.Min, draw.Src)

	sin, cos := math.Sincos(r.pattern.RotationDegrees * math.Pi / 180)
	forEachTile(width, height, r.pattern, func(x, y int) {
		// The stamp's top edge sits one ascent above the baseline at (x, y).
		tx, ty := float64(x), float64(y-ascent)
		m := f64.Aff3{
			cos, -sin, cos*tx - sin*ty,
			sin, cos, sin*tx + cos*ty,
		}
		draw.ApproxBiLinear.Transform(surface, m, stamp, stamp.Bounds(), draw.Over, nil)
	})

	return surface, nil
}

// TileOrigins lists the device-space baseline anchors of every watermark tile
// that lands inside a width x height surface.
func TileOrigins(width, height int, pattern WatermarkPattern) []image.Point {
	if width <= 0 || height <= 0 || pattern.HorizontalPeriod <= 0 || pattern.VerticalPeriod <= 0 {
		return nil
	}

	bounds := image.Rect(0, 0, width, height)
	sin, cos := math.Sincos(pattern.RotationDegrees * math.Pi / 180)

	var points []image.Point
	forEachTile(width, height, pattern, func(x, y int) {
		fx, fy := float64(x), float64(y)
		p := image.Point{
			X: int(math.Round(cos*fx - sin*fy)),
			Y: int(math.Round(sin*fx + cos*fy)),
		}
		if p.In(bounds) {
			points = append(points, p)
		}
	})
	return points
}

// forEachTile walks the rotated coordinate grid. The range over-scans the
// surface so the rotated grid still reaches every corner.
func forEachTile(width, height int, pattern WatermarkPattern, fn func(x, y int)) {
	for x := -height; x < 2*width; x += pattern.HorizontalPeriod {
		for y := -height; y < 2*height; y += pattern.VerticalPeriod {
			fn(x, y)
		}
	}
}

// getStamp lazily rasterizes the watermark text once per renderer.
func (r *Renderer) getStamp() (*image.RGBA, int, error) {
	r.once.Do(func() {
		r.stamp, r.ascent, r.stampErr = rasterizeStamp(r.pattern)
	})
	return r.stamp, r.ascent, r.stampErr
}

// rasterizeStamp draws the pattern text onto a tight transparent bitmap. The
// pattern opacity is baked into the stamp's alpha.
func rasterizeStamp(pattern WatermarkPattern) (*image.RGBA, int, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, 0, fmt.Errorf("parse watermark font: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    pattern.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create watermark face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	d := &font.Drawer{Face: face}
	advance := d.MeasureString(pattern.Text).Ceil()
	if advance <= 0 || ascent+descent <= 0 {
		return nil, 0, fmt.Errorf("watermark text %q has no extent", pattern.Text)
	}

	c := pattern.Color
	c.A = uint8(math.Round(pattern.Opacity * float64(c.A)))

	stamp := image.NewRGBA(image.Rect(0, 0, advance, ascent+descent))
	d.Dst = stamp
	d.Src = image.NewUniform(c)
	d.Dot = fixed.P(0, ascent)
	d.DrawString(pattern.Text)

	return stamp, ascent, nil
}
