package protectimg

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestRenderSizesSurfaceToNaturalBounds(t *testing.T) {
	base := solidImage(320, 200, color.RGBA{R: 20, G: 20, B: 30, A: 255})
	// A sub-image has a non-zero origin; the surface must still start at 0,0.
	sub := base.SubImage(image.Rect(10, 20, 170, 140))

	surface, err := RenderWatermark(sub)
	if err != nil {
		t.Fatalf("RenderWatermark error: %v", err)
	}
	if got := surface.Bounds(); got != image.Rect(0, 0, 160, 120) {
		t.Fatalf("unexpected surface bounds %v", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r, err := NewRenderer(DefaultPattern())
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	base := solidImage(257, 131, color.RGBA{R: 40, G: 10, B: 60, A: 255})

	first, err := r.Render(base)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.Render(base)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Fatal("identical inputs produced different surfaces")
	}

	other, err := NewRenderer(DefaultPattern())
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	third, err := other.Render(base)
	if err != nil {
		t.Fatalf("third render: %v", err)
	}
	if !bytes.Equal(first.Pix, third.Pix) {
		t.Fatal("separate renderers with the same pattern disagree")
	}
}

func TestRenderPaintsWatermarkAtTileOrigins(t *testing.T) {
	pattern := DefaultPattern()
	r, err := NewRenderer(pattern)
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	base := solidImage(400, 300, color.RGBA{A: 255})

	surface, err := r.Render(base)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	present, score, err := DetectWatermark(base, surface)
	if err != nil {
		t.Fatalf("DetectWatermark error: %v", err)
	}
	if !present {
		t.Fatalf("expected watermark on dark surface, score %.3f", score)
	}

	origins := TileOrigins(400, 300, pattern)
	if len(origins) == 0 {
		t.Fatal("expected tile origins inside the surface")
	}

	const margin = 30
	inner := image.Rect(margin, margin, 400-margin, 300-margin)
	checked := 0
	for _, p := range origins {
		if !p.In(inner) {
			continue
		}
		checked++
		if !RegionChanged(base, surface, p, 20) {
			t.Fatalf("no watermark pixels near tile origin %v", p)
		}
	}
	if checked == 0 {
		t.Fatal("no interior tile origins were sampled")
	}

	// The stamp is white at partial opacity: painted pixels brighten but
	// never saturate.
	for i := 0; i < len(surface.Pix); i += 4 {
		if surface.Pix[i] == 255 {
			t.Fatalf("pixel %d saturated; opacity not applied", i/4)
		}
	}
}

func TestRenderCoversCorners(t *testing.T) {
	base := solidImage(300, 300, color.RGBA{A: 255})
	surface, err := RenderWatermark(base)
	if err != nil {
		t.Fatalf("RenderWatermark error: %v", err)
	}

	corners := []image.Point{{30, 30}, {270, 30}, {30, 270}, {270, 270}}
	for _, p := range corners {
		if !RegionChanged(base, surface, p, 30) {
			t.Fatalf("corner region around %v left unwatermarked", p)
		}
	}
}

func TestRenderZeroOpacityLeavesImageIntact(t *testing.T) {
	pattern := DefaultPattern()
	pattern.Opacity = 0
	r, err := NewRenderer(pattern)
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	base := solidImage(120, 80, color.RGBA{R: 90, G: 20, B: 10, A: 255})

	surface, err := r.Render(base)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !bytes.Equal(surface.Pix, base.Pix) {
		t.Fatal("zero opacity altered the image")
	}
	present, _, err := DetectWatermark(base, surface)
	if err != nil {
		t.Fatalf("DetectWatermark error: %v", err)
	}
	if present {
		t.Fatal("expected no watermark at zero opacity")
	}
}

func TestRenderRejectsInvalidInput(t *testing.T) {
	if _, err := RenderWatermark(nil); err == nil {
		t.Fatal("expected error for nil image")
	}
	if _, err := RenderWatermark(image.NewRGBA(image.Rect(0, 0, 0, 10))); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestNewRendererValidatesPattern(t *testing.T) {
	cases := map[string]func(*WatermarkPattern){
		"empty text":      func(p *WatermarkPattern) { p.Text = "  " },
		"opacity":         func(p *WatermarkPattern) { p.Opacity = 1.2 },
		"horizontal step": func(p *WatermarkPattern) { p.HorizontalPeriod = 0 },
		"vertical step":   func(p *WatermarkPattern) { p.VerticalPeriod = -5 },
		"font size":       func(p *WatermarkPattern) { p.FontSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultPattern()
			mutate(&p)
			if _, err := NewRenderer(p); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDetectWatermarkRejectsMismatchedSizes(t *testing.T) {
	if _, _, err := DetectWatermark(solidImage(10, 10, color.Black), solidImage(10, 11, color.Black)); err == nil {
		t.Fatal("expected size mismatch error")
	}
}
