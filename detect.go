package protectimg

import (
	"fmt"
	"image"
)

const (
	// Mean per-pixel luma change needed to call a watermark present. The stamp
	// is white at low opacity, so dark imagery moves well above this while a
	// surface identical to its source scores zero.
	detectionLumaThreshold = 0.5
)

// DetectWatermark estimates whether surface carries a watermark relative to
// the base image it was rendered from. The score is the mean absolute luma
// difference between the two, in [0, 255].
//
// Surfaces built from near-white imagery score low because the default stamp
// is white; that is a property of the pattern, not of the detector.
func DetectWatermark(base, surface image.Image) (present bool, score float64, err error) {
	if base == nil || surface == nil {
		return false, 0, fmt.Errorf("nil image provided")
	}

	bb, sb := base.Bounds(), surface.Bounds()
	if bb.Dx() != sb.Dx() || bb.Dy() != sb.Dy() {
		return false, 0, fmt.Errorf("surface %dx%d does not match base %dx%d", sb.Dx(), sb.Dy(), bb.Dx(), bb.Dy())
	}
	if bb.Dx() <= 0 || bb.Dy() <= 0 {
		return false, 0, fmt.Errorf("invalid image dimensions %dx%d", bb.Dx(), bb.Dy())
	}

	var sum float64
	var count int
	for y := 0; y < bb.Dy(); y++ {
		for x := 0; x < bb.Dx(); x++ {
			d := luma(surface, sb.Min.X+x, sb.Min.Y+y) - luma(base, bb.Min.X+x, bb.Min.Y+y)
			if d < 0 {
				d = -d
			}
			sum += d
			count++
		}
	}

	score = sum / float64(count)
	return score > detectionLumaThreshold, score, nil
}

// RegionChanged reports whether any pixel within radius of p differs between
// base and surface. Both images must share the same origin-relative layout.
func RegionChanged(base, surface image.Image, p image.Point, radius int) bool {
	bb, sb := base.Bounds(), surface.Bounds()
	region := image.Rect(p.X-radius, p.Y-radius, p.X+radius+1, p.Y+radius+1).
		Intersect(image.Rect(0, 0, sb.Dx(), sb.Dy()))

	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			if luma(surface, sb.Min.X+x, sb.Min.Y+y) != luma(base, bb.Min.X+x, bb.Min.Y+y) {
				return true
			}
		}
	}
	return false
}

// luma converts the pixel at (x, y) to luma in [0, 255].
func luma(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return 0.2126*float64(r)/257.0 + 0.7152*float64(g)/257.0 + 0.0722*float64(b)/257.0
}
