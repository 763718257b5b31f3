// Package geometry provides normalized-rectangle math shared by the
// annotation draft, the validation queue overlays and the crop renderer.
package geometry

import "math"

// Rect is an axis-aligned rectangle with all components normalized to
// [0, 1]. Whether it is relative to the full image or to the shark crop
// depends on the field that owns it; the type itself does not say.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FromCorners builds the rectangle spanned by two drag endpoints,
// regardless of drag direction. Inputs are expected to be normalized
// already; the result is clamped to [0, 1] component-wise.
func FromCorners(ax, ay, bx, by float64) Rect {
	return Rect{
		X: Clamp01(math.Min(ax, bx)),
		Y: Clamp01(math.Min(ay, by)),
		W: Clamp01(math.Abs(bx - ax)),
		H: Clamp01(math.Abs(by - ay)),
	}
}

// ToImageSpace converts a zone rectangle expressed relative to the
// shark crop into full-image coordinates. The inverse mapping is never
// needed: zone rectangles are drawn on the crop and persisted
// crop-relative; this conversion exists for read-only overlays.
func ToImageSpace(zone, shark Rect) Rect {
	return Rect{
		X: shark.X + zone.X*shark.W,
		Y: shark.Y + zone.Y*shark.H,
		W: zone.W * shark.W,
		H: zone.H * shark.H,
	}
}

// PixelBounds maps r onto an image of the given pixel dimensions and
// returns the integer bounds, clamped to the image.
func (r Rect) PixelBounds(width, height int) (x0, y0, x1, y1 int) {
	x0 = int(math.Round(r.X * float64(width)))
	y0 = int(math.Round(r.Y * float64(height)))
	x1 = int(math.Round((r.X + r.W) * float64(width)))
	y1 = int(math.Round((r.Y + r.H) * float64(height)))

	x0 = clampInt(x0, 0, width)
	y0 = clampInt(y0, 0, height)
	x1 = clampInt(x1, x0, width)
	y1 = clampInt(y1, y0, height)
	return x0, y0, x1, y1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
