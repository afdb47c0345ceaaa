package geometry

import (
	"math"

	"github.com/slidectl/slidectl/pkg/errors"
)

// DefaultOverlapEpsilon is the intersection area below which two touching
// rectangles are not counted as overlapping. It filters out sub-pixel
// contact between adjacent elements.
const DefaultOverlapEpsilon = 1e-6

// Rect is an axis-aligned rectangle in slide-local coordinates.
// Width and height must be non-negative; a zero-area rectangle is valid
// and contributes nothing to union area or overlap.
type Rect struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	W float64 `json:"width" bson:"width"`
	H float64 `json:"height" bson:"height"`
}

// Area returns the raw area of the rectangle.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Empty reports whether the rectangle has zero area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Intersect returns the intersection of two rectangles.
// If they do not overlap, the result is empty (zero width or height).
func (r Rect) Intersect(o Rect) Rect {
	x1 := math.Max(r.X, o.X)
	y1 := math.Max(r.Y, o.Y)
	x2 := math.Min(r.X+r.W, o.X+o.W)
	y2 := math.Min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// clip restricts a rectangle to the slide bounds [0,w] x [0,h].
func (r Rect) clip(w, h float64) Rect {
	return r.Intersect(Rect{X: 0, Y: 0, W: w, H: h})
}

// finite reports whether all fields are finite numbers.
func (r Rect) finite() bool {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ValidateRects checks every rectangle for malformed values.
// A rectangle is malformed if it has a negative width or height, or any
// non-finite field. Zero-area rectangles pass.
func ValidateRects(rects []Rect) error {
	for i, r := range rects {
		if !r.finite() {
			return errors.New(errors.ErrCodeInvalidGeometry, "rect %d has non-finite coordinates", i)
		}
		if r.W < 0 || r.H < 0 {
			return errors.New(errors.ErrCodeInvalidGeometry, "rect %d has negative size (%gx%g)", i, r.W, r.H)
		}
	}
	return nil
}

// validateSlide checks the slide dimensions.
func validateSlide(w, h float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || math.IsNaN(h) || math.IsInf(h, 0) {
		return errors.New(errors.ErrCodeInvalidGeometry, "slide size is non-finite (%gx%g)", w, h)
	}
	if w <= 0 || h <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "slide area must be positive, got %gx%g", w, h)
	}
	return nil
}
