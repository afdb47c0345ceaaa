package geometry

import "sort"

// UnionArea computes the area of the union of the given rectangles, clipped
// to the slide bounds [0,slideW] x [0,slideH].
//
// The sweep runs over the compressed set of x-boundaries. For each x-strip
// it merges the y-intervals of the rectangles active in that strip; the
// strip contributes (strip width) * (merged interval length).
//
// An empty input yields 0. Zero or negative slide dimensions, or a
// malformed rectangle, yield an INVALID_GEOMETRY error.
func UnionArea(rects []Rect, slideW, slideH float64) (float64, error) {
	if err := validateSlide(slideW, slideH); err != nil {
		return 0, err
	}
	if err := ValidateRects(rects); err != nil {
		return 0, err
	}

	// Clip to the slide and drop empty rectangles; they contribute nothing.
	clipped := make([]Rect, 0, len(rects))
	for _, r := range rects {
		c := r.clip(slideW, slideH)
		if !c.Empty() {
			clipped = append(clipped, c)
		}
	}
	if len(clipped) == 0 {
		return 0, nil
	}

	// Coordinate-compress the x boundaries.
	xs := make([]float64, 0, 2*len(clipped))
	for _, r := range clipped {
		xs = append(xs, r.X, r.X+r.W)
	}
	sort.Float64s(xs)
	xs = dedupe(xs)

	var area float64
	ys := make([]interval, 0, len(clipped))
	for i := 0; i+1 < len(xs); i++ {
		xa, xb := xs[i], xs[i+1]
		if xb <= xa {
			continue
		}

		// Collect y-intervals of rectangles active on this strip.
		ys = ys[:0]
		for _, r := range clipped {
			if r.X < xb && r.X+r.W > xa {
				ys = append(ys, interval{lo: r.Y, hi: r.Y + r.H})
			}
		}
		area += (xb - xa) * mergedLength(ys)
	}
	return area, nil
}

// interval is a half-open y-interval [lo, hi).
type interval struct {
	lo, hi float64
}

// mergedLength returns the total length covered by the intervals.
// It sorts in place and merges overlapping or touching intervals.
func mergedLength(ivals []interval) float64 {
	if len(ivals) == 0 {
		return 0
	}
	sort.Slice(ivals, func(i, j int) bool {
		if ivals[i].lo != ivals[j].lo {
			return ivals[i].lo < ivals[j].lo
		}
		return ivals[i].hi < ivals[j].hi
	})

	var total float64
	cur := ivals[0]
	for _, iv := range ivals[1:] {
		if iv.lo > cur.hi {
			total += cur.hi - cur.lo
			cur = iv
			continue
		}
		if iv.hi > cur.hi {
			cur.hi = iv.hi
		}
	}
	total += cur.hi - cur.lo
	return total
}

// dedupe removes adjacent duplicates from a sorted slice.
func dedupe(xs []float64) []float64 {
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
