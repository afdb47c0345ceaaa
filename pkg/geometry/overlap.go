package geometry

// OverlapCount counts unordered pairs of rectangles whose intersection area
// exceeds epsilon. Pass a non-positive epsilon to use
// [DefaultOverlapEpsilon].
//
// The check is a plain O(n²) pairwise scan. At slide element counts this is
// faster in practice than maintaining a sweep-line active set, and the
// exact pair count is the contract.
func OverlapCount(rects []Rect, epsilon float64) int {
	if epsilon <= 0 {
		epsilon = DefaultOverlapEpsilon
	}

	count := 0
	for i := 0; i < len(rects); i++ {
		if rects[i].Empty() {
			continue
		}
		for j := i + 1; j < len(rects); j++ {
			if rects[j].Empty() {
				continue
			}
			if rects[i].Intersect(rects[j]).Area() > epsilon {
				count++
			}
		}
	}
	return count
}
