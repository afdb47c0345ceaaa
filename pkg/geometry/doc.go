// Package geometry provides pure rectangle arithmetic for slide measurement.
//
// # Overview
//
// A rendered slide is measured as a set of axis-aligned bounding boxes, one
// per visible element ("ink"). This package turns those boxes into the two
// quantities the quality metrics are built on:
//
//   - [UnionArea]: the deduplicated area covered by ink, clipped to the
//     slide bounds. Drives the whitespace ratio.
//   - [OverlapCount]: the number of element pairs whose boxes intersect
//     beyond a tolerance. Drives the overlap warning.
//
// # Algorithm
//
// UnionArea uses coordinate compression on the x-boundaries and sweeps left
// to right. For each x-strip it merges the y-intervals of the rectangles
// active in that strip and accumulates strip width times merged length.
// This is O(n log n) per strip set and exact to floating tolerance, which
// is sufficient for slide element counts (typically well under a thousand).
// No segment tree is needed at this scale.
//
// OverlapCount is a naive pairwise check. Exactness is the contract here,
// not asymptotic elegance.
//
// All functions are pure: identical inputs yield identical outputs.
package geometry
