// Package metrics turns per-slide geometry into quality metrics and
// threshold classifications.
//
// For each slide the aggregator computes:
//
//   - density: summed raw rectangle area divided by slide area. Raw sums
//     intentionally double-count overlapping glyphs; crowding is the signal.
//   - whitespace ratio: one minus the union (deduplicated) ink coverage.
//   - overlap count: element pairs intersecting beyond a tolerance.
//
// Each metric is classified against a threshold range, producing warning
// codes. A slide with an actionable warning is NG and feeds the patch
// generator; informational warnings are reported but do not block
// convergence. The per-iteration result is a [Scorecard].
package metrics

import (
	"github.com/slidectl/slidectl/pkg/geometry"
)

// ScorecardVersion is the version tag written to scorecard JSON.
const ScorecardVersion = "1.0"

// Warning codes attached to slide metrics.
const (
	// WarnDense: density above the allowed range. Actionable (density_high).
	WarnDense = "dense"
	// WarnSparse: density below the allowed range. Informational only.
	WarnSparse = "sparse"
	// WarnWhitespace: whitespace ratio above the allowed range. Actionable (whitespace_high).
	WarnWhitespace = "whitespace"
	// WarnCrowded: whitespace ratio below the allowed range. Informational only.
	WarnCrowded = "crowded"
	// WarnOverlap: at least one element pair overlaps. Actionable (overlap_present).
	WarnOverlap = "overlap"
	// WarnOverfull: summed ink area exceeds the slide area. Informational only;
	// pathological input, not an error.
	WarnOverfull = "overfull"
)

// SlideGeometry is the raw measurement of one rendered slide: its bounds
// and the bounding boxes of every ink element. Title and bullets are
// carried along for patch keyword derivation.
type SlideGeometry struct {
	SlideID     string          `json:"slide_id" bson:"slide_id"`
	PageIndex   int             `json:"page_index" bson:"page_index"`
	SlideWidth  float64         `json:"width" bson:"width"`
	SlideHeight float64         `json:"height" bson:"height"`
	Boxes       []geometry.Rect `json:"boxes" bson:"boxes"`
	Title       string          `json:"title,omitempty" bson:"title,omitempty"`
	Bullets     []string        `json:"bullets,omitempty" bson:"bullets,omitempty"`
}

// SlideMetrics is the derived, immutable measurement record for one slide.
// Recomputing from the same geometry and thresholds yields an identical value.
type SlideMetrics struct {
	SlideID         string   `json:"slide_id" bson:"slide_id"`
	PageIndex       int      `json:"page_index" bson:"page_index"`
	Density         float64  `json:"density" bson:"density"`
	WhitespaceRatio float64  `json:"whitespace_ratio" bson:"whitespace_ratio"`
	Overlaps        int      `json:"overlaps" bson:"overlaps"`
	Warnings        []string `json:"warnings" bson:"warnings"`
}

// NG reports whether the slide fails classification. Only actionable
// warnings count: informational codes (sparse, crowded, overfull) have no
// corrective patch, so they never block convergence.
func (m SlideMetrics) NG() bool {
	for _, w := range m.Warnings {
		switch w {
		case WarnOverlap, WarnDense, WarnWhitespace:
			return true
		}
	}
	return false
}

// HasWarning reports whether the given warning code is present.
func (m SlideMetrics) HasWarning(code string) bool {
	for _, w := range m.Warnings {
		if w == code {
			return true
		}
	}
	return false
}

// Thresholds holds the allowed [lo, hi] ranges for density and whitespace.
type Thresholds struct {
	Density    [2]float64 `json:"density" bson:"density"`
	Whitespace [2]float64 `json:"whitespace" bson:"whitespace"`
}

// DefaultThresholds returns the stock policy ranges.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Density:    [2]float64{0.012, 0.018},
		Whitespace: [2]float64{0.15, 0.40},
	}
}

// Scorecard is the classification result for one iteration. It is owned by
// the convergence controller for the duration of that iteration and is
// superseded, never mutated, by the next iteration's scorecard.
type Scorecard struct {
	Version    string         `json:"version" bson:"version"`
	Thresholds Thresholds     `json:"thresholds" bson:"thresholds"`
	Iteration  int            `json:"iteration" bson:"iteration"`
	Slides     []SlideMetrics `json:"slides" bson:"slides"`
}

// Converged reports whether every slide in the scorecard passed.
func (s *Scorecard) Converged() bool {
	for _, m := range s.Slides {
		if m.NG() {
			return false
		}
	}
	return true
}

// Failing returns the metrics of every NG slide, in scorecard order.
func (s *Scorecard) Failing() []SlideMetrics {
	var out []SlideMetrics
	for _, m := range s.Slides {
		if m.NG() {
			out = append(out, m)
		}
	}
	return out
}

// Slide returns the metrics for the given slide ID, if present.
func (s *Scorecard) Slide(id string) (SlideMetrics, bool) {
	for _, m := range s.Slides {
		if m.SlideID == id {
			return m, true
		}
	}
	return SlideMetrics{}, false
}

// Compute measures a single slide against the thresholds. It is a pure
// function of its inputs; epsilon ≤ 0 selects the default overlap tolerance.
func Compute(geom SlideGeometry, th Thresholds, epsilon float64) (SlideMetrics, error) {
	union, err := geometry.UnionArea(geom.Boxes, geom.SlideWidth, geom.SlideHeight)
	if err != nil {
		return SlideMetrics{}, err
	}

	slideArea := geom.SlideWidth * geom.SlideHeight

	// Density sums raw areas, pre-union: overlapping glyphs double-count on
	// purpose, so density has no upper bound.
	var ink float64
	for _, r := range geom.Boxes {
		ink += r.Area()
	}

	m := SlideMetrics{
		SlideID:         geom.SlideID,
		PageIndex:       geom.PageIndex,
		Density:         ink / slideArea,
		WhitespaceRatio: 1 - union/slideArea,
		Overlaps:        geometry.OverlapCount(geom.Boxes, epsilon),
		Warnings:        []string{},
	}
	m.Warnings = classify(m, th)
	return m, nil
}

// classify returns the warning codes for the given metrics, in a fixed
// order so repeated runs produce identical scorecards.
func classify(m SlideMetrics, th Thresholds) []string {
	warnings := []string{}
	if m.Overlaps > 0 {
		warnings = append(warnings, WarnOverlap)
	}
	if m.Density > th.Density[1] {
		warnings = append(warnings, WarnDense)
	} else if m.Density < th.Density[0] {
		warnings = append(warnings, WarnSparse)
	}
	if m.WhitespaceRatio > th.Whitespace[1] {
		warnings = append(warnings, WarnWhitespace)
	} else if m.WhitespaceRatio < th.Whitespace[0] {
		warnings = append(warnings, WarnCrowded)
	}
	if m.Density > 1 {
		warnings = append(warnings, WarnOverfull)
	}
	return warnings
}
