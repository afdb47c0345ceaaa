package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/slidectl/slidectl/pkg/errors"
)

func TestUnionAreaEmpty(t *testing.T) {
	area, err := UnionArea(nil, 200, 150)
	if err != nil {
		t.Fatalf("UnionArea error: %v", err)
	}
	if area != 0 {
		t.Errorf("UnionArea(nil) = %v, want 0", area)
	}
}

func TestUnionAreaDisjoint(t *testing.T) {
	// Two 50x50 boxes at disjoint positions on a 200x150 slide.
	rects := []Rect{
		{X: 10, Y: 10, W: 50, H: 50},
		{X: 120, Y: 80, W: 50, H: 50},
	}
	area, err := UnionArea(rects, 200, 150)
	if err != nil {
		t.Fatalf("UnionArea error: %v", err)
	}
	if !almostEqual(area, 5000, 1e-9) {
		t.Errorf("UnionArea = %v, want 5000", area)
	}
}

func TestUnionAreaOverlapping(t *testing.T) {
	// Two 50x50 boxes overlapping by 25x25: union = 5000 - 625 = 4375.
	rects := []Rect{
		{X: 10, Y: 10, W: 50, H: 50},
		{X: 35, Y: 35, W: 50, H: 50},
	}
	area, err := UnionArea(rects, 200, 150)
	if err != nil {
		t.Fatalf("UnionArea error: %v", err)
	}
	if !almostEqual(area, 4375, 1e-9) {
		t.Errorf("UnionArea = %v, want 4375", area)
	}
}

func TestUnionAreaClipsToSlide(t *testing.T) {
	tests := []struct {
		name string
		rect Rect
		want float64
	}{
		{"fully inside", Rect{X: 0, Y: 0, W: 10, H: 10}, 100},
		{"hangs off right edge", Rect{X: 95, Y: 0, W: 10, H: 10}, 50},
		{"hangs off top-left", Rect{X: -5, Y: -5, W: 10, H: 10}, 25},
		{"fully outside", Rect{X: 200, Y: 200, W: 10, H: 10}, 0},
		{"degenerate zero area", Rect{X: 10, Y: 10, W: 0, H: 40}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, err := UnionArea([]Rect{tt.rect}, 100, 100)
			if err != nil {
				t.Fatalf("UnionArea error: %v", err)
			}
			if !almostEqual(area, tt.want, 1e-9) {
				t.Errorf("UnionArea = %v, want %v", area, tt.want)
			}
		})
	}
}

func TestUnionAreaInvalidGeometry(t *testing.T) {
	tests := []struct {
		name   string
		rects  []Rect
		slideW float64
		slideH float64
	}{
		{"zero slide width", []Rect{{W: 1, H: 1}}, 0, 100},
		{"negative slide height", []Rect{{W: 1, H: 1}}, 100, -1},
		{"NaN slide width", nil, math.NaN(), 100},
		{"negative rect width", []Rect{{W: -1, H: 1}}, 100, 100},
		{"NaN rect coordinate", []Rect{{X: math.NaN(), W: 1, H: 1}}, 100, 100},
		{"infinite rect height", []Rect{{W: 1, H: math.Inf(1)}}, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnionArea(tt.rects, tt.slideW, tt.slideH)
			if !errors.Is(err, errors.ErrCodeInvalidGeometry) {
				t.Errorf("UnionArea error = %v, want INVALID_GEOMETRY", err)
			}
		})
	}
}

// TestUnionAreaMonotonic verifies that adding rectangles never decreases
// the union area.
func TestUnionAreaMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rects := randomRects(rng, 40, 200, 150)

	prev := 0.0
	for i := 1; i <= len(rects); i++ {
		area, err := UnionArea(rects[:i], 200, 150)
		if err != nil {
			t.Fatalf("UnionArea error at %d rects: %v", i, err)
		}
		if area < prev-1e-9 {
			t.Fatalf("union area decreased from %v to %v after adding rect %d", prev, area, i)
		}
		prev = area
	}
}

// TestUnionAreaAgainstGridOracle checks the sweep against a brute-force
// pixel-grid approximation on random integer-aligned inputs. With
// integer-aligned rectangles the grid count is exact, so the comparison
// holds to floating tolerance.
func TestUnionAreaAgainstGridOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const slideW, slideH = 64, 48

	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(12)
		rects := make([]Rect, n)
		for i := range rects {
			x := rng.Intn(slideW)
			y := rng.Intn(slideH)
			rects[i] = Rect{
				X: float64(x),
				Y: float64(y),
				W: float64(rng.Intn(slideW - x)),
				H: float64(rng.Intn(slideH - y)),
			}
		}

		got, err := UnionArea(rects, slideW, slideH)
		if err != nil {
			t.Fatalf("trial %d: UnionArea error: %v", trial, err)
		}
		want := gridUnionArea(rects, slideW, slideH)
		if !almostEqual(got, want, 1e-6) {
			t.Errorf("trial %d: sweep = %v, grid oracle = %v, rects = %v", trial, got, want, rects)
		}
	}
}

// gridUnionArea is the O(n * pixels) reference oracle: mark every unit cell
// covered by any rectangle and count them.
func gridUnionArea(rects []Rect, slideW, slideH int) float64 {
	covered := make([]bool, slideW*slideH)
	for _, r := range rects {
		x1, y1 := int(r.X), int(r.Y)
		x2, y2 := int(r.X+r.W), int(r.Y+r.H)
		for y := max(y1, 0); y < min(y2, slideH); y++ {
			for x := max(x1, 0); x < min(x2, slideW); x++ {
				covered[y*slideW+x] = true
			}
		}
	}
	count := 0
	for _, c := range covered {
		if c {
			count++
		}
	}
	return float64(count)
}

func randomRects(rng *rand.Rand, n int, slideW, slideH float64) []Rect {
	rects := make([]Rect, n)
	for i := range rects {
		x := rng.Float64() * slideW * 0.9
		y := rng.Float64() * slideH * 0.9
		rects[i] = Rect{
			X: x,
			Y: y,
			W: rng.Float64() * (slideW - x),
			H: rng.Float64() * (slideH - y),
		}
	}
	return rects
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
