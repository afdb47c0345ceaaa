package geometry

import "testing"

func TestOverlapCount(t *testing.T) {
	tests := []struct {
		name    string
		rects   []Rect
		epsilon float64
		want    int
	}{
		{
			name: "empty",
			want: 0,
		},
		{
			name:  "disjoint pair",
			rects: []Rect{{X: 10, Y: 10, W: 50, H: 50}, {X: 120, Y: 80, W: 50, H: 50}},
			want:  0,
		},
		{
			name:  "overlapping pair",
			rects: []Rect{{X: 10, Y: 10, W: 50, H: 50}, {X: 35, Y: 35, W: 50, H: 50}},
			want:  1,
		},
		{
			name: "three mutually overlapping",
			rects: []Rect{
				{X: 0, Y: 0, W: 20, H: 20},
				{X: 10, Y: 10, W: 20, H: 20},
				{X: 5, Y: 5, W: 20, H: 20},
			},
			want: 3,
		},
		{
			name:  "edge touching is not overlap",
			rects: []Rect{{X: 0, Y: 0, W: 10, H: 10}, {X: 10, Y: 0, W: 10, H: 10}},
			want:  0,
		},
		{
			name:    "sub-epsilon contact filtered",
			rects:   []Rect{{X: 0, Y: 0, W: 10, H: 10}, {X: 9.999, Y: 0, W: 10, H: 10}},
			epsilon: 0.5,
			want:    0,
		},
		{
			name:    "above-epsilon overlap counted",
			rects:   []Rect{{X: 0, Y: 0, W: 10, H: 10}, {X: 9, Y: 0, W: 10, H: 10}},
			epsilon: 0.5,
			want:    1,
		},
		{
			name:  "degenerate rect never overlaps",
			rects: []Rect{{X: 0, Y: 0, W: 0, H: 10}, {X: 0, Y: 0, W: 10, H: 10}},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlapCount(tt.rects, tt.epsilon); got != tt.want {
				t.Errorf("OverlapCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}

	got := a.Intersect(b)
	want := Rect{X: 5, Y: 5, W: 5, H: 5}
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}

	// Commutative
	if b.Intersect(a) != want {
		t.Error("Intersect is not commutative")
	}

	// Disjoint yields empty
	c := Rect{X: 100, Y: 100, W: 1, H: 1}
	if !a.Intersect(c).Empty() {
		t.Error("disjoint intersection should be empty")
	}
}

func TestValidateRects(t *testing.T) {
	if err := ValidateRects([]Rect{{W: 0, H: 0}, {X: 1, Y: 1, W: 2, H: 3}}); err != nil {
		t.Errorf("valid rects rejected: %v", err)
	}
	if err := ValidateRects([]Rect{{W: 1, H: -2}}); err == nil {
		t.Error("negative height accepted")
	}
}
