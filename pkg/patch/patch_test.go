package patch

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/slidectl/slidectl/pkg/metrics"
)

func TestPrimaryReasonPriority(t *testing.T) {
	tests := []struct {
		name     string
		warnings []string
		want     string
		ok       bool
	}{
		{"overlap only", []string{metrics.WarnOverlap}, ReasonOverlap, true},
		{"dense only", []string{metrics.WarnDense}, ReasonDensityHigh, true},
		{"whitespace only", []string{metrics.WarnWhitespace}, ReasonWhitespaceHigh, true},
		{"overlap beats dense", []string{metrics.WarnDense, metrics.WarnOverlap}, ReasonOverlap, true},
		{"overlap beats whitespace", []string{metrics.WarnOverlap, metrics.WarnWhitespace}, ReasonOverlap, true},
		{"dense beats whitespace", []string{metrics.WarnWhitespace, metrics.WarnDense}, ReasonDensityHigh, true},
		{"sparse never selects", []string{metrics.WarnSparse}, "", false},
		{"overfull never selects", []string{metrics.WarnOverfull}, "", false},
		{"no warnings", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.SlideMetrics{SlideID: "s1", Warnings: tt.warnings}
			got, ok := PrimaryReason(m)
			if got != tt.want || ok != tt.ok {
				t.Errorf("PrimaryReason = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPatchOverlap(t *testing.T) {
	g := NewGenerator(metrics.DefaultThresholds())
	m := metrics.SlideMetrics{
		SlideID:  "s3",
		Density:  0.025,
		Overlaps: 2,
		Warnings: []string{metrics.WarnOverlap, metrics.WarnDense},
	}

	// Overlap wins over dense per the priority rule; the patch carries
	// shorten+split, not the whitespace actions.
	p, ok := g.Patch(m, metrics.SlideGeometry{SlideID: "s3"}, []string{"s1", "s2", "s3"})
	if !ok {
		t.Fatal("expected a patch")
	}
	if p.Reason != ReasonOverlap {
		t.Errorf("Reason = %q, want %q", p.Reason, ReasonOverlap)
	}
	if len(p.Actions) != 2 || p.Actions[0].Type != ActionShorten || p.Actions[1].Type != ActionSplit {
		t.Fatalf("Actions = %+v, want [shorten, split]", p.Actions)
	}
	if p.Actions[0].Limit != 18 {
		t.Errorf("shorten limit = %d, want 18", p.Actions[0].Limit)
	}
	if p.Actions[1].Suffix != "s3-a" {
		t.Errorf("split suffix = %q, want s3-a", p.Actions[1].Suffix)
	}
}

func TestPatchDensityHigh(t *testing.T) {
	th := metrics.DefaultThresholds() // density hi = 0.018
	g := NewGenerator(th)

	t.Run("moderate excess shortens only", func(t *testing.T) {
		m := metrics.SlideMetrics{SlideID: "s1", Density: 0.020, Warnings: []string{metrics.WarnDense}}
		p, _ := g.Patch(m, metrics.SlideGeometry{}, []string{"s1"})
		if p.Reason != ReasonDensityHigh {
			t.Errorf("Reason = %q", p.Reason)
		}
		if len(p.Actions) != 1 || p.Actions[0].Type != ActionShorten {
			t.Fatalf("Actions = %+v, want [shorten]", p.Actions)
		}
	})

	t.Run("excess beyond 1.5x adds split", func(t *testing.T) {
		m := metrics.SlideMetrics{SlideID: "s1", Density: 0.030, Warnings: []string{metrics.WarnDense}}
		p, _ := g.Patch(m, metrics.SlideGeometry{}, []string{"s1"})
		if len(p.Actions) != 2 || p.Actions[1].Type != ActionSplit {
			t.Fatalf("Actions = %+v, want [shorten, split]", p.Actions)
		}
	})
}

func TestPatchWhitespaceHigh(t *testing.T) {
	g := NewGenerator(metrics.DefaultThresholds())
	m := metrics.SlideMetrics{SlideID: "s2", WhitespaceRatio: 0.8, Warnings: []string{metrics.WarnWhitespace}}
	geom := metrics.SlideGeometry{
		SlideID: "s2",
		Title:   "Quarterly Revenue Outlook",
		Bullets: []string{"Growth in APAC region", "New pricing model"},
	}

	p, ok := g.Patch(m, geom, []string{"s1", "s2"})
	if !ok {
		t.Fatal("expected a patch")
	}
	if p.Reason != ReasonWhitespaceHigh {
		t.Errorf("Reason = %q, want %q", p.Reason, ReasonWhitespaceHigh)
	}
	if len(p.Actions) != 2 || p.Actions[0].Type != ActionAugmentText || p.Actions[1].Type != ActionAddSVG {
		t.Fatalf("Actions = %+v, want [augment_text, add_svg]", p.Actions)
	}
	if p.Actions[0].InsertLines != 3 {
		t.Errorf("insert_lines = %d, want 3", p.Actions[0].InsertLines)
	}
	if p.Actions[1].Role != "diagram" {
		t.Errorf("role = %q, want diagram", p.Actions[1].Role)
	}
	want := []string{"quarterly", "revenue", "outlook", "growth", "apac"}
	if len(p.Actions[1].Keywords) != len(want) {
		t.Fatalf("keywords = %v, want %v", p.Actions[1].Keywords, want)
	}
	for i, k := range want {
		if p.Actions[1].Keywords[i] != k {
			t.Fatalf("keywords = %v, want %v", p.Actions[1].Keywords, want)
		}
	}
}

func TestSplitSuffixSkipsTakenIDs(t *testing.T) {
	got := splitSuffix("s3", []string{"s3", "s3-a", "s3-b"})
	if got != "s3-c" {
		t.Errorf("splitSuffix = %q, want s3-c", got)
	}
}

func TestPatchDeterministic(t *testing.T) {
	g := NewGenerator(metrics.DefaultThresholds())
	m := metrics.SlideMetrics{
		SlideID:         "s7",
		Density:         0.05,
		WhitespaceRatio: 0.1,
		Overlaps:        1,
		Warnings:        []string{metrics.WarnOverlap, metrics.WarnDense},
	}
	geom := metrics.SlideGeometry{SlideID: "s7", Title: "Title Words Here"}
	ids := []string{"s1", "s7"}

	first, _ := g.Patch(m, geom, ids)
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	// Identical input always yields byte-identical output.
	for i := 0; i < 20; i++ {
		p, _ := g.Patch(m, geom, ids)
		pJSON, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		if !bytes.Equal(firstJSON, pJSON) {
			t.Fatalf("patch not deterministic:\n%s\n%s", firstJSON, pJSON)
		}
	}
}

func TestBuildPatchSet(t *testing.T) {
	g := NewGenerator(metrics.DefaultThresholds())
	card := &metrics.Scorecard{
		Version:   metrics.ScorecardVersion,
		Iteration: 2,
		Slides: []metrics.SlideMetrics{
			{SlideID: "s1", Warnings: []string{}},
			{SlideID: "s2", Warnings: []string{metrics.WarnDense}, Density: 0.02},
			{SlideID: "s3", Warnings: []string{metrics.WarnSparse}},
			{SlideID: "s4", Warnings: []string{metrics.WarnWhitespace}, WhitespaceRatio: 0.9},
		},
	}
	geoms := []metrics.SlideGeometry{
		{SlideID: "s1"}, {SlideID: "s2"}, {SlideID: "s3"}, {SlideID: "s4", Title: "Closing Notes"},
	}

	ps := g.Build(card, geoms)
	if ps.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", ps.Iteration)
	}
	// Only NG slides with actionable warnings appear.
	if len(ps.Patches) != 2 {
		t.Fatalf("Patches = %+v, want entries for s2 and s4", ps.Patches)
	}
	if ps.Patches[0].SlideID != "s2" || ps.Patches[1].SlideID != "s4" {
		t.Errorf("patch order = [%s, %s], want [s2, s4]", ps.Patches[0].SlideID, ps.Patches[1].SlideID)
	}
}

func TestPatchSetRoundTrip(t *testing.T) {
	ps := &PatchSet{
		Version:   PatchSetVersion,
		Iteration: 1,
		Patches: []Patch{
			{SlideID: "s1", Reason: ReasonOverlap, Actions: []Action{Shorten(18), Split("s1-a")}},
		},
	}

	path := t.TempDir() + "/patches.json"
	if err := Save(path, ps); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(loaded.Patches) != 1 || loaded.Patches[0].Actions[1].Suffix != "s1-a" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
