// Package patch maps failing slide metrics to deterministic correction
// instructions for the content-regeneration collaborator.
//
// A [Patch] carries the failing slide's primary reason and an ordered list
// of actions. The mapping is a pure function: identical metrics always
// produce a byte-identical patch, which keeps regeneration reproducible
// and makes idempotence testable.
package patch

import (
	"strings"

	"github.com/slidectl/slidectl/pkg/metrics"
)

// PatchSetVersion is the version tag written to patch set JSON.
const PatchSetVersion = "1.0"

// Reason codes attached to patches, ordered by urgency. Overlap is the
// most urgent because it reflects an absolute visual defect rather than a
// soft-range excursion.
const (
	ReasonOverlap        = "overlap_present"
	ReasonDensityHigh    = "density_high"
	ReasonWhitespaceHigh = "whitespace_high"
)

// Action types.
const (
	ActionShorten     = "shorten"
	ActionSplit       = "split"
	ActionAugmentText = "augment_text"
	ActionAddSVG      = "add_svg"
)

// Defaults for generated actions.
const (
	// shortenLimit is the per-item character budget for the shorten action.
	shortenLimit = 18
	// fillerLines is how many generic lines augment_text inserts.
	fillerLines = 3
	// splitFactor: density beyond this multiple of the upper threshold
	// warrants splitting the slide, not just shortening it.
	splitFactor = 1.5
	// maxKeywords caps the add_svg keyword list.
	maxKeywords = 5
)

// Action is one correction instruction. Type selects which parameter
// fields are meaningful; the rest stay at their zero value and are omitted
// from JSON.
type Action struct {
	Type        string   `json:"type" bson:"type"`
	Limit       int      `json:"limit,omitempty" bson:"limit,omitempty"`
	Suffix      string   `json:"suffix,omitempty" bson:"suffix,omitempty"`
	InsertLines int      `json:"insert_lines,omitempty" bson:"insert_lines,omitempty"`
	Role        string   `json:"role,omitempty" bson:"role,omitempty"`
	Keywords    []string `json:"keywords,omitempty" bson:"keywords,omitempty"`
}

// Shorten trims every text item on the slide to at most limit characters.
func Shorten(limit int) Action {
	return Action{Type: ActionShorten, Limit: limit}
}

// Split moves overflow content onto a new slide with the given ID suffix.
func Split(suffix string) Action {
	return Action{Type: ActionSplit, Suffix: suffix}
}

// AugmentText inserts n generic filler lines.
func AugmentText(n int) Action {
	return Action{Type: ActionAugmentText, InsertLines: n}
}

// AddSVG asks the regenerator for a vector asset with the given role and
// topic keywords.
func AddSVG(role string, keywords []string) Action {
	return Action{Type: ActionAddSVG, Role: role, Keywords: keywords}
}

// Patch is the correction instruction set for one failing slide.
type Patch struct {
	SlideID string   `json:"slide_id" bson:"slide_id"`
	Reason  string   `json:"reason" bson:"reason"`
	Actions []Action `json:"actions" bson:"actions"`
}

// PatchSet is the per-iteration collection of patches. Only NG slides
// appear; a slide absent from the set passed.
type PatchSet struct {
	Version   string  `json:"version" bson:"version"`
	Iteration int     `json:"iteration" bson:"iteration"`
	Patches   []Patch `json:"patches" bson:"patches"`
}

// Empty reports whether the patch set contains no patches.
func (ps *PatchSet) Empty() bool {
	return len(ps.Patches) == 0
}

// PrimaryReason selects the patch reason for the slide's warnings, in
// priority order: overlap > density_high > whitespace_high. Informational
// warnings (sparse, crowded, overfull) never select a reason. The second
// return is false when no actionable warning is present.
func PrimaryReason(m metrics.SlideMetrics) (string, bool) {
	switch {
	case m.HasWarning(metrics.WarnOverlap):
		return ReasonOverlap, true
	case m.HasWarning(metrics.WarnDense):
		return ReasonDensityHigh, true
	case m.HasWarning(metrics.WarnWhitespace):
		return ReasonWhitespaceHigh, true
	}
	return "", false
}

// Generator builds patches for failing slides. Thresholds are needed to
// decide whether high density warrants a split in addition to shortening.
type Generator struct {
	Thresholds metrics.Thresholds
}

// NewGenerator creates a generator for the given thresholds.
func NewGenerator(th metrics.Thresholds) *Generator {
	return &Generator{Thresholds: th}
}

// Build assembles the patch set for one iteration's scorecard. Geometry
// records supply slide titles and bullets for keyword derivation; slides
// missing from geoms still get patches, just without keywords.
func (g *Generator) Build(card *metrics.Scorecard, geoms []metrics.SlideGeometry) *PatchSet {
	byID := make(map[string]metrics.SlideGeometry, len(geoms))
	ids := make([]string, 0, len(geoms))
	for _, geom := range geoms {
		byID[geom.SlideID] = geom
		ids = append(ids, geom.SlideID)
	}

	ps := &PatchSet{
		Version:   PatchSetVersion,
		Iteration: card.Iteration,
		Patches:   []Patch{},
	}
	for _, m := range card.Failing() {
		p, ok := g.Patch(m, byID[m.SlideID], ids)
		if ok {
			ps.Patches = append(ps.Patches, p)
		}
	}
	return ps
}

// Patch produces the correction instructions for one failing slide.
// existingIDs is the full set of slide IDs in the deck, used to derive an
// unused split suffix. The result is deterministic for identical inputs.
func (g *Generator) Patch(m metrics.SlideMetrics, geom metrics.SlideGeometry, existingIDs []string) (Patch, bool) {
	reason, ok := PrimaryReason(m)
	if !ok {
		return Patch{}, false
	}

	p := Patch{SlideID: m.SlideID, Reason: reason}
	switch reason {
	case ReasonOverlap:
		p.Actions = []Action{
			Shorten(shortenLimit),
			Split(splitSuffix(m.SlideID, existingIDs)),
		}
	case ReasonDensityHigh:
		p.Actions = []Action{Shorten(shortenLimit)}
		if m.Density > g.Thresholds.Density[1]*splitFactor {
			p.Actions = append(p.Actions, Split(splitSuffix(m.SlideID, existingIDs)))
		}
	case ReasonWhitespaceHigh:
		p.Actions = []Action{
			AugmentText(fillerLines),
			AddSVG("diagram", keywords(geom)),
		}
	}
	return p, true
}

// splitSuffix derives the ID for a split-off slide: the source slide's ID
// plus the first letter a..z not already taken by an existing slide.
func splitSuffix(slideID string, existingIDs []string) string {
	taken := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		taken[id] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		candidate := slideID + "-" + string(c)
		if !taken[candidate] {
			return candidate
		}
	}
	// A slide with 26 splits is degenerate input; fall back to stacking.
	return slideID + "-z2"
}

// keywords derives add_svg topic keywords from the slide title and
// bullets: lowercase words of three or more letters, first occurrence
// order, capped at maxKeywords.
func keywords(geom metrics.SlideGeometry) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(text string) {
		for _, w := range strings.Fields(strings.ToLower(text)) {
			w = strings.Trim(w, ".,:;!?()[]\"'`*#-")
			if len(w) < 3 || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
			if len(out) >= maxKeywords {
				return
			}
		}
	}

	add(geom.Title)
	for _, b := range geom.Bullets {
		if len(out) >= maxKeywords {
			break
		}
		add(b)
	}
	return out
}
