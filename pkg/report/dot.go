package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-graphviz"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/history"
	"github.com/slidectl/slidectl/pkg/patch"
)

// ToDOT converts a run's archived scorecards to Graphviz DOT format.
// Each iteration becomes a cluster holding one node per slide, green when
// the slide passed and red when it failed; edges follow a slide across
// iterations, labeled with the patch reason that drove the regeneration.
// The resulting DOT string can be rendered with [RenderSVG] or [RenderPNG].
func ToDOT(records []history.Record) string {
	var buf bytes.Buffer
	buf.WriteString("digraph convergence {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("\n")

	for _, rec := range records {
		if rec.Scorecard == nil {
			continue
		}
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", rec.Iteration)
		fmt.Fprintf(&buf, "    label=\"iteration %d\";\n", rec.Iteration)
		for _, m := range rec.Scorecard.Slides {
			fill := "palegreen"
			if m.NG() {
				fill = "lightcoral"
			}
			label := fmt.Sprintf("%s\\nd=%.4f w=%.4f o=%d",
				m.SlideID, m.Density, m.WhitespaceRatio, m.Overlaps)
			fmt.Fprintf(&buf, "    %q [label=%q, fillcolor=%s];\n",
				nodeID(m.SlideID, rec.Iteration), label, fill)
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if prev.Scorecard == nil || cur.Scorecard == nil {
			continue
		}
		for _, m := range prev.Scorecard.Slides {
			if _, ok := cur.Scorecard.Slide(m.SlideID); !ok {
				continue
			}
			attrs := ""
			if reason, ok := patch.PrimaryReason(m); ok {
				attrs = fmt.Sprintf(" [label=%q]", reason)
			}
			fmt.Fprintf(&buf, "  %q -> %q%s;\n",
				nodeID(m.SlideID, prev.Iteration), nodeID(m.SlideID, cur.Iteration), attrs)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(slideID string, iteration int) string {
	return fmt.Sprintf("%s@%d", slideID, iteration)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render graph")
	}
	return buf.Bytes(), nil
}

// SaveGraph writes the convergence graph for records to path, choosing the
// output format from the file extension: .dot, .svg, or .png.
func SaveGraph(ctx context.Context, path string, records []history.Record) error {
	dot := ToDOT(records)

	var data []byte
	var err error
	switch ext := filepath.Ext(path); ext {
	case ".dot", ".gv":
		data = []byte(dot)
	case ".svg":
		data, err = RenderSVG(ctx, dot)
	case ".png":
		data, err = RenderPNG(ctx, dot)
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported graph format %q", ext)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create report directory")
	}
	return os.WriteFile(path, data, 0o644)
}
