package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/report"
)

// reportCommand creates the report command for exporting the iteration trail.
func (c *CLI) reportCommand() *cobra.Command {
	var (
		runID string
		graph string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the archived iteration trail as CSV and a convergence graph",
		Long: `Export the archived iteration trail as CSV and a convergence graph.

The CSV holds one row per slide per iteration with its metrics and
status. The graph shows every slide's trajectory across iterations,
colored by pass/fail and labeled with the patch reason that drove each
regeneration; the format follows the --graph extension (.dot, .svg, or
.png).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace()
			if err != nil {
				return err
			}
			cfg, err := c.loadPolicy(ws)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			archive, err := c.newHistory(ctx, cfg, ws)
			if err != nil {
				return err
			}
			defer c.closeQuietly(ctx, "history", archive.Close)

			records, err := archive.List(ctx, runID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo("no archived iterations yet")
				printNextStep("Run the loop first", "slidectl optimize")
				return nil
			}

			p := newProgress(c.Logger)
			if err := report.SaveCSV(ws.ReportCSVFile(), records); err != nil {
				return err
			}
			written := []string{ws.Rel(ws.ReportCSVFile())}

			if graph != "" {
				graphPath := graph
				if !filepath.IsAbs(graphPath) {
					graphPath = filepath.Join(ws.ReportDir(), graphPath)
				}
				if err := report.SaveGraph(ctx, graphPath, records); err != nil {
					return err
				}
				written = append(written, ws.Rel(graphPath))
			}

			p.done(fmt.Sprintf("Exported %d iteration(s)", len(records)))
			for _, f := range written {
				printFile(f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "limit the report to one run ID")
	cmd.Flags().StringVar(&graph, "graph", "convergence.svg", "convergence graph file (.dot, .svg, .png); empty to skip")
	return cmd
}
