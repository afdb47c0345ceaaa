package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/state"
)

// measureCommand creates the measure command for a one-shot scorecard.
func (c *CLI) measureCommand() *cobra.Command {
	var iteration int

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Compute a scorecard from the rendered geometry",
		Long: `Compute a scorecard from the rendered geometry.

Reads the measurement JSON the renderer wrote to optimize/measure.json,
computes density, whitespace ratio, and overlap count per slide, and
classifies each slide against the policy thresholds. The scorecard is
written to optimize/scorecard.json. This is a single measurement pass;
use 'optimize' to iterate to convergence.`,
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
			store, err := c.newCache(ctx, cfg, ws)
			if err != nil {
				return err
			}
			defer c.closeQuietly(ctx, "cache", dropCtx(store.Close))

			slides, err := metrics.LoadSlides(ws.MeasureFile())
			if err != nil {
				return err
			}

			agg := metrics.NewAggregator(cfg.MetricThresholds(), store, c.Logger)
			agg.Epsilon = cfg.Optimize.OverlapEpsilon
			if cfg.Optimize.Workers > 0 {
				agg.Workers = cfg.Optimize.Workers
			}

			p := newProgress(c.Logger)
			card, err := agg.Scorecard(ctx, slides, iteration)
			if err != nil {
				return err
			}
			if err := metrics.SaveScorecard(ws.ScorecardFile(), card); err != nil {
				return err
			}
			mgr := state.NewManager(ws.StateDir())
			if _, err := mgr.LoadOrInit(); err != nil {
				return err
			}
			if err := mgr.UpdateStep(state.StepMeasure); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Measured %d slides", len(card.Slides)))

			printScorecard(card)
			printFile(ws.Rel(ws.ScorecardFile()))
			if !card.Converged() {
				printNextStep("Iterate to convergence", "slidectl optimize")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&iteration, "iteration", 1, "iteration number recorded in the scorecard")
	return cmd
}
