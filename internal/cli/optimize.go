package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/convergence"
	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/observability"
)

// collaboratorSpinner shows a spinner while an external command runs, so
// long regeneration or render calls do not look like a hang.
type collaboratorSpinner struct {
	sp *Spinner
}

func (h *collaboratorSpinner) OnCollaboratorStart(_ context.Context, name string, iteration int) {
	h.sp = newSpinner(fmt.Sprintf("running %s (iteration %d)", name, iteration))
	h.sp.Start()
}

func (h *collaboratorSpinner) OnCollaboratorComplete(_ context.Context, name string, _ int, d time.Duration, err error) {
	if h.sp == nil {
		return
	}
	if err != nil {
		h.sp.StopWithError(fmt.Sprintf("%s failed after %s", name, d.Round(time.Millisecond)))
	} else {
		h.sp.StopWithSuccess(fmt.Sprintf("%s finished (%s)", name, d.Round(time.Millisecond)))
	}
	h.sp = nil
}

// optimizeCommand creates the optimize command, the full convergence loop.
func (c *CLI) optimizeCommand() *cobra.Command {
	var (
		maxIterations int
		useTUI        bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Iterate measure → patch → regenerate until the deck converges",
		Long: `Iterate measure → patch → regenerate until the deck converges.

Each iteration measures the rendered geometry, classifies every slide
against the policy thresholds, and stops when all slides pass. Failing
slides get deterministic correction patches, which are handed to the
configured regeneration command; the configured render and measure
commands then produce fresh geometry for the next measurement. The loop
is bounded by max_iterations from the policy.

Exit codes: 0 when the deck converges, 6 when the iteration budget is
spent with slides still failing, 3 when a collaborator command fails.`,
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
			if maxIterations > 0 {
				cfg.Optimize.MaxIterations = maxIterations
			}

			ctx := cmd.Context()
			store, err := c.newCache(ctx, cfg, ws)
			if err != nil {
				return err
			}
			defer c.closeQuietly(ctx, "cache", dropCtx(store.Close))

			archive, err := c.newHistory(ctx, cfg, ws)
			if err != nil {
				return err
			}
			defer c.closeQuietly(ctx, "history", archive.Close)

			ctrl, err := convergence.New(convergence.Options{
				Workspace: ws,
				Config:    cfg,
				Cache:     store,
				History:   archive,
				Logger:    c.Logger,
			})
			if err != nil {
				return err
			}

			var outcome *convergence.Outcome
			if useTUI {
				loadScorecard := func() *metrics.Scorecard {
					card, err := metrics.LoadScorecard(ws.ScorecardFile())
					if err != nil {
						return nil
					}
					return card
				}
				outcome, err = runOptimizeTUI(ctx, ctrl, cfg.Optimize.MaxIterations, loadScorecard)
			} else {
				observability.SetCollaboratorHooks(&collaboratorSpinner{})
				defer observability.Reset()
				outcome, err = ctrl.Run(ctx)
			}
			if err != nil {
				if outcome != nil && outcome.Scorecard != nil {
					printScorecard(outcome.Scorecard)
				}
				return err
			}

			printScorecard(outcome.Scorecard)
			switch outcome.State {
			case convergence.StateConverged:
				printSuccess("converged after %d iteration(s)", outcome.Iteration)
				return nil
			case convergence.StateExhausted:
				printWarning("iteration budget spent with %d slide(s) still failing",
					len(outcome.Scorecard.Failing()))
				printNextStep("Inspect the trail", "slidectl report")
				return &ExitError{
					Code:    ExitExhausted,
					Message: fmt.Sprintf("not converged within %d iterations", outcome.Iteration),
				}
			default:
				return &ExitError{
					Code:    ExitFailure,
					Message: fmt.Sprintf("run ended in unexpected state %s", outcome.State),
				}
			}
		},
	}

	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the policy iteration budget")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a live iteration view")
	return cmd
}
