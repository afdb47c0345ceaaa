package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/convergence"
	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/state"
)

// buildCommand creates the build command, which runs the generation half
// of the pipeline: instruct then build.
func (c *CLI) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate, render, and probe the deck via the configured collaborators",
		Long: `Generate, render, and probe the deck via the configured collaborators.

Runs the four generation-side collaborators in order: instruct turns the
ingested structure JSON into slide design instructions, build turns the
instructions into slide markup, render produces the visual deck, and
measure probes the rendered output into geometry JSON. Each is an
external command configured in the policy and receives its input path,
output path, and the iteration counter as arguments. Afterwards the deck
is ready for 'slidectl measure' or 'slidectl optimize'.`,
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
			if _, err := os.Stat(ws.StructureFile()); err != nil {
				return errors.New(errors.ErrCodeFileNotFound,
					"no structure at %s; run 'slidectl ingest' first", ws.Rel(ws.StructureFile()))
			}

			mgr := state.NewManager(ws.StateDir())
			if _, err := mgr.LoadOrInit(); err != nil {
				return err
			}

			ctx := cmd.Context()
			stages := []struct {
				name   string
				cmd    string
				input  string
				output string
				step   string
			}{
				{"instruct", cfg.Commands.Instruct, ws.Rel(ws.StructureFile()), ws.Rel(ws.InstructDir()), state.StepInstruct},
				{"build", cfg.Commands.Build, ws.Rel(ws.InstructDir()), ws.Rel(ws.BuildDir()), state.StepBuild},
				{"render", cfg.Commands.Render, ws.Rel(ws.BuildDir()), ws.Rel(ws.RenderDir()), state.StepRender},
				{"measure", cfg.Commands.Measure, ws.Rel(ws.RenderDir()), ws.Rel(ws.MeasureFile()), ""},
			}
			for _, st := range stages {
				co := convergence.NewExecCollaborator(st.name, st.cmd, ws.Root, cfg.Commands.Timeout(), c.Logger)
				sp := newSpinner("running " + st.name)
				sp.Start()
				_, err := co.Run(ctx, convergence.Request{
					Name:       st.name,
					InputPath:  st.input,
					OutputPath: st.output,
					Iteration:  1,
				})
				if err != nil {
					sp.StopWithError(st.name + " failed")
					return err
				}
				sp.StopWithSuccess(st.name + " finished")
				if st.step != "" {
					if err := mgr.UpdateStep(st.step); err != nil {
						return err
					}
				}
			}

			printSuccess("deck built and probed")
			printFile(ws.Rel(ws.MeasureFile()))
			printNextStep("Score it", "slidectl measure")
			return nil
		},
	}
	return cmd
}
