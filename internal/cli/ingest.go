package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/ingest"
	"github.com/slidectl/slidectl/pkg/state"
)

// ingestCommand creates the ingest command for normalizing source markdown.
func (c *CLI) ingestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [input.md]",
		Short: "Normalize markdown and extract the document structure",
		Long: `Normalize markdown and extract the document structure.

The input is canonicalized (line endings, blank lines, trailing
whitespace) and split into sections and slide hints: one section per H2
heading, one slide hint per H3 heading with its bullets and prose. The
normalized markdown and the structure JSON are written to the workspace
ingest directory, and a content checksum per slide hint is recorded in
the run state so later iterations can recognize unchanged slides.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace()
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			normalized, structure, err := ingest.Process(args[0])
			if err != nil {
				return err
			}

			normalizedPath, structurePath, err := ingest.SaveOutputs(ws.IngestDir(), normalized, structure)
			if err != nil {
				return err
			}

			mgr := state.NewManager(ws.StateDir())
			if _, err := mgr.LoadOrInit(); err != nil {
				return err
			}
			for id, sum := range structure.Checksums() {
				if err := mgr.SetChecksum(id, sum); err != nil {
					return err
				}
			}
			if err := mgr.UpdateStep(state.StepIngest); err != nil {
				return err
			}

			hints := 0
			for _, sec := range structure.Sections {
				hints += len(sec.Slides)
			}
			p.done(fmt.Sprintf("Ingested %q: %d sections, %d slide hints",
				structure.DocTitle, len(structure.Sections), hints))
			printFile(ws.Rel(normalizedPath))
			printFile(ws.Rel(structurePath))
			printNextStep("Measure the rendered deck", "slidectl measure")
			return nil
		},
	}
	return cmd
}
