package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/state"
)

// exportCommand creates the export command, the last pipeline step.
func (c *CLI) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the rendered deck and scorecard into out/",
		Long: `Copy the rendered deck and scorecard into out/.

Collects the final deliverables: everything the renderer wrote under
render/, plus the latest scorecard when one exists. The out/ directory
is the only one external consumers should read from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace()
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(ws.RenderDir())
			if err != nil {
				return errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", ws.Rel(ws.RenderDir()))
			}
			if len(entries) == 0 {
				printInfo("nothing to export: %s is empty", ws.Rel(ws.RenderDir()))
				printNextStep("Build the deck first", "slidectl build")
				return nil
			}

			copied := 0
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				src := filepath.Join(ws.RenderDir(), e.Name())
				dst := filepath.Join(ws.OutDir(), e.Name())
				if err := copyFile(src, dst); err != nil {
					return err
				}
				copied++
			}
			if _, err := os.Stat(ws.ScorecardFile()); err == nil {
				dst := filepath.Join(ws.OutDir(), filepath.Base(ws.ScorecardFile()))
				if err := copyFile(ws.ScorecardFile(), dst); err != nil {
					return err
				}
				copied++
			}

			mgr := state.NewManager(ws.StateDir())
			if _, err := mgr.LoadOrInit(); err != nil {
				return err
			}
			if err := mgr.UpdateStep(state.StepExport); err != nil {
				return err
			}

			printSuccess("exported %d file(s)", copied)
			printFile(ws.Rel(ws.OutDir()))
			return nil
		},
	}
	return cmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}
