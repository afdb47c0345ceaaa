package cli

import (
	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/workspace"
)

// initCommand creates the init command for scaffolding a workspace.
func (c *CLI) initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the workspace directory scaffold",
		Long: `Create the workspace directory scaffold.

The workspace holds every pipeline artifact under fixed directories:
source markdown under ingest/, built deck content under build/, rendered
geometry under render/, measurement output under optimize/, and reports
under report/. Policy lives at config/policy.toml; run state and the
workspace lock live under .state/.

An existing workspace is left untouched unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := workspace.New(c.wsPath)
			if err != nil {
				return err
			}
			if ws.Exists() && !force {
				printInfo("workspace already exists at %s", ws.Root)
				printNextStep("Re-create it", "slidectl init --force")
				return nil
			}
			if err := ws.Initialize(force); err != nil {
				return err
			}
			printSuccess("workspace initialized")
			printFile(ws.Root)
			printNextStep("Ingest a document", "slidectl ingest input.md")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-create an existing workspace")
	return cmd
}
