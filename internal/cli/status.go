package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/state"
)

// statusCommand creates the status command for inspecting run state.
func (c *CLI) statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the workspace run state and latest scorecard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace()
			if err != nil {
				return err
			}

			if missing, err := ws.Validate(); err != nil {
				return err
			} else if len(missing) > 0 {
				printWarning("workspace is missing directories: %s", strings.Join(missing, ", "))
			}

			mgr := state.NewManager(ws.StateDir())
			st, err := mgr.Load()
			if err != nil {
				if errors.Is(err, errors.ErrCodeFileNotFound) {
					printInfo("no run recorded yet in %s", ws.Root)
					printNextStep("Start one", "slidectl ingest input.md")
					return nil
				}
				return err
			}

			fmt.Println(StyleTitle.Render("run state"))
			printKeyValue("run", st.RunID)
			printKeyValue("created", st.CreatedAt.Format("2006-01-02 15:04:05"))
			printKeyValue("updated", st.UpdatedAt.Format("2006-01-02 15:04:05"))
			printKeyValue("iteration", fmt.Sprintf("%d", st.Iteration))
			if st.LastOK != "" {
				printKeyValue("last step", st.LastOK)
			}
			if st.Lock || mgr.Locked() {
				printWarning("workspace is locked; a run may be in progress")
			}

			card, err := metrics.LoadScorecard(ws.ScorecardFile())
			if err != nil {
				if errors.Is(err, errors.ErrCodeFileNotFound) {
					printDetail("no scorecard yet")
					return nil
				}
				return err
			}
			fmt.Println()
			printScorecard(card)
			return nil
		},
	}
	return cmd
}
