package cli

import (
	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/internal/server"
)

// serveCommand creates the serve command for the read-only status API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace status over HTTP",
		Long: `Serve the workspace status over HTTP.

Exposes a read-only view of the workspace: GET /healthz, /api/status
(run state), /api/scorecard (latest measurement), and /api/report
(archived iterations). The server never mutates the workspace, so it is
safe to run alongside an active optimize loop.`,
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

			printInfo("serving %s on http://%s", ws.Root, addr)
			return server.New(ws, archive, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "listen address")
	return cmd
}
