package cli

import (
	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/app"
	"github.com/chazuruo/circli/internal/output"
)

// newWhoamiCommand creates the whoami command.
func (a *App) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the API token belongs to",
		Long: `Show the user the API token belongs to, the host it is used against,
where the token came from (flag, env or file) and the config file path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.Service()
			if err != nil {
				return err
			}
			out, err := app.Whoami(cmd.Context(), svc, a.cfg, a.configPath)
			if err != nil {
				return err
			}
			if a.Structured() {
				return output.Record(a.Printer(), out)
			}
			app.PrintWhoami(a.Out, out)
			return nil
		},
	}
}
