package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// NewRootCommand builds the full command tree for a.
func NewRootCommand(a *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "circli",
		Short: "Command line client for the CircleCI v2 API",
		Long: `circli talks to the CircleCI v2 REST API: pipelines, workflows, jobs,
contexts, projects, schedules, webhooks, insights, policies, OIDC claims,
usage exports and users.

Authenticate with --token, the CIRCLECI_TOKEN environment variable, or
` + "`circli config set api-token`" + `.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", a.Build.Version, a.Build.Commit, a.Build.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setupLogging()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	a.AddGlobalFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(a.Out)
	rootCmd.SetErr(a.Err)

	rootCmd.AddCommand(
		a.newConfigCommand(),
		a.newPipelineCommand(),
		a.newWorkflowCommand(),
		a.newJobCommand(),
		a.newContextCommand(),
		a.newProjectCommand(),
		a.newScheduleCommand(),
		a.newWebhookCommand(),
		a.newInsightsCommand(),
		a.newPolicyCommand(),
		a.newOIDCCommand(),
		a.newUsageCommand(),
		a.newUserCommand(),
		a.newWhoamiCommand(),
		a.newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code. Errors
// are printed to a.Err.
func Execute(ctx context.Context, a *App, args []string) int {
	rootCmd := NewRootCommand(a)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return clierrors.ExitOK
	}
	if ctxErr := context.Cause(ctx); ctxErr != nil && !clierrors.IsCanceled(err) {
		err = &clierrors.CanceledError{Op: rootCmd.Name(), Cause: ctxErr}
	}
	fmt.Fprintf(a.Err, "Error: %v\n", err)
	return clierrors.ExitCode(err)
}
