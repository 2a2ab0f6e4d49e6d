package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
)

var artifactColumns = []output.Column[circleci.Artifact]{
	output.Col("Path", func(a circleci.Artifact) any { return a.Path }),
	output.Col("URL", func(a circleci.Artifact) any { return a.URL }),
	output.Col("Node Index", func(a circleci.Artifact) any { return a.NodeIndex }),
}

var testColumns = []output.Column[circleci.TestMetadata]{
	output.Col("Name", func(t circleci.TestMetadata) any { return t.Name }),
	output.Col("Classname", func(t circleci.TestMetadata) any { return t.Classname }),
	output.Col("Result", func(t circleci.TestMetadata) any { return t.Result }),
	output.Col("Run Time", func(t circleci.TestMetadata) any { return fmt.Sprintf("%.3fs", t.RunTime) }),
	output.Col("File", func(t circleci.TestMetadata) any { return t.File }),
}

// newJobCommand creates the job command.
func (a *App) newJobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "job",
		Aliases: []string{"jobs"},
		Short:   "Inspect and cancel jobs",
	}
	cmd.AddCommand(
		a.newJobGetCommand(),
		a.newJobCancelCommand(),
		a.newJobArtifactsCommand(),
		a.newJobTestsCommand(),
	)
	return cmd
}

// jobArgs parses "<project-slug> <job-number>".
func jobArgs(op string, args []string) (string, int64, error) {
	n, err := parseNumber(op, "job-number", args[1])
	return args[0], n, err
}

func (a *App) newJobGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <project-slug> <job-number>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, n, err := jobArgs("job.get", args)
			if err != nil {
				return err
			}
			return show(a, svc.Jobs.Get(ctx, slug, n))
		}),
	}
}

func (a *App) newJobCancelCommand() *cobra.Command {
	var jobID, slug string
	var number int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a job by ID, or by project and number",
		Example: `  circli job cancel --job-id 5034460f-c7c4-4c43-9457-de07e2029e7b
  circli job cancel --project-slug gh/acme/api --job-number 1234`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			var call = svc.Jobs.CancelByID(ctx, jobID)
			if jobID == "" {
				if number <= 0 {
					return clierrors.Invalid("job.cancel", "job-id", "pass --job-id, or --project-slug and --job-number")
				}
				s, err := a.projectSlug("job.cancel", slug, nil)
				if err != nil {
					return err
				}
				call = svc.Jobs.Cancel(ctx, s, number)
			}
			msg, err := call.Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "job ID (UUID)")
	cmd.Flags().StringVar(&slug, "project-slug", "", "project slug, for cancelling by number")
	cmd.Flags().Int64Var(&number, "job-number", 0, "job number, for cancelling by number")
	cmd.MarkFlagsMutuallyExclusive("job-id", "job-number")
	return cmd
}

func (a *App) newJobArtifactsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts <project-slug> <job-number>",
		Short: "List the artifacts of a job",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, n, err := jobArgs("job.artifacts", args)
			if err != nil {
				return err
			}
			return showPage(a, svc.Jobs.Artifacts(ctx, slug, n), artifactColumns...)
		}),
	}
}

func (a *App) newJobTestsCommand() *cobra.Command {
	var pageToken string
	cmd := &cobra.Command{
		Use:   "tests <project-slug> <job-number>",
		Short: "List the test results of a job",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, n, err := jobArgs("job.tests", args)
			if err != nil {
				return err
			}
			return showPage(a, svc.Jobs.Tests(ctx, slug, n, pageToken), testColumns...)
		}),
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "next page token")
	return cmd
}
