package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/app"
	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/output"
)

var jobColumns = []output.Column[circleci.Job]{
	output.Col("ID", func(j circleci.Job) any { return j.ID }),
	output.Col("Name", func(j circleci.Job) any { return j.Name }),
	output.Col("Type", func(j circleci.Job) any { return j.Type }),
	output.Col("Status", func(j circleci.Job) any { return output.Status(j.Status) }),
	output.Col("Job Number", func(j circleci.Job) any {
		if j.JobNumber == nil {
			return nil
		}
		return *j.JobNumber
	}),
	output.Col("Started At", func(j circleci.Job) any { return output.TimePtr(j.StartedAt) }),
}

// newWorkflowCommand creates the workflow command.
func (a *App) newWorkflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"workflows"},
		Short:   "Inspect, rerun, approve and cancel workflows",
	}
	cmd.AddCommand(
		a.newWorkflowGetCommand(),
		a.newWorkflowJobsCommand(),
		a.newWorkflowRerunCommand(),
		a.newWorkflowCancelCommand(),
		a.newWorkflowApproveCommand(),
		a.newWorkflowCancelRedundantCommand(),
	)
	return cmd
}

func (a *App) newWorkflowGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <workflow-id>",
		Short: "Show a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Workflows.Get(ctx, args[0]))
		}),
	}
}

func (a *App) newWorkflowJobsCommand() *cobra.Command {
	var pageToken string
	cmd := &cobra.Command{
		Use:   "jobs <workflow-id>",
		Short: "List the jobs of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Workflows.Jobs(ctx, args[0], pageToken), jobColumns...)
		}),
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "next page token")
	return cmd
}

func (a *App) newWorkflowRerunCommand() *cobra.Command {
	req := circleci.RerunRequest{}
	var jobs string
	cmd := &cobra.Command{
		Use:   "rerun <workflow-id>",
		Short: "Rerun a workflow",
		Example: `  circli workflow rerun 5034460f-c7c4-4c43-9457-de07e2029e7b --from-failed
  circli workflow rerun 5034460f-c7c4-4c43-9457-de07e2029e7b --jobs <job-id>,<job-id> --sparse-tree`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if jobs != "" {
				req.Jobs = splitList(jobs)
			}
			return show(a, svc.Workflows.Rerun(ctx, args[0], req))
		}),
	}
	cmd.Flags().BoolVar(&req.FromFailed, "from-failed", false, "rerun only the failed jobs")
	cmd.Flags().BoolVar(&req.SparseTree, "sparse-tree", false, "rerun only the listed jobs, not their dependents")
	cmd.Flags().BoolVar(&req.EnableSSH, "enable-ssh", false, "rerun with SSH enabled")
	cmd.Flags().StringVar(&jobs, "jobs", "", "comma-separated job IDs to rerun")
	cmd.MarkFlagsMutuallyExclusive("from-failed", "jobs")
	return cmd
}

func (a *App) newWorkflowCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Cancel a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Workflows.Cancel(ctx, args[0]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}
}

func (a *App) newWorkflowApproveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <workflow-id> <approval-request-id>",
		Short: "Approve a pending approval job",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Workflows.Approve(ctx, args[0], args[1]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}
}

func (a *App) newWorkflowCancelRedundantCommand() *cobra.Command {
	opts := app.RedundantOptions{}
	var vcs, user, repo string
	cmd := &cobra.Command{
		Use:   "cancel-redundant",
		Short: "Cancel workflows left running by older pipelines on a branch",
		Long: `Cancel the unfinished workflows of every pipeline on a branch that is
older than the pipeline of --workflow-id.

Inside a CircleCI job every flag defaults from the job environment:
CIRCLE_WORKFLOW_ID, CIRCLE_BRANCH, CIRCLE_PROJECT_USERNAME and
CIRCLE_PROJECT_REPONAME. With --target-user only pipelines triggered by
that login are cancelled.`,
		Example: `  # as the first step of a job
  circli workflow cancel-redundant --target-user "$CIRCLE_USERNAME"`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if opts.WorkflowID == "" {
				opts.WorkflowID = envDefault("CIRCLE_WORKFLOW_ID")
			}
			if opts.Branch == "" {
				opts.Branch = envDefault("CIRCLE_BRANCH")
			}
			if opts.ProjectSlug == "" {
				if user == "" {
					user = envDefault("CIRCLE_PROJECT_USERNAME")
				}
				if repo == "" {
					repo = envDefault("CIRCLE_PROJECT_REPONAME")
				}
				if user != "" && repo != "" {
					opts.ProjectSlug = vcs + "/" + user + "/" + repo
				}
			}
			report, err := app.CancelRedundant(ctx, svc, opts)
			if report != nil {
				if perr := a.printCancel(report, report.Targets, report.DryRun); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&opts.WorkflowID, "workflow-id", "i", "", "the current workflow (default $CIRCLE_WORKFLOW_ID)")
	f.StringVarP(&opts.Branch, "branch-name", "b", "", "branch to clean up (default $CIRCLE_BRANCH)")
	f.StringVarP(&user, "user-name", "u", "", "project organization (default $CIRCLE_PROJECT_USERNAME)")
	f.StringVarP(&repo, "repo-name", "r", "", "project repository (default $CIRCLE_PROJECT_REPONAME)")
	f.StringVar(&vcs, "vcs", "gh", "VCS prefix of the project slug")
	f.StringVar(&opts.ProjectSlug, "project-slug", "", "project slug; overrides --vcs, --user-name and --repo-name")
	f.StringVar(&opts.TargetUser, "target-user-name", "", "only cancel pipelines triggered by this login")
	f.IntVar(&opts.MaxPipelines, "max-pipelines", app.DefaultMaxPipelines, "how many recent pipelines to inspect")
	f.BoolVar(&opts.DryRun, "dry-run", false, "list the workflows without cancelling them")
	f.IntVar(&opts.Concurrency, "concurrency", 0, "maximum pipelines handled in parallel, 0 for no limit")
	return cmd
}

// splitList splits a comma-separated flag, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
