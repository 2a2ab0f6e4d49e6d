package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/app"
	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
	"github.com/chazuruo/circli/internal/tui"
)

var pipelineColumns = []output.Column[circleci.Pipeline]{
	output.Col("ID", func(p circleci.Pipeline) any { return p.ID }),
	output.Col("Number", func(p circleci.Pipeline) any { return p.Number }),
	output.Col("State", func(p circleci.Pipeline) any { return output.Status(p.State) }),
	output.Col("Trigger", func(p circleci.Pipeline) any { return p.Trigger.Actor.Login }),
	output.Col("Created At", func(p circleci.Pipeline) any { return output.Time(p.CreatedAt) }),
}

var workflowColumns = []output.Column[circleci.Workflow]{
	output.Col("ID", func(w circleci.Workflow) any { return w.ID }),
	output.Col("Name", func(w circleci.Workflow) any { return w.Name }),
	output.Col("Status", func(w circleci.Workflow) any { return output.Status(w.Status) }),
	output.Col("Created At", func(w circleci.Workflow) any { return output.Time(w.CreatedAt) }),
	output.Col("Stopped At", func(w circleci.Workflow) any { return output.TimePtr(w.StoppedAt) }),
}

// newPipelineCommand creates the pipeline command.
func (a *App) newPipelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pipeline",
		Aliases: []string{"pipelines"},
		Short:   "List, inspect, trigger and cancel pipelines",
	}
	cmd.AddCommand(
		a.newPipelineListCommand(),
		a.newPipelineGetCommand(),
		a.newPipelineGetByNumberCommand(),
		a.newPipelineConfigCommand(),
		a.newPipelineWorkflowsCommand(),
		a.newPipelineTriggerCommand(),
		a.newPipelineContinueCommand(),
		a.newPipelineCancelCommand(),
	)
	return cmd
}

// PipelineListOptions contains the options for pipeline list.
type PipelineListOptions struct {
	ProjectSlug string
	OrgSlug     string
	Mine        bool
	Branch      string
	PageToken   string
	Limit       int
}

func (a *App) newPipelineListCommand() *cobra.Command {
	opts := &PipelineListOptions{}

	cmd := &cobra.Command{
		Use:   "list [project-slug]",
		Short: "List recent pipelines of a project or organization",
		Long: `List the most recent pipelines of a project, newest first.

With --org-slug, list across every project of an organization instead.
Pages are followed until --limit pipelines are collected.`,
		Example: `  circli pipeline list gh/acme/api --branch main
  circli pipeline list --mine --limit 50
  circli pipeline list --org-slug gh/acme --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			var fetch app.PageFunc[circleci.Pipeline]
			if opts.OrgSlug != "" {
				fetch = func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Pipeline]] {
					return svc.Pipelines.List(ctx, circleci.PipelineListParams{
						OrgSlug: opts.OrgSlug, Mine: opts.Mine, PageToken: startAt(token, opts.PageToken),
					})
				}
			} else {
				slug, err := a.projectSlug("pipeline.list", opts.ProjectSlug, args)
				if err != nil {
					return err
				}
				fetch = func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Pipeline]] {
					return svc.Pipelines.ListForProject(ctx, slug, circleci.ProjectPipelineParams{
						Branch: opts.Branch, Mine: opts.Mine, PageToken: startAt(token, opts.PageToken),
					})
				}
			}
			items, err := app.ListPages(ctx, opts.Limit, fetch)
			if err != nil {
				return err
			}
			return showItems(a, items, pipelineColumns...)
		}),
	}

	cmd.Flags().StringVar(&opts.ProjectSlug, "project-slug", "", "project slug, e.g. gh/acme/api")
	cmd.Flags().StringVar(&opts.OrgSlug, "org-slug", "", "list across an organization, e.g. gh/acme")
	cmd.Flags().BoolVar(&opts.Mine, "mine", false, "only pipelines triggered by you")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "only pipelines on this branch")
	cmd.Flags().StringVar(&opts.PageToken, "page-token", "", "start from this page")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "maximum number of pipelines, 0 for all")
	cmd.MarkFlagsMutuallyExclusive("org-slug", "project-slug")
	return cmd
}

// startAt replaces the first page token with the one the user passed.
func startAt(token, first string) string {
	if token == "" {
		return first
	}
	return token
}

func (a *App) newPipelineGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <pipeline-id>",
		Short: "Show a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Pipelines.Get(ctx, args[0]))
		}),
	}
}

func (a *App) newPipelineGetByNumberCommand() *cobra.Command {
	var slugFlag string
	cmd := &cobra.Command{
		Use:   "get-by-number <number>",
		Short: "Show a pipeline by its number within a project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			n, err := parseNumber("pipeline.get-by-number", "number", args[0])
			if err != nil {
				return err
			}
			slug, err := a.projectSlug("pipeline.get-by-number", slugFlag, nil)
			if err != nil {
				return err
			}
			return show(a, svc.Pipelines.GetByNumber(ctx, slug, n))
		}),
	}
	cmd.Flags().StringVar(&slugFlag, "project-slug", "", "project slug, e.g. gh/acme/api")
	return cmd
}

func (a *App) newPipelineConfigCommand() *cobra.Command {
	var compiled bool
	cmd := &cobra.Command{
		Use:   "config <pipeline-id>",
		Short: "Print the configuration a pipeline ran with",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			cfg, err := svc.Pipelines.Config(ctx, args[0]).Wait()
			if err != nil {
				return err
			}
			if a.Structured() {
				return a.Printer().Encode(cfg)
			}
			src := cfg.Source
			if compiled {
				src = cfg.Compiled
			}
			fmt.Fprint(a.Out, src)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&compiled, "compiled", false, "print the compiled configuration")
	return cmd
}

func (a *App) newPipelineWorkflowsCommand() *cobra.Command {
	var pageToken string
	cmd := &cobra.Command{
		Use:   "workflows <pipeline-id>",
		Short: "List the workflows of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Pipelines.Workflows(ctx, args[0], pageToken), workflowColumns...)
		}),
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "next page token")
	return cmd
}

// PipelineTriggerOptions contains the options for pipeline trigger.
type PipelineTriggerOptions struct {
	ProjectSlug string
	Branch      string
	Tag         string
	Params      []string
}

func (a *App) newPipelineTriggerCommand() *cobra.Command {
	opts := &PipelineTriggerOptions{}
	cmd := &cobra.Command{
		Use:   "trigger [project-slug]",
		Short: "Trigger a new pipeline",
		Example: `  circli pipeline trigger gh/acme/api --branch main
  circli pipeline trigger --tag v1.2.0 --param deploy=true --param replicas=3`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, err := a.projectSlug("pipeline.trigger", opts.ProjectSlug, args)
			if err != nil {
				return err
			}
			params, err := parseParams("pipeline.trigger", opts.Params)
			if err != nil {
				return err
			}
			return show(a, svc.Pipelines.Trigger(ctx, slug, circleci.TriggerRequest{
				Branch:     opts.Branch,
				Tag:        opts.Tag,
				Parameters: params,
			}))
		}),
	}
	cmd.Flags().StringVar(&opts.ProjectSlug, "project-slug", "", "project slug, e.g. gh/acme/api")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "branch to build")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "tag to build")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "pipeline parameter key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("branch", "tag")
	return cmd
}

func (a *App) newPipelineContinueCommand() *cobra.Command {
	var key, configFile string
	var params []string
	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Continue a setup pipeline with generated configuration",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			const op = "pipeline.continue"
			if key == "" {
				key = os.Getenv("CIRCLE_CONTINUATION_KEY")
			}
			if configFile == "" {
				return clierrors.Invalid(op, "config-file", "is required")
			}
			body, err := os.ReadFile(configFile)
			if err != nil {
				return clierrors.Invalid(op, "config-file", "%v", err)
			}
			p, err := parseParams(op, params)
			if err != nil {
				return err
			}
			msg, err := svc.Pipelines.Continue(ctx, circleci.ContinueRequest{
				ContinuationKey: key,
				Configuration:   string(body),
				Parameters:      p,
			}).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}
	cmd.Flags().StringVar(&key, "continuation-key", "", "continuation key (default $CIRCLE_CONTINUATION_KEY)")
	cmd.Flags().StringVar(&configFile, "config-file", "", "path to the configuration to continue with")
	cmd.Flags().StringArrayVar(&params, "param", nil, "pipeline parameter key=value (repeatable)")
	return cmd
}

func (a *App) newPipelineCancelCommand() *cobra.Command {
	var workflowID string
	var yes bool
	opts := app.CancelOptions{}
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel every running workflow of a pipeline",
		Long: `Cancel every running or on-hold workflow in the pipeline that owns
--workflow-id. Inside a CircleCI job the workflow defaults to
$CIRCLE_WORKFLOW_ID, so a job can stop its own pipeline.

All cancel requests are sent in parallel. Every failure is reported.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if workflowID == "" {
				workflowID = os.Getenv("CIRCLE_WORKFLOW_ID")
			}
			if workflowID == "" {
				return clierrors.Invalid("pipeline.cancel", "workflow-id", "is required (or set CIRCLE_WORKFLOW_ID)")
			}
			if !opts.DryRun && !yes && a.Interactive() {
				ok, err := tui.Confirm("Cancel the pipeline's running workflows?",
					"Workflow "+workflowID+" and its siblings will be stopped.")
				if err != nil {
					return err
				}
				if !ok {
					return tui.ErrAborted
				}
			}
			report, err := app.CancelPipeline(ctx, svc, workflowID, opts)
			if report != nil {
				if perr := a.printCancel(report, report.Targets, report.DryRun); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
	cmd.Flags().StringVarP(&workflowID, "workflow-id", "i", "", "a workflow of the pipeline (default $CIRCLE_WORKFLOW_ID)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list the workflows without cancelling them")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "maximum parallel cancel requests, 0 for no limit")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

var cancelColumns = []output.Column[app.CancelOutcome]{
	output.Col("Workflow", func(o app.CancelOutcome) any { return o.Workflow.ID }),
	output.Col("Name", func(o app.CancelOutcome) any { return o.Workflow.Name }),
	output.Col("Pipeline", func(o app.CancelOutcome) any { return o.Workflow.PipelineNumber }),
	output.Col("Status", func(o app.CancelOutcome) any { return output.Status(o.Workflow.Status) }),
	output.Col("Result", func(o app.CancelOutcome) any { return cancelResult(o) }),
}

func cancelResult(o app.CancelOutcome) string {
	switch {
	case o.Error != "":
		return o.Error
	case o.Canceled:
		return "canceled"
	default:
		return "would cancel"
	}
}

// printCancel prints what a cancel command did or would do. Structured
// formats get the whole report.
func (a *App) printCancel(report any, targets []app.CancelOutcome, dryRun bool) error {
	if a.Structured() {
		return a.Printer().Encode(report)
	}
	if len(targets) == 0 {
		fmt.Fprintln(a.Out, "Nothing to cancel.")
		return nil
	}
	if err := output.List(a.Printer(), targets, cancelColumns...); err != nil {
		return err
	}
	if dryRun {
		a.hint("Dry run: nothing was cancelled.")
	}
	return nil
}

// message prints an API acknowledgement.
func (a *App) message(m circleci.Message) error {
	if a.Structured() {
		return a.Printer().Encode(m)
	}
	fmt.Fprintln(a.Out, m.Message)
	return nil
}
