package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
)

var namedMetricsColumns = []output.Column[circleci.NamedMetrics]{
	output.Col("Name", func(m circleci.NamedMetrics) any { return m.Name }),
	output.Col("Success Rate", func(m circleci.NamedMetrics) any { return percent(m.Metrics.SuccessRate) }),
	output.Col("Total Runs", func(m circleci.NamedMetrics) any { return m.Metrics.TotalRuns }),
	output.Col("Throughput", func(m circleci.NamedMetrics) any { return fmt.Sprintf("%.2f", m.Metrics.Throughput) }),
	output.Col("Median Duration", func(m circleci.NamedMetrics) any { return seconds(m.Metrics.DurationMetrics.Median) }),
	output.Col("Total Credits", func(m circleci.NamedMetrics) any { return m.Metrics.TotalCreditsUsed }),
}

var workflowRunColumns = []output.Column[circleci.WorkflowRun]{
	output.Col("ID", func(r circleci.WorkflowRun) any { return r.ID }),
	output.Col("Status", func(r circleci.WorkflowRun) any { return output.Status(r.Status) }),
	output.Col("Branch", func(r circleci.WorkflowRun) any { return r.Branch }),
	output.Col("Duration", func(r circleci.WorkflowRun) any { return seconds(r.Duration) }),
	output.Col("Credits", func(r circleci.WorkflowRun) any { return r.CreditsUsed }),
	output.Col("Created At", func(r circleci.WorkflowRun) any { return output.Time(r.CreatedAt) }),
}

var flakyTestColumns = []output.Column[circleci.FlakyTest]{
	output.Col("Test Name", func(t circleci.FlakyTest) any { return t.TestName }),
	output.Col("Classname", func(t circleci.FlakyTest) any { return t.Classname }),
	output.Col("File", func(t circleci.FlakyTest) any { return t.File }),
	output.Col("Source", func(t circleci.FlakyTest) any { return t.Source }),
	output.Col("Times Flaked", func(t circleci.FlakyTest) any { return t.TimesFlaked }),
}

var timeseriesColumns = []output.Column[circleci.JobTimeseries]{
	output.Col("Name", func(t circleci.JobTimeseries) any { return t.Name }),
	output.Col("Timestamp", func(t circleci.JobTimeseries) any { return output.Time(t.Timestamp) }),
	output.Col("Total Runs", func(t circleci.JobTimeseries) any { return t.Metrics.TotalRuns }),
	output.Col("Failed Runs", func(t circleci.JobTimeseries) any { return t.Metrics.FailedRuns }),
	output.Col("Median Duration", func(t circleci.JobTimeseries) any { return seconds(t.Metrics.DurationMetrics.Median) }),
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func seconds(s int64) string {
	return fmt.Sprintf("%ds", s)
}

// insightsFlags are the filters the insights commands share. Each command
// registers only the ones its endpoint accepts.
type insightsFlags struct {
	params      circleci.InsightsParams
	allBranches bool
}

func (f *insightsFlags) branch(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.params.Branch, "branch", "", "only this branch (default: the default branch)")
	cmd.Flags().BoolVar(&f.allBranches, "all-branches", false, "aggregate every branch")
	cmd.MarkFlagsMutuallyExclusive("branch", "all-branches")
}

func (f *insightsFlags) window(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.params.ReportingWindow, "reporting-window", "",
		"last-24-hours, last-7-days, last-30-days, last-60-days or last-90-days")
}

func (f *insightsFlags) dates(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.params.StartDate, "start-date", "", "start date (ISO 8601)")
	cmd.Flags().StringVar(&f.params.EndDate, "end-date", "", "end date (ISO 8601)")
}

func (f *insightsFlags) page(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.params.PageToken, "page-token", "", "next page token")
}

// resolve returns the params with the all-branches toggle applied.
func (f *insightsFlags) resolve() circleci.InsightsParams {
	p := f.params
	if f.allBranches {
		t := true
		p.AllBranches = &t
	}
	return p
}

// newInsightsCommand creates the insights command.
func (a *App) newInsightsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Aggregated build metrics for projects and workflows",
	}
	cmd.AddCommand(
		a.newInsightsSummaryCommand(),
		a.newInsightsBranchesCommand(),
		a.newInsightsFlakyTestsCommand(),
		a.newInsightsWorkflowsCommand(),
		a.newInsightsWorkflowCommand(),
	)
	return cmd
}

func (a *App) newInsightsSummaryCommand() *cobra.Command {
	var f insightsFlags
	var slug, orgSlug string
	var projectNames []string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summary metrics of a project or an organization",
		Example: `  circli insights summary --project-slug gh/acme/api --reporting-window last-7-days
  circli insights summary --org-slug gh/acme --project-names api,web`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			p := f.resolve()
			switch {
			case orgSlug != "":
				p.ProjectNames = projectNames
				return show(a, svc.Insights.OrgSummary(ctx, orgSlug, p))
			case slug != "":
				return show(a, svc.Insights.ProjectSummary(ctx, slug, p))
			default:
				return clierrors.Invalid("insights.summary", "project-slug", "pass --project-slug or --org-slug")
			}
		}),
	}
	f.window(cmd)
	cmd.Flags().StringVar(&slug, "project-slug", "", "project slug")
	cmd.Flags().StringVar(&orgSlug, "org-slug", "", "organization slug")
	cmd.Flags().StringSliceVar(&projectNames, "project-names", nil, "projects to include in an org summary")
	cmd.Flags().StringSliceVar(&f.params.Branches, "branches", nil, "branches to include in a project summary")
	cmd.Flags().StringSliceVar(&f.params.WorkflowNames, "workflow-names", nil, "workflows to include in a project summary")
	cmd.MarkFlagsMutuallyExclusive("project-slug", "org-slug")
	return cmd
}

func (a *App) newInsightsBranchesCommand() *cobra.Command {
	var workflowName string
	cmd := &cobra.Command{
		Use:   "branches <project-slug>",
		Short: "List the branches insights has data for",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			b, err := svc.Insights.Branches(ctx, args[0], workflowName).Wait()
			if err != nil {
				return err
			}
			if a.Structured() {
				return a.Printer().Encode(b)
			}
			for _, name := range b.Branches {
				fmt.Fprintln(a.Out, name)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&workflowName, "workflow-name", "", "only branches that ran this workflow")
	return cmd
}

func (a *App) newInsightsFlakyTestsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flaky-tests <project-slug>",
		Short: "List tests that both passed and failed on the same commit",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			ft, err := svc.Insights.FlakyTests(ctx, args[0]).Wait()
			if err != nil {
				return err
			}
			if a.Structured() {
				return a.Printer().Encode(ft)
			}
			if err := output.List(a.Printer(), ft.FlakyTests, flakyTestColumns...); err != nil {
				return err
			}
			a.hint("%d flaky test(s)", ft.TotalFlakyTests)
			return nil
		}),
	}
}

func (a *App) newInsightsWorkflowsCommand() *cobra.Command {
	var f insightsFlags
	cmd := &cobra.Command{
		Use:   "workflows <project-slug>",
		Short: "Metrics of each workflow of a project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Insights.Workflows(ctx, args[0], f.resolve()), namedMetricsColumns...)
		}),
	}
	f.branch(cmd)
	f.window(cmd)
	f.page(cmd)
	return cmd
}

func (a *App) newInsightsWorkflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Metrics of one workflow",
	}

	var runs insightsFlags
	runsCmd := &cobra.Command{
		Use:   "runs <project-slug> <workflow-name>",
		Short: "Recent runs of a workflow",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Insights.WorkflowRuns(ctx, args[0], args[1], runs.resolve()), workflowRunColumns...)
		}),
	}
	runs.branch(runsCmd)
	runs.dates(runsCmd)
	runs.page(runsCmd)

	var jobs insightsFlags
	jobsCmd := &cobra.Command{
		Use:   "jobs <project-slug> <workflow-name>",
		Short: "Metrics of each job of a workflow",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Insights.WorkflowJobs(ctx, args[0], args[1], jobs.resolve()), namedMetricsColumns...)
		}),
	}
	jobs.branch(jobsCmd)
	jobs.window(jobsCmd)
	jobs.page(jobsCmd)
	jobsCmd.Flags().StringVar(&jobs.params.JobName, "job-name", "", "only this job")

	var summary insightsFlags
	summaryCmd := &cobra.Command{
		Use:   "summary <project-slug> <workflow-name>",
		Short: "Metrics and trends of a workflow",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Insights.WorkflowSummary(ctx, args[0], args[1], summary.resolve()))
		}),
	}
	summary.branch(summaryCmd)

	var tests insightsFlags
	testsCmd := &cobra.Command{
		Use:   "tests <project-slug> <workflow-name>",
		Short: "Test metrics of a workflow",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Insights.TestMetrics(ctx, args[0], args[1], tests.resolve()))
		}),
	}
	tests.branch(testsCmd)

	var ts insightsFlags
	tsCmd := &cobra.Command{
		Use:   "job-timeseries <project-slug> <workflow-name>",
		Short: "Job metrics bucketed by hour or day",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Insights.JobTimeseries(ctx, args[0], args[1], ts.resolve()), timeseriesColumns...)
		}),
	}
	tsCmd.Flags().StringVar(&ts.params.Branch, "branch", "", "only this branch")
	tsCmd.Flags().StringVar(&ts.params.Granularity, "granularity", "", "daily or hourly")
	ts.dates(tsCmd)

	cmd.AddCommand(runsCmd, jobsCmd, summaryCmd, testsCmd, tsCmd)
	return cmd
}
