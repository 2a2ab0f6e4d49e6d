package circleci

import (
	"context"
	"time"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Insights reporting windows.
var reportingWindows = []string{"last-7-days", "last-90-days", "last-24-hours", "last-30-days", "last-60-days"}

// DurationMetrics are run-time statistics in seconds.
type DurationMetrics struct {
	Min    int64   `json:"min" yaml:"min"`
	Mean   int64   `json:"mean" yaml:"mean"`
	Median int64   `json:"median" yaml:"median"`
	P95    int64   `json:"p95" yaml:"p95"`
	Max    int64   `json:"max" yaml:"max"`
	StdDev float64 `json:"standard_deviation" yaml:"standard_deviation"`
}

// Metrics aggregates runs over a window.
type Metrics struct {
	TotalRuns        int64           `json:"total_runs" yaml:"total_runs"`
	SuccessfulRuns   int64           `json:"successful_runs,omitempty" yaml:"successful_runs,omitempty"`
	FailedRuns       int64           `json:"failed_runs" yaml:"failed_runs"`
	SuccessRate      float64         `json:"success_rate" yaml:"success_rate"`
	Throughput       float64         `json:"throughput" yaml:"throughput"`
	MTTR             int64           `json:"mttr,omitempty" yaml:"mttr,omitempty"`
	TotalCreditsUsed int64           `json:"total_credits_used" yaml:"total_credits_used"`
	TotalDurationSec int64           `json:"total_duration_secs,omitempty" yaml:"total_duration_secs,omitempty"`
	DurationMetrics  DurationMetrics `json:"duration_metrics" yaml:"duration_metrics"`
}

// Trends are the change ratios against the previous window.
type Trends struct {
	TotalRuns    float64 `json:"total_runs" yaml:"total_runs"`
	FailedRuns   float64 `json:"failed_runs" yaml:"failed_runs"`
	SuccessRate  float64 `json:"success_rate" yaml:"success_rate"`
	Throughput   float64 `json:"throughput" yaml:"throughput"`
	TotalCredits float64 `json:"total_credits_used" yaml:"total_credits_used"`
	P95Duration  float64 `json:"p95_duration_secs,omitempty" yaml:"p95_duration_secs,omitempty"`
}

// ProjectSummary is GET /insights/pages/{slug}/summary.
type ProjectSummary struct {
	OrgID       string `json:"org_id" yaml:"org_id"`
	ProjectID   string `json:"project_id" yaml:"project_id"`
	ProjectData struct {
		Metrics Metrics `json:"metrics" yaml:"metrics"`
		Trends  Trends  `json:"trends" yaml:"trends"`
	} `json:"project_data" yaml:"project_data"`
	ProjectWorkflowData       []map[string]any `json:"project_workflow_data" yaml:"project_workflow_data"`
	ProjectWorkflowBranchData []map[string]any `json:"project_workflow_branch_data" yaml:"project_workflow_branch_data"`
	AllBranches               []string         `json:"all_branches" yaml:"all_branches"`
	AllWorkflows              []string         `json:"all_workflows" yaml:"all_workflows"`
}

// OrgSummary is GET /insights/{org-slug}/summary.
type OrgSummary struct {
	OrgData struct {
		Metrics Metrics `json:"metrics" yaml:"metrics"`
		Trends  Trends  `json:"trends" yaml:"trends"`
	} `json:"org_data" yaml:"org_data"`
	OrgProjectData []struct {
		ProjectName string  `json:"project_name" yaml:"project_name"`
		Metrics     Metrics `json:"metrics" yaml:"metrics"`
		Trends      Trends  `json:"trends" yaml:"trends"`
	} `json:"org_project_data" yaml:"org_project_data"`
	AllProjects []string `json:"all_projects" yaml:"all_projects"`
}

// Branches lists a project's branches seen in insights.
type Branches struct {
	OrgID     string   `json:"org_id" yaml:"org_id"`
	ProjectID string   `json:"project_id" yaml:"project_id"`
	Branches  []string `json:"branches" yaml:"branches"`
}

// FlakyTest is one test that both passed and failed on the same commit.
type FlakyTest struct {
	TestName          string    `json:"test-name" yaml:"test-name"`
	Classname         string    `json:"classname" yaml:"classname"`
	JobName           string    `json:"job-name" yaml:"job-name"`
	WorkflowName      string    `json:"workflow-name" yaml:"workflow-name"`
	PipelineNumber    int64     `json:"pipeline-number" yaml:"pipeline-number"`
	JobNumber         int64     `json:"job-number" yaml:"job-number"`
	TimesFlaked       int64     `json:"times-flaked" yaml:"times-flaked"`
	Source            string    `json:"source" yaml:"source"`
	File              string    `json:"file" yaml:"file"`
	TimeWasted        int64     `json:"time-wasted" yaml:"time-wasted"`
	WorkflowCreatedAt time.Time `json:"workflow-created-at" yaml:"workflow-created-at"`
}

// FlakyTests is GET /insights/{slug}/flaky-tests.
type FlakyTests struct {
	FlakyTests      []FlakyTest `json:"flaky-tests" yaml:"flaky-tests"`
	TotalFlakyTests int64       `json:"total-flaky-tests" yaml:"total-flaky-tests"`
}

// NamedMetrics pairs a workflow or job name with its metrics.
type NamedMetrics struct {
	Name        string    `json:"name" yaml:"name"`
	Metrics     Metrics   `json:"metrics" yaml:"metrics"`
	WindowStart time.Time `json:"window_start" yaml:"window_start"`
	WindowEnd   time.Time `json:"window_end" yaml:"window_end"`
}

// WorkflowRun is one run in the insights history.
type WorkflowRun struct {
	ID          string    `json:"id" yaml:"id"`
	Branch      string    `json:"branch" yaml:"branch"`
	Duration    int64     `json:"duration" yaml:"duration"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	StoppedAt   time.Time `json:"stopped_at" yaml:"stopped_at"`
	CreditsUsed int64     `json:"credits_used" yaml:"credits_used"`
	Status      string    `json:"status" yaml:"status"`
	IsApproval  bool      `json:"is_approval" yaml:"is_approval"`
}

// WorkflowSummary is GET …/workflows/{name}/summary.
type WorkflowSummary struct {
	Metrics       Metrics  `json:"metrics" yaml:"metrics"`
	Trends        Trends   `json:"trends" yaml:"trends"`
	WorkflowNames []string `json:"workflow_names" yaml:"workflow_names"`
}

// TestMetrics is GET …/workflows/{name}/test-metrics.
type TestMetrics struct {
	AverageTestCount int64            `json:"average_test_count" yaml:"average_test_count"`
	MostFailedTests  []map[string]any `json:"most_failed_tests" yaml:"most_failed_tests"`
	SlowestTests     []map[string]any `json:"slowest_tests" yaml:"slowest_tests"`
	TotalTestRuns    int64            `json:"total_test_runs" yaml:"total_test_runs"`
	TestRuns         []map[string]any `json:"test_runs" yaml:"test_runs"`
}

// JobTimeseries is one bucket of job metrics.
type JobTimeseries struct {
	Name         string    `json:"name" yaml:"name"`
	MinStartedAt time.Time `json:"min_started_at" yaml:"min_started_at"`
	MaxEndedAt   time.Time `json:"max_ended_at" yaml:"max_ended_at"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	Metrics      Metrics   `json:"metrics" yaml:"metrics"`
}

// InsightsService covers /insights.
type InsightsService struct {
	client *apiclient.Client
}

// InsightsParams are the optional filters shared by insights endpoints.
// Each endpoint sends only the keys it accepts.
type InsightsParams struct {
	ReportingWindow string
	Branch          string
	AllBranches     *bool
	PageToken       string
	StartDate       string
	EndDate         string
	Branches        []string
	WorkflowNames   []string
	ProjectNames    []string
	JobName         string
	Granularity     string
}

func (p InsightsParams) validate(op string) error {
	if p.ReportingWindow != "" {
		if err := requireOneOf(op, "reporting-window", p.ReportingWindow, reportingWindows...); err != nil {
			return err
		}
	}
	if p.Granularity != "" {
		if err := requireOneOf(op, "granularity", p.Granularity, "daily", "hourly"); err != nil {
			return err
		}
	}
	for field, v := range map[string]string{"start-date": p.StartDate, "end-date": p.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			if _, err := time.Parse(time.DateOnly, v); err != nil {
				return clierrors.Invalid(op, field, "%q is not an ISO 8601 date", v)
			}
		}
	}
	return nil
}

// ProjectSummary returns the project summary page data.
func (s *InsightsService) ProjectSummary(ctx context.Context, slug string, p InsightsParams) *apiclient.Call[ProjectSummary] {
	const op = "insights.project-summary"
	return do[ProjectSummary](ctx, s.client, op, check(requireSlug(op, slug), p.validate(op)), apiclient.Args{
		Path: path("project-slug", slug),
		Query: map[string]any{
			"reporting-window": opt(p.ReportingWindow),
			"branches":         optList(p.Branches),
			"workflow-names":   optList(p.WorkflowNames),
		},
	})
}

// JobTimeseries returns job metrics bucketed by granularity.
func (s *InsightsService) JobTimeseries(ctx context.Context, slug, workflow string, p InsightsParams) *apiclient.Call[Page[JobTimeseries]] {
	const op = "insights.job-timeseries"
	err := check(requireSlug(op, slug), requireString(op, "workflow-name", workflow), p.validate(op))
	return do[Page[JobTimeseries]](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "workflow-name", workflow),
		Query: map[string]any{
			"branch":      opt(p.Branch),
			"granularity": opt(p.Granularity),
			"start-date":  opt(p.StartDate),
			"end-date":    opt(p.EndDate),
		},
	})
}

// OrgSummary returns aggregate metrics for an organization.
func (s *InsightsService) OrgSummary(ctx context.Context, orgSlug string, p InsightsParams) *apiclient.Call[OrgSummary] {
	const op = "insights.org-summary"
	err := check(requireString(op, "org-slug", orgSlug), p.validate(op))
	return do[OrgSummary](ctx, s.client, op, err, apiclient.Args{
		Path: path("org-slug", orgSlug),
		Query: map[string]any{
			"reporting-window": opt(p.ReportingWindow),
			"project-names":    optList(p.ProjectNames),
		},
	})
}

// Branches lists branches with insights data.
func (s *InsightsService) Branches(ctx context.Context, slug, workflowName string) *apiclient.Call[Branches] {
	const op = "insights.branches"
	return do[Branches](ctx, s.client, op, requireSlug(op, slug), apiclient.Args{
		Path:  path("project-slug", slug),
		Query: map[string]any{"workflow-name": opt(workflowName)},
	})
}

// FlakyTests lists flaky tests of a project.
func (s *InsightsService) FlakyTests(ctx context.Context, slug string) *apiclient.Call[FlakyTests] {
	const op = "insights.flaky-tests"
	return do[FlakyTests](ctx, s.client, op, requireSlug(op, slug), apiclient.Args{Path: path("project-slug", slug)})
}

// Workflows lists metrics per workflow.
func (s *InsightsService) Workflows(ctx context.Context, slug string, p InsightsParams) *apiclient.Call[Page[NamedMetrics]] {
	const op = "insights.workflows"
	return do[Page[NamedMetrics]](ctx, s.client, op, check(requireSlug(op, slug), p.validate(op)), apiclient.Args{
		Path: path("project-slug", slug),
		Query: map[string]any{
			"page-token":       opt(p.PageToken),
			"all-branches":     optBool(p.AllBranches),
			"branch":           opt(p.Branch),
			"reporting-window": opt(p.ReportingWindow),
		},
	})
}

// WorkflowRuns lists recent runs of one workflow.
func (s *InsightsService) WorkflowRuns(ctx context.Context, slug, workflow string, p InsightsParams) *apiclient.Call[Page[WorkflowRun]] {
	const op = "insights.workflow-runs"
	err := check(requireSlug(op, slug), requireString(op, "workflow-name", workflow), p.validate(op))
	return do[Page[WorkflowRun]](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "workflow-name", workflow),
		Query: map[string]any{
			"all-branches": optBool(p.AllBranches),
			"branch":       opt(p.Branch),
			"page-token":   opt(p.PageToken),
			"start-date":   opt(p.StartDate),
			"end-date":     opt(p.EndDate),
		},
	})
}

// WorkflowJobs lists metrics per job of one workflow.
func (s *InsightsService) WorkflowJobs(ctx context.Context, slug, workflow string, p InsightsParams) *apiclient.Call[Page[NamedMetrics]] {
	const op = "insights.workflow-jobs"
	err := check(requireSlug(op, slug), requireString(op, "workflow-name", workflow), p.validate(op))
	return do[Page[NamedMetrics]](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "workflow-name", workflow),
		Query: map[string]any{
			"page-token":       opt(p.PageToken),
			"all-branches":     optBool(p.AllBranches),
			"branch":           opt(p.Branch),
			"reporting-window": opt(p.ReportingWindow),
			"job-name":         opt(p.JobName),
		},
	})
}

// WorkflowSummary returns metrics and trends for one workflow.
func (s *InsightsService) WorkflowSummary(ctx context.Context, slug, workflow string, p InsightsParams) *apiclient.Call[WorkflowSummary] {
	const op = "insights.workflow-summary"
	err := check(requireSlug(op, slug), requireString(op, "workflow-name", workflow))
	return do[WorkflowSummary](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "workflow-name", workflow),
		Query: map[string]any{
			"all-branches": optBool(p.AllBranches),
			"branch":       opt(p.Branch),
		},
	})
}

// TestMetrics returns test statistics for one workflow.
func (s *InsightsService) TestMetrics(ctx context.Context, slug, workflow string, p InsightsParams) *apiclient.Call[TestMetrics] {
	const op = "insights.workflow-test-metrics"
	err := check(requireSlug(op, slug), requireString(op, "workflow-name", workflow))
	return do[TestMetrics](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "workflow-name", workflow),
		Query: map[string]any{
			"branch":       opt(p.Branch),
			"all-branches": optBool(p.AllBranches),
		},
	})
}
