package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/fanout"
)

// DefaultMaxPipelines bounds how far back CancelRedundant looks on a branch.
const DefaultMaxPipelines = 100

// CancelOptions controls CancelPipeline.
type CancelOptions struct {
	// DryRun lists the targets without cancelling them.
	DryRun bool
	// Concurrency bounds parallel cancel requests. Zero means unbounded.
	Concurrency int
}

// CancelOutcome is what happened to one targeted workflow.
type CancelOutcome struct {
	Workflow circleci.Workflow `json:"workflow" yaml:"workflow"`
	Canceled bool              `json:"canceled" yaml:"canceled"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// CancelReport is the result of CancelPipeline.
type CancelReport struct {
	PipelineID string          `json:"pipeline_id" yaml:"pipeline_id"`
	DryRun     bool            `json:"dry_run" yaml:"dry_run"`
	Targets    []CancelOutcome `json:"targets" yaml:"targets"`
}

// cancellable reports whether CancelPipeline targets a workflow.
func cancellable(status string) bool {
	return status == circleci.StatusRunning || status == circleci.StatusOnHold
}

// CancelPipeline cancels every running or on-hold workflow in the pipeline
// that owns workflowID. All cancel requests run in parallel and every
// failure is returned, joined.
func CancelPipeline(ctx context.Context, svc *circleci.Service, workflowID string, opts CancelOptions) (*CancelReport, error) {
	wf, err := svc.Workflows.Get(ctx, workflowID).Wait()
	if err != nil {
		return nil, err
	}

	workflows, err := ListPages[circleci.Workflow](ctx, 0, func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Workflow]] {
		return svc.Pipelines.Workflows(ctx, wf.PipelineID, token)
	})
	if err != nil {
		return nil, err
	}

	report := &CancelReport{PipelineID: wf.PipelineID, DryRun: opts.DryRun}
	var targets []circleci.Workflow
	for _, w := range workflows {
		if cancellable(w.Status) {
			targets = append(targets, w)
		}
	}
	slog.Debug("pipeline cancel targets", "pipeline", wf.PipelineID, "workflows", len(workflows), "targets", len(targets))

	if opts.DryRun {
		for _, w := range targets {
			report.Targets = append(report.Targets, CancelOutcome{Workflow: w})
		}
		return report, nil
	}

	report.Targets, err = cancelAll(ctx, svc, targets, opts.Concurrency)
	return report, err
}

// cancelAll cancels each workflow as its own task, named by workflow ID.
func cancelAll(ctx context.Context, svc *circleci.Service, targets []circleci.Workflow, limit int) ([]CancelOutcome, error) {
	g := fanout.New(ctx, fanout.WithLimit(limit))
	for _, w := range targets {
		g.Go(w.ID, func(ctx context.Context) error {
			_, err := svc.Workflows.Cancel(ctx, w.ID).Wait()
			return err
		})
	}
	err := g.Wait()

	byID := make(map[string]error, len(targets))
	for _, r := range g.Results() {
		byID[r.Name] = r.Err
	}
	outcomes := make([]CancelOutcome, 0, len(targets))
	for _, w := range targets {
		outcomes = append(outcomes, outcome(w, byID[w.ID]))
	}
	return outcomes, err
}

func outcome(w circleci.Workflow, err error) CancelOutcome {
	if err != nil {
		return CancelOutcome{Workflow: w, Error: err.Error()}
	}
	return CancelOutcome{Workflow: w, Canceled: true}
}

// RedundantOptions controls CancelRedundant.
type RedundantOptions struct {
	// ProjectSlug is vcs/org/repo, for example gh/acme/api.
	ProjectSlug string
	Branch      string
	// WorkflowID is the workflow doing the cancelling. Pipelines older than
	// its pipeline are supplanted.
	WorkflowID string
	// TargetUser keeps only pipelines triggered by this login.
	TargetUser   string
	MaxPipelines int
	DryRun       bool
	Concurrency  int
}

// RedundantReport is the result of CancelRedundant.
type RedundantReport struct {
	CurrentPipeline int64           `json:"current_pipeline" yaml:"current_pipeline"`
	Supplanted      []int64         `json:"supplanted" yaml:"supplanted"`
	DryRun          bool            `json:"dry_run" yaml:"dry_run"`
	Targets         []CancelOutcome `json:"targets" yaml:"targets"`
}

// CancelRedundant cancels the unfinished workflows of every pipeline on a
// branch that an older build left behind. Each supplanted pipeline is one
// task in a single group, so one cancellation stops them all.
func CancelRedundant(ctx context.Context, svc *circleci.Service, opts RedundantOptions) (*RedundantReport, error) {
	const op = "workflow.cancel-redundant"
	switch {
	case opts.ProjectSlug == "":
		return nil, clierrors.Invalid(op, "project-slug", "is required")
	case opts.Branch == "":
		return nil, clierrors.Invalid(op, "branch", "is required")
	case opts.WorkflowID == "":
		return nil, clierrors.Invalid(op, "workflow-id", "is required")
	}
	if opts.MaxPipelines <= 0 {
		opts.MaxPipelines = DefaultMaxPipelines
	}

	current, err := currentPipelineNumber(ctx, svc, opts.WorkflowID)
	if err != nil {
		return nil, err
	}

	pipelines, err := ListPages[circleci.Pipeline](ctx, opts.MaxPipelines, func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Pipeline]] {
		return svc.Pipelines.ListForProject(ctx, opts.ProjectSlug, circleci.ProjectPipelineParams{
			Branch:    opts.Branch,
			PageToken: token,
		})
	})
	if err != nil {
		return nil, err
	}

	report := &RedundantReport{CurrentPipeline: current, DryRun: opts.DryRun}
	var supplanted []circleci.Pipeline
	for _, p := range pipelines {
		if p.Number >= current {
			continue
		}
		if opts.TargetUser != "" && p.Trigger.Actor.Login != opts.TargetUser {
			continue
		}
		supplanted = append(supplanted, p)
		report.Supplanted = append(report.Supplanted, p.Number)
	}
	slog.Debug("supplanted pipelines", "branch", opts.Branch, "current", current, "count", len(supplanted))

	// Each task owns one slot, so no locking is needed.
	slots := make([][]CancelOutcome, len(supplanted))
	g := fanout.New(ctx, fanout.WithLimit(opts.Concurrency))
	for i, p := range supplanted {
		g.Go(fmt.Sprintf("pipeline %d", p.Number), func(ctx context.Context) error {
			outcomes, err := cancelUnfinished(ctx, svc, p.ID, opts.DryRun)
			slots[i] = outcomes
			return err
		})
	}
	err = g.Wait()

	// Report in pipeline number order, then workflow ID, whatever order the
	// tasks finished in.
	order := make([]int, len(supplanted))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(supplanted[a].Number, supplanted[b].Number)
	})
	for _, i := range order {
		slices.SortStableFunc(slots[i], func(a, b CancelOutcome) int {
			return strings.Compare(a.Workflow.ID, b.Workflow.ID)
		})
		report.Targets = append(report.Targets, slots[i]...)
	}
	return report, err
}

// currentPipelineNumber returns the number of the pipeline that owns the
// workflow. Older API responses omit pipeline_number on the workflow.
func currentPipelineNumber(ctx context.Context, svc *circleci.Service, workflowID string) (int64, error) {
	wf, err := svc.Workflows.Get(ctx, workflowID).Wait()
	if err != nil {
		return 0, err
	}
	if wf.PipelineNumber > 0 {
		return wf.PipelineNumber, nil
	}
	p, err := svc.Pipelines.Get(ctx, wf.PipelineID).Wait()
	if err != nil {
		return 0, err
	}
	return p.Number, nil
}

// cancelUnfinished cancels, one after another, every non-terminal workflow
// of a pipeline.
func cancelUnfinished(ctx context.Context, svc *circleci.Service, pipelineID string, dryRun bool) ([]CancelOutcome, error) {
	workflows, err := ListPages[circleci.Workflow](ctx, 0, func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Workflow]] {
		return svc.Pipelines.Workflows(ctx, pipelineID, token)
	})
	if err != nil {
		return nil, err
	}

	var outcomes []CancelOutcome
	var errs []error
	for _, w := range workflows {
		if circleci.IsTerminal(w.Status) {
			continue
		}
		if dryRun {
			outcomes = append(outcomes, CancelOutcome{Workflow: w})
			continue
		}
		_, err := svc.Workflows.Cancel(ctx, w.ID).Wait()
		outcomes = append(outcomes, outcome(w, err))
		if err != nil {
			errs = append(errs, fmt.Errorf("workflow %s: %w", w.ID, err))
		}
	}
	return outcomes, errors.Join(errs...)
}
