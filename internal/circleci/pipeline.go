package circleci

import (
	"context"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// PipelineService covers /pipeline and /project/{slug}/pipeline.
type PipelineService struct {
	client *apiclient.Client
}

// PipelineListParams filters GET /pipeline.
type PipelineListParams struct {
	OrgSlug   string
	PageToken string
	Mine      bool
}

// List returns the most recent pipelines across an organization.
func (s *PipelineService) List(ctx context.Context, p PipelineListParams) *apiclient.Call[Page[Pipeline]] {
	return do[Page[Pipeline]](ctx, s.client, "pipeline.list", nil, apiclient.Args{
		Query: map[string]any{
			"org-slug":   opt(p.OrgSlug),
			"page-token": opt(p.PageToken),
			"mine":       optTrue(p.Mine),
		},
	})
}

// ContinueRequest resumes a setup workflow with generated configuration.
type ContinueRequest struct {
	ContinuationKey string         `json:"continuation-key"`
	Configuration   string         `json:"configuration"`
	Parameters      map[string]any `json:"parameters,omitempty"`
}

// Continue posts the continuation of a setup pipeline.
func (s *PipelineService) Continue(ctx context.Context, req ContinueRequest) *apiclient.Call[Message] {
	const op = "pipeline.continue"
	err := check(
		requireString(op, "continuation-key", req.ContinuationKey),
		requireString(op, "configuration", req.Configuration),
	)
	return do[Message](ctx, s.client, op, err, apiclient.Args{Body: req})
}

// Get returns a pipeline by ID.
func (s *PipelineService) Get(ctx context.Context, pipelineID string) *apiclient.Call[Pipeline] {
	const op = "pipeline.get"
	return do[Pipeline](ctx, s.client, op, requireUUID(op, "pipeline-id", pipelineID), apiclient.Args{
		Path: path("pipeline-id", pipelineID),
	})
}

// Config returns the source and compiled configuration of a pipeline.
func (s *PipelineService) Config(ctx context.Context, pipelineID string) *apiclient.Call[PipelineConfig] {
	const op = "pipeline.config"
	return do[PipelineConfig](ctx, s.client, op, requireUUID(op, "pipeline-id", pipelineID), apiclient.Args{
		Path: path("pipeline-id", pipelineID),
	})
}

// Workflows lists one page of a pipeline's workflows.
func (s *PipelineService) Workflows(ctx context.Context, pipelineID, pageToken string) *apiclient.Call[Page[Workflow]] {
	const op = "pipeline.workflows"
	return do[Page[Workflow]](ctx, s.client, op, requireUUID(op, "pipeline-id", pipelineID), apiclient.Args{
		Path:  path("pipeline-id", pipelineID),
		Query: map[string]any{"page-token": opt(pageToken)},
	})
}

// ProjectPipelineParams filters a project's pipeline list.
type ProjectPipelineParams struct {
	Branch    string
	PageToken string
	Mine      bool
}

// ListForProject lists one page of a project's pipelines. With Mine set
// it uses the /pipeline/mine endpoint, which ignores Branch.
func (s *PipelineService) ListForProject(ctx context.Context, slug string, p ProjectPipelineParams) *apiclient.Call[Page[Pipeline]] {
	op := "pipeline.list-project"
	query := map[string]any{"branch": opt(p.Branch), "page-token": opt(p.PageToken)}
	if p.Mine {
		op = "pipeline.list-mine"
		query = map[string]any{"page-token": opt(p.PageToken)}
	}
	return do[Page[Pipeline]](ctx, s.client, op, requireSlug(op, slug), apiclient.Args{
		Path:  path("project-slug", slug),
		Query: query,
	})
}

// ListMine lists pipelines in a project triggered by the current user.
func (s *PipelineService) ListMine(ctx context.Context, slug, pageToken string) *apiclient.Call[Page[Pipeline]] {
	return s.ListForProject(ctx, slug, ProjectPipelineParams{PageToken: pageToken, Mine: true})
}

// TriggerRequest starts a new pipeline. Branch and Tag are exclusive.
type TriggerRequest struct {
	Branch     string         `json:"branch,omitempty"`
	Tag        string         `json:"tag,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Trigger starts a pipeline on a project.
func (s *PipelineService) Trigger(ctx context.Context, slug string, req TriggerRequest) *apiclient.Call[PipelineCreation] {
	const op = "pipeline.trigger"
	err := requireSlug(op, slug)
	if err == nil && req.Branch != "" && req.Tag != "" {
		err = clierrors.Invalid(op, "tag", "branch and tag are mutually exclusive")
	}
	return do[PipelineCreation](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug),
		Body: req,
	})
}

// GetByNumber returns a project's pipeline by its number.
func (s *PipelineService) GetByNumber(ctx context.Context, slug string, number int64) *apiclient.Call[Pipeline] {
	const op = "pipeline.get-by-number"
	err := check(requireSlug(op, slug), requirePositive(op, "pipeline-number", number))
	return do[Pipeline](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "pipeline-number", number),
	})
}
