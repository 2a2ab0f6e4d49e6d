package circleci

import (
	"context"

	"github.com/chazuruo/circli/internal/apiclient"
)

// Workflow statuses.
const (
	StatusSuccess      = "success"
	StatusRunning      = "running"
	StatusNotRun       = "not_run"
	StatusFailed       = "failed"
	StatusError        = "error"
	StatusFailing      = "failing"
	StatusOnHold       = "on_hold"
	StatusCanceled     = "canceled"
	StatusUnauthorized = "unauthorized"
)

// terminalStatuses are the workflow states that can no longer change.
var terminalStatuses = map[string]bool{
	StatusSuccess:      true,
	StatusFailed:       true,
	StatusError:        true,
	StatusFailing:      true,
	StatusCanceled:     true,
	StatusUnauthorized: true,
	StatusNotRun:       true,
}

// IsTerminal reports whether a workflow status is final.
func IsTerminal(status string) bool {
	return terminalStatuses[status]
}

// WorkflowService covers /workflow/{id}.
type WorkflowService struct {
	client *apiclient.Client
}

// Get returns a workflow by ID.
func (s *WorkflowService) Get(ctx context.Context, id string) *apiclient.Call[Workflow] {
	const op = "workflow.get"
	return do[Workflow](ctx, s.client, op, requireUUID(op, "id", id), apiclient.Args{Path: path("id", id)})
}

// Approve approves a pending approval job.
func (s *WorkflowService) Approve(ctx context.Context, id, approvalRequestID string) *apiclient.Call[Message] {
	const op = "workflow.approve"
	err := check(requireUUID(op, "id", id), requireUUID(op, "approval_request_id", approvalRequestID))
	return do[Message](ctx, s.client, op, err, apiclient.Args{
		Path: path("id", id, "approval_request_id", approvalRequestID),
	})
}

// Cancel cancels a running workflow.
func (s *WorkflowService) Cancel(ctx context.Context, id string) *apiclient.Call[Message] {
	const op = "workflow.cancel"
	return do[Message](ctx, s.client, op, requireUUID(op, "id", id), apiclient.Args{Path: path("id", id)})
}

// Jobs lists one page of a workflow's jobs.
func (s *WorkflowService) Jobs(ctx context.Context, id, pageToken string) *apiclient.Call[Page[Job]] {
	const op = "workflow.jobs"
	return do[Page[Job]](ctx, s.client, op, requireUUID(op, "id", id), apiclient.Args{
		Path:  path("id", id),
		Query: map[string]any{"page-token": opt(pageToken)},
	})
}

// RerunRequest selects what a rerun repeats.
type RerunRequest struct {
	FromFailed bool     `json:"from_failed,omitempty"`
	SparseTree bool     `json:"sparse_tree,omitempty"`
	EnableSSH  bool     `json:"enable_ssh,omitempty"`
	Jobs       []string `json:"jobs,omitempty"`
}

// Rerun reruns a workflow.
func (s *WorkflowService) Rerun(ctx context.Context, id string, req RerunRequest) *apiclient.Call[RerunResult] {
	const op = "workflow.rerun"
	err := requireUUID(op, "id", id)
	for _, job := range req.Jobs {
		if err == nil {
			err = requireUUID(op, "jobs", job)
		}
	}
	return do[RerunResult](ctx, s.client, op, err, apiclient.Args{
		Path: path("id", id),
		Body: req,
	})
}
