package circleci

import (
	"context"

	"github.com/chazuruo/circli/internal/apiclient"
)

// JobService covers job details, cancellation, artifacts and tests.
type JobService struct {
	client *apiclient.Client
}

func jobArgs(op, slug string, number int64) (apiclient.Args, error) {
	err := check(requireSlug(op, slug), requirePositive(op, "job-number", number))
	return apiclient.Args{Path: path("project-slug", slug, "job-number", number)}, err
}

// Get returns the details of a job.
func (s *JobService) Get(ctx context.Context, slug string, number int64) *apiclient.Call[JobDetails] {
	args, err := jobArgs("job.get", slug, number)
	return do[JobDetails](ctx, s.client, "job.get", err, args)
}

// Cancel cancels a job by project and number.
func (s *JobService) Cancel(ctx context.Context, slug string, number int64) *apiclient.Call[Message] {
	args, err := jobArgs("job.cancel", slug, number)
	return do[Message](ctx, s.client, "job.cancel", err, args)
}

// CancelByID cancels a job by its UUID.
func (s *JobService) CancelByID(ctx context.Context, jobID string) *apiclient.Call[Message] {
	const op = "job.cancel-by-id"
	return do[Message](ctx, s.client, op, requireUUID(op, "job-id", jobID), apiclient.Args{
		Path: path("job-id", jobID),
	})
}

// Artifacts lists a job's artifacts.
func (s *JobService) Artifacts(ctx context.Context, slug string, number int64) *apiclient.Call[Page[Artifact]] {
	args, err := jobArgs("job.artifacts", slug, number)
	return do[Page[Artifact]](ctx, s.client, "job.artifacts", err, args)
}

// Tests lists one page of a job's test results.
func (s *JobService) Tests(ctx context.Context, slug string, number int64, pageToken string) *apiclient.Call[Page[TestMetadata]] {
	args, err := jobArgs("job.tests", slug, number)
	args.Query = map[string]any{"page-token": opt(pageToken)}
	return do[Page[TestMetadata]](ctx, s.client, "job.tests", err, args)
}
