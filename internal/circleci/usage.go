package circleci

import (
	"context"
	"time"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// UsageService covers usage export jobs.
type UsageService struct {
	client *apiclient.Client
}

// UsageExportRequest asks for usage between Start and End.
type UsageExportRequest struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	SharedOrgIDs []string  `json:"shared_org_ids,omitempty"`
}

// CreateExport starts a usage export job.
func (s *UsageService) CreateExport(ctx context.Context, orgID string, req UsageExportRequest) *apiclient.Call[UsageExportJob] {
	const op = "usage.export.create"
	err := requireUUID(op, "org-id", orgID)
	if err == nil && !req.End.After(req.Start) {
		err = clierrors.Invalid(op, "end", "end must be after start")
	}
	for _, id := range req.SharedOrgIDs {
		if err == nil {
			err = requireUUID(op, "shared-org-ids", id)
		}
	}
	return do[UsageExportJob](ctx, s.client, op, err, apiclient.Args{
		Path: path("org-id", orgID),
		Body: req,
	})
}

// GetExport returns the state of a usage export job.
func (s *UsageService) GetExport(ctx context.Context, orgID, jobID string) *apiclient.Call[UsageExportJob] {
	const op = "usage.export.get"
	err := check(requireUUID(op, "org-id", orgID), requireUUID(op, "usage-export-job-id", jobID))
	return do[UsageExportJob](ctx, s.client, op, err, apiclient.Args{
		Path: path("org-id", orgID, "usage-export-job-id", jobID),
	})
}
