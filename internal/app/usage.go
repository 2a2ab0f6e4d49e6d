package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// DefaultPollInterval is how often WaitUsageExport asks for the job state.
const DefaultPollInterval = 5 * time.Second

// ErrExportFailed is returned when a usage export ends in the failed state.
var ErrExportFailed = errors.New("usage export failed")

// WaitUsageExport polls a usage export job until it completes, fails or ctx
// ends. onPoll, when set, sees every intermediate state.
func WaitUsageExport(ctx context.Context, svc *circleci.Service, orgID, jobID string, interval time.Duration, onPoll func(*circleci.UsageExportJob)) (*circleci.UsageExportJob, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := svc.Usage.GetExport(ctx, orgID, jobID).Wait()
		if err != nil {
			return nil, err
		}
		if onPoll != nil {
			onPoll(&job)
		}
		if job.Done() {
			if job.State == circleci.ExportFailed {
				return &job, fmt.Errorf("%w: %s", ErrExportFailed, job.ErrorReason)
			}
			return &job, nil
		}

		select {
		case <-ctx.Done():
			return &job, &clierrors.CanceledError{Op: "usage.export.wait", Cause: context.Cause(ctx)}
		case <-ticker.C:
		}
	}
}
