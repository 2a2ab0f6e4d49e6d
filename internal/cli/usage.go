package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/app"
	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
	"github.com/chazuruo/circli/internal/tui"
)

// newUsageCommand creates the usage command.
func (a *App) newUsageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Organization usage exports",
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Create and fetch usage export jobs",
	}
	export.AddCommand(a.newUsageExportCreateCommand(), a.newUsageExportGetCommand())
	cmd.AddCommand(export)
	return cmd
}

// waitFlags control polling an export until it finishes.
type waitFlags struct {
	Wait     bool
	Interval time.Duration
}

func (w *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&w.Wait, "wait", false, "poll until the export completes or fails")
	cmd.Flags().DurationVar(&w.Interval, "interval", app.DefaultPollInterval, "time between polls with --wait")
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(op, field, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, clierrors.Invalid(op, field, "%q is not an ISO 8601 date", s)
}

func (a *App) newUsageExportCreateCommand() *cobra.Command {
	var start, end string
	var shared []string
	var wf waitFlags
	cmd := &cobra.Command{
		Use:   "create <org-id>",
		Short: "Start a usage export",
		Example: `  circli usage export create <org-id> --start 2026-09-01 --end 2026-10-01 --wait`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			const op = "usage.export.create"
			s, err := parseDate(op, "start", start)
			if err != nil {
				return err
			}
			e, err := parseDate(op, "end", end)
			if err != nil {
				return err
			}
			job, err := svc.Usage.CreateExport(ctx, args[0], circleci.UsageExportRequest{
				Start: s, End: e, SharedOrgIDs: shared,
			}).Wait()
			if err != nil {
				return err
			}
			if !wf.Wait {
				return output.Record(a.Printer(), job)
			}
			return a.waitExport(ctx, svc, args[0], job.ID, wf.Interval)
		}),
	}
	cmd.Flags().StringVar(&start, "start", "", "start of the period (ISO 8601)")
	cmd.Flags().StringVar(&end, "end", "", "end of the period (ISO 8601)")
	cmd.Flags().StringSliceVar(&shared, "shared-org-ids", nil, "other organizations to include")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	wf.register(cmd)
	return cmd
}

func (a *App) newUsageExportGetCommand() *cobra.Command {
	var wf waitFlags
	cmd := &cobra.Command{
		Use:   "get <org-id> <job-id>",
		Short: "Show a usage export and its download links",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if wf.Wait {
				return a.waitExport(ctx, svc, args[0], args[1], wf.Interval)
			}
			return show(a, svc.Usage.GetExport(ctx, args[0], args[1]))
		}),
	}
	wf.register(cmd)
	return cmd
}

// waitExport polls an export to the end, behind a spinner when a
// terminal is attached, and prints the final job.
func (a *App) waitExport(ctx context.Context, svc *circleci.Service, orgID, jobID string, interval time.Duration) error {
	var job *circleci.UsageExportJob
	poll := func(ctx context.Context, onPoll func(*circleci.UsageExportJob)) error {
		var err error
		job, err = app.WaitUsageExport(ctx, svc, orgID, jobID, interval, onPoll)
		return err
	}

	var err error
	if a.Interactive() {
		err = tui.Wait(ctx, a.Err, "Waiting for usage export "+jobID, func(ctx context.Context, update func(string)) error {
			return poll(ctx, func(j *circleci.UsageExportJob) { update(output.Status(j.State)) })
		})
	} else {
		err = poll(ctx, func(j *circleci.UsageExportJob) {
			a.hint("Export %s: %s", jobID, j.State)
		})
	}
	if job != nil {
		if perr := output.Record(a.Printer(), job); perr != nil {
			return perr
		}
	}
	return err
}
