package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/output"
)

var scheduleColumns = []output.Column[circleci.Schedule]{
	output.Col("ID", func(s circleci.Schedule) any { return s.ID }),
	output.Col("Name", func(s circleci.Schedule) any { return s.Name }),
	output.Col("Per Hour", func(s circleci.Schedule) any { return s.Timetable.PerHour }),
	output.Col("Hours", func(s circleci.Schedule) any { return joinInts(s.Timetable.HoursOfDay) }),
	output.Col("Days", func(s circleci.Schedule) any { return s.Timetable.DaysOfWeek }),
	output.Col("Actor", func(s circleci.Schedule) any { return s.Actor.Login }),
	output.Col("Updated At", func(s circleci.Schedule) any { return output.Time(s.UpdatedAt) }),
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// newScheduleCommand creates the schedule command.
func (a *App) newScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"schedules"},
		Short:   "Manage scheduled pipeline triggers",
	}
	cmd.AddCommand(
		a.newScheduleListCommand(),
		a.newScheduleGetCommand(),
		a.newScheduleCreateCommand(),
		a.newScheduleUpdateCommand(),
		a.newScheduleDeleteCommand(),
	)
	return cmd
}

func (a *App) newScheduleListCommand() *cobra.Command {
	var pageToken string
	cmd := &cobra.Command{
		Use:   "list [project-slug]",
		Short: "List the schedules of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, err := a.projectSlug("schedule.list", "", args)
			if err != nil {
				return err
			}
			return showPage(a, svc.Schedules.List(ctx, slug, pageToken), scheduleColumns...)
		}),
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "next page token")
	return cmd
}

func (a *App) newScheduleGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <schedule-id>",
		Short: "Show a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Schedules.Get(ctx, args[0]))
		}),
	}
}

// timetableFlags are the flags describing when a schedule fires.
type timetableFlags struct {
	PerHour     int
	HoursOfDay  []int
	DaysOfWeek  []string
	DaysOfMonth []int
	Months      []string
}

func (t *timetableFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&t.PerHour, "per-hour", 1, "triggers per hour (1-60)")
	f.IntSliceVar(&t.HoursOfDay, "hours-of-day", nil, "comma-separated UTC hours (0-23)")
	f.StringSliceVar(&t.DaysOfWeek, "days-of-week", nil, "comma-separated days (MON,TUE,...)")
	f.IntSliceVar(&t.DaysOfMonth, "days-of-month", nil, "comma-separated days of the month (1-31)")
	f.StringSliceVar(&t.Months, "months", nil, "comma-separated months (JAN,FEB,...)")
}

func (t *timetableFlags) timetable() circleci.Timetable {
	return circleci.Timetable{
		PerHour:     t.PerHour,
		HoursOfDay:  t.HoursOfDay,
		DaysOfWeek:  upper(t.DaysOfWeek),
		DaysOfMonth: t.DaysOfMonth,
		Months:      upper(t.Months),
	}
}

func upper(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}

// scheduleParams builds the parameters a schedule triggers with. The
// branch or tag travels as a parameter.
func scheduleParams(op, branch, tag string, pairs []string) (map[string]any, error) {
	params, err := parseParams(op, pairs)
	if err != nil {
		return nil, err
	}
	if branch == "" && tag == "" {
		return params, nil
	}
	if params == nil {
		params = map[string]any{}
	}
	if branch != "" {
		params["branch"] = branch
	}
	if tag != "" {
		params["tag"] = tag
	}
	return params, nil
}

func (a *App) newScheduleCreateCommand() *cobra.Command {
	var tt timetableFlags
	var name, description, actor, branch, tag string
	var params []string
	cmd := &cobra.Command{
		Use:   "create [project-slug]",
		Short: "Create a schedule",
		Example: `  circli schedule create gh/acme/api --name nightly --branch main \
    --hours-of-day 2 --days-of-week MON,TUE,WED,THU,FRI`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, err := a.projectSlug("schedule.create", "", args)
			if err != nil {
				return err
			}
			p, err := scheduleParams("schedule.create", branch, tag, params)
			if err != nil {
				return err
			}
			return show(a, svc.Schedules.Create(ctx, slug, circleci.ScheduleRequest{
				Name:             name,
				Description:      description,
				AttributionActor: actor,
				Parameters:       p,
				Timetable:        tt.timetable(),
			}))
		}),
	}
	tt.register(cmd)
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "schedule name")
	f.StringVar(&description, "description", "", "schedule description")
	f.StringVar(&actor, "attribution-actor", circleci.AttributionCurrent, "who the pipelines are attributed to: current or system")
	f.StringVar(&branch, "branch", "", "branch to build")
	f.StringVar(&tag, "tag", "", "tag to build")
	f.StringArrayVar(&params, "param", nil, "pipeline parameter key=value (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	cmd.MarkFlagsMutuallyExclusive("branch", "tag")
	return cmd
}

func (a *App) newScheduleUpdateCommand() *cobra.Command {
	var tt timetableFlags
	var name, description, actor, branch, tag string
	var params []string
	cmd := &cobra.Command{
		Use:   "update <schedule-id>",
		Short: "Change a schedule; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := scheduleParams("schedule.update", branch, tag, params)
			if err != nil {
				return err
			}
			upd := circleci.ScheduleUpdate{
				Name:             name,
				Description:      description,
				AttributionActor: actor,
				Parameters:       p,
			}
			f := cmd.Flags()
			if f.Changed("per-hour") || f.Changed("hours-of-day") || f.Changed("days-of-week") ||
				f.Changed("days-of-month") || f.Changed("months") {
				t := tt.timetable()
				upd.Timetable = &t
			}
			return a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
				return show(a, svc.Schedules.Update(ctx, args[0], upd))
			})(cmd, args)
		},
	}
	tt.register(cmd)
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "new name")
	f.StringVar(&description, "description", "", "new description")
	f.StringVar(&actor, "attribution-actor", "", "current or system")
	f.StringVar(&branch, "branch", "", "branch to build")
	f.StringVar(&tag, "tag", "", "tag to build")
	f.StringArrayVar(&params, "param", nil, "pipeline parameter key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("branch", "tag")
	return cmd
}

func (a *App) newScheduleDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <schedule-id>",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Schedules.Delete(ctx, args[0]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}
}
