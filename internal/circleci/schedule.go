package circleci

import (
	"context"
	"strings"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Weekdays and Months are the timetable enums.
var (
	Weekdays = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}
	Months   = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
)

// Attribution actors for scheduled pipelines.
const (
	AttributionCurrent = "current"
	AttributionSystem  = "system"
)

// Validate checks the timetable ranges and enums. A timetable needs
// days-of-week or days-of-month.
func (t Timetable) Validate(op string) error {
	if t.PerHour < 1 || t.PerHour > 60 {
		return clierrors.Invalid(op, "per-hour", "per-hour must be between 1 and 60, got %d", t.PerHour)
	}
	if len(t.HoursOfDay) == 0 {
		return clierrors.Invalid(op, "hours-of-day", "at least one hour is required")
	}
	for _, h := range t.HoursOfDay {
		if h < 0 || h > 23 {
			return clierrors.Invalid(op, "hours-of-day", "hour %d out of range 0-23", h)
		}
	}
	if len(t.DaysOfWeek) == 0 && len(t.DaysOfMonth) == 0 {
		return clierrors.Invalid(op, "days-of-week", "days-of-week or days-of-month is required")
	}
	for _, d := range t.DaysOfWeek {
		if err := requireOneOf(op, "days-of-week", d, Weekdays...); err != nil {
			return err
		}
	}
	for _, d := range t.DaysOfMonth {
		if d < 1 || d > 31 {
			return clierrors.Invalid(op, "days-of-month", "day %d out of range 1-31", d)
		}
	}
	for _, m := range t.Months {
		if err := requireOneOf(op, "months", m, Months...); err != nil {
			return err
		}
	}
	return nil
}

// Normalize upper-cases the enums and fills the defaults the CLI applies:
// every weekday when no days are given and midnight when no hours are.
func (t *Timetable) Normalize() {
	for i, d := range t.DaysOfWeek {
		t.DaysOfWeek[i] = strings.ToUpper(strings.TrimSpace(d))
	}
	for i, m := range t.Months {
		t.Months[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	if len(t.DaysOfWeek) == 0 && len(t.DaysOfMonth) == 0 {
		t.DaysOfWeek = append([]string(nil), Weekdays...)
	}
	if len(t.HoursOfDay) == 0 {
		t.HoursOfDay = []int{0}
	}
}

// ScheduleService covers scheduled pipelines.
type ScheduleService struct {
	client *apiclient.Client
}

// ScheduleRequest creates a schedule. Parameters must include "branch"
// or "tag".
type ScheduleRequest struct {
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	AttributionActor string         `json:"attribution-actor"`
	Parameters       map[string]any `json:"parameters"`
	Timetable        Timetable      `json:"timetable"`
}

// Create creates a schedule on a project.
func (s *ScheduleService) Create(ctx context.Context, slug string, req ScheduleRequest) *apiclient.Call[Schedule] {
	const op = "schedule.create"
	if req.AttributionActor == "" {
		req.AttributionActor = AttributionCurrent
	}
	if req.Parameters == nil {
		req.Parameters = map[string]any{}
	}
	err := check(
		requireSlug(op, slug),
		requireString(op, "name", req.Name),
		requireOneOf(op, "attribution-actor", req.AttributionActor, AttributionCurrent, AttributionSystem),
		req.Timetable.Validate(op),
	)
	if err == nil && req.Parameters["branch"] == nil && req.Parameters["tag"] == nil {
		err = clierrors.Invalid(op, "parameters", "parameters must include branch or tag")
	}
	return do[Schedule](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug),
		Body: req,
	})
}

// List lists one page of a project's schedules.
func (s *ScheduleService) List(ctx context.Context, slug, pageToken string) *apiclient.Call[Page[Schedule]] {
	const op = "schedule.list"
	return do[Page[Schedule]](ctx, s.client, op, requireSlug(op, slug), apiclient.Args{
		Path:  path("project-slug", slug),
		Query: map[string]any{"page-token": opt(pageToken)},
	})
}

// Get returns a schedule by ID.
func (s *ScheduleService) Get(ctx context.Context, id string) *apiclient.Call[Schedule] {
	const op = "schedule.get"
	return do[Schedule](ctx, s.client, op, requireUUID(op, "schedule-id", id), apiclient.Args{
		Path: path("schedule-id", id),
	})
}

// ScheduleUpdate changes the non-empty fields of a schedule.
type ScheduleUpdate struct {
	Name             string         `json:"name,omitempty"`
	Description      string         `json:"description,omitempty"`
	AttributionActor string         `json:"attribution-actor,omitempty"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	Timetable        *Timetable     `json:"timetable,omitempty"`
}

// Update patches a schedule.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleUpdate) *apiclient.Call[Schedule] {
	const op = "schedule.update"
	err := requireUUID(op, "schedule-id", id)
	if err == nil && req.AttributionActor != "" {
		err = requireOneOf(op, "attribution-actor", req.AttributionActor, AttributionCurrent, AttributionSystem)
	}
	if err == nil && req.Timetable != nil {
		err = req.Timetable.Validate(op)
	}
	return do[Schedule](ctx, s.client, op, err, apiclient.Args{
		Path: path("schedule-id", id),
		Body: req,
	})
}

// Delete deletes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) *apiclient.Call[Message] {
	const op = "schedule.delete"
	return do[Message](ctx, s.client, op, requireUUID(op, "schedule-id", id), apiclient.Args{
		Path: path("schedule-id", id),
	})
}
