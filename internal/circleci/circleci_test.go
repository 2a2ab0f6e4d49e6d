package circleci_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/apitest"
	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

func newService(t *testing.T) (*circleci.Service, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	return circleci.New(srv.Client()), srv
}

func TestPipelines_ListForProject(t *testing.T) {
	svc, srv := newService(t)
	srv.GET("/project/:slug/pipeline", func(c echo.Context) error {
		assert.Equal(t, "gh/org/repo", apitest.Param(c, "slug"))
		return c.JSON(http.StatusOK, circleci.Page[circleci.Pipeline]{
			Items:         []circleci.Pipeline{{ID: apitest.ID(1), Number: 7, State: "created"}},
			NextPageToken: "next",
		})
	})

	page, err := svc.Pipelines.ListForProject(context.Background(), "gh/org/repo", circleci.ProjectPipelineParams{Branch: "main"}).Wait()
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(7), page.Items[0].Number)
	assert.Equal(t, "next", page.NextPageToken)

	req := srv.Last()
	assert.Equal(t, "/project/gh%2Forg%2Frepo/pipeline", req.Path)
	assert.Equal(t, "main", req.Query.Get("branch"))
	assert.False(t, req.Query.Has("page-token"))
}

func TestPipelines_ListMineUsesMineEndpoint(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodGet, "/project/:slug/pipeline/mine", http.StatusOK, circleci.Page[circleci.Pipeline]{})

	_, err := svc.Pipelines.ListForProject(context.Background(), "gh/org/repo", circleci.ProjectPipelineParams{Mine: true, PageToken: "p2"}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "/project/gh%2Forg%2Frepo/pipeline/mine", srv.Last().Path)
	assert.Equal(t, "p2", srv.Last().Query.Get("page-token"))
}

func TestPipelines_Trigger(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/project/:slug/pipeline", http.StatusCreated, circleci.PipelineCreation{ID: apitest.ID(2), Number: 8, State: "pending"})

	got, err := svc.Pipelines.Trigger(context.Background(), "gh/org/repo", circleci.TriggerRequest{
		Branch:     "main",
		Parameters: map[string]any{"deploy": true},
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Number)

	var body map[string]any
	require.NoError(t, json.Unmarshal(srv.Last().Body, &body))
	assert.Equal(t, "main", body["branch"])
	assert.NotContains(t, body, "tag")
	assert.Equal(t, map[string]any{"deploy": true}, body["parameters"])

	_, err = svc.Pipelines.Trigger(context.Background(), "gh/org/repo", circleci.TriggerRequest{Branch: "a", Tag: "b"}).Wait()
	assert.True(t, clierrors.IsInvalid(err))
}

func TestValidationSendsNothing(t *testing.T) {
	svc, srv := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		wait func() error
	}{
		{"workflow id not a uuid", func() error { _, err := svc.Workflows.Get(ctx, "abc").Wait(); return err }},
		{"empty workflow id", func() error { _, err := svc.Workflows.Cancel(ctx, "").Wait(); return err }},
		{"bad slug", func() error { _, err := svc.Projects.Get(ctx, "gh/org").Wait(); return err }},
		{"job number zero", func() error { _, err := svc.Jobs.Get(ctx, "gh/o/r", 0).Wait(); return err }},
		{"bad env name", func() error { _, err := svc.Contexts.SetEnv(ctx, apitest.ID(1), "1BAD", "v").Wait(); return err }},
		{"context owner missing", func() error { _, err := svc.Contexts.List(ctx, circleci.ContextListParams{}).Wait(); return err }},
		{"bad reporting window", func() error {
			_, err := svc.Insights.Workflows(ctx, "gh/o/r", circleci.InsightsParams{ReportingWindow: "last-year"}).Wait()
			return err
		}},
		{"bad start date", func() error {
			_, err := svc.Insights.WorkflowRuns(ctx, "gh/o/r", "build", circleci.InsightsParams{StartDate: "yesterday"}).Wait()
			return err
		}},
		{"unknown claim", func() error { _, err := svc.OIDC.DeleteOrgClaims(ctx, apitest.ID(1), []string{"sub"}).Wait(); return err }},
		{"patch claims empty", func() error {
			_, err := svc.OIDC.PatchOrgClaims(ctx, apitest.ID(1), circleci.PatchClaimsRequest{}).Wait()
			return err
		}},
		{"bad policy context", func() error { _, err := svc.Policy.GetSettings(ctx, apitest.ID(1), "deploy").Wait(); return err }},
		{"empty settings update", func() error {
			_, err := svc.Projects.UpdateSettings(ctx, "gh/o/r", circleci.AdvancedSettings{}).Wait()
			return err
		}},
		{"bad key type", func() error { _, err := svc.Projects.CreateCheckoutKey(ctx, "gh/o/r", "root-key").Wait(); return err }},
		{"export window reversed", func() error {
			now := time.Now()
			_, err := svc.Usage.CreateExport(ctx, apitest.ID(1), circleci.UsageExportRequest{Start: now, End: now.Add(-time.Hour)}).Wait()
			return err
		}},
		{"webhook bad event", func() error {
			_, err := svc.Webhooks.Create(ctx, circleci.WebhookRequest{
				Name: "n", URL: "https://example.com/hook", SigningSecret: "s",
				Events: []string{"pipeline-started"}, Scope: circleci.WebhookScope{ID: apitest.ID(1)},
			}).Wait()
			return err
		}},
		{"webhook relative url", func() error {
			_, err := svc.Webhooks.Create(ctx, circleci.WebhookRequest{
				Name: "n", URL: "/hook", SigningSecret: "s",
				Events: []string{circleci.EventJobCompleted}, Scope: circleci.WebhookScope{ID: apitest.ID(1)},
			}).Wait()
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wait()
			require.Error(t, err)
			assert.True(t, clierrors.IsInvalid(err), "want validation error, got %v", err)
		})
	}
	assert.Empty(t, srv.Requests())
}

func TestWorkflows_CancelNotFound(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/workflow/:id/cancel", http.StatusNotFound, map[string]string{"message": "Workflow not found"})

	_, err := svc.Workflows.Cancel(context.Background(), apitest.ID(3)).Wait()
	require.Error(t, err)
	assert.True(t, clierrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Workflow not found")
}

func TestWorkflows_Rerun(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/workflow/:id/rerun", http.StatusAccepted, circleci.RerunResult{WorkflowID: apitest.ID(9)})

	got, err := svc.Workflows.Rerun(context.Background(), apitest.ID(3), circleci.RerunRequest{FromFailed: true}).Wait()
	require.NoError(t, err)
	assert.Equal(t, apitest.ID(9), got.WorkflowID)
	assert.JSONEq(t, `{"from_failed":true}`, string(srv.Last().Body))
}

func TestUnauthorized(t *testing.T) {
	srv := apitest.New(t)
	bad := circleci.New(apiclient.New(apiclient.Config{BaseURL: srv.URL, Token: "wrong"}))

	_, err := bad.Users.Me(context.Background()).Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, clierrors.ErrUnauthorized)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "/me"))
}

func TestContexts_CreateBody(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/context", http.StatusOK, circleci.Context{ID: apitest.ID(4), Name: "deploy"})

	got, err := svc.Contexts.Create(context.Background(), circleci.CreateContextRequest{
		Name: "deploy", OwnerID: apitest.ID(5), OwnerType: circleci.OwnerOrganization,
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "deploy", got.Name)
	assert.JSONEq(t, `{"name":"deploy","owner":{"id":"`+apitest.ID(5)+`","type":"organization"}}`, string(srv.Last().Body))
}

func TestContexts_SetEnv(t *testing.T) {
	svc, srv := newService(t)
	srv.PUT("/context/:id/environment-variable/:name", func(c echo.Context) error {
		return c.JSON(http.StatusOK, circleci.EnvironmentVariable{Variable: c.Param("name"), ContextID: c.Param("id")})
	})

	got, err := svc.Contexts.SetEnv(context.Background(), apitest.ID(4), "AWS_KEY", "secret").Wait()
	require.NoError(t, err)
	assert.Equal(t, "AWS_KEY", got.Variable)
	assert.JSONEq(t, `{"value":"secret"}`, string(srv.Last().Body))
}

func TestOIDC_DeleteClaimsCommaJoined(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodDelete, "/org/:org/oidc-custom-claims", http.StatusOK, circleci.ClaimResponse{OrgID: apitest.ID(1)})

	_, err := svc.OIDC.DeleteOrgClaims(context.Background(), apitest.ID(1), []string{"audience", "ttl"}).Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{"audience,ttl"}, srv.Last().Query["claims"])
}

func TestPolicy_ListDecisionsQuery(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodGet, "/owner/:owner/context/:ctx/decision", http.StatusOK, []circleci.DecisionLog{{ID: apitest.ID(6)}})

	logs, err := svc.Policy.ListDecisions(context.Background(), apitest.ID(1), circleci.PolicyContextConfig, circleci.DecisionListParams{
		Status: "PASS",
		Offset: 20,
	}).Wait()
	require.NoError(t, err)
	require.Len(t, logs, 1)

	q := srv.Last().Query
	assert.Equal(t, "PASS", q.Get("status"))
	assert.Equal(t, "20", q.Get("offset"))
	assert.False(t, q.Has("branch"))
}

func TestPolicy_CreateBundleDry(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/owner/:owner/context/:ctx/policy-bundle", http.StatusOK, circleci.BundleDiff{Created: []string{"org"}})

	diff, err := svc.Policy.CreateBundle(context.Background(), apitest.ID(1), "config", map[string]string{"org.rego": "package org"}, true).Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{"org"}, diff.Created)
	assert.Equal(t, "true", srv.Last().Query.Get("dry"))
}

func TestPolicy_BundlePayloadTooLarge(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/owner/:owner/context/:ctx/policy-bundle", http.StatusRequestEntityTooLarge, nil)

	_, err := svc.Policy.CreateBundle(context.Background(), apitest.ID(1), "config", map[string]string{"a.rego": "x"}, false).Wait()
	he, ok := clierrors.AsHTTPError(err)
	require.True(t, ok)
	assert.Contains(t, he.Message, "maximum payload size")
}

func TestProjects_SettingsTriplePath(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPatch, "/project/:provider/:org/:project/settings", http.StatusOK, circleci.ProjectSettings{})

	on := true
	_, err := svc.Projects.UpdateSettings(context.Background(), "gh/CircleCI-Public/api-preview-docs", circleci.AdvancedSettings{OSS: &on}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "/project/gh/CircleCI-Public/api-preview-docs/settings", srv.Last().Path)
	assert.JSONEq(t, `{"advanced":{"oss":true}}`, string(srv.Last().Body))
}

func TestSchedules_Create(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodPost, "/project/:slug/schedule", http.StatusCreated, circleci.Schedule{ID: apitest.ID(7), Name: "nightly"})

	tt := circleci.Timetable{PerHour: 1, DaysOfWeek: []string{"mon"}}
	tt.Normalize()
	got, err := svc.Schedules.Create(context.Background(), "gh/o/r", circleci.ScheduleRequest{
		Name:       "nightly",
		Parameters: map[string]any{"branch": "main"},
		Timetable:  tt,
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)

	var body map[string]any
	require.NoError(t, json.Unmarshal(srv.Last().Body, &body))
	assert.Equal(t, "current", body["attribution-actor"])
	timetable := body["timetable"].(map[string]any)
	assert.Equal(t, []any{"MON"}, timetable["days-of-week"])
	assert.Equal(t, []any{float64(0)}, timetable["hours-of-day"])
}

func TestTimetable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tt      circleci.Timetable
		wantErr bool
	}{
		{"valid weekly", circleci.Timetable{PerHour: 1, HoursOfDay: []int{0, 12}, DaysOfWeek: []string{"MON"}}, false},
		{"valid monthly", circleci.Timetable{PerHour: 60, HoursOfDay: []int{23}, DaysOfMonth: []int{1, 31}, Months: []string{"JAN"}}, false},
		{"per-hour zero", circleci.Timetable{PerHour: 0, HoursOfDay: []int{0}, DaysOfWeek: []string{"MON"}}, true},
		{"per-hour 61", circleci.Timetable{PerHour: 61, HoursOfDay: []int{0}, DaysOfWeek: []string{"MON"}}, true},
		{"hour 24", circleci.Timetable{PerHour: 1, HoursOfDay: []int{24}, DaysOfWeek: []string{"MON"}}, true},
		{"day 0", circleci.Timetable{PerHour: 1, HoursOfDay: []int{1}, DaysOfMonth: []int{0}}, true},
		{"day 32", circleci.Timetable{PerHour: 1, HoursOfDay: []int{1}, DaysOfMonth: []int{32}}, true},
		{"bad weekday", circleci.Timetable{PerHour: 1, HoursOfDay: []int{1}, DaysOfWeek: []string{"FUNDAY"}}, true},
		{"bad month", circleci.Timetable{PerHour: 1, HoursOfDay: []int{1}, DaysOfWeek: []string{"MON"}, Months: []string{"SMARCH"}}, true},
		{"no days", circleci.Timetable{PerHour: 1, HoursOfDay: []int{1}}, true},
		{"no hours", circleci.Timetable{PerHour: 1, DaysOfWeek: []string{"MON"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tt.Validate("schedule.create")
			if tt.wantErr {
				assert.True(t, clierrors.IsInvalid(err), "want validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedules_CreateNeedsBranchOrTag(t *testing.T) {
	svc, _ := newService(t)
	tt := circleci.Timetable{PerHour: 1}
	tt.Normalize()
	_, err := svc.Schedules.Create(context.Background(), "gh/o/r", circleci.ScheduleRequest{Name: "n", Timetable: tt}).Wait()
	assert.True(t, clierrors.IsInvalid(err))
}

func TestUsage_GetExport(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodGet, "/organizations/:org/usage_export_job/:job", http.StatusOK, circleci.UsageExportJob{
		ID: apitest.ID(8), State: circleci.ExportCompleted, DownloadURLs: []string{"https://example.com/a.csv.gz"},
	})

	job, err := svc.Usage.GetExport(context.Background(), apitest.ID(1), apitest.ID(8)).Wait()
	require.NoError(t, err)
	assert.True(t, job.Done())
	assert.Len(t, job.DownloadURLs, 1)
}

func TestUsers(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodGet, "/me", http.StatusOK, circleci.User{ID: apitest.ID(1), Login: "octo", Name: "Octo Cat"})
	srv.Reply(http.MethodGet, "/me/collaborations", http.StatusOK, []circleci.Collaboration{{Name: "org", Slug: "gh/org", VCSType: "github"}})

	me, err := svc.Users.Me(context.Background()).Wait()
	require.NoError(t, err)
	assert.Equal(t, "octo", me.Login)

	collabs, err := svc.Users.Collaborations(context.Background()).Wait()
	require.NoError(t, err)
	require.Len(t, collabs, 1)
	assert.Equal(t, "gh/org", collabs[0].Slug)
}

func TestWebhooks_ListQuery(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply(http.MethodGet, "/webhook", http.StatusOK, circleci.Page[circleci.Webhook]{})

	_, err := svc.Webhooks.List(context.Background(), apitest.ID(2), "").Wait()
	require.NoError(t, err)
	q := srv.Last().Query
	assert.Equal(t, apitest.ID(2), q.Get("scope-id"))
	assert.Equal(t, "project", q.Get("scope-type"))
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{"success", "failed", "error", "failing", "canceled", "unauthorized", "not_run"} {
		assert.True(t, circleci.IsTerminal(s), s)
	}
	for _, s := range []string{"running", "on_hold"} {
		assert.False(t, circleci.IsTerminal(s), s)
	}
}

func TestSplitSlug(t *testing.T) {
	p, o, r, err := circleci.SplitSlug("gh/org/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"gh", "org", "repo"}, []string{p, o, r})

	_, _, _, err = circleci.SplitSlug("gh/org")
	assert.True(t, clierrors.IsInvalid(err))
}
