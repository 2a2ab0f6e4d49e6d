package app

import (
	"bytes"
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/apitest"
	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/config"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

func wf(n int, pipeline string, number int64, status string) circleci.Workflow {
	return circleci.Workflow{
		ID:             apitest.ID(n),
		Name:           "build",
		Status:         status,
		PipelineID:     pipeline,
		PipelineNumber: number,
	}
}

// servePipelineWorkflows answers /pipeline/:id/workflow from pages, keyed by
// pipeline ID and then page token.
func servePipelineWorkflows(srv *apitest.Server, pages map[string]map[string]circleci.Page[circleci.Workflow]) {
	srv.GET("/pipeline/:id/workflow", func(c echo.Context) error {
		byToken, ok := pages[c.Param("id")]
		if !ok {
			return c.JSON(http.StatusNotFound, circleci.Message{Message: "Pipeline not found"})
		}
		return c.JSON(http.StatusOK, byToken[c.QueryParam("page-token")])
	})
}

func TestListPages(t *testing.T) {
	srv := apitest.New(t)
	pipeline := apitest.ID(100)
	servePipelineWorkflows(srv, map[string]map[string]circleci.Page[circleci.Workflow]{
		pipeline: {
			"":   {Items: []circleci.Workflow{wf(1, pipeline, 1, "success"), wf(2, pipeline, 1, "failed")}, NextPageToken: "p2"},
			"p2": {Items: []circleci.Workflow{wf(3, pipeline, 1, "running")}, NextPageToken: "p3"},
			"p3": {Items: []circleci.Workflow{wf(4, pipeline, 1, "on_hold")}},
		},
	})
	svc := circleci.New(srv.Client())
	fetch := func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Workflow]] {
		return svc.Pipelines.Workflows(ctx, pipeline, token)
	}

	t.Run("all pages", func(t *testing.T) {
		items, err := ListPages[circleci.Workflow](context.Background(), 0, fetch)
		require.NoError(t, err)
		require.Len(t, items, 4)
		assert.Equal(t, apitest.ID(4), items[3].ID)
	})

	t.Run("limit stops early", func(t *testing.T) {
		before := srv.Count(http.MethodGet, "/pipeline/")
		items, err := ListPages[circleci.Workflow](context.Background(), 2, fetch)
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, 1, srv.Count(http.MethodGet, "/pipeline/")-before)
	})

	t.Run("error keeps partial items", func(t *testing.T) {
		items, err := ListPages[circleci.Workflow](context.Background(), 0, func(ctx context.Context, token string) *apiclient.Call[circleci.Page[circleci.Workflow]] {
			if token == "p2" {
				return svc.Pipelines.Workflows(ctx, apitest.ID(999), "")
			}
			return fetch(ctx, token)
		})
		assert.True(t, clierrors.IsNotFound(err))
		assert.Len(t, items, 2)
	})
}

func TestCancelPipeline(t *testing.T) {
	srv := apitest.New(t)
	pipeline := apitest.ID(100)

	srv.Reply(http.MethodGet, "/workflow/"+apitest.ID(1), http.StatusOK, wf(1, pipeline, 7, "running"))
	servePipelineWorkflows(srv, map[string]map[string]circleci.Page[circleci.Workflow]{
		pipeline: {
			"":     {Items: []circleci.Workflow{wf(1, pipeline, 7, "running"), wf(2, pipeline, 7, "success")}, NextPageToken: "next"},
			"next": {Items: []circleci.Workflow{wf(3, pipeline, 7, "on_hold"), wf(4, pipeline, 7, "failed")}},
		},
	})
	srv.POST("/workflow/:id/cancel", func(c echo.Context) error {
		if c.Param("id") == apitest.ID(3) {
			return c.JSON(http.StatusNotFound, circleci.Message{Message: "Workflow not found"})
		}
		return c.JSON(http.StatusAccepted, circleci.Message{Message: "Accepted."})
	})
	svc := circleci.New(srv.Client())

	report, err := CancelPipeline(context.Background(), svc, apitest.ID(1), CancelOptions{})
	require.Error(t, err)
	assert.True(t, clierrors.IsNotFound(err))
	assert.Contains(t, err.Error(), apitest.ID(3))

	require.NotNil(t, report)
	assert.Equal(t, pipeline, report.PipelineID)
	require.Len(t, report.Targets, 2)
	assert.Equal(t, apitest.ID(1), report.Targets[0].Workflow.ID)
	assert.True(t, report.Targets[0].Canceled)
	assert.Equal(t, apitest.ID(3), report.Targets[1].Workflow.ID)
	assert.False(t, report.Targets[1].Canceled)
	assert.NotEmpty(t, report.Targets[1].Error)

	assert.Equal(t, 2, srv.Count(http.MethodPost, "/workflow/"))
}

func TestCancelPipeline_DryRun(t *testing.T) {
	srv := apitest.New(t)
	pipeline := apitest.ID(100)
	srv.Reply(http.MethodGet, "/workflow/"+apitest.ID(1), http.StatusOK, wf(1, pipeline, 7, "running"))
	servePipelineWorkflows(srv, map[string]map[string]circleci.Page[circleci.Workflow]{
		pipeline: {"": {Items: []circleci.Workflow{wf(1, pipeline, 7, "running"), wf(2, pipeline, 7, "on_hold")}}},
	})
	svc := circleci.New(srv.Client())

	report, err := CancelPipeline(context.Background(), svc, apitest.ID(1), CancelOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Targets, 2)
	assert.Zero(t, srv.Count(http.MethodPost, "/workflow/"))
}

func TestCancelPipeline_ParentCancelStopsEveryRequest(t *testing.T) {
	srv := apitest.New(t)
	pipeline := apitest.ID(100)
	srv.Reply(http.MethodGet, "/workflow/"+apitest.ID(1), http.StatusOK, wf(1, pipeline, 7, "running"))
	servePipelineWorkflows(srv, map[string]map[string]circleci.Page[circleci.Workflow]{
		pipeline: {"": {Items: []circleci.Workflow{wf(1, pipeline, 7, "running"), wf(2, pipeline, 7, "running")}}},
	})

	var inFlight atomic.Int32
	srv.POST("/workflow/:id/cancel", func(c echo.Context) error {
		inFlight.Add(1)
		<-c.Request().Context().Done()
		return nil
	})
	svc := circleci.New(srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := CancelPipeline(ctx, svc, apitest.ID(1), CancelOptions{})
		done <- err
	}()

	require.Eventually(t, func() bool { return inFlight.Load() == 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, clierrors.IsCanceled(err))
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("CancelPipeline did not return after cancellation")
	}
}

func TestCancelRedundant(t *testing.T) {
	srv := apitest.New(t)
	slug := "gh/acme/api"

	pipeline := func(n int64, login string) circleci.Pipeline {
		return circleci.Pipeline{
			ID:          apitest.ID(int(100 + n)),
			Number:      n,
			ProjectSlug: slug,
			Trigger:     circleci.Trigger{Type: "webhook", Actor: circleci.Actor{Login: login}},
		}
	}

	srv.Reply(http.MethodGet, "/workflow/"+apitest.ID(1), http.StatusOK, wf(1, apitest.ID(105), 5, "running"))
	srv.GET("/project/:slug/pipeline", func(c echo.Context) error {
		if apitest.Param(c, "slug") != slug || c.QueryParam("branch") != "main" {
			return c.JSON(http.StatusBadRequest, circleci.Message{Message: "unexpected query"})
		}
		if c.QueryParam("page-token") == "" {
			return c.JSON(http.StatusOK, circleci.Page[circleci.Pipeline]{
				Items:         []circleci.Pipeline{pipeline(6, "alice"), pipeline(5, "alice"), pipeline(4, "alice")},
				NextPageToken: "older",
			})
		}
		return c.JSON(http.StatusOK, circleci.Page[circleci.Pipeline]{
			Items: []circleci.Pipeline{pipeline(3, "bob"), pipeline(2, "alice")},
		})
	})
	servePipelineWorkflows(srv, map[string]map[string]circleci.Page[circleci.Workflow]{
		apitest.ID(104): {"": {Items: []circleci.Workflow{wf(41, apitest.ID(104), 4, "running"), wf(42, apitest.ID(104), 4, "success")}}},
		apitest.ID(103): {"": {Items: []circleci.Workflow{wf(31, apitest.ID(103), 3, "running")}}},
		apitest.ID(102): {"": {Items: []circleci.Workflow{wf(21, apitest.ID(102), 2, "on_hold"), wf(22, apitest.ID(102), 2, "not_run")}}},
	})
	var canceled []string
	srv.POST("/workflow/:id/cancel", func(c echo.Context) error {
		canceled = append(canceled, c.Param("id"))
		return c.JSON(http.StatusAccepted, circleci.Message{Message: "Accepted."})
	})
	svc := circleci.New(srv.Client())

	t.Run("target user", func(t *testing.T) {
		canceled = nil
		report, err := CancelRedundant(context.Background(), svc, RedundantOptions{
			ProjectSlug: slug,
			Branch:      "main",
			WorkflowID:  apitest.ID(1),
			TargetUser:  "alice",
			Concurrency: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), report.CurrentPipeline)
		assert.ElementsMatch(t, []int64{4, 2}, report.Supplanted)
		assert.ElementsMatch(t, []string{apitest.ID(41), apitest.ID(21)}, canceled)
		assert.Len(t, report.Targets, 2)
		for _, o := range report.Targets {
			assert.True(t, o.Canceled)
		}
	})

	t.Run("every user, dry run", func(t *testing.T) {
		canceled = nil
		report, err := CancelRedundant(context.Background(), svc, RedundantOptions{
			ProjectSlug: slug,
			Branch:      "main",
			WorkflowID:  apitest.ID(1),
			DryRun:      true,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{4, 3, 2}, report.Supplanted)
		assert.Len(t, report.Targets, 3)
		assert.Empty(t, canceled)
	})

	t.Run("targets ordered by pipeline number", func(t *testing.T) {
		for range 5 {
			report, err := CancelRedundant(context.Background(), svc, RedundantOptions{
				ProjectSlug: slug,
				Branch:      "main",
				WorkflowID:  apitest.ID(1),
				DryRun:      true,
				Concurrency: 3,
			})
			require.NoError(t, err)
			var ids []string
			for _, o := range report.Targets {
				ids = append(ids, o.Workflow.ID)
			}
			assert.Equal(t, []string{apitest.ID(21), apitest.ID(31), apitest.ID(41)}, ids)
		}
	})
}

func TestCancelRedundant_Validation(t *testing.T) {
	srv := apitest.New(t)
	svc := circleci.New(srv.Client())

	_, err := CancelRedundant(context.Background(), svc, RedundantOptions{ProjectSlug: "gh/acme/api", WorkflowID: apitest.ID(1)})
	assert.True(t, clierrors.IsInvalid(err))

	_, err = CancelRedundant(context.Background(), svc, RedundantOptions{ProjectSlug: "gh/acme/api", Branch: "main", WorkflowID: "not-a-uuid"})
	assert.True(t, clierrors.IsInvalid(err))

	assert.Empty(t, srv.Requests())
}

func TestWaitUsageExport(t *testing.T) {
	srv := apitest.New(t)
	org, job := apitest.ID(7), apitest.ID(8)

	var polls atomic.Int32
	srv.GET("/organizations/:org/usage_export_job/:job", func(c echo.Context) error {
		state := circleci.ExportProcessing
		if polls.Add(1) >= 3 {
			state = circleci.ExportCompleted
		}
		return c.JSON(http.StatusOK, circleci.UsageExportJob{ID: job, State: state, DownloadURLs: []string{"https://example.com/usage.csv.gz"}})
	})
	svc := circleci.New(srv.Client())

	var seen []string
	got, err := WaitUsageExport(context.Background(), svc, org, job, time.Millisecond, func(j *circleci.UsageExportJob) {
		seen = append(seen, j.State)
	})
	require.NoError(t, err)
	assert.Equal(t, circleci.ExportCompleted, got.State)
	assert.Equal(t, []string{"processing", "processing", "completed"}, seen)
}

func TestWaitUsageExport_Failed(t *testing.T) {
	srv := apitest.New(t)
	org, job := apitest.ID(7), apitest.ID(8)
	srv.Reply(http.MethodGet, "/organizations/"+org+"/usage_export_job/"+job, http.StatusOK,
		circleci.UsageExportJob{ID: job, State: circleci.ExportFailed, ErrorReason: "range too large"})

	got, err := WaitUsageExport(context.Background(), circleci.New(srv.Client()), org, job, time.Millisecond, nil)
	require.ErrorIs(t, err, ErrExportFailed)
	assert.Contains(t, err.Error(), "range too large")
	assert.Equal(t, circleci.ExportFailed, got.State)
}

func TestWaitUsageExport_ContextEnds(t *testing.T) {
	srv := apitest.New(t)
	org, job := apitest.ID(7), apitest.ID(8)
	srv.Reply(http.MethodGet, "/organizations/"+org+"/usage_export_job/"+job, http.StatusOK,
		circleci.UsageExportJob{ID: job, State: circleci.ExportCreated})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := WaitUsageExport(ctx, circleci.New(srv.Client()), org, job, 5*time.Millisecond, nil)
	assert.True(t, clierrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWhoami(t *testing.T) {
	srv := apitest.New(t)
	srv.Reply(http.MethodGet, "/me", http.StatusOK, circleci.User{ID: apitest.ID(1), Login: "octo", Name: "Octo Cat"})

	cfg := config.DefaultConfig()
	cfg.APIToken = apitest.Token
	cfg.TokenSource = config.TokenFromEnv

	out, err := Whoami(context.Background(), circleci.New(srv.Client()), cfg, "/tmp/circli.yml")
	require.NoError(t, err)
	assert.Equal(t, "octo", out.User.Login)
	assert.Equal(t, "****0000", out.Token)
	assert.Equal(t, config.TokenFromEnv, out.TokenSource)
	assert.Equal(t, config.DefaultHost, out.Host)

	var buf bytes.Buffer
	PrintWhoami(&buf, out)
	assert.Contains(t, buf.String(), "User: octo (Octo Cat)")
	assert.Contains(t, buf.String(), "Token: ****0000 (from env)")
	assert.Contains(t, buf.String(), "Config: /tmp/circli.yml")
	assert.NotContains(t, buf.String(), apitest.Token)
}
