package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

type workflow struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type message struct {
	Message string `json:"message"`
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: "CCIPAT_test_token_9876"})
}

func TestDo_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/workflow/wf-1", r.URL.Path)
		assert.Equal(t, "CCIPAT_test_token_9876", r.Header.Get("Circle-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(workflow{ID: "wf-1", Status: "running"})
	}))

	call := Do[workflow](context.Background(), client, "workflow.get", Args{Path: map[string]any{"id": "wf-1"}})
	got, err := call.Wait()
	require.NoError(t, err)
	assert.Equal(t, workflow{ID: "wf-1", Status: "running"}, got)
	assert.True(t, call.Settled())
}

func TestDo_JSONBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["from_failed"])
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"workflow_id": "wf-2"})
	}))

	call := Do[map[string]string](context.Background(), client, "workflow.rerun", Args{
		Path: map[string]any{"id": "wf-1"},
		Body: map[string]any{"from_failed": true},
	})
	got, err := call.Wait()
	require.NoError(t, err)
	assert.Equal(t, "wf-2", got["workflow_id"])
}

func TestDo_EmptyBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	_, err := Do[message](context.Background(), client, "user.me", Args{}).Wait()
	assert.NoError(t, err)
}

func TestDo_HTTPErrorMapped(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Export job not found"}`))
	}))

	_, err := Do[message](context.Background(), client, "usage.export.get", Args{
		Path: map[string]any{"org-id": "o", "usage-export-job-id": "j"},
	}).Wait()
	require.Error(t, err)

	he, ok := clierrors.AsHTTPError(err)
	require.True(t, ok, "want *HTTPError, got %T", err)
	assert.Equal(t, 404, he.Status)
	assert.Equal(t, "Entity not found.", he.Message)
	assert.Equal(t, "Export job not found", he.Detail)
	assert.JSONEq(t, `{"message":"Export job not found"}`, string(he.Body))
	assert.Equal(t, http.MethodGet, he.Method)
	assert.True(t, clierrors.IsNotFound(err))
	assert.False(t, clierrors.IsCanceled(err))
}

func TestDo_HTTPErrorFallback(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := Do[message](context.Background(), client, "user.me", Args{}).Wait()
	he, ok := clierrors.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "Generic Error: status: 409; status text: Conflict", he.Message)
	assert.Empty(t, he.Detail)
	assert.Equal(t, "not json", string(he.Body))
}

func TestDo_ValidationBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	call := Do[workflow](context.Background(), client, "workflow.get", Args{})
	_, err := call.Wait()
	require.Error(t, err)
	assert.True(t, clierrors.IsInvalid(err))
	assert.Zero(t, hits.Load())

	// Cancel on an already failed call does nothing
	call.Cancel()
	_, err2 := call.Wait()
	assert.Same(t, err, err2)
}

func TestDo_DecodeError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{broken"))
	}))

	_, err := Do[workflow](context.Background(), client, "user.me", Args{}).Wait()
	require.Error(t, err)
	assert.False(t, clierrors.IsHTTP(err))
	assert.False(t, clierrors.IsInvalid(err))
	assert.False(t, clierrors.IsCanceled(err))
}

func TestCall_CancelBeforeCompletion(t *testing.T) {
	started := make(chan struct{})
	var aborted atomic.Bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
			aborted.Store(true)
		case <-time.After(5 * time.Second):
		}
	}))

	call := Do[message](context.Background(), client, "workflow.cancel", Args{Path: map[string]any{"id": "wf-1"}})
	<-started
	call.Cancel()

	_, err := call.Wait()
	require.Error(t, err)
	assert.True(t, clierrors.IsCanceled(err), "want cancellation, got %v", err)
	assert.False(t, clierrors.IsHTTP(err))

	// Settled exactly once: further Cancel and Wait calls see the same error
	call.Cancel()
	_, err2 := call.Wait()
	assert.Same(t, err, err2)

	assert.Eventually(t, aborted.Load, 2*time.Second, 10*time.Millisecond, "transport was not aborted")
}

func TestCall_CancelAfterCompletion(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Accepted."}`))
	}))

	call := Do[message](context.Background(), client, "workflow.cancel", Args{Path: map[string]any{"id": "wf-1"}})
	got, err := call.Wait()
	require.NoError(t, err)

	call.Cancel()
	got2, err2 := call.Wait()
	assert.NoError(t, err2)
	assert.Equal(t, got, got2)
	assert.Equal(t, "Accepted.", got2.Message)
}

func TestCall_CancelDistinctFrom404(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/workflow/slow/cancel" {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer close(release)

	missing := Do[message](context.Background(), client, "workflow.cancel", Args{Path: map[string]any{"id": "missing"}})
	pending := Do[message](context.Background(), client, "workflow.cancel", Args{Path: map[string]any{"id": "slow"}})
	pending.Cancel()

	_, notFoundErr := missing.Wait()
	_, canceledErr := pending.Wait()

	assert.True(t, clierrors.IsNotFound(notFoundErr))
	assert.False(t, clierrors.IsCanceled(notFoundErr))
	assert.True(t, clierrors.IsCanceled(canceledErr))
	assert.False(t, clierrors.IsHTTP(canceledErr))
}

func TestCall_ParentContextCanceled(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	call := Do[message](ctx, client, "user.me", Args{})
	<-started
	cancel()

	_, err := call.Wait()
	assert.True(t, clierrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCall_ConcurrentCancelSettlesOnce(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))

	for i := 0; i < 50; i++ {
		call := Do[message](context.Background(), client, "user.me", Args{})
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				call.Cancel()
			}()
		}
		wg.Wait()

		got, err := call.Wait()
		// Either the request won the race or the cancel did, never both
		if err != nil {
			assert.True(t, clierrors.IsCanceled(err))
			assert.Empty(t, got.Message)
		} else {
			assert.Equal(t, "ok", got.Message)
		}
		<-call.Done()
	}
}

func TestDecompression(t *testing.T) {
	payload := []byte(`{"id":"wf-1","status":"success"}`)

	encoders := map[string]func(w io.Writer) io.WriteCloser{
		"gzip": func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"br":   func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
		"zstd": func(w io.Writer) io.WriteCloser {
			enc, err := zstd.NewWriter(w)
			require.NoError(t, err)
			return enc
		},
	}

	for coding, newEncoder := range encoders {
		t.Run(coding, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), coding)
				var buf bytes.Buffer
				enc := newEncoder(&buf)
				_, _ = enc.Write(payload)
				_ = enc.Close()
				w.Header().Set("Content-Encoding", coding)
				_, _ = w.Write(buf.Bytes())
			}))

			got, err := Do[workflow](context.Background(), client, "workflow.get", Args{Path: map[string]any{"id": "wf-1"}}).Wait()
			require.NoError(t, err)
			assert.Equal(t, "success", got.Status)
		})
	}
}

func TestDecompression_EmptyBody(t *testing.T) {
	for name, status := range map[string]int{"no content": http.StatusNoContent, "empty ok": http.StatusOK} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				w.Header().Set("Content-Encoding", "gzip")
				w.WriteHeader(status)
			}))

			_, err := Do[message](context.Background(), client, "schedule.delete", Args{
				Path: map[string]any{"schedule-id": "sch-1"},
			}).Wait()
			assert.NoError(t, err)
		})
	}
}

func TestDebugLogMasksToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := New(Config{BaseURL: srv.URL, Token: "CCIPAT_secret_value_1234", Logger: logger})

	_, err := Do[message](context.Background(), client, "user.me", Args{}).Wait()
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "api request")
	assert.Contains(t, out, "****1234")
	assert.NotContains(t, out, "CCIPAT_secret_value_1234")
}

func TestClientHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "circli/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Default"))
		assert.Empty(t, r.Header.Get("Circle-Token"), "no token configured")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Config{
		BaseURL:   srv.URL,
		UserAgent: "circli/test",
		Header:    http.Header{"X-Default": []string{"yes"}},
	})
	_, err := Do[message](context.Background(), client, "user.me", Args{}).Wait()
	assert.NoError(t, err)
	assert.Equal(t, srv.URL, client.BaseURL())
}
