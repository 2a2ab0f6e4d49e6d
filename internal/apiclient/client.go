// Package apiclient is the generic CircleCI v2 request dispatcher.
//
// A Request describes one call (method, URL template, path and query
// parameters, body, per-status error messages). Start resolves it against
// the client configuration and returns a Call, a handle that settles once
// with the decoded body or an error. Endpoints holds the schema table every
// service façade builds its requests from.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chazuruo/circli/internal/auth"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// DefaultBaseURL is the public CircleCI v2 API root.
const DefaultBaseURL = "https://circleci.com/api/v2"

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "circli"

// Config is the immutable client configuration, injected once at
// construction.
type Config struct {
	// BaseURL is the API root. Default DefaultBaseURL.
	BaseURL string

	// Token is the API token. An empty token sends no auth header.
	Token string

	// AuthScheme selects how Token is sent (see auth.Scheme*).
	AuthScheme string

	// Header is sent with every request.
	Header http.Header

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Timeout bounds each HTTP exchange. Zero means none.
	Timeout time.Duration

	// Telemetry wraps the transport with OpenTelemetry instrumentation.
	Telemetry bool

	// Transport is the base round tripper. Default http.DefaultTransport.
	Transport http.RoundTripper

	// Logger receives debug logs. Default slog.Default().
	Logger *slog.Logger
}

// Client dispatches requests against one API root.
type Client struct {
	baseURL    string
	header     http.Header
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a Client. The transport chain, from the outside in, is
// telemetry, auth, debug logging, decompression, then the base transport.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = &decompressTransport{base: base}
	rt = &logTransport{base: rt, logger: logger}
	if cfg.Token != "" {
		rt = auth.NewTransport(rt, cfg.AuthScheme, cfg.Token)
	}
	if cfg.Telemetry {
		rt = instrument(rt)
	}

	return &Client{
		baseURL:    baseURL,
		header:     cfg.Header.Clone(),
		userAgent:  userAgent,
		httpClient: &http.Client{Transport: rt, Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// BaseURL returns the API root the client resolves paths against.
func (c *Client) BaseURL() string { return c.baseURL }

// do performs one exchange and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, req *Request, url string, out any) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &clierrors.ValidationError{Op: req.Op, Field: "body", Err: err}
		}
		body = bytes.NewReader(data)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return &clierrors.ValidationError{Op: req.Op, Err: err}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", c.userAgent)
	if req.Body != nil {
		mediaType := req.MediaType
		if mediaType == "" {
			mediaType = "application/json"
		}
		hreq.Header.Set("Content-Type", mediaType)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &clierrors.RequestError{Op: req.Op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &clierrors.RequestError{Op: req.Op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(req, url, resp, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &clierrors.RequestError{Op: req.Op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// Do builds the request for endpoint id from args and starts it.
func Do[T any](ctx context.Context, client *Client, id string, args Args) *Call[T] {
	req, err := Build(id, args)
	if err != nil {
		return Failed[T](id, err)
	}
	return Start[T](ctx, client, req)
}
