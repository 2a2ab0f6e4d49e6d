package apiclient

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chazuruo/circli/internal/config"
)

// acceptEncoding lists the codings decompressTransport can decode.
const acceptEncoding = "zstd, br, gzip"

// decompressTransport advertises zstd, brotli and gzip and decodes the
// response body. Setting Accept-Encoding ourselves turns off net/http's
// built-in gzip handling, so every coding goes through here.
type decompressTransport struct {
	base http.RoundTripper
}

func (t *decompressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	coding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if coding == "" || coding == "identity" || !hasBody(req, resp) {
		return resp, nil
	}

	body, err := decodeBody(coding, resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// hasBody reports whether a response can carry an encoded body. A 204 or an
// empty DELETE reply with a Content-Encoding header has nothing to decode.
func hasBody(req *http.Request, resp *http.Response) bool {
	switch {
	case req.Method == http.MethodHead,
		resp.StatusCode == http.StatusNoContent,
		resp.StatusCode == http.StatusNotModified,
		resp.ContentLength == 0:
		return false
	}
	return true
}

func decodeBody(coding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip response: %w", err)
		}
		return &decodedBody{Reader: zr, closers: []func() error{zr.Close, body.Close}}, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(body), closers: []func() error{body.Close}}, nil
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("zstd response: %w", err)
		}
		return &decodedBody{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			body.Close,
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported Content-Encoding %q", coding)
	}
}

// decodedBody closes the decoder and the underlying body together.
type decodedBody struct {
	io.Reader
	closers []func() error
}

func (d *decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sensitiveHeaders are masked in debug logs.
var sensitiveHeaders = []string{"Circle-Token", "Authorization"}

// logTransport writes one debug line per exchange.
type logTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	attrs := []any{
		"method", req.Method,
		"url", req.URL.String(),
		"duration", time.Since(start).Round(time.Millisecond),
	}
	for _, h := range sensitiveHeaders {
		if v := req.Header.Get(h); v != "" {
			attrs = append(attrs, strings.ToLower(h), maskHeader(v))
		}
	}
	if err != nil {
		t.logger.Debug("api request failed", append(attrs, "error", err)...)
		return nil, err
	}
	t.logger.Debug("api request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}

// maskHeader keeps the auth scheme word and the last four characters.
func maskHeader(v string) string {
	if scheme, cred, ok := strings.Cut(v, " "); ok {
		return scheme + " " + config.MaskedToken(cred)
	}
	return config.MaskedToken(v)
}

// instrument wraps rt with OpenTelemetry client spans.
func instrument(rt http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(rt,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
