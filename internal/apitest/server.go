// Package apitest runs a fake CircleCI API for tests.
package apitest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/chazuruo/circli/internal/apiclient"
)

// Token is the credential the fake server accepts.
const Token = "CCIPAT_apitest_0000"

// Request is one request the server received.
type Request struct {
	Method string
	// Path is the escaped request path, so "/project/gh%2Fo%2Fr" stays encoded.
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is an echo router behind an httptest server. Routes use echo
// syntax, for example "/workflow/:id/cancel".
type Server struct {
	*echo.Echo
	URL string

	mu       sync.Mutex
	requests []Request
}

// New starts a server that is closed when the test ends. Requests without
// the Token credential get a 401.
func New(t testing.TB) *Server {
	t.Helper()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{Echo: e}
	e.Use(s.record, requireToken)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		return next(c)
	}
}

func requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Circle-Token") != Token {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "You must log in first."})
		}
		return next(c)
	}
}

// Client returns a dispatcher pointed at the server with the right token.
func (s *Server) Client() *apiclient.Client {
	return apiclient.New(apiclient.Config{BaseURL: s.URL, Token: Token})
}

// Reply registers a route that always answers status with body as JSON.
// A nil body sends no content.
func (s *Server) Reply(method, path string, status int, body any) {
	s.Add(method, path, func(c echo.Context) error {
		if body == nil {
			return c.NoContent(status)
		}
		return c.JSON(status, body)
	})
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request. It panics when there is none.
func (s *Server) Last() Request {
	reqs := s.Requests()
	if len(reqs) == 0 {
		panic("apitest: no requests received")
	}
	return reqs[len(reqs)-1]
}

// Count reports how many requests matched method and a path prefix.
func (s *Server) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Param returns a decoded path parameter. Slugs arrive with %2F intact.
func Param(c echo.Context, name string) string {
	v := c.Param(name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// ID returns a deterministic UUID for fixtures.
func ID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}
