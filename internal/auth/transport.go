// Package auth attaches CircleCI credentials to outgoing requests and
// verifies CircleCI-issued OIDC ID tokens.
package auth

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Supported token schemes.
const (
	// SchemeCircleToken sends "Circle-Token: <token>".
	SchemeCircleToken = "circle-token"
	// SchemeBasic sends "Authorization: Basic base64(<token>:)", the legacy v1.1 form.
	SchemeBasic = "basic"
	// SchemeBearer sends "Authorization: Bearer <token>".
	SchemeBearer = "bearer"
)

// HeaderCircleToken is the header CircleCI reads personal tokens from.
const HeaderCircleToken = "Circle-Token"

// Transport adds a token from Source to every request.
type Transport struct {
	Source oauth2.TokenSource
	Scheme string
	Base   http.RoundTripper
}

// NewTransport returns a Transport that sends a static token with scheme.
// An empty scheme means SchemeCircleToken.
func NewTransport(base http.RoundTripper, scheme, token string) *Transport {
	return &Transport{
		Source: StaticTokenSource(token),
		Scheme: scheme,
		Base:   base,
	}
}

// StaticTokenSource wraps a personal API token as an oauth2 token source.
func StaticTokenSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// RoundTrip implements http.RoundTripper. The request is cloned before
// headers are added.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Source.Token()
	if err != nil {
		return nil, fmt.Errorf("auth: token source: %w", err)
	}

	req2 := req.Clone(req.Context())
	switch t.Scheme {
	case SchemeBearer:
		tok.SetAuthHeader(req2)
	case SchemeBasic:
		req2.SetBasicAuth(tok.AccessToken, "")
	case "", SchemeCircleToken:
		req2.Header.Set(HeaderCircleToken, tok.AccessToken)
	default:
		return nil, fmt.Errorf("auth: unsupported scheme %q", t.Scheme)
	}

	return t.base().RoundTrip(req2)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
