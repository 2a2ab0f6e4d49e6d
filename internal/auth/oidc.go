package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc"
)

// OIDCIssuerBase is the CircleCI OIDC issuer root; the org ID is appended.
const OIDCIssuerBase = "https://oidc.circleci.com/org/"

// IssuerURL returns the OIDC issuer for an organization.
func IssuerURL(orgID string) string {
	return OIDCIssuerBase + orgID
}

// Claims are the CircleCI-specific claims of a job's OIDC ID token.
type Claims struct {
	Issuer     string    `json:"iss" yaml:"iss"`
	Subject    string    `json:"sub" yaml:"sub"`
	Audience   []string  `json:"aud" yaml:"aud"`
	Expiry     time.Time `json:"exp" yaml:"exp"`
	IssuedAt   time.Time `json:"iat" yaml:"iat"`
	ProjectID  string    `json:"oidc.circleci.com/project-id" yaml:"project_id"`
	ContextIDs []string  `json:"oidc.circleci.com/context-ids" yaml:"context_ids"`
	VCSOrigin  string    `json:"oidc.circleci.com/vcs-origin" yaml:"vcs_origin"`
	VCSRef     string    `json:"oidc.circleci.com/vcs-ref" yaml:"vcs_ref"`
}

// SubjectParts splits "org/<org>/project/<project>/user/<user>".
func (c *Claims) SubjectParts() map[string]string {
	parts := strings.Split(c.Subject, "/")
	out := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		out[parts[i]] = parts[i+1]
	}
	return out
}

// Verifier checks ID tokens minted by CircleCI for one organization.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer's keys. An empty audience skips the
// audience check.
func NewVerifier(ctx context.Context, orgID, audience string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, IssuerURL(orgID))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for org %s: %w", orgID, err)
	}
	return &Verifier{verifier: provider.Verifier(verifierConfig(audience))}, nil
}

// NewVerifierWithKeySet builds a Verifier against a known key set,
// skipping discovery.
func NewVerifierWithKeySet(issuer string, keySet oidc.KeySet, audience string) *Verifier {
	return &Verifier{verifier: oidc.NewVerifier(issuer, keySet, verifierConfig(audience))}
}

func verifierConfig(audience string) *oidc.Config {
	return &oidc.Config{
		ClientID:          audience,
		SkipClientIDCheck: audience == "",
	}
}

// Verify checks signature, issuer, audience and expiry, then decodes the
// CircleCI claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	token, err := v.verifier.Verify(ctx, strings.TrimSpace(rawToken))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	var extra struct {
		ProjectID  string   `json:"oidc.circleci.com/project-id"`
		ContextIDs []string `json:"oidc.circleci.com/context-ids"`
		VCSOrigin  string   `json:"oidc.circleci.com/vcs-origin"`
		VCSRef     string   `json:"oidc.circleci.com/vcs-ref"`
	}
	if err := token.Claims(&extra); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	return &Claims{
		Issuer:     token.Issuer,
		Subject:    token.Subject,
		Audience:   token.Audience,
		Expiry:     token.Expiry,
		IssuedAt:   token.IssuedAt,
		ProjectID:  extra.ProjectID,
		ContextIDs: extra.ContextIDs,
		VCSOrigin:  extra.VCSOrigin,
		VCSRef:     extra.VCSRef,
	}, nil
}
