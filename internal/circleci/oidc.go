package circleci

import (
	"context"
	"time"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Claim names that can be deleted.
const (
	ClaimAudience = "audience"
	ClaimTTL      = "ttl"
)

// OIDCService covers custom OIDC claims for orgs and projects.
type OIDCService struct {
	client *apiclient.Client
}

// PatchClaimsRequest sets custom claims. Empty fields are left unchanged.
type PatchClaimsRequest struct {
	Audience []string `json:"audience,omitempty"`
	TTL      string   `json:"ttl,omitempty"`
}

func (r PatchClaimsRequest) validate(op string) error {
	if len(r.Audience) == 0 && r.TTL == "" {
		return clierrors.Invalid(op, "audience", "audience or ttl is required")
	}
	if r.TTL != "" {
		d, err := time.ParseDuration(r.TTL)
		if err != nil || d <= 0 {
			return clierrors.Invalid(op, "ttl", "%q is not a positive duration", r.TTL)
		}
	}
	return nil
}

func validateClaims(op string, claims []string) error {
	if len(claims) == 0 {
		return clierrors.Invalid(op, "claims", "at least one claim is required")
	}
	for _, c := range claims {
		if err := requireOneOf(op, "claims", c, ClaimAudience, ClaimTTL); err != nil {
			return err
		}
	}
	return nil
}

// GetOrgClaims returns an organization's custom claims.
func (s *OIDCService) GetOrgClaims(ctx context.Context, orgID string) *apiclient.Call[ClaimResponse] {
	const op = "oidc.org.get"
	return do[ClaimResponse](ctx, s.client, op, requireUUID(op, "org-id", orgID), apiclient.Args{
		Path: path("org-id", orgID),
	})
}

// PatchOrgClaims sets an organization's custom claims.
func (s *OIDCService) PatchOrgClaims(ctx context.Context, orgID string, req PatchClaimsRequest) *apiclient.Call[ClaimResponse] {
	const op = "oidc.org.patch"
	return do[ClaimResponse](ctx, s.client, op, check(requireUUID(op, "org-id", orgID), req.validate(op)), apiclient.Args{
		Path: path("org-id", orgID),
		Body: req,
	})
}

// DeleteOrgClaims removes the named custom claims from an organization.
func (s *OIDCService) DeleteOrgClaims(ctx context.Context, orgID string, claims []string) *apiclient.Call[ClaimResponse] {
	const op = "oidc.org.delete"
	return do[ClaimResponse](ctx, s.client, op, check(requireUUID(op, "org-id", orgID), validateClaims(op, claims)), apiclient.Args{
		Path:  path("org-id", orgID),
		Query: map[string]any{"claims": claims},
	})
}

// GetProjectClaims returns a project's custom claims.
func (s *OIDCService) GetProjectClaims(ctx context.Context, orgID, projectID string) *apiclient.Call[ClaimResponse] {
	const op = "oidc.project.get"
	err := check(requireUUID(op, "org-id", orgID), requireUUID(op, "project-id", projectID))
	return do[ClaimResponse](ctx, s.client, op, err, apiclient.Args{
		Path: path("org-id", orgID, "project-id", projectID),
	})
}

// PatchProjectClaims sets a project's custom claims.
func (s *OIDCService) PatchProjectClaims(ctx context.Context, orgID, projectID string, req PatchClaimsRequest) *apiclient.Call[ClaimResponse] {
	const op = "oidc.project.patch"
	err := check(requireUUID(op, "org-id", orgID), requireUUID(op, "project-id", projectID), req.validate(op))
	return do[ClaimResponse](ctx, s.client, op, err, apiclient.Args{
		Path: path("org-id", orgID, "project-id", projectID),
		Body: req,
	})
}

// DeleteProjectClaims removes the named custom claims from a project.
func (s *OIDCService) DeleteProjectClaims(ctx context.Context, orgID, projectID string, claims []string) *apiclient.Call[ClaimResponse] {
	const op = "oidc.project.delete"
	err := check(requireUUID(op, "org-id", orgID), requireUUID(op, "project-id", projectID), validateClaims(op, claims))
	return do[ClaimResponse](ctx, s.client, op, err, apiclient.Args{
		Path:  path("org-id", orgID, "project-id", projectID),
		Query: map[string]any{"claims": claims},
	})
}
