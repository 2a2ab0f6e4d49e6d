package circleci

import (
	"context"
	"regexp"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Context owner types.
const (
	OwnerOrganization = "organization"
	OwnerAccount      = "account"
)

// Context restriction types.
const (
	RestrictionProject    = "project"
	RestrictionExpression = "expression"
	RestrictionGroup      = "group"
)

// envVarName matches a valid environment variable name.
var envVarName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func requireEnvName(op, field, name string) error {
	if !envVarName.MatchString(name) {
		return clierrors.Invalid(op, field, "%q is not a valid environment variable name", name)
	}
	return nil
}

// ContextService covers /context.
type ContextService struct {
	client *apiclient.Client
}

// CreateContextRequest names a new context and its owner.
type CreateContextRequest struct {
	Name      string
	OwnerID   string
	OwnerSlug string
	OwnerType string
}

// Create creates a context. The owner is given by ID or by slug.
func (s *ContextService) Create(ctx context.Context, req CreateContextRequest) *apiclient.Call[Context] {
	const op = "context.create"
	owner := map[string]any{}
	err := requireString(op, "name", req.Name)
	switch {
	case err != nil:
	case req.OwnerID != "":
		err = requireUUID(op, "owner-id", req.OwnerID)
		owner["id"] = req.OwnerID
	case req.OwnerSlug != "":
		owner["slug"] = req.OwnerSlug
	default:
		err = clierrors.Invalid(op, "owner-id", "owner-id or owner-slug is required")
	}
	if err == nil && req.OwnerType != "" {
		err = requireOneOf(op, "owner-type", req.OwnerType, OwnerOrganization, OwnerAccount)
		owner["type"] = req.OwnerType
	}
	return do[Context](ctx, s.client, op, err, apiclient.Args{
		Body: map[string]any{"name": req.Name, "owner": owner},
	})
}

// ContextListParams selects the owner whose contexts are listed.
type ContextListParams struct {
	OwnerID   string
	OwnerSlug string
	OwnerType string
	PageToken string
}

// List lists one page of an owner's contexts.
func (s *ContextService) List(ctx context.Context, p ContextListParams) *apiclient.Call[Page[Context]] {
	const op = "context.list"
	var err error
	switch {
	case p.OwnerID != "":
		err = requireUUID(op, "owner-id", p.OwnerID)
	case p.OwnerSlug == "":
		err = clierrors.Invalid(op, "owner-id", "owner-id or owner-slug is required")
	}
	if err == nil && p.OwnerType != "" {
		err = requireOneOf(op, "owner-type", p.OwnerType, OwnerOrganization, OwnerAccount)
	}
	return do[Page[Context]](ctx, s.client, op, err, apiclient.Args{
		Query: map[string]any{
			"owner-id":   opt(p.OwnerID),
			"owner-slug": opt(p.OwnerSlug),
			"owner-type": opt(p.OwnerType),
			"page-token": opt(p.PageToken),
		},
	})
}

// Get returns a context by ID.
func (s *ContextService) Get(ctx context.Context, contextID string) *apiclient.Call[Context] {
	const op = "context.get"
	return do[Context](ctx, s.client, op, requireUUID(op, "context-id", contextID), apiclient.Args{
		Path: path("context-id", contextID),
	})
}

// Delete deletes a context.
func (s *ContextService) Delete(ctx context.Context, contextID string) *apiclient.Call[Message] {
	const op = "context.delete"
	return do[Message](ctx, s.client, op, requireUUID(op, "context-id", contextID), apiclient.Args{
		Path: path("context-id", contextID),
	})
}

// ListEnv lists one page of a context's variables. Values are never returned.
func (s *ContextService) ListEnv(ctx context.Context, contextID, pageToken string) *apiclient.Call[Page[EnvironmentVariable]] {
	const op = "context.env.list"
	return do[Page[EnvironmentVariable]](ctx, s.client, op, requireUUID(op, "context-id", contextID), apiclient.Args{
		Path:  path("context-id", contextID),
		Query: map[string]any{"page-token": opt(pageToken)},
	})
}

// SetEnv adds or replaces a context variable.
func (s *ContextService) SetEnv(ctx context.Context, contextID, name, value string) *apiclient.Call[EnvironmentVariable] {
	const op = "context.env.set"
	err := check(requireUUID(op, "context-id", contextID), requireEnvName(op, "env-var-name", name))
	return do[EnvironmentVariable](ctx, s.client, op, err, apiclient.Args{
		Path: path("context-id", contextID, "env-var-name", name),
		Body: map[string]string{"value": value},
	})
}

// DeleteEnv removes a context variable.
func (s *ContextService) DeleteEnv(ctx context.Context, contextID, name string) *apiclient.Call[Message] {
	const op = "context.env.delete"
	err := check(requireUUID(op, "context-id", contextID), requireString(op, "env-var-name", name))
	return do[Message](ctx, s.client, op, err, apiclient.Args{
		Path: path("context-id", contextID, "env-var-name", name),
	})
}

// ListRestrictions lists a context's restrictions.
func (s *ContextService) ListRestrictions(ctx context.Context, contextID string) *apiclient.Call[Page[ContextRestriction]] {
	const op = "context.restriction.list"
	return do[Page[ContextRestriction]](ctx, s.client, op, requireUUID(op, "context-id", contextID), apiclient.Args{
		Path: path("context-id", contextID),
	})
}

// RestrictionRequest describes a new context restriction.
type RestrictionRequest struct {
	ProjectID        string `json:"project_id,omitempty"`
	RestrictionType  string `json:"restriction_type"`
	RestrictionValue string `json:"restriction_value"`
}

// CreateRestriction adds a restriction to a context.
func (s *ContextService) CreateRestriction(ctx context.Context, contextID string, req RestrictionRequest) *apiclient.Call[ContextRestriction] {
	const op = "context.restriction.create"
	err := check(
		requireUUID(op, "context-id", contextID),
		requireOneOf(op, "restriction-type", req.RestrictionType, RestrictionProject, RestrictionExpression, RestrictionGroup),
		requireString(op, "restriction-value", req.RestrictionValue),
	)
	if err == nil && req.RestrictionType == RestrictionProject {
		err = requireUUID(op, "restriction-value", req.RestrictionValue)
	}
	if err == nil && req.ProjectID != "" {
		err = requireUUID(op, "project-id", req.ProjectID)
	}
	return do[ContextRestriction](ctx, s.client, op, err, apiclient.Args{
		Path: path("context-id", contextID),
		Body: req,
	})
}

// DeleteRestriction removes a restriction.
func (s *ContextService) DeleteRestriction(ctx context.Context, contextID, restrictionID string) *apiclient.Call[Message] {
	const op = "context.restriction.delete"
	err := check(requireUUID(op, "context-id", contextID), requireUUID(op, "restriction-id", restrictionID))
	return do[Message](ctx, s.client, op, err, apiclient.Args{
		Path: path("context-id", contextID, "restriction-id", restrictionID),
	})
}
