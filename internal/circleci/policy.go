package circleci

import (
	"context"
	"encoding/json"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Policy contexts.
const (
	PolicyContextConfig = "config"
	PolicyContextPlan   = "plan"
)

// PolicyService covers policy decisions, settings and bundles for an owner.
type PolicyService struct {
	client *apiclient.Client
}

func ownerArgs(op, ownerID, policyContext string, kv ...any) (apiclient.Args, error) {
	err := check(
		requireUUID(op, "owner-id", ownerID),
		requireOneOf(op, "context", policyContext, PolicyContextConfig, PolicyContextPlan),
	)
	return apiclient.Args{Path: path(append([]any{"owner-id", ownerID, "context", policyContext}, kv...)...)}, err
}

// DecisionListParams filters the decision audit log.
type DecisionListParams struct {
	Status    string
	After     string
	Before    string
	Branch    string
	ProjectID string
	Offset    int
}

// ListDecisions returns the decision audit log.
func (s *PolicyService) ListDecisions(ctx context.Context, ownerID, policyContext string, p DecisionListParams) *apiclient.Call[[]DecisionLog] {
	const op = "policy.decision.list"
	args, err := ownerArgs(op, ownerID, policyContext)
	if err == nil && p.ProjectID != "" {
		err = requireUUID(op, "project_id", p.ProjectID)
	}
	if err == nil && p.Offset < 0 {
		err = clierrors.Invalid(op, "offset", "offset must not be negative")
	}
	var offset any
	if p.Offset > 0 {
		offset = p.Offset
	}
	args.Query = map[string]any{
		"status":     opt(p.Status),
		"after":      opt(p.After),
		"before":     opt(p.Before),
		"branch":     opt(p.Branch),
		"project_id": opt(p.ProjectID),
		"offset":     offset,
	}
	return do[[]DecisionLog](ctx, s.client, op, err, args)
}

// DecisionRequest evaluates policies against a config input.
type DecisionRequest struct {
	Input    string         `json:"input"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MakeDecision evaluates the owner's policies against input.
func (s *PolicyService) MakeDecision(ctx context.Context, ownerID, policyContext string, req DecisionRequest) *apiclient.Call[Decision] {
	const op = "policy.decision.make"
	args, err := ownerArgs(op, ownerID, policyContext)
	if err == nil {
		err = requireString(op, "input", req.Input)
	}
	args.Body = req
	return do[Decision](ctx, s.client, op, err, args)
}

// GetSettings returns the decision settings.
func (s *PolicyService) GetSettings(ctx context.Context, ownerID, policyContext string) *apiclient.Call[DecisionSettings] {
	const op = "policy.settings.get"
	args, err := ownerArgs(op, ownerID, policyContext)
	return do[DecisionSettings](ctx, s.client, op, err, args)
}

// SetSettings enables or disables policy evaluation.
func (s *PolicyService) SetSettings(ctx context.Context, ownerID, policyContext string, enabled bool) *apiclient.Call[DecisionSettings] {
	const op = "policy.settings.set"
	args, err := ownerArgs(op, ownerID, policyContext)
	args.Body = DecisionSettings{Enabled: enabled}
	return do[DecisionSettings](ctx, s.client, op, err, args)
}

// GetDecision returns one decision log entry.
func (s *PolicyService) GetDecision(ctx context.Context, ownerID, policyContext, decisionID string) *apiclient.Call[DecisionLog] {
	const op = "policy.decision.get"
	args, err := ownerArgs(op, ownerID, policyContext, "decision-id", decisionID)
	if err == nil {
		err = requireUUID(op, "decision-id", decisionID)
	}
	return do[DecisionLog](ctx, s.client, op, err, args)
}

// DecisionBundle returns the policy bundle a decision was made with.
func (s *PolicyService) DecisionBundle(ctx context.Context, ownerID, policyContext, decisionID string) *apiclient.Call[PolicyBundle] {
	const op = "policy.decision.bundle"
	args, err := ownerArgs(op, ownerID, policyContext, "decision-id", decisionID)
	if err == nil {
		err = requireUUID(op, "decision-id", decisionID)
	}
	return do[PolicyBundle](ctx, s.client, op, err, args)
}

// GetBundle returns the active policy bundle.
func (s *PolicyService) GetBundle(ctx context.Context, ownerID, policyContext string) *apiclient.Call[PolicyBundle] {
	const op = "policy.bundle.get"
	args, err := ownerArgs(op, ownerID, policyContext)
	return do[PolicyBundle](ctx, s.client, op, err, args)
}

// CreateBundle uploads policies, keyed by file name. With dry set the
// server reports the diff without applying it.
func (s *PolicyService) CreateBundle(ctx context.Context, ownerID, policyContext string, policies map[string]string, dry bool) *apiclient.Call[BundleDiff] {
	const op = "policy.bundle.create"
	args, err := ownerArgs(op, ownerID, policyContext)
	if err == nil && len(policies) == 0 {
		err = clierrors.Invalid(op, "policies", "at least one policy is required")
	}
	args.Query = map[string]any{"dry": optTrue(dry)}
	args.Body = map[string]any{"policies": policies}
	return do[BundleDiff](ctx, s.client, op, err, args)
}

// GetPolicy returns one policy document of the active bundle.
func (s *PolicyService) GetPolicy(ctx context.Context, ownerID, policyContext, name string) *apiclient.Call[Policy] {
	const op = "policy.bundle.policy"
	args, err := ownerArgs(op, ownerID, policyContext, "policy-name", name)
	if err == nil {
		err = requireString(op, "policy-name", name)
	}
	return do[Policy](ctx, s.client, op, err, args)
}

// ParseMetadata decodes a JSON object given on the command line.
func ParseMetadata(op, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, clierrors.Invalid(op, "metadata", "invalid JSON: %v", err)
	}
	return m, nil
}
