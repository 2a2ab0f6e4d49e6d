// Package circleci holds one façade per CircleCI v2 resource family.
//
// Every method maps its named parameters onto an endpoint of the
// apiclient schema table and returns the pending call. Arguments that can
// be checked locally (ids, enums, ranges) are validated first, so a bad
// argument settles the call with a validation error and sends nothing.
package circleci

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Service bundles the resource façades over one client.
type Service struct {
	client *apiclient.Client

	Pipelines *PipelineService
	Workflows *WorkflowService
	Jobs      *JobService
	Contexts  *ContextService
	Projects  *ProjectService
	Schedules *ScheduleService
	Webhooks  *WebhookService
	Insights  *InsightsService
	Policy    *PolicyService
	OIDC      *OIDCService
	Usage     *UsageService
	Users     *UserService
}

// New wires every façade to client.
func New(client *apiclient.Client) *Service {
	return &Service{
		client:    client,
		Pipelines: &PipelineService{client: client},
		Workflows: &WorkflowService{client: client},
		Jobs:      &JobService{client: client},
		Contexts:  &ContextService{client: client},
		Projects:  &ProjectService{client: client},
		Schedules: &ScheduleService{client: client},
		Webhooks:  &WebhookService{client: client},
		Insights:  &InsightsService{client: client},
		Policy:    &PolicyService{client: client},
		OIDC:      &OIDCService{client: client},
		Usage:     &UsageService{client: client},
		Users:     &UserService{client: client},
	}
}

// Client returns the underlying dispatcher.
func (s *Service) Client() *apiclient.Client { return s.client }

// path builds a placeholder map from name/value pairs.
func path(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

// opt turns an empty string into an undefined query value.
func opt(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// optTrue sends a flag only when it is set.
func optTrue(b bool) any {
	if !b {
		return nil
	}
	return true
}

// optBool sends a tri-state flag when it is not nil.
func optBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// optList drops empty lists.
func optList(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

// check runs validators in order and returns the first failure.
func check(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func requireUUID(op, field, v string) error {
	if v == "" {
		return clierrors.Invalid(op, field, "%s is required", field)
	}
	if _, err := uuid.Parse(v); err != nil {
		return clierrors.Invalid(op, field, "%q is not a valid UUID", v)
	}
	return nil
}

func requireString(op, field, v string) error {
	if strings.TrimSpace(v) == "" {
		return clierrors.Invalid(op, field, "%s is required", field)
	}
	return nil
}

func requireSlug(op, v string) error {
	if err := requireString(op, "project-slug", v); err != nil {
		return err
	}
	if parts := strings.Split(v, "/"); len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return clierrors.Invalid(op, "project-slug", "%q is not of the form <vcs>/<org>/<repo>", v)
	}
	return nil
}

func requireOneOf(op, field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return clierrors.Invalid(op, field, "%q must be one of %s", v, strings.Join(allowed, ", "))
}

func requirePositive(op, field string, n int64) error {
	if n <= 0 {
		return clierrors.Invalid(op, field, "%s must be positive, got %d", field, n)
	}
	return nil
}

// do validates, then dispatches endpoint id.
func do[T any](ctx context.Context, client *apiclient.Client, id string, err error, args apiclient.Args) *apiclient.Call[T] {
	if err != nil {
		return apiclient.Failed[T](id, err)
	}
	return apiclient.Do[T](ctx, client, id, args)
}
