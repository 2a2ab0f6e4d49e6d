package circleci

import (
	"context"
	"net/url"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Webhook events.
const (
	EventWorkflowCompleted = "workflow-completed"
	EventJobCompleted      = "job-completed"
)

// ScopeProject is the only webhook scope type.
const ScopeProject = "project"

// WebhookService covers /webhook.
type WebhookService struct {
	client *apiclient.Client
}

func validateEvents(op string, events []string) error {
	for _, e := range events {
		if err := requireOneOf(op, "events", e, EventWorkflowCompleted, EventJobCompleted); err != nil {
			return err
		}
	}
	return nil
}

func validateURL(op, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return clierrors.Invalid(op, "url", "%q is not an absolute http(s) URL", raw)
	}
	return nil
}

// List lists the webhooks of a scope.
func (s *WebhookService) List(ctx context.Context, scopeID, scopeType string) *apiclient.Call[Page[Webhook]] {
	const op = "webhook.list"
	if scopeType == "" {
		scopeType = ScopeProject
	}
	err := check(requireUUID(op, "scope-id", scopeID), requireOneOf(op, "scope-type", scopeType, ScopeProject))
	return do[Page[Webhook]](ctx, s.client, op, err, apiclient.Args{
		Query: map[string]any{"scope-id": scopeID, "scope-type": scopeType},
	})
}

// WebhookRequest creates a webhook.
type WebhookRequest struct {
	Name          string       `json:"name"`
	URL           string       `json:"url"`
	Events        []string     `json:"events"`
	VerifyTLS     bool         `json:"verify-tls"`
	SigningSecret string       `json:"signing-secret"`
	Scope         WebhookScope `json:"scope"`
}

// Create creates a webhook.
func (s *WebhookService) Create(ctx context.Context, req WebhookRequest) *apiclient.Call[Webhook] {
	const op = "webhook.create"
	if req.Scope.Type == "" {
		req.Scope.Type = ScopeProject
	}
	err := check(
		requireString(op, "name", req.Name),
		validateURL(op, req.URL),
		requireString(op, "signing-secret", req.SigningSecret),
		requireUUID(op, "scope-id", req.Scope.ID),
		requireOneOf(op, "scope-type", req.Scope.Type, ScopeProject),
	)
	if err == nil && len(req.Events) == 0 {
		err = clierrors.Invalid(op, "events", "at least one event is required")
	}
	if err == nil {
		err = validateEvents(op, req.Events)
	}
	return do[Webhook](ctx, s.client, op, err, apiclient.Args{Body: req})
}

// Get returns a webhook by ID.
func (s *WebhookService) Get(ctx context.Context, id string) *apiclient.Call[Webhook] {
	const op = "webhook.get"
	return do[Webhook](ctx, s.client, op, requireUUID(op, "webhook-id", id), apiclient.Args{
		Path: path("webhook-id", id),
	})
}

// WebhookUpdate changes the set fields of a webhook.
type WebhookUpdate struct {
	Name          string   `json:"name,omitempty"`
	URL           string   `json:"url,omitempty"`
	Events        []string `json:"events,omitempty"`
	VerifyTLS     *bool    `json:"verify-tls,omitempty"`
	SigningSecret string   `json:"signing-secret,omitempty"`
}

// Update replaces the given fields of a webhook.
func (s *WebhookService) Update(ctx context.Context, id string, req WebhookUpdate) *apiclient.Call[Webhook] {
	const op = "webhook.update"
	err := check(requireUUID(op, "webhook-id", id), validateEvents(op, req.Events))
	if err == nil && req.URL != "" {
		err = validateURL(op, req.URL)
	}
	return do[Webhook](ctx, s.client, op, err, apiclient.Args{
		Path: path("webhook-id", id),
		Body: req,
	})
}

// Delete deletes a webhook.
func (s *WebhookService) Delete(ctx context.Context, id string) *apiclient.Call[Message] {
	const op = "webhook.delete"
	return do[Message](ctx, s.client, op, requireUUID(op, "webhook-id", id), apiclient.Args{
		Path: path("webhook-id", id),
	})
}
