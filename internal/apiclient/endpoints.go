package apiclient

import (
	"fmt"
	"net/http"
	"sort"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Endpoint is one row of the API schema table.
type Endpoint struct {
	// ID is the stable name façades refer to, "<family>.<action>".
	ID     string
	Method string
	// Path is the URL template relative to the API root.
	Path string
	// Query lists the accepted query keys.
	Query []QueryParam
	// Body reports whether the endpoint takes a JSON body.
	Body bool
	// MediaType of the body. Empty means application/json.
	MediaType string
	// Errors maps statuses to endpoint-specific messages.
	Errors map[int]string
}

// QueryParam declares one accepted query key.
type QueryParam struct {
	Name  string
	Style ArrayStyle
}

// Args carries the per-call values for an endpoint.
type Args struct {
	Path   map[string]any
	Query  map[string]any
	Body   any
	Header http.Header
}

func q(names ...string) []QueryParam {
	params := make([]QueryParam, len(names))
	for i, n := range names {
		params[i] = QueryParam{Name: n}
	}
	return params
}

func commaJoined(name string) QueryParam {
	return QueryParam{Name: name, Style: CommaJoined}
}

const (
	msgMalformedPath = "The request is malformed (e.g, a given path parameter is invalid)"
	msgMalformed     = "The request is malformed"
	msgUnauthorized  = "The request is unauthorized"
	msgForbidden     = "The user is forbidden from making this request"
	msgServer        = "Something unexpected happened on the server."
)

var oidcErrors = map[int]string{
	400: msgMalformedPath,
	403: msgForbidden,
	500: msgServer,
}

var policyErrors = map[int]string{
	400: msgMalformedPath,
	401: msgUnauthorized,
	403: msgForbidden,
	500: msgServer,
}

var policyDecisionErrors = map[int]string{
	400: msgMalformedPath,
	401: msgUnauthorized,
	403: msgForbidden,
	404: "There was no decision log found for given decision_id, and owner_id.",
	500: msgServer,
}

var usageErrors = map[int]string{
	400: "Unexpected request body provided.",
	401: "Credentials provided are invalid.",
	404: "Entity not found.",
	429: "API rate limits exceeded.",
	500: "Internal server error.",
}

// Endpoints is the CircleCI v2 schema table.
var Endpoints = []Endpoint{
	// Pipelines
	{ID: "pipeline.list", Method: http.MethodGet, Path: "/pipeline", Query: q("org-slug", "page-token", "mine")},
	{ID: "pipeline.continue", Method: http.MethodPost, Path: "/pipeline/continue", Body: true},
	{ID: "pipeline.get", Method: http.MethodGet, Path: "/pipeline/{pipeline-id}"},
	{ID: "pipeline.config", Method: http.MethodGet, Path: "/pipeline/{pipeline-id}/config"},
	{ID: "pipeline.workflows", Method: http.MethodGet, Path: "/pipeline/{pipeline-id}/workflow", Query: q("page-token")},
	{ID: "pipeline.list-project", Method: http.MethodGet, Path: "/project/{project-slug}/pipeline", Query: q("branch", "page-token", "mine")},
	{ID: "pipeline.trigger", Method: http.MethodPost, Path: "/project/{project-slug}/pipeline", Body: true},
	{ID: "pipeline.list-mine", Method: http.MethodGet, Path: "/project/{project-slug}/pipeline/mine", Query: q("page-token")},
	{ID: "pipeline.get-by-number", Method: http.MethodGet, Path: "/project/{project-slug}/pipeline/{pipeline-number}"},

	// Workflows
	{ID: "workflow.get", Method: http.MethodGet, Path: "/workflow/{id}"},
	{ID: "workflow.approve", Method: http.MethodPost, Path: "/workflow/{id}/approve/{approval_request_id}"},
	{ID: "workflow.cancel", Method: http.MethodPost, Path: "/workflow/{id}/cancel"},
	{ID: "workflow.jobs", Method: http.MethodGet, Path: "/workflow/{id}/job", Query: q("page-token")},
	{ID: "workflow.rerun", Method: http.MethodPost, Path: "/workflow/{id}/rerun", Body: true},

	// Jobs
	{ID: "job.get", Method: http.MethodGet, Path: "/project/{project-slug}/job/{job-number}"},
	{ID: "job.cancel", Method: http.MethodPost, Path: "/project/{project-slug}/job/{job-number}/cancel"},
	{ID: "job.cancel-by-id", Method: http.MethodPost, Path: "/jobs/{job-id}/cancel"},
	{ID: "job.artifacts", Method: http.MethodGet, Path: "/project/{project-slug}/{job-number}/artifacts"},
	{ID: "job.tests", Method: http.MethodGet, Path: "/project/{project-slug}/{job-number}/tests", Query: q("page-token")},

	// Contexts
	{ID: "context.create", Method: http.MethodPost, Path: "/context", Body: true},
	{ID: "context.list", Method: http.MethodGet, Path: "/context", Query: q("owner-id", "owner-slug", "owner-type", "page-token")},
	{ID: "context.get", Method: http.MethodGet, Path: "/context/{context-id}"},
	{ID: "context.delete", Method: http.MethodDelete, Path: "/context/{context-id}"},
	{ID: "context.env.list", Method: http.MethodGet, Path: "/context/{context-id}/environment-variable", Query: q("page-token")},
	{ID: "context.env.set", Method: http.MethodPut, Path: "/context/{context-id}/environment-variable/{env-var-name}", Body: true},
	{ID: "context.env.delete", Method: http.MethodDelete, Path: "/context/{context-id}/environment-variable/{env-var-name}"},
	{ID: "context.restriction.list", Method: http.MethodGet, Path: "/context/{context-id}/restrictions"},
	{ID: "context.restriction.create", Method: http.MethodPost, Path: "/context/{context-id}/restrictions", Body: true},
	{ID: "context.restriction.delete", Method: http.MethodDelete, Path: "/context/{context-id}/restrictions/{restriction-id}"},

	// Insights
	{ID: "insights.project-summary", Method: http.MethodGet, Path: "/insights/pages/{project-slug}/summary", Query: []QueryParam{{Name: "reporting-window"}, {Name: "branches"}, {Name: "workflow-names"}}},
	{ID: "insights.job-timeseries", Method: http.MethodGet, Path: "/insights/time-series/{project-slug}/workflows/{workflow-name}/jobs", Query: q("branch", "granularity", "start-date", "end-date")},
	{ID: "insights.org-summary", Method: http.MethodGet, Path: "/insights/{org-slug}/summary", Query: []QueryParam{{Name: "reporting-window"}, {Name: "project-names"}}},
	{ID: "insights.branches", Method: http.MethodGet, Path: "/insights/{project-slug}/branches", Query: q("workflow-name")},
	{ID: "insights.flaky-tests", Method: http.MethodGet, Path: "/insights/{project-slug}/flaky-tests"},
	{ID: "insights.workflows", Method: http.MethodGet, Path: "/insights/{project-slug}/workflows", Query: q("page-token", "all-branches", "branch", "reporting-window")},
	{ID: "insights.workflow-runs", Method: http.MethodGet, Path: "/insights/{project-slug}/workflows/{workflow-name}", Query: q("all-branches", "branch", "page-token", "start-date", "end-date")},
	{ID: "insights.workflow-jobs", Method: http.MethodGet, Path: "/insights/{project-slug}/workflows/{workflow-name}/jobs", Query: q("page-token", "all-branches", "branch", "reporting-window", "job-name")},
	{ID: "insights.workflow-summary", Method: http.MethodGet, Path: "/insights/{project-slug}/workflows/{workflow-name}/summary", Query: q("all-branches", "branch")},
	{ID: "insights.workflow-test-metrics", Method: http.MethodGet, Path: "/insights/{project-slug}/workflows/{workflow-name}/test-metrics", Query: q("branch", "all-branches")},

	// OIDC custom claims
	{ID: "oidc.org.get", Method: http.MethodGet, Path: "/org/{org-id}/oidc-custom-claims", Errors: oidcErrors},
	{ID: "oidc.org.patch", Method: http.MethodPatch, Path: "/org/{org-id}/oidc-custom-claims", Body: true, Errors: oidcErrors},
	{ID: "oidc.org.delete", Method: http.MethodDelete, Path: "/org/{org-id}/oidc-custom-claims", Query: []QueryParam{commaJoined("claims")}, Errors: oidcErrors},
	{ID: "oidc.project.get", Method: http.MethodGet, Path: "/org/{org-id}/project/{project-id}/oidc-custom-claims", Errors: oidcErrors},
	{ID: "oidc.project.patch", Method: http.MethodPatch, Path: "/org/{org-id}/project/{project-id}/oidc-custom-claims", Body: true, Errors: oidcErrors},
	{ID: "oidc.project.delete", Method: http.MethodDelete, Path: "/org/{org-id}/project/{project-id}/oidc-custom-claims", Query: []QueryParam{commaJoined("claims")}, Errors: oidcErrors},

	// Policy management
	{ID: "policy.decision.list", Method: http.MethodGet, Path: "/owner/{owner-id}/context/{context}/decision", Query: q("status", "after", "before", "branch", "project_id", "offset"), Errors: policyErrors},
	{ID: "policy.decision.make", Method: http.MethodPost, Path: "/owner/{owner-id}/context/{context}/decision", Body: true, Errors: map[int]string{400: msgMalformed, 401: msgUnauthorized, 500: msgServer}},
	{ID: "policy.settings.get", Method: http.MethodGet, Path: "/owner/{owner-id}/context/{context}/decision/settings", Errors: policyErrors},
	{ID: "policy.settings.set", Method: http.MethodPatch, Path: "/owner/{owner-id}/context/{context}/decision/settings", Body: true, Errors: policyErrors},
	{ID: "policy.decision.get", Method: http.MethodGet, Path: "/owner/{owner-id}/context/{context}/decision/{decision-id}", Errors: policyDecisionErrors},
	{ID: "policy.decision.bundle", Method: http.MethodGet, Path: "/owner/{owner-id}/context/{context}/decision/{decision-id}/policy-bundle", Errors: policyDecisionErrors},
	{ID: "policy.bundle.get", Method: http.MethodGet, Path: "/owner/{owner-id}/context/{context}/policy-bundle", Errors: policyErrors},
	{ID: "policy.bundle.create", Method: http.MethodPost, Path: "/owner/{owner-id}/context/{context}/policy-bundle", Query: q("dry"), Body: true, Errors: map[int]string{
		400: msgMalformedPath,
		401: msgUnauthorized,
		403: msgForbidden,
		413: "The request exceeds the maximum payload size for policy bundles ~2.5Mib",
		500: msgServer,
	}},
	{ID: "policy.bundle.policy", Method: http.MethodGet, Path: "/owner/{owner-id}/context/{context}/policy-bundle/{policy-name}", Errors: map[int]string{
		400: msgMalformedPath,
		401: msgUnauthorized,
		403: msgForbidden,
		404: "There was no policy that was found with the given owner_id and policy name.",
		500: msgServer,
	}},

	// Projects
	{ID: "project.get", Method: http.MethodGet, Path: "/project/{project-slug}"},
	{ID: "project.create", Method: http.MethodPost, Path: "/project/{provider}/{organization}/{project}"},
	{ID: "project.settings.get", Method: http.MethodGet, Path: "/project/{provider}/{organization}/{project}/settings"},
	{ID: "project.settings.update", Method: http.MethodPatch, Path: "/project/{provider}/{organization}/{project}/settings", Body: true},
	{ID: "project.checkout-key.create", Method: http.MethodPost, Path: "/project/{project-slug}/checkout-key", Body: true},
	{ID: "project.checkout-key.list", Method: http.MethodGet, Path: "/project/{project-slug}/checkout-key", Query: q("digest")},
	{ID: "project.checkout-key.get", Method: http.MethodGet, Path: "/project/{project-slug}/checkout-key/{fingerprint}"},
	{ID: "project.checkout-key.delete", Method: http.MethodDelete, Path: "/project/{project-slug}/checkout-key/{fingerprint}"},
	{ID: "project.env.create", Method: http.MethodPost, Path: "/project/{project-slug}/envvar", Body: true},
	{ID: "project.env.list", Method: http.MethodGet, Path: "/project/{project-slug}/envvar", Query: q("page-token")},
	{ID: "project.env.get", Method: http.MethodGet, Path: "/project/{project-slug}/envvar/{name}"},
	{ID: "project.env.delete", Method: http.MethodDelete, Path: "/project/{project-slug}/envvar/{name}"},

	// Schedules
	{ID: "schedule.create", Method: http.MethodPost, Path: "/project/{project-slug}/schedule", Body: true},
	{ID: "schedule.list", Method: http.MethodGet, Path: "/project/{project-slug}/schedule", Query: q("page-token")},
	{ID: "schedule.get", Method: http.MethodGet, Path: "/schedule/{schedule-id}"},
	{ID: "schedule.update", Method: http.MethodPatch, Path: "/schedule/{schedule-id}", Body: true},
	{ID: "schedule.delete", Method: http.MethodDelete, Path: "/schedule/{schedule-id}"},

	// Usage exports
	{ID: "usage.export.create", Method: http.MethodPost, Path: "/organizations/{org-id}/usage_export_job", Body: true, Errors: usageErrors},
	{ID: "usage.export.get", Method: http.MethodGet, Path: "/organizations/{org-id}/usage_export_job/{usage-export-job-id}", Errors: usageErrors},

	// Users
	{ID: "user.me", Method: http.MethodGet, Path: "/me"},
	{ID: "user.collaborations", Method: http.MethodGet, Path: "/me/collaborations"},
	{ID: "user.get", Method: http.MethodGet, Path: "/user/{id}"},

	// Webhooks
	{ID: "webhook.list", Method: http.MethodGet, Path: "/webhook", Query: q("scope-id", "scope-type")},
	{ID: "webhook.create", Method: http.MethodPost, Path: "/webhook", Body: true},
	{ID: "webhook.get", Method: http.MethodGet, Path: "/webhook/{webhook-id}"},
	{ID: "webhook.update", Method: http.MethodPut, Path: "/webhook/{webhook-id}", Body: true},
	{ID: "webhook.delete", Method: http.MethodDelete, Path: "/webhook/{webhook-id}"},
}

var endpointIndex = func() map[string]*Endpoint {
	idx := make(map[string]*Endpoint, len(Endpoints))
	for i := range Endpoints {
		ep := &Endpoints[i]
		if _, dup := idx[ep.ID]; dup {
			panic(fmt.Sprintf("apiclient: duplicate endpoint %q", ep.ID))
		}
		idx[ep.ID] = ep
	}
	return idx
}()

// Lookup returns the endpoint registered under id.
func Lookup(id string) (*Endpoint, bool) {
	ep, ok := endpointIndex[id]
	return ep, ok
}

// EndpointIDs returns every registered ID, sorted.
func EndpointIDs() []string {
	ids := make([]string, 0, len(endpointIndex))
	for id := range endpointIndex {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build turns an endpoint and its arguments into a Request. Query keys the
// endpoint does not declare, and bodies it does not accept, are rejected.
func Build(id string, args Args) (*Request, error) {
	ep, ok := Lookup(id)
	if !ok {
		return nil, clierrors.Invalid(id, "", "unknown endpoint")
	}
	return ep.Request(args)
}

// Request builds a Request for this endpoint.
func (e *Endpoint) Request(args Args) (*Request, error) {
	var style map[string]ArrayStyle
	if len(args.Query) > 0 {
		declared := make(map[string]ArrayStyle, len(e.Query))
		for _, p := range e.Query {
			declared[p.Name] = p.Style
		}
		style = make(map[string]ArrayStyle, len(args.Query))
		for k := range args.Query {
			s, ok := declared[k]
			if !ok {
				return nil, clierrors.Invalid(e.ID, k, "query parameter not accepted by %s %s", e.Method, e.Path)
			}
			style[k] = s
		}
	}

	if args.Body != nil && !e.Body {
		return nil, clierrors.Invalid(e.ID, "body", "%s %s takes no request body", e.Method, e.Path)
	}

	return &Request{
		Op:         e.ID,
		Method:     e.Method,
		Path:       e.Path,
		PathParams: args.Path,
		Query:      args.Query,
		QueryStyle: style,
		Body:       args.Body,
		MediaType:  e.MediaType,
		Errors:     e.Errors,
		Header:     args.Header,
	}, nil
}
