package circleci

import (
	"context"
	"strings"

	"github.com/chazuruo/circli/internal/apiclient"
	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Checkout key types.
const (
	KeyTypeDeploy = "deploy-key"
	KeyTypeUser   = "user-key"
)

// ProjectService covers projects, their settings, checkout keys and
// environment variables.
type ProjectService struct {
	client *apiclient.Client
}

// SplitSlug splits "<vcs>/<org>/<repo>" into its parts.
func SplitSlug(slug string) (provider, organization, project string, err error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", clierrors.Invalid("project", "project-slug", "%q is not of the form <vcs>/<org>/<repo>", slug)
	}
	return parts[0], parts[1], parts[2], nil
}

func triple(op, slug string) (apiclient.Args, error) {
	provider, org, project, err := SplitSlug(slug)
	if err != nil {
		return apiclient.Args{}, clierrors.Invalid(op, "project-slug", "%q is not of the form <vcs>/<org>/<repo>", slug)
	}
	return apiclient.Args{Path: path("provider", provider, "organization", org, "project", project)}, nil
}

// Get returns a project by slug.
func (s *ProjectService) Get(ctx context.Context, slug string) *apiclient.Call[Project] {
	const op = "project.get"
	return do[Project](ctx, s.client, op, requireSlug(op, slug), apiclient.Args{Path: path("project-slug", slug)})
}

// Create follows a repository as a CircleCI project.
func (s *ProjectService) Create(ctx context.Context, slug string) *apiclient.Call[ProjectSettings] {
	const op = "project.create"
	args, err := triple(op, slug)
	return do[ProjectSettings](ctx, s.client, op, err, args)
}

// GetSettings returns a project's advanced settings.
func (s *ProjectService) GetSettings(ctx context.Context, slug string) *apiclient.Call[ProjectSettings] {
	const op = "project.settings.get"
	args, err := triple(op, slug)
	return do[ProjectSettings](ctx, s.client, op, err, args)
}

// UpdateSettings changes the non-nil advanced settings.
func (s *ProjectService) UpdateSettings(ctx context.Context, slug string, advanced AdvancedSettings) *apiclient.Call[ProjectSettings] {
	const op = "project.settings.update"
	args, err := triple(op, slug)
	if err == nil && advanced.empty() {
		err = clierrors.Invalid(op, "advanced", "no settings to update")
	}
	args.Body = ProjectSettings{Advanced: advanced}
	return do[ProjectSettings](ctx, s.client, op, err, args)
}

// CreateCheckoutKey creates a deploy or user key.
func (s *ProjectService) CreateCheckoutKey(ctx context.Context, slug, keyType string) *apiclient.Call[CheckoutKey] {
	const op = "project.checkout-key.create"
	err := check(requireSlug(op, slug), requireOneOf(op, "type", keyType, KeyTypeDeploy, KeyTypeUser))
	return do[CheckoutKey](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug),
		Body: map[string]string{"type": keyType},
	})
}

// ListCheckoutKeys lists checkout keys. Digest selects the fingerprint
// format: sha256 or md5.
func (s *ProjectService) ListCheckoutKeys(ctx context.Context, slug, digest string) *apiclient.Call[Page[CheckoutKey]] {
	const op = "project.checkout-key.list"
	err := requireSlug(op, slug)
	if err == nil && digest != "" {
		err = requireOneOf(op, "digest", digest, "sha256", "md5")
	}
	return do[Page[CheckoutKey]](ctx, s.client, op, err, apiclient.Args{
		Path:  path("project-slug", slug),
		Query: map[string]any{"digest": opt(digest)},
	})
}

// GetCheckoutKey returns a checkout key by fingerprint.
func (s *ProjectService) GetCheckoutKey(ctx context.Context, slug, fingerprint string) *apiclient.Call[CheckoutKey] {
	const op = "project.checkout-key.get"
	err := check(requireSlug(op, slug), requireString(op, "fingerprint", fingerprint))
	return do[CheckoutKey](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "fingerprint", fingerprint),
	})
}

// DeleteCheckoutKey deletes a checkout key by fingerprint.
func (s *ProjectService) DeleteCheckoutKey(ctx context.Context, slug, fingerprint string) *apiclient.Call[Message] {
	const op = "project.checkout-key.delete"
	err := check(requireSlug(op, slug), requireString(op, "fingerprint", fingerprint))
	return do[Message](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "fingerprint", fingerprint),
	})
}

// CreateEnv creates or replaces a project environment variable.
func (s *ProjectService) CreateEnv(ctx context.Context, slug, name, value string) *apiclient.Call[ProjectEnvVar] {
	const op = "project.env.create"
	err := check(requireSlug(op, slug), requireEnvName(op, "name", name))
	return do[ProjectEnvVar](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug),
		Body: ProjectEnvVar{Name: name, Value: value},
	})
}

// ListEnv lists one page of project variables with masked values.
func (s *ProjectService) ListEnv(ctx context.Context, slug, pageToken string) *apiclient.Call[Page[ProjectEnvVar]] {
	const op = "project.env.list"
	return do[Page[ProjectEnvVar]](ctx, s.client, op, requireSlug(op, slug), apiclient.Args{
		Path:  path("project-slug", slug),
		Query: map[string]any{"page-token": opt(pageToken)},
	})
}

// GetEnv returns one masked project variable.
func (s *ProjectService) GetEnv(ctx context.Context, slug, name string) *apiclient.Call[ProjectEnvVar] {
	const op = "project.env.get"
	err := check(requireSlug(op, slug), requireString(op, "name", name))
	return do[ProjectEnvVar](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "name", name),
	})
}

// DeleteEnv deletes a project variable.
func (s *ProjectService) DeleteEnv(ctx context.Context, slug, name string) *apiclient.Call[Message] {
	const op = "project.env.delete"
	err := check(requireSlug(op, slug), requireString(op, "name", name))
	return do[Message](ctx, s.client, op, err, apiclient.Args{
		Path: path("project-slug", slug, "name", name),
	})
}
