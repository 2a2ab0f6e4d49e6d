package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/auth"
	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
)

// newOIDCCommand creates the oidc command.
func (a *App) newOIDCCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oidc",
		Short: "Custom OIDC token claims, and token verification",
	}
	cmd.AddCommand(
		a.newOIDCClaimsCommand("org", "an organization", "<org-id>", 1),
		a.newOIDCClaimsCommand("project", "a project", "<org-id> <project-id>", 2),
		a.newOIDCVerifyCommand(),
	)
	return cmd
}

// newOIDCClaimsCommand builds get, set and delete for org or project
// claims. nargs is 1 for org and 2 for project.
func (a *App) newOIDCClaimsCommand(scope, noun, argsUse string, nargs int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   scope,
		Short: "Custom claims of " + noun,
	}
	project := func(args []string) string {
		if nargs == 2 {
			return args[1]
		}
		return ""
	}

	get := &cobra.Command{
		Use:   "get " + argsUse,
		Short: "Show the custom claims",
		Args:  cobra.ExactArgs(nargs),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if p := project(args); p != "" {
				return show(a, svc.OIDC.GetProjectClaims(ctx, args[0], p))
			}
			return show(a, svc.OIDC.GetOrgClaims(ctx, args[0]))
		}),
	}

	var req circleci.PatchClaimsRequest
	set := &cobra.Command{
		Use:     "set " + argsUse,
		Short:   "Set the audience or token lifetime",
		Example: "  circli oidc " + scope + " set " + argsUse + " --audience sts.amazonaws.com --ttl 30m",
		Args:    cobra.ExactArgs(nargs),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if p := project(args); p != "" {
				return show(a, svc.OIDC.PatchProjectClaims(ctx, args[0], p, req))
			}
			return show(a, svc.OIDC.PatchOrgClaims(ctx, args[0], req))
		}),
	}
	set.Flags().StringSliceVar(&req.Audience, "audience", nil, "comma-separated audience values")
	set.Flags().StringVar(&req.TTL, "ttl", "", "token lifetime, e.g. 1h")

	claims := []string{circleci.ClaimAudience, circleci.ClaimTTL}
	del := &cobra.Command{
		Use:   "delete " + argsUse,
		Short: "Remove custom claims, restoring the defaults",
		Args:  cobra.ExactArgs(nargs),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if p := project(args); p != "" {
				return show(a, svc.OIDC.DeleteProjectClaims(ctx, args[0], p, claims))
			}
			return show(a, svc.OIDC.DeleteOrgClaims(ctx, args[0], claims))
		}),
	}
	del.Flags().StringSliceVar(&claims, "claims", claims, "claims to remove: audience, ttl")

	cmd.AddCommand(get, set, del)
	return cmd
}

func (a *App) newOIDCVerifyCommand() *cobra.Command {
	var orgID, audience string
	cmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a CircleCI OIDC token and print its claims",
		Long: `Verify an OIDC token against the organization's published signing keys
and print its claims. The token defaults to $CIRCLE_OIDC_TOKEN_V2, then
$CIRCLE_OIDC_TOKEN. The audience defaults to the organization ID.

No API token is needed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "oidc.verify"
			raw := envDefault("CIRCLE_OIDC_TOKEN_V2", "CIRCLE_OIDC_TOKEN")
			if len(args) == 1 {
				raw = args[0]
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return clierrors.Invalid(op, "token", "pass a token or set CIRCLE_OIDC_TOKEN_V2")
			}
			if orgID == "" {
				orgID = envDefault("CIRCLE_ORGANIZATION_ID")
			}
			if orgID == "" {
				return clierrors.Invalid(op, "org-id", "is required")
			}
			if audience == "" {
				audience = orgID
			}

			ctx := cmd.Context()
			v, err := auth.NewVerifier(ctx, orgID, audience)
			if err != nil {
				return err
			}
			claims, err := v.Verify(ctx, raw)
			if err != nil {
				return err
			}
			if err := output.Record(a.Printer(), claims); err != nil {
				return err
			}
			a.hint("Valid token from %s", auth.IssuerURL(orgID))
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org-id", "", "organization ID (default $CIRCLE_ORGANIZATION_ID)")
	cmd.Flags().StringVar(&audience, "audience", "", "expected audience (default the organization ID)")
	return cmd
}
