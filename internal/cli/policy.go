package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
)

var decisionColumns = []output.Column[circleci.DecisionLog]{
	output.Col("ID", func(d circleci.DecisionLog) any { return d.ID }),
	output.Col("Status", func(d circleci.DecisionLog) any { return output.Status(d.Decision.Status) }),
	output.Col("Created At", func(d circleci.DecisionLog) any { return output.Time(d.CreatedAt) }),
}

// newPolicyCommand creates the policy command.
func (a *App) newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policy",
		Aliases: []string{"policies"},
		Short:   "Config policies: decisions, settings, bundles and documents",
		Long: `Manage config policies of an organization. Every subcommand takes the
owner (organization) ID and a --context, config by default.`,
	}
	cmd.AddCommand(
		a.newPolicyDecisionCommand(),
		a.newPolicySettingsCommand(),
		a.newPolicyBundleCommand(),
		a.newPolicyDocumentCommand(),
	)
	return cmd
}

func contextFlag(cmd *cobra.Command, v *string) {
	cmd.Flags().StringVar(v, "context", circleci.PolicyContextConfig, "policy context: config or plan")
}

func (a *App) newPolicyDecisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Audit and make policy decisions",
	}

	var listCtx string
	var params circleci.DecisionListParams
	list := &cobra.Command{
		Use:   "list <owner-id>",
		Short: "List recorded decisions",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showList(a, svc.Policy.ListDecisions(ctx, args[0], listCtx, params), decisionColumns...)
		}),
	}
	contextFlag(list, &listCtx)
	list.Flags().StringVar(&params.Status, "status", "", "only decisions with this status")
	list.Flags().StringVar(&params.After, "after", "", "only decisions after this time (ISO 8601)")
	list.Flags().StringVar(&params.Before, "before", "", "only decisions before this time (ISO 8601)")
	list.Flags().StringVar(&params.Branch, "branch", "", "only decisions on this branch")
	list.Flags().StringVar(&params.ProjectID, "project-id", "", "only decisions for this project")
	list.Flags().IntVar(&params.Offset, "offset", 0, "skip this many decisions")

	var getCtx string
	var policyBundle bool
	get := &cobra.Command{
		Use:   "get <owner-id> <decision-id>",
		Short: "Show a decision",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if policyBundle {
				return show(a, svc.Policy.DecisionBundle(ctx, args[0], getCtx, args[1]))
			}
			return show(a, svc.Policy.GetDecision(ctx, args[0], getCtx, args[1]))
		}),
	}
	contextFlag(get, &getCtx)
	get.Flags().BoolVar(&policyBundle, "policy-bundle", false, "show the policies the decision was made with")

	var makeCtx, input, inputFile, metadata string
	mk := &cobra.Command{
		Use:   "make <owner-id>",
		Short: "Evaluate the active policies against a config",
		Example: `  circli policy decision make <owner-id> --input-file .circleci/config.yml`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			const op = "policy.decision.make"
			if inputFile != "" {
				b, err := os.ReadFile(inputFile)
				if err != nil {
					return clierrors.Invalid(op, "input-file", "%v", err)
				}
				input = string(b)
			}
			req := circleci.DecisionRequest{Input: input}
			if metadata != "" {
				if err := yaml.Unmarshal([]byte(metadata), &req.Metadata); err != nil {
					return clierrors.Invalid(op, "metadata", "not a JSON or YAML object: %v", err)
				}
			}
			return show(a, svc.Policy.MakeDecision(ctx, args[0], makeCtx, req))
		}),
	}
	contextFlag(mk, &makeCtx)
	mk.Flags().StringVar(&input, "input", "", "config to evaluate")
	mk.Flags().StringVar(&inputFile, "input-file", "", "file holding the config to evaluate")
	mk.Flags().StringVar(&metadata, "metadata", "", `metadata object, e.g. '{"branch":"main"}'`)
	mk.MarkFlagsMutuallyExclusive("input", "input-file")

	cmd.AddCommand(list, get, mk)
	return cmd
}

func (a *App) newPolicySettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or toggle policy evaluation",
	}

	var getCtx string
	get := &cobra.Command{
		Use:   "get <owner-id>",
		Short: "Show whether decisions are enabled",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Policy.GetSettings(ctx, args[0], getCtx))
		}),
	}
	contextFlag(get, &getCtx)

	var setCtx string
	var enabled bool
	set := &cobra.Command{
		Use:   "set <owner-id>",
		Short: "Enable or disable decisions",
		Example: `  circli policy settings set <owner-id> --enabled=false`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Policy.SetSettings(ctx, args[0], setCtx, enabled))
		}),
	}
	contextFlag(set, &setCtx)
	set.Flags().BoolVar(&enabled, "enabled", true, "enable policy decisions")

	cmd.AddCommand(get, set)
	return cmd
}

func (a *App) newPolicyBundleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Show or replace the policy bundle",
	}

	var getCtx string
	get := &cobra.Command{
		Use:   "get <owner-id>",
		Short: "Show the active bundle",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Policy.GetBundle(ctx, args[0], getCtx))
		}),
	}
	contextFlag(get, &getCtx)

	var createCtx, policiesJSON string
	var files []string
	var dry bool
	create := &cobra.Command{
		Use:   "create <owner-id>",
		Short: "Replace the bundle with the given policies",
		Example: `  circli policy bundle create <owner-id> --file policies/branches.rego --file policies/orbs.rego
  circli policy bundle create <owner-id> --dry-run --policies '{"branches.rego":"package org ..."}'`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			policies, err := readPolicies(policiesJSON, files)
			if err != nil {
				return err
			}
			return show(a, svc.Policy.CreateBundle(ctx, args[0], createCtx, policies, dry))
		}),
	}
	contextFlag(create, &createCtx)
	create.Flags().StringVar(&policiesJSON, "policies", "", "object mapping policy name to content")
	create.Flags().StringArrayVar(&files, "file", nil, "policy file; the base name is the policy name (repeatable)")
	create.Flags().BoolVar(&dry, "dry-run", false, "report the diff without applying it")

	cmd.AddCommand(get, create)
	return cmd
}

// readPolicies merges --policies and --file into one bundle.
func readPolicies(inline string, files []string) (map[string]string, error) {
	const op = "policy.bundle.create"
	policies := map[string]string{}
	if strings.TrimSpace(inline) != "" {
		if err := yaml.Unmarshal([]byte(inline), &policies); err != nil {
			return nil, clierrors.Invalid(op, "policies", "not a JSON or YAML object: %v", err)
		}
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, clierrors.Invalid(op, "file", "%v", err)
		}
		policies[filepath.Base(f)] = string(b)
	}
	return policies, nil
}

func (a *App) newPolicyDocumentCommand() *cobra.Command {
	var policyCtx string
	cmd := &cobra.Command{
		Use:   "document <owner-id> <policy-name>",
		Short: "Show one policy of the active bundle",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Policy.GetPolicy(ctx, args[0], policyCtx, args[1]))
		}),
	}
	contextFlag(cmd, &policyCtx)
	return cmd
}
