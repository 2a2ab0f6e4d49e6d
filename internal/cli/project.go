package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
	"github.com/chazuruo/circli/internal/tui"
)

var projectEnvColumns = []output.Column[circleci.ProjectEnvVar]{
	output.Col("Name", func(e circleci.ProjectEnvVar) any { return e.Name }),
	output.Col("Value", func(e circleci.ProjectEnvVar) any { return e.Value }),
	output.Col("Created At", func(e circleci.ProjectEnvVar) any { return output.TimePtr(e.CreatedAt) }),
}

var checkoutKeyColumns = []output.Column[circleci.CheckoutKey]{
	output.Col("Type", func(k circleci.CheckoutKey) any { return k.Type }),
	output.Col("Fingerprint", func(k circleci.CheckoutKey) any { return k.Fingerprint }),
	output.Col("SHA256", func(k circleci.CheckoutKey) any { return output.Fingerprint(k.PublicKey) }),
	output.Col("Preferred", func(k circleci.CheckoutKey) any { return k.Preferred }),
	output.Col("Created At", func(k circleci.CheckoutKey) any { return output.Time(k.CreatedAt) }),
}

// newProjectCommand creates the project command.
func (a *App) newProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects, their variables, checkout keys and settings",
	}

	get := &cobra.Command{
		Use:   "get [project-slug]",
		Short: "Show a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			slug, err := a.projectSlug("project.get", "", args)
			if err != nil {
				return err
			}
			return show(a, svc.Projects.Get(ctx, slug))
		}),
	}

	create := &cobra.Command{
		Use:   "create <project-slug>",
		Short: "Follow a repository as a CircleCI project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Projects.Create(ctx, args[0]))
		}),
	}

	cmd.AddCommand(
		get,
		create,
		a.newProjectEnvCommand(),
		a.newProjectCheckoutKeyCommand(),
		a.newProjectSettingsCommand(),
	)
	return cmd
}

func (a *App) newProjectEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage project environment variables",
	}

	var pageToken string
	list := &cobra.Command{
		Use:   "list <project-slug>",
		Short: "List variables with masked values",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Projects.ListEnv(ctx, args[0], pageToken), projectEnvColumns...)
		}),
	}
	list.Flags().StringVar(&pageToken, "page-token", "", "next page token")

	get := &cobra.Command{
		Use:   "get <project-slug> <name>",
		Short: "Show one variable with its masked value",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Projects.GetEnv(ctx, args[0], args[1]))
		}),
	}

	set := &cobra.Command{
		Use:   "set <project-slug> <name> <value>",
		Short: "Create or replace a variable",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Projects.CreateEnv(ctx, args[0], args[1], args[2]))
		}),
	}

	del := &cobra.Command{
		Use:   "delete <project-slug> <name>",
		Short: "Delete a variable",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Projects.DeleteEnv(ctx, args[0], args[1]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}

	cmd.AddCommand(list, get, set, del)
	return cmd
}

func (a *App) newProjectCheckoutKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout-key",
		Short: "Manage project checkout keys",
	}

	var digest string
	list := &cobra.Command{
		Use:   "list <project-slug>",
		Short: "List checkout keys",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Projects.ListCheckoutKeys(ctx, args[0], digest), checkoutKeyColumns...)
		}),
	}
	list.Flags().StringVar(&digest, "digest", "", "fingerprint digest to report: sha256 or md5")

	var keyType string
	create := &cobra.Command{
		Use:   "create <project-slug>",
		Short: "Create a deploy key or user key",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			if keyType == "" {
				if !a.Interactive() {
					return clierrors.Invalid("project.checkout-key.create", "type", "--type is required")
				}
				t, err := tui.SelectOne("Key type",
					[]string{"Deploy key (read-only, this repository)", "User key (your GitHub permissions)"},
					[]string{circleci.KeyTypeDeploy, circleci.KeyTypeUser})
				if err != nil {
					return err
				}
				keyType = t
			}
			return show(a, svc.Projects.CreateCheckoutKey(ctx, args[0], keyType))
		}),
	}
	create.Flags().StringVar(&keyType, "type", "", "deploy-key or user-key")

	get := &cobra.Command{
		Use:   "get <project-slug> <fingerprint>",
		Short: "Show a checkout key",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Projects.GetCheckoutKey(ctx, args[0], args[1]))
		}),
	}

	del := &cobra.Command{
		Use:   "delete <project-slug> <fingerprint>",
		Short: "Delete a checkout key",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Projects.DeleteCheckoutKey(ctx, args[0], args[1]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}

	cmd.AddCommand(list, create, get, del)
	return cmd
}

// settingFlags maps flag names to advanced settings fields.
var settingFlags = []struct {
	name  string
	usage string
	field func(*circleci.AdvancedSettings) **bool
}{
	{"autocancel-builds", "auto-cancel redundant builds", func(s *circleci.AdvancedSettings) **bool { return &s.AutocancelBuilds }},
	{"build-fork-prs", "build pull requests from forks", func(s *circleci.AdvancedSettings) **bool { return &s.BuildForkPRs }},
	{"build-prs-only", "only build pull requests", func(s *circleci.AdvancedSettings) **bool { return &s.BuildPRsOnly }},
	{"disable-ssh", "disable SSH reruns", func(s *circleci.AdvancedSettings) **bool { return &s.DisableSSH }},
	{"forks-receive-secret-env-vars", "pass secrets to fork builds", func(s *circleci.AdvancedSettings) **bool { return &s.ForksReceiveSecretEnvVars }},
	{"oss", "free and open source project", func(s *circleci.AdvancedSettings) **bool { return &s.OSS }},
	{"set-github-status", "report status to GitHub", func(s *circleci.AdvancedSettings) **bool { return &s.SetGithubStatus }},
	{"setup-workflows", "enable dynamic configuration", func(s *circleci.AdvancedSettings) **bool { return &s.SetupWorkflows }},
	{"write-settings-requires-admin", "only admins may change settings", func(s *circleci.AdvancedSettings) **bool { return &s.WriteSettingsRequiresAdmin }},
}

func (a *App) newProjectSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change advanced project settings",
	}

	get := &cobra.Command{
		Use:   "get <project-slug>",
		Short: "Show the advanced settings",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Projects.GetSettings(ctx, args[0]))
		}),
	}

	values := make([]bool, len(settingFlags))
	var branchOverrides []string
	update := &cobra.Command{
		Use:     "update <project-slug>",
		Short:   "Change advanced settings; only the flags given are sent",
		Example: `  circli project settings update gh/acme/api --autocancel-builds --build-fork-prs=false`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var adv circleci.AdvancedSettings
			for i, f := range settingFlags {
				if cmd.Flags().Changed(f.name) {
					v := values[i]
					*f.field(&adv) = &v
				}
			}
			if cmd.Flags().Changed("pr-only-branch-overrides") {
				adv.PROnlyBranchOverrides = branchOverrides
			}
			return a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
				return show(a, svc.Projects.UpdateSettings(ctx, args[0], adv))
			})(cmd, args)
		},
	}
	for i, f := range settingFlags {
		update.Flags().BoolVar(&values[i], f.name, false, f.usage)
	}
	update.Flags().StringSliceVar(&branchOverrides, "pr-only-branch-overrides", nil, "branches built even when only PRs are built")

	cmd.AddCommand(get, update)
	return cmd
}
