package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/output"
)

var contextColumns = []output.Column[circleci.Context]{
	output.Col("ID", func(c circleci.Context) any { return c.ID }),
	output.Col("Name", func(c circleci.Context) any { return c.Name }),
	output.Col("Created At", func(c circleci.Context) any { return output.Time(c.CreatedAt) }),
}

var contextEnvColumns = []output.Column[circleci.EnvironmentVariable]{
	output.Col("Variable", func(e circleci.EnvironmentVariable) any { return e.Variable }),
	output.Col("Created At", func(e circleci.EnvironmentVariable) any { return output.Time(e.CreatedAt) }),
	output.Col("Updated At", func(e circleci.EnvironmentVariable) any { return output.TimePtr(e.UpdatedAt) }),
}

var restrictionColumns = []output.Column[circleci.ContextRestriction]{
	output.Col("ID", func(r circleci.ContextRestriction) any { return r.ID }),
	output.Col("Name", func(r circleci.ContextRestriction) any { return r.Name }),
	output.Col("Type", func(r circleci.ContextRestriction) any { return r.RestrictionType }),
	output.Col("Value", func(r circleci.ContextRestriction) any { return r.RestrictionValue }),
}

// newContextCommand creates the context command.
func (a *App) newContextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "context",
		Aliases: []string{"contexts"},
		Short:   "Manage contexts, their variables and restrictions",
	}
	cmd.AddCommand(
		a.newContextListCommand(),
		a.newContextCreateCommand(),
		a.newContextGetCommand(),
		a.newContextDeleteCommand(),
		a.newContextEnvCommand(),
		a.newContextRestrictionCommand(),
	)
	return cmd
}

// ownerFlags are the flags that pick the organization owning contexts.
type ownerFlags struct {
	ID   string
	Slug string
	Type string
}

func (o *ownerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.ID, "owner-id", "", "organization ID (UUID)")
	cmd.Flags().StringVar(&o.Slug, "owner-slug", "", "organization slug, e.g. gh/acme")
	cmd.Flags().StringVar(&o.Type, "owner-type", "", "owner type: organization or account")
	cmd.MarkFlagsMutuallyExclusive("owner-id", "owner-slug")
}

func (a *App) newContextListCommand() *cobra.Command {
	var owner ownerFlags
	var pageToken string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the contexts of an organization",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Contexts.List(ctx, circleci.ContextListParams{
				OwnerID:   owner.ID,
				OwnerSlug: owner.Slug,
				OwnerType: owner.Type,
				PageToken: pageToken,
			}), contextColumns...)
		}),
	}
	owner.register(cmd)
	cmd.Flags().StringVar(&pageToken, "page-token", "", "next page token")
	return cmd
}

func (a *App) newContextCreateCommand() *cobra.Command {
	var owner ownerFlags
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a context",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Contexts.Create(ctx, circleci.CreateContextRequest{
				Name:      name,
				OwnerID:   owner.ID,
				OwnerSlug: owner.Slug,
				OwnerType: owner.Type,
			}))
		}),
	}
	owner.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "context name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *App) newContextGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <context-id>",
		Short: "Show a context",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Contexts.Get(ctx, args[0]))
		}),
	}
}

func (a *App) newContextDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <context-id>",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Contexts.Delete(ctx, args[0]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}
}

func (a *App) newContextEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the environment variables of a context",
	}

	var pageToken string
	list := &cobra.Command{
		Use:   "list <context-id>",
		Short: "List variable names; values are never returned",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Contexts.ListEnv(ctx, args[0], pageToken), contextEnvColumns...)
		}),
	}
	list.Flags().StringVar(&pageToken, "page-token", "", "next page token")

	set := &cobra.Command{
		Use:   "set <context-id> <name> <value>",
		Short: "Add or replace a variable",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Contexts.SetEnv(ctx, args[0], args[1], args[2]))
		}),
	}

	del := &cobra.Command{
		Use:   "delete <context-id> <name>",
		Short: "Remove a variable",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Contexts.DeleteEnv(ctx, args[0], args[1]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}

	cmd.AddCommand(list, set, del)
	return cmd
}

func (a *App) newContextRestrictionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restriction",
		Short: "Manage who may use a context",
	}

	list := &cobra.Command{
		Use:   "list <context-id>",
		Short: "List restrictions",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Contexts.ListRestrictions(ctx, args[0]), restrictionColumns...)
		}),
	}

	req := circleci.RestrictionRequest{}
	create := &cobra.Command{
		Use:   "create <context-id>",
		Short: "Add a restriction",
		Example: `  circli context restriction create <context-id> --restriction-type project --restriction-value <project-id>
  circli context restriction create <context-id> --restriction-type expression --restriction-value 'pipeline.git.branch == "main"'`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Contexts.CreateRestriction(ctx, args[0], req))
		}),
	}
	create.Flags().StringVar(&req.ProjectID, "project-id", "", "project the restriction belongs to")
	create.Flags().StringVar(&req.RestrictionType, "restriction-type", circleci.RestrictionProject, "project, expression or group")
	create.Flags().StringVar(&req.RestrictionValue, "restriction-value", "", "project ID, expression or group ID")
	_ = create.MarkFlagRequired("restriction-value")

	del := &cobra.Command{
		Use:   "delete <context-id> <restriction-id>",
		Short: "Remove a restriction",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Contexts.DeleteRestriction(ctx, args[0], args[1]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}

	cmd.AddCommand(list, create, del)
	return cmd
}
