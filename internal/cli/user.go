package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/output"
)

var collaborationColumns = []output.Column[circleci.Collaboration]{
	output.Col("ID", func(c circleci.Collaboration) any { return c.ID }),
	output.Col("Slug", func(c circleci.Collaboration) any { return c.Slug }),
	output.Col("Name", func(c circleci.Collaboration) any { return c.Name }),
	output.Col("VCS Type", func(c circleci.Collaboration) any { return c.VCSType }),
}

// newUserCommand creates the user command.
func (a *App) newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Look up users and organizations",
	}

	me := &cobra.Command{
		Use:   "me",
		Short: "Show the user the token belongs to",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Users.Me(ctx))
		}),
	}

	collaborations := &cobra.Command{
		Use:   "collaborations",
		Short: "List the organizations you belong to",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showList(a, svc.Users.Collaborations(ctx), collaborationColumns...)
		}),
	}

	get := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show a user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Users.Get(ctx, args[0]))
		}),
	}

	cmd.AddCommand(me, collaborations, get)
	return cmd
}
