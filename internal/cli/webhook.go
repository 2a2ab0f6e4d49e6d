package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/output"
)

var webhookColumns = []output.Column[circleci.Webhook]{
	output.Col("ID", func(w circleci.Webhook) any { return w.ID }),
	output.Col("Name", func(w circleci.Webhook) any { return w.Name }),
	output.Col("URL", func(w circleci.Webhook) any { return w.URL }),
	output.Col("Events", func(w circleci.Webhook) any { return w.Events }),
	output.Col("Verify TLS", func(w circleci.Webhook) any { return w.VerifyTLS }),
}

// newWebhookCommand creates the webhook command.
func (a *App) newWebhookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhook",
		Aliases: []string{"webhooks"},
		Short:   "Manage outbound webhooks",
	}

	var scopeID, scopeType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the webhooks of a project",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return showPage(a, svc.Webhooks.List(ctx, scopeID, scopeType), webhookColumns...)
		}),
	}
	list.Flags().StringVar(&scopeID, "scope-id", "", "project ID (UUID)")
	list.Flags().StringVar(&scopeType, "scope-type", circleci.ScopeProject, "scope type")
	_ = list.MarkFlagRequired("scope-id")

	get := &cobra.Command{
		Use:   "get <webhook-id>",
		Short: "Show a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			return show(a, svc.Webhooks.Get(ctx, args[0]))
		}),
	}

	del := &cobra.Command{
		Use:   "delete <webhook-id>",
		Short: "Delete a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			msg, err := svc.Webhooks.Delete(ctx, args[0]).Wait()
			if err != nil {
				return err
			}
			return a.message(msg)
		}),
	}

	cmd.AddCommand(list, get, a.newWebhookCreateCommand(), a.newWebhookUpdateCommand(), del)
	return cmd
}

func (a *App) newWebhookCreateCommand() *cobra.Command {
	req := circleci.WebhookRequest{}
	var events string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a webhook",
		Example: `  circli webhook create --name deploys --url https://hooks.example.com/circleci \
    --scope-id <project-id> --events workflow-completed --signing-secret "$SECRET"`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
			req.Events = splitList(events)
			return show(a, svc.Webhooks.Create(ctx, req))
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "webhook name")
	f.StringVar(&req.URL, "url", "", "URL the events are posted to")
	f.StringVar(&req.Scope.ID, "scope-id", "", "project ID (UUID)")
	f.StringVar(&req.Scope.Type, "scope-type", circleci.ScopeProject, "scope type")
	f.StringVar(&events, "events", "", "comma-separated events: workflow-completed, job-completed")
	f.BoolVar(&req.VerifyTLS, "verify-tls", true, "verify the receiver's TLS certificate")
	f.StringVar(&req.SigningSecret, "signing-secret", "", "secret used to sign each delivery")
	for _, name := range []string{"name", "url", "scope-id", "events", "signing-secret"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *App) newWebhookUpdateCommand() *cobra.Command {
	req := circleci.WebhookUpdate{}
	var events string
	var verifyTLS bool
	cmd := &cobra.Command{
		Use:   "update <webhook-id>",
		Short: "Change a webhook; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if events != "" {
				req.Events = splitList(events)
			}
			if cmd.Flags().Changed("verify-tls") {
				req.VerifyTLS = &verifyTLS
			}
			return a.run(func(ctx context.Context, svc *circleci.Service, args []string) error {
				return show(a, svc.Webhooks.Update(ctx, args[0], req))
			})(cmd, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "new name")
	f.StringVar(&req.URL, "url", "", "new URL")
	f.StringVar(&events, "events", "", "comma-separated events")
	f.BoolVar(&verifyTLS, "verify-tls", true, "verify the receiver's TLS certificate")
	f.StringVar(&req.SigningSecret, "signing-secret", "", "new signing secret")
	return cmd
}
