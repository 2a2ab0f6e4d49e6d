package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/output"
)

// runFunc is the body of a command that talks to the API.
type runFunc func(ctx context.Context, svc *circleci.Service, args []string) error

// run adapts fn to cobra, resolving the API service first.
func (a *App) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := a.Service()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), svc, args)
	}
}

// show waits for call and prints its result as one record.
func show[T any](a *App, call *apiclient.Call[T]) error {
	v, err := call.Wait()
	if err != nil {
		return err
	}
	return output.Record(a.Printer(), v)
}

// showList waits for call and prints the items as a table.
func showList[T any](a *App, call *apiclient.Call[[]T], cols ...output.Column[T]) error {
	items, err := call.Wait()
	if err != nil {
		return err
	}
	return output.List(a.Printer(), items, cols...)
}

// showPage prints one page of results. Structured formats get the whole
// page so scripts can follow next_page_token; tables get the items and a
// hint on stderr.
func showPage[T any](a *App, call *apiclient.Call[circleci.Page[T]], cols ...output.Column[T]) error {
	page, err := call.Wait()
	if err != nil {
		return err
	}
	p := a.Printer()
	if a.Structured() {
		if page.Items == nil {
			page.Items = []T{}
		}
		return p.Encode(page)
	}
	if err := output.List(p, page.Items, cols...); err != nil {
		return err
	}
	if page.NextPageToken != "" {
		a.hint("More results: --page-token %s", page.NextPageToken)
	}
	return nil
}

// showItems prints items gathered from several pages.
func showItems[T any](a *App, items []T, cols ...output.Column[T]) error {
	return output.List(a.Printer(), items, cols...)
}

// hint writes a note for humans to stderr.
func (a *App) hint(format string, args ...any) {
	if a.Structured() {
		return
	}
	fmt.Fprintf(a.Err, format+"\n", args...)
}
