// Package app holds the operations that take more than one API request:
// paged listing, the cancel fan-outs, export polling and whoami.
package app

import (
	"context"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/circleci"
)

// PageFunc fetches the page that starts at pageToken. An empty token is the
// first page.
type PageFunc[T any] func(ctx context.Context, pageToken string) *apiclient.Call[circleci.Page[T]]

// ListPages follows next_page_token until the list ends or limit items are
// collected. A limit of zero or less reads every page. On error the items
// gathered so far are returned with it.
func ListPages[T any](ctx context.Context, limit int, fetch PageFunc[T]) ([]T, error) {
	var items []T
	token := ""
	for {
		page, err := fetch(ctx, token).Wait()
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		// Some endpoints echo the token back on the last page.
		if page.NextPageToken == "" || page.NextPageToken == token {
			return items, nil
		}
		token = page.NextPageToken
	}
}
