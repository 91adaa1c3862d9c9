// Package paginate drains cursor-paginated upstream collections.
package paginate

import (
	"context"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

// PageInfo mirrors a GraphQL connection's pageInfo.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Page is one upstream page of nodes.
type Page[T any] struct {
	Nodes    []T      `json:"nodes"`
	PageInfo PageInfo `json:"pageInfo"`
}

// FetchFunc loads the page after cursor. The first call receives "".
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Options narrow what Collect keeps.
type Options[T any] struct {
	// Keep, when set, drops nodes for which it returns false.
	Keep func(T) bool
	// Limit stops pagination once this many nodes are kept. Zero means no limit.
	Limit int
}

// All returns every node across all pages in upstream order.
func All[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	return Collect(ctx, fetch, Options[T]{})
}

// Collect follows cursors while the upstream reports another page and
// supplies a cursor. A missing cursor ends the stream even if hasNextPage is
// set. Any page error aborts and no partial result is returned.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], opts Options[T]) ([]T, error) {
	var items []T
	cursor := ""
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, apperrors.Upstream("fetch page", err)
		}
		for _, n := range page.Nodes {
			if opts.Keep != nil && !opts.Keep(n) {
				continue
			}
			items = append(items, n)
			if opts.Limit > 0 && len(items) >= opts.Limit {
				return items, nil
			}
		}
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			return items, nil
		}
		cursor = page.PageInfo.EndCursor
	}
}
