// Package paginate walks cursor-paginated endpoints.
package paginate

import (
	"context"
)

// Cursor is an opaque continuation token. The empty cursor addresses the
// first page when passed to a FetchFunc and means "no more pages" when
// returned in a Page.
type Cursor = string

// Page is one page of results.
type Page[T any] struct {
	Items []T
	Next  Cursor
}

// FetchFunc fetches the page addressed by cursor.
type FetchFunc[T any] func(ctx context.Context, cursor Cursor) (Page[T], error)

// All fetches pages until the server stops returning a cursor, keeping items
// in the order the server produced them. Overlapping pages are not
// deduplicated.
//
// If limit > 0, fetching stops as soon as limit items have been collected and
// the result is truncated to exactly limit. limit <= 0 fetches everything.
//
// On error the items collected so far are returned along with the error.
func All[T any](ctx context.Context, fetch FetchFunc[T], limit int) ([]T, error) {
	all := []T{}
	var cursor Cursor

	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return all, err
		}

		all = append(all, page.Items...)
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}

		if page.Next == "" {
			return all, nil
		}
		cursor = page.Next
	}
}
