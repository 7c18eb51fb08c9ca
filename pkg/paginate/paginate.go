// Package paginate drains skip/limit paginated endpoints of the Pica API.
package paginate

import (
	"context"
	"errors"
	"fmt"
)

// DefaultLimit is the page size used when the caller does not specify one.
const DefaultLimit = 100

// ErrIncompletePage is returned when a page comes back empty while the
// reported total has not been reached.
var ErrIncompletePage = errors.New("page returned no rows before total was reached")

// Page is one page of rows plus the total reported by the server.
type Page[T any] struct {
	Rows  []T
	Total int
}

// PageFunc fetches a single page.
type PageFunc[T any] func(ctx context.Context, skip, limit int) (Page[T], error)

// All fetches pages sequentially until the accumulated row count reaches the
// reported total. Rows are returned in server order. On any error no rows are
// returned.
func All[T any](ctx context.Context, fetch PageFunc[T], limit int) ([]T, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var rows []T
	skip := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("paginating at skip %d: %w", skip, err)
		}

		page, err := fetch(ctx, skip, limit)
		if err != nil {
			return nil, fmt.Errorf("fetching page at skip %d: %w", skip, err)
		}

		rows = append(rows, page.Rows...)
		if len(rows) >= page.Total {
			break
		}
		if len(page.Rows) == 0 {
			return nil, fmt.Errorf("skip %d, have %d of %d: %w", skip, len(rows), page.Total, ErrIncompletePage)
		}
		skip += limit
	}

	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
