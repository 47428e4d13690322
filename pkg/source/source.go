// Package source defines the paginated data-source seam the search pipeline
// fetches candidates from, and provides the PostgreSQL implementation.
package source

import (
	"context"

	"github.com/uniseek/uniseek/pkg/core"
	"github.com/uniseek/uniseek/pkg/filter"
)

// FetchRequest is one paginated candidate fetch. Expression is the boolean
// full-text expression produced by the query expander (tokens joined by "&",
// alternatives grouped with "|" and parentheses); empty means no text
// filter. Filters carries the request's criteria so a backend can push
// membership constraints down; backends are free to ignore any of them since
// the filter engine re-applies the full state to whatever comes back.
type FetchRequest struct {
	Expression string
	Filters    filter.State
	Page       int
	PageSize   int
}

// DataSource returns one page of candidate records plus the total number of
// records matching the request. Fetch failures are not masked; they
// propagate to the caller.
type DataSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]core.Record, int, error)
}
