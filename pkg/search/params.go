package search

import (
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/uniseek/uniseek/pkg/filter"
)

// Params represents all parameters for one search operation: the raw query
// text, the per-category filter state and pagination.
type Params struct {
	// Query is the free-text search term. Can be empty, which disables the
	// text filter and returns the whole (filtered) catalog page by page.
	Query string

	// Filters is built fresh from the request and immutable afterwards.
	Filters filter.State

	// Page is 1-based. Defaults to 1.
	Page int

	// Limit is the page size. Defaults to 30.
	Limit int
}

// ParseParams parses HTTP query parameters into Params, with sensible
// defaults for missing or invalid numbers. Supported parameters:
//
//   - q: search query string
//   - state, category, subject, language: membership filters (repeatable)
//   - min_cost/max_cost, min_rank/max_rank: range filters (repeatable,
//     positionally paired; an unmatched bound is open on the other side)
//   - deadline_after/deadline_before: date range in YYYY-MM-DD form
//   - cost_op, rank_op, deadline_op: "and" or "or" (default "or")
//   - page, limit: positive integers
//
// Invalid dates return an error; invalid numbers fall back to defaults.
func ParseParams(values url.Values) (Params, error) {
	params := Params{
		Page:  1,
		Limit: 30,
	}

	params.Query = values.Get("q")

	params.Filters.States.Values = values["state"]
	params.Filters.Categories.Values = values["category"]
	params.Filters.Subjects.Values = values["subject"]
	params.Filters.Languages.Values = values["language"]

	params.Filters.Costs = filter.Criterion[filter.Range]{
		Values:   parseRanges(values["min_cost"], values["max_cost"]),
		Operator: filter.ParseOperator(values.Get("cost_op")),
	}
	params.Filters.Rankings = filter.Criterion[filter.Range]{
		Values:   parseRanges(values["min_rank"], values["max_rank"]),
		Operator: filter.ParseOperator(values.Get("rank_op")),
	}

	deadlines, err := parseTimeRanges(values["deadline_after"], values["deadline_before"])
	if err != nil {
		return params, err
	}
	params.Filters.Deadlines = filter.Criterion[filter.TimeRange]{
		Values:   deadlines,
		Operator: filter.ParseOperator(values.Get("deadline_op")),
	}

	if pageStr := values.Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			params.Page = parsed
		}
	}
	if limitStr := values.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			params.Limit = parsed
		}
	}

	return params, nil
}

// parseRanges pairs mins and maxes positionally. A list with more mins than
// maxes (or the reverse) produces half-open ranges for the unmatched tail.
// Unparseable numbers open that side of the range.
func parseRanges(mins, maxes []string) []filter.Range {
	n := len(mins)
	if len(maxes) > n {
		n = len(maxes)
	}
	ranges := make([]filter.Range, 0, n)
	for i := 0; i < n; i++ {
		r := filter.Range{Min: 0, Max: math.MaxFloat64}
		if i < len(mins) {
			if v, err := strconv.ParseFloat(mins[i], 64); err == nil {
				r.Min = v
			}
		}
		if i < len(maxes) {
			if v, err := strconv.ParseFloat(maxes[i], 64); err == nil {
				r.Max = v
			}
		}
		ranges = append(ranges, r)
	}
	return ranges
}

var deadlineMax = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func parseTimeRanges(afters, befores []string) ([]filter.TimeRange, error) {
	n := len(afters)
	if len(befores) > n {
		n = len(befores)
	}
	ranges := make([]filter.TimeRange, 0, n)
	for i := 0; i < n; i++ {
		r := filter.TimeRange{To: deadlineMax}
		if i < len(afters) && afters[i] != "" {
			parsed, err := time.Parse("2006-01-02", afters[i])
			if err != nil {
				return nil, err
			}
			r.From = parsed
		}
		if i < len(befores) && befores[i] != "" {
			parsed, err := time.Parse("2006-01-02", befores[i])
			if err != nil {
				return nil, err
			}
			// Inclusive through the end of the named day.
			r.To = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, 999999999, parsed.Location())
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}
