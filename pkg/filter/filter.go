// Package filter applies layered per-category predicates to candidate
// records. Categories combine with AND: a record survives only if it passes
// every enabled category. Within a category, membership criteria (location,
// category, subject, language) always combine with OR, while range criteria
// (cost, ranking, deadline) combine according to the criterion's operator.
package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/uniseek/uniseek/pkg/core"
)

// Operator is the within-category combination rule for range criteria.
// It is a closed enumeration: parsing anything unknown yields OperatorOR,
// and predicate code switches over it exhaustively.
type Operator int

const (
	// OperatorOR passes a record inside any supplied range.
	OperatorOR Operator = iota
	// OperatorAND requires the record inside every supplied range
	// simultaneously. With disjoint ranges this is intentionally empty.
	OperatorAND
)

// ParseOperator maps the query-parameter form to an Operator.
func ParseOperator(s string) Operator {
	if strings.EqualFold(strings.TrimSpace(s), "and") {
		return OperatorAND
	}
	return OperatorOR
}

func (o Operator) String() string {
	switch o {
	case OperatorAND:
		return "and"
	case OperatorOR:
		return "or"
	}
	return "or"
}

// Range is a closed numeric interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// TimeRange is a closed time interval.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Criterion is one per-category filter. A criterion is enabled iff it has
// values; disabled criteria are no-op pass-throughs.
type Criterion[T any] struct {
	Values   []T
	Operator Operator
}

// Enabled reports whether the criterion participates in filtering.
func (c Criterion[T]) Enabled() bool {
	return len(c.Values) > 0
}

// State is the fixed set of criterion slots for one filtering pass. It is
// built fresh per request from query parameters and not mutated afterwards.
type State struct {
	States     Criterion[string]
	Categories Criterion[string]
	Subjects   Criterion[string]
	Languages  Criterion[string]
	Costs      Criterion[Range]
	Rankings   Criterion[Range]
	Deadlines  Criterion[TimeRange]
}

// Result is the outcome of one filtering pass.
type Result struct {
	Items           []core.Record
	TotalCount      int
	AppliedFilters  []string
	MatchPercentage float64
}

// Sentinels substituted for missing source values so range predicates stay
// total: an unranked record has the worst possible rank, an unpublished
// tuition the highest possible cost, an unknown deadline the farthest date.
// They fail range filters predictably instead of crashing or silently passing.
const (
	maxRanking = math.MaxInt32
	maxTuition = math.MaxFloat64
)

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Engine applies filter states to candidate lists. It is stateless and
// side-effect-free; applying the same state to the same input twice yields
// identical output in identical order.
type Engine struct{}

// NewEngine returns a filter engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply runs every enabled criterion against items and returns the survivors
// in their original order, plus bookkeeping for the response envelope.
// Categories run in a fixed sequence; since intersection is commutative the
// order does not change the result, but it keeps per-category debugging
// reproducible.
func (e *Engine) Apply(items []core.Record, state State) Result {
	filtered := items
	var applied []string

	type step struct {
		name string
		pred func(core.Record) bool
		on   bool
	}
	steps := []step{
		{"location", state.matchesState, state.States.Enabled()},
		{"category", state.matchesCategory, state.Categories.Enabled()},
		{"subject", state.matchesSubject, state.Subjects.Enabled()},
		{"language", state.matchesLanguage, state.Languages.Enabled()},
		{"cost", state.matchesCost, state.Costs.Enabled()},
		{"ranking", state.matchesRanking, state.Rankings.Enabled()},
		{"deadline", state.matchesDeadline, state.Deadlines.Enabled()},
	}

	for _, s := range steps {
		if !s.on {
			continue
		}
		applied = append(applied, s.name)
		kept := make([]core.Record, 0, len(filtered))
		for _, item := range filtered {
			if s.pred(item) {
				kept = append(kept, item)
			}
		}
		filtered = kept
	}

	pct := 0.0
	if len(items) > 0 {
		pct = float64(len(filtered)) / float64(len(items)) * 100
	}

	return Result{
		Items:           filtered,
		TotalCount:      len(filtered),
		AppliedFilters:  applied,
		MatchPercentage: pct,
	}
}

// Membership categories: OR across values, case-insensitive. Unrecognized
// values simply never match.

func (s State) matchesState(r core.Record) bool {
	return matchesAny(s.States.Values, r.State)
}

func (s State) matchesCategory(r core.Record) bool {
	return matchesAny(s.Categories.Values, r.Category)
}

func (s State) matchesSubject(r core.Record) bool {
	for _, want := range s.Subjects.Values {
		for _, have := range r.Subjects {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func (s State) matchesLanguage(r core.Record) bool {
	for _, want := range s.Languages.Values {
		for _, have := range r.Languages {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func matchesAny(values []string, have string) bool {
	for _, want := range values {
		if strings.EqualFold(want, have) {
			return true
		}
	}
	return false
}

// Range categories: operator-controlled combination.

func (s State) matchesCost(r core.Record) bool {
	tuition := r.TuitionPerYear
	if tuition <= 0 {
		tuition = maxTuition
	}
	return rangesMatch(s.Costs.Values, s.Costs.Operator, func(rg Range) bool {
		return rg.contains(tuition)
	})
}

func (s State) matchesRanking(r core.Record) bool {
	ranking := float64(r.Ranking)
	if r.Ranking <= 0 {
		ranking = float64(maxRanking)
	}
	return rangesMatch(s.Rankings.Values, s.Rankings.Operator, func(rg Range) bool {
		return rg.contains(ranking)
	})
}

func (s State) matchesDeadline(r core.Record) bool {
	deadline := r.ApplicationDeadline
	if deadline.IsZero() {
		deadline = farFuture
	}
	return rangesMatch(s.Deadlines.Values, s.Deadlines.Operator, func(rg TimeRange) bool {
		return rg.contains(deadline)
	})
}

// rangesMatch folds per-range hits according to the operator. OR is the
// union of ranges; AND requires membership in every range, which with
// non-overlapping ranges is deliberately empty rather than merged.
func rangesMatch[T any](ranges []T, op Operator, hit func(T) bool) bool {
	switch op {
	case OperatorAND:
		for _, rg := range ranges {
			if !hit(rg) {
				return false
			}
		}
		return true
	case OperatorOR:
		for _, rg := range ranges {
			if hit(rg) {
				return true
			}
		}
		return false
	}
	return false
}

// Key serializes the state into a compact deterministic string for cache key
// construction. Two states with identical effective criteria produce the
// same key; any differing value, operator or enablement produces a
// different one.
func (s State) Key() string {
	var parts []string

	addStrings := func(name string, c Criterion[string]) {
		if !c.Enabled() {
			return
		}
		values := make([]string, len(c.Values))
		for i, v := range c.Values {
			values[i] = strings.ToLower(v)
		}
		sort.Strings(values)
		parts = append(parts, name+"="+strings.Join(values, ","))
	}
	addRanges := func(name string, c Criterion[Range]) {
		if !c.Enabled() {
			return
		}
		values := make([]string, len(c.Values))
		for i, v := range c.Values {
			values[i] = fmt.Sprintf("%g-%g", v.Min, v.Max)
		}
		parts = append(parts, name+"("+c.Operator.String()+")="+strings.Join(values, ","))
	}

	addStrings("st", s.States)
	addStrings("cat", s.Categories)
	addStrings("sub", s.Subjects)
	addStrings("lang", s.Languages)
	addRanges("cost", s.Costs)
	addRanges("rank", s.Rankings)
	if s.Deadlines.Enabled() {
		values := make([]string, len(s.Deadlines.Values))
		for i, v := range s.Deadlines.Values {
			values[i] = v.From.Format("20060102") + "-" + v.To.Format("20060102")
		}
		parts = append(parts, "dl("+s.Deadlines.Operator.String()+")="+strings.Join(values, ","))
	}

	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ";")
}
