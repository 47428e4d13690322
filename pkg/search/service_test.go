package search

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/core"
	"github.com/uniseek/uniseek/pkg/filter"
	"github.com/uniseek/uniseek/pkg/query"
	"github.com/uniseek/uniseek/pkg/source"
	"github.com/uniseek/uniseek/pkg/synonyms"
)

// fakeSource records fetches and returns a canned result.
type fakeSource struct {
	records []core.Record
	total   int
	err     error
	calls   int
	lastReq source.FetchRequest
}

func (f *fakeSource) Fetch(_ context.Context, req source.FetchRequest) ([]core.Record, int, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, f.total, nil
}

func newTestService(src source.DataSource) *Service {
	return NewService(
		query.NewExpander(synonyms.NewTable()),
		filter.NewEngine(),
		cache.NewMemory(),
		src,
		time.Minute,
	)
}

func TestSearchMissThenHit(t *testing.T) {
	src := &fakeSource{
		records: []core.Record{{ID: "1", Name: "California Institute of Technology", State: "california"}},
		total:   1,
	}
	svc := newTestService(src)
	ctx := context.Background()

	params, err := ParseParams(url.Values{"q": {"cal tech"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}

	payload, cached, err := svc.Search(ctx, params)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if cached {
		t.Error("first search must be a miss")
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", src.calls)
	}

	second, cached, err := svc.Search(ctx, params)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !cached {
		t.Error("second search must hit the cache")
	}
	if src.calls != 1 {
		t.Errorf("cache hit must not reach the data source, got %d fetches", src.calls)
	}
	if string(second) != string(payload) {
		t.Error("cached payload differs from original")
	}
}

func TestSearchPassesExpressionToSource(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(src)

	params, _ := ParseParams(url.Values{"q": {"ca tech"}})
	if _, _, err := svc.Search(context.Background(), params); err != nil {
		t.Fatalf("search: %v", err)
	}

	want := "(ca | california) & (tech | technical | technology)"
	if src.lastReq.Expression != want {
		t.Errorf("expected expression %q, got %q", want, src.lastReq.Expression)
	}
	if src.lastReq.Page != 1 || src.lastReq.PageSize != 30 {
		t.Errorf("expected default paging, got page=%d size=%d", src.lastReq.Page, src.lastReq.PageSize)
	}
}

func TestSearchRefinesThroughFilterEngine(t *testing.T) {
	src := &fakeSource{
		records: []core.Record{
			{ID: "1", State: "california", TuitionPerYear: 58000, Ranking: 7},
			{ID: "2", State: "california", TuitionPerYear: 4000},
		},
		total: 2,
	}
	svc := newTestService(src)

	params, err := ParseParams(url.Values{
		"q":        {"california"},
		"max_cost": {"10000"},
	})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}

	payload, _, err := svc.Search(context.Background(), params)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	response, err := DecodeResponse(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.FilteredCount != 1 || response.Results[0].ID != "2" {
		t.Errorf("expected only the affordable record, got %+v", response.Results)
	}
	if response.TotalCount != 2 {
		t.Errorf("source total must survive refinement, got %d", response.TotalCount)
	}
	if response.MatchPercentage != 50 {
		t.Errorf("expected 50%% match, got %v", response.MatchPercentage)
	}
	if len(response.AppliedFilters) != 1 || response.AppliedFilters[0] != "cost" {
		t.Errorf("expected applied filter [cost], got %v", response.AppliedFilters)
	}
}

func TestSearchDistinctParamsDistinctKeys(t *testing.T) {
	src := &fakeSource{total: 0}
	svc := newTestService(src)
	ctx := context.Background()

	p1, _ := ParseParams(url.Values{"q": {"california"}, "page": {"1"}})
	p2, _ := ParseParams(url.Values{"q": {"california"}, "page": {"2"}})

	if _, _, err := svc.Search(ctx, p1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Search(ctx, p2); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("different pages must not share a cache entry, got %d fetches", src.calls)
	}
}

func TestSearchSourceFailurePropagates(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	svc := newTestService(src)

	params, _ := ParseParams(url.Values{"q": {"california"}})
	if _, _, err := svc.Search(context.Background(), params); err == nil {
		t.Fatal("expected data source failure to propagate")
	}
}

func TestSearchPaginationMetadata(t *testing.T) {
	records := make([]core.Record, 30)
	for i := range records {
		records[i] = core.Record{ID: "x"}
	}
	src := &fakeSource{records: records, total: 95}
	svc := newTestService(src)

	params, _ := ParseParams(url.Values{"q": {"university"}, "page": {"2"}})
	payload, _, err := svc.Search(context.Background(), params)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	response, err := DecodeResponse(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.TotalPages != 4 {
		t.Errorf("expected 4 total pages for 95/30, got %d", response.TotalPages)
	}
	if !response.HasMore {
		t.Error("expected more pages after page 2")
	}
}

func TestParseParamsFilters(t *testing.T) {
	values := url.Values{
		"q":               {"engineering"},
		"state":           {"california", "michigan"},
		"language":        {"english"},
		"min_cost":        {"1000"},
		"max_cost":        {"20000"},
		"cost_op":         {"and"},
		"min_rank":        {"1"},
		"max_rank":        {"100"},
		"deadline_before": {"2026-03-01"},
		"page":            {"3"},
		"limit":           {"10"},
	}

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}

	if len(params.Filters.States.Values) != 2 {
		t.Errorf("expected 2 states, got %v", params.Filters.States.Values)
	}
	if params.Filters.Costs.Operator != filter.OperatorAND {
		t.Errorf("expected cost AND operator, got %v", params.Filters.Costs.Operator)
	}
	if got := params.Filters.Costs.Values; len(got) != 1 || got[0].Min != 1000 || got[0].Max != 20000 {
		t.Errorf("unexpected cost ranges %v", got)
	}
	if got := params.Filters.Rankings.Values; len(got) != 1 || got[0].Min != 1 || got[0].Max != 100 {
		t.Errorf("unexpected ranking ranges %v", got)
	}
	if len(params.Filters.Deadlines.Values) != 1 {
		t.Fatalf("expected 1 deadline range, got %v", params.Filters.Deadlines.Values)
	}
	dl := params.Filters.Deadlines.Values[0]
	if !dl.From.IsZero() || dl.To.Year() != 2026 || dl.To.Month() != time.March {
		t.Errorf("unexpected deadline range %+v", dl)
	}
	if params.Page != 3 || params.Limit != 10 {
		t.Errorf("unexpected paging %d/%d", params.Page, params.Limit)
	}
}

func TestParseParamsDefaultsAndErrors(t *testing.T) {
	params, err := ParseParams(url.Values{})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if params.Page != 1 || params.Limit != 30 {
		t.Errorf("expected default paging 1/30, got %d/%d", params.Page, params.Limit)
	}
	if params.Filters.States.Enabled() || params.Filters.Costs.Enabled() {
		t.Error("expected all criteria disabled by default")
	}

	params, err = ParseParams(url.Values{"page": {"bogus"}, "limit": {"-2"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if params.Page != 1 || params.Limit != 30 {
		t.Errorf("invalid paging must fall back to defaults, got %d/%d", params.Page, params.Limit)
	}

	if _, err := ParseParams(url.Values{"deadline_before": {"not-a-date"}}); err == nil {
		t.Error("expected error for invalid deadline date")
	}
}
