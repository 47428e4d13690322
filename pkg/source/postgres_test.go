package source

import (
	"strings"
	"testing"

	"github.com/uniseek/uniseek/pkg/filter"
)

func TestBuildFetchQueryNoFilters(t *testing.T) {
	query, args := buildFetchQuery(FetchRequest{Page: 1, PageSize: 30})

	if strings.Contains(query, "WHERE") {
		t.Errorf("expected no WHERE clause, got:\n%s", query)
	}
	if len(args) != 2 {
		t.Fatalf("expected limit and offset args only, got %v", args)
	}
	if args[0] != 30 || args[1] != 0 {
		t.Errorf("expected LIMIT 30 OFFSET 0, got %v", args)
	}
}

func TestBuildFetchQueryExpressionIsParameterized(t *testing.T) {
	req := FetchRequest{
		Expression: "(california | ca) & tech'); DROP TABLE programs; --",
		Page:       2,
		PageSize:   10,
	}
	query, args := buildFetchQuery(req)

	if strings.Contains(query, "DROP TABLE") {
		t.Fatal("expression leaked into SQL text")
	}
	if !strings.Contains(query, "to_tsquery('simple', $1)") {
		t.Errorf("expected expression bound as $1, got:\n%s", query)
	}
	if args[0] != req.Expression {
		t.Errorf("expected expression as first arg, got %v", args[0])
	}
	// Page 2, size 10 -> offset 10.
	if args[len(args)-1] != 10 {
		t.Errorf("expected offset 10, got %v", args[len(args)-1])
	}
}

func TestBuildFetchQueryMembershipPushdown(t *testing.T) {
	req := FetchRequest{
		Expression: "university",
		Filters: filter.State{
			States:     filter.Criterion[string]{Values: []string{"California", "michigan"}},
			Categories: filter.Criterion[string]{Values: []string{"Public"}},
			// Range criteria must not appear in SQL; the filter engine owns them.
			Costs: filter.Criterion[filter.Range]{Values: []filter.Range{{Min: 0, Max: 10000}}},
		},
		Page:     1,
		PageSize: 30,
	}
	query, args := buildFetchQuery(req)

	if !strings.Contains(query, "lower(state) = ANY($2)") {
		t.Errorf("expected state pushdown as $2, got:\n%s", query)
	}
	if !strings.Contains(query, "lower(category) = ANY($3)") {
		t.Errorf("expected category pushdown as $3, got:\n%s", query)
	}
	if strings.Contains(query, "tuition") && strings.Contains(query, "tuition_per_year >") {
		t.Errorf("range criteria must not be pushed down, got:\n%s", query)
	}

	states, ok := args[1].([]string)
	if !ok || states[0] != "california" || states[1] != "michigan" {
		t.Errorf("expected lowercased state values, got %v", args[1])
	}
}

func TestBuildFetchQueryDefaultsPaging(t *testing.T) {
	_, args := buildFetchQuery(FetchRequest{Page: 0, PageSize: -5})

	if args[0] != 30 {
		t.Errorf("expected default page size 30, got %v", args[0])
	}
	if args[1] != 0 {
		t.Errorf("expected offset 0 for defaulted page, got %v", args[1])
	}
}
