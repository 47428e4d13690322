package query

import (
	"strings"
	"testing"

	"github.com/uniseek/uniseek/pkg/synonyms"
)

func newExpander() *Expander {
	return NewExpander(synonyms.NewTable())
}

func TestExpandStateUniversity(t *testing.T) {
	e := newExpander()

	terms := e.Expand("state university")
	for _, want := range []string{"state", "public", "university", "college"} {
		if !containsTerm(terms, want) {
			t.Errorf("expected %q in expansion, got %v", want, terms)
		}
	}
}

func TestExpandCollapsesDuplicates(t *testing.T) {
	e := newExpander()

	terms := e.Expand("university university college")
	counts := make(map[string]int)
	for _, term := range terms {
		counts[term]++
	}
	for term, n := range counts {
		if n > 1 {
			t.Errorf("term %q appears %d times, expansion must be a set", term, n)
		}
	}
}

func TestBooleanExpressionGroupCount(t *testing.T) {
	e := newExpander()

	tests := []struct {
		query  string
		groups int
	}{
		{"california", 1},
		{"california tech", 2},
		{"  state   university  medicine ", 3},
		{"one two three four", 4},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			expr := e.BuildBooleanExpression(tt.query)
			if got := len(strings.Split(expr, " & ")); got != tt.groups {
				t.Errorf("expected %d AND-joined groups, got %d in %q", tt.groups, got, expr)
			}
		})
	}
}

func TestBooleanExpressionCaliforniaTech(t *testing.T) {
	e := newExpander()

	expr := e.BuildBooleanExpression("california tech")
	groups := strings.Split(expr, " & ")
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %q", expr)
	}

	if !strings.Contains(groups[0], "california") || !strings.Contains(groups[0], "ca") {
		t.Errorf("first group must include full name and abbreviation, got %q", groups[0])
	}
	for _, want := range []string{"tech", "technical", "technology"} {
		if !strings.Contains(groups[1], want) {
			t.Errorf("second group must include %q, got %q", want, groups[1])
		}
	}
}

func TestBooleanExpressionAbbreviationAndSynonym(t *testing.T) {
	e := newExpander()

	// "ca" expands through the region table, "tech" through the synonym
	// table; both must apply to independent token groups.
	expr := e.BuildBooleanExpression("ca tech")
	groups := strings.Split(expr, " & ")
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %q", expr)
	}
	if !strings.Contains(groups[0], "ca") || !strings.Contains(groups[0], "california") {
		t.Errorf("expected (ca | california ...) group, got %q", groups[0])
	}
	if !strings.HasPrefix(groups[1], "(") || !strings.Contains(groups[1], "technology") {
		t.Errorf("expected parenthesized tech group, got %q", groups[1])
	}
}

func TestBooleanExpressionUnknownTokenIsBare(t *testing.T) {
	e := newExpander()

	expr := e.BuildBooleanExpression("zzyzx")
	if expr != "zzyzx" {
		t.Errorf("singleton group must render without parentheses, got %q", expr)
	}
}

func TestBooleanExpressionEmptyQuery(t *testing.T) {
	e := newExpander()

	for _, query := range []string{"", "   ", "\t\n"} {
		if expr := e.BuildBooleanExpression(query); expr != "" {
			t.Errorf("expected empty expression for %q, got %q", query, expr)
		}
	}
}

func TestSanitizeStripsOperators(t *testing.T) {
	e := newExpander()

	expr := e.BuildBooleanExpression("tech) & (drop")
	if strings.Contains(expr, ")&") || strings.Contains(expr, "((") {
		t.Errorf("operators leaked into expression: %q", expr)
	}
	groups := strings.Split(expr, " & ")
	if len(groups) != 2 {
		t.Errorf("expected 2 groups after sanitization, got %q", expr)
	}
}

func TestOperatorOnlyTokensAreDropped(t *testing.T) {
	e := newExpander()

	// A token that sanitizes to nothing contributes no group, so the
	// expression can have fewer groups than whitespace-delimited tokens.
	expr := e.BuildBooleanExpression("tech & history")
	groups := strings.Split(expr, " & ")
	if len(groups) != 2 {
		t.Errorf("expected the operator token dropped, got %q", expr)
	}

	if expr := e.BuildBooleanExpression("& | ()"); expr != "" {
		t.Errorf("expected empty expression for operator-only query, got %q", expr)
	}
}

func containsTerm(terms []string, want string) bool {
	for _, t := range terms {
		if t == want {
			return true
		}
	}
	return false
}
