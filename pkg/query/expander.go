// Package query turns free-text search input into an expanded term set and
// into a boolean full-text expression for the data source.
//
// The output dialect is the PostgreSQL tsquery one: per-token alternatives
// are grouped with "|" inside parentheses and token groups are joined with
// "&", so every original token position must be satisfied by at least one of
// its equivalents while different tokens are required jointly.
package query

import (
	"strings"

	"github.com/uniseek/uniseek/pkg/synonyms"
)

// Expander expands query tokens through the synonym and region tables.
type Expander struct {
	table *synonyms.Table
}

// NewExpander creates an expander backed by the given term table.
func NewExpander(table *synonyms.Table) *Expander {
	return &Expander{table: table}
}

// Expand lowercases and tokenizes the query, then returns the union of every
// token, its region expansion and all members of any matching synonym group.
// The result is a set: duplicates collapse and order is not significant.
// Callers that need per-token grouping must use BuildBooleanExpression
// instead; this exists purely for broad matching.
func (e *Expander) Expand(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, token := range tokenize(query) {
		add(token)
		if name, ok := e.table.RegionFullName(token); ok {
			add(name)
		}
		for _, member := range e.table.Group(token) {
			add(member)
		}
	}
	return terms
}

// BuildBooleanExpression renders the query as an AND of per-token OR groups.
// Each group contains the token, its region expansion (in both directions:
// abbreviation to full name and full name to abbreviation) and all synonym
// group members. Single-member groups render as the bare token. Tokens that
// sanitize to nothing contribute no group, so an expression can carry fewer
// groups than the query had tokens. An empty, whitespace-only or
// operator-only query yields an empty expression, understood by callers as
// "no text filter".
func (e *Expander) BuildBooleanExpression(query string) string {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return ""
	}

	groups := make([]string, 0, len(tokens))
	for _, token := range tokens {
		group := []string{token}
		if name, ok := e.table.RegionFullName(token); ok {
			group = append(group, name)
		}
		if abbr, ok := e.table.RegionAbbreviation(token); ok {
			group = append(group, abbr)
		}
		group = append(group, e.table.Group(token)...)
		group = dedupe(group)

		if len(group) > 1 {
			groups = append(groups, "("+strings.Join(group, " | ")+")")
		} else {
			groups = append(groups, group[0])
		}
	}
	return strings.Join(groups, " & ")
}

// tokenize lowercases the query, splits on whitespace and strips characters
// that carry meaning in the boolean dialect. Tokens reduced to nothing by
// sanitization are dropped.
func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := sanitizeToken(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// sanitizeToken keeps letters, digits and hyphens only, so user input cannot
// inject operators or parentheses into the rendered expression.
func sanitizeToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
