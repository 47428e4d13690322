package synonyms

import (
	"strings"
	"testing"
)

func TestGroupCanonicalTerm(t *testing.T) {
	table := NewTable()

	group := table.Group("tech")
	want := []string{"technical", "technology"}
	if len(group) != len(want) {
		t.Fatalf("expected %d members, got %v", len(want), group)
	}
	for i, w := range want {
		if group[i] != w {
			t.Errorf("member %d: expected %q, got %q", i, w, group[i])
		}
	}
}

func TestGroupReverseLookup(t *testing.T) {
	table := NewTable()

	// "college" is a synonym of "university"; the reverse lookup must return
	// the canonical term plus the sibling synonyms.
	group := table.Group("college")
	wantMembers := []string{"university", "school", "institute"}
	for _, w := range wantMembers {
		if !contains(group, w) {
			t.Errorf("expected %q in group for 'college', got %v", w, group)
		}
	}
	if contains(group, "college") {
		t.Errorf("group must not echo the token itself, got %v", group)
	}
}

func TestGroupUnknownToken(t *testing.T) {
	table := NewTable()
	if group := table.Group("zzyzx"); group != nil {
		t.Errorf("expected nil group for unknown token, got %v", group)
	}
}

func TestRegionLookupBothDirections(t *testing.T) {
	table := NewTable()

	name, ok := table.RegionFullName("ca")
	if !ok || name != "california" {
		t.Fatalf("expected ca -> california, got %q (ok=%v)", name, ok)
	}

	abbr, ok := table.RegionAbbreviation("california")
	if !ok || abbr != "ca" {
		t.Fatalf("expected california -> ca, got %q (ok=%v)", abbr, ok)
	}

	if _, ok := table.RegionFullName("ny"); ok {
		t.Error("two-word states must not be in the region table")
	}
}

func TestRegionNamesAreSingleWord(t *testing.T) {
	for abbr, name := range builtinRegions {
		if strings.ContainsAny(name, " \t") {
			t.Errorf("region %s has multi-word name %q", abbr, name)
		}
	}
}

func TestExtrasMergeAndFilter(t *testing.T) {
	table := NewTableWithExtras(
		map[string][]string{
			"tech": {"polytechnic"},
			"stem": {"science"},
		},
		map[string]string{
			"bc": "columbia",
			"ny": "new york", // multi-word, must be dropped
		},
	)

	group := table.Group("tech")
	if !contains(group, "polytechnic") || !contains(group, "technical") {
		t.Errorf("expected merged tech group, got %v", group)
	}

	if !contains(table.Group("stem"), "science") {
		t.Errorf("expected new mapping for stem, got %v", table.Group("stem"))
	}

	if name, ok := table.RegionFullName("bc"); !ok || name != "columbia" {
		t.Errorf("expected bc -> columbia, got %q (ok=%v)", name, ok)
	}
	if _, ok := table.RegionFullName("ny"); ok {
		t.Error("multi-word extra region must be dropped")
	}
}

func contains(list []string, s string) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}
