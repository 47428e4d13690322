// Package synonyms holds the static term-equivalence tables used to broaden
// search queries: institution terminology synonyms and US state abbreviations.
//
// Both tables are loaded once at startup and are read-only afterwards.
// Synonym mappings are stored as directed entries but looked up in both
// directions: a token matching either the canonical term or any of its
// synonyms resolves to the whole group.
package synonyms

import "strings"

// Mapping is one directed synonym entry. The relationship is symmetric in
// intent; lookup handles the reverse direction.
type Mapping struct {
	Term     string
	Synonyms []string
}

// Table bundles synonym mappings and the region-abbreviation table.
type Table struct {
	mappings []Mapping
	regions  map[string]string
	// fullNames is the reverse region index (full name -> abbreviation).
	fullNames map[string]string
}

// builtinMappings covers the terminology seen in institution names and
// search traffic. Kept small enough that a linear scan per token is fine.
var builtinMappings = []Mapping{
	{Term: "university", Synonyms: []string{"college", "school", "institute"}},
	{Term: "tech", Synonyms: []string{"technical", "technology"}},
	{Term: "state", Synonyms: []string{"public"}},
	{Term: "community", Synonyms: []string{"junior"}},
	{Term: "medicine", Synonyms: []string{"medical", "med"}},
	{Term: "engineering", Synonyms: []string{"engineer"}},
	{Term: "business", Synonyms: []string{"management", "commerce"}},
	{Term: "arts", Synonyms: []string{"art", "design"}},
	{Term: "masters", Synonyms: []string{"graduate", "postgraduate"}},
	{Term: "phd", Synonyms: []string{"doctorate", "doctoral"}},
	{Term: "cheap", Synonyms: []string{"affordable", "low-cost"}},
}

// builtinRegions maps US state abbreviations to full names. Only states whose
// full name is a single word are present: the boolean query dialect cannot
// safely embed multi-word literals inside an OR group, so two-word states
// (new york, north carolina, ...) are intentionally omitted. This is a
// documented approximation, not a defect.
var builtinRegions = map[string]string{
	"al": "alabama",
	"ak": "alaska",
	"az": "arizona",
	"ar": "arkansas",
	"ca": "california",
	"co": "colorado",
	"ct": "connecticut",
	"de": "delaware",
	"fl": "florida",
	"ga": "georgia",
	"hi": "hawaii",
	"id": "idaho",
	"il": "illinois",
	"in": "indiana",
	"ia": "iowa",
	"ks": "kansas",
	"ky": "kentucky",
	"la": "louisiana",
	"me": "maine",
	"md": "maryland",
	"ma": "massachusetts",
	"mi": "michigan",
	"mn": "minnesota",
	"ms": "mississippi",
	"mo": "missouri",
	"mt": "montana",
	"ne": "nebraska",
	"nv": "nevada",
	"oh": "ohio",
	"ok": "oklahoma",
	"or": "oregon",
	"pa": "pennsylvania",
	"tn": "tennessee",
	"tx": "texas",
	"ut": "utah",
	"vt": "vermont",
	"va": "virginia",
	"wa": "washington",
	"wi": "wisconsin",
	"wy": "wyoming",
}

// NewTable returns a table with the built-in mappings only.
func NewTable() *Table {
	return NewTableWithExtras(nil, nil)
}

// NewTableWithExtras returns a table with the built-in mappings merged with
// operator-supplied entries from configuration. Extra synonym entries with an
// existing canonical term extend that term's group; extra regions whose full
// name contains whitespace are dropped to preserve the single-word invariant.
func NewTableWithExtras(extraSynonyms map[string][]string, extraRegions map[string]string) *Table {
	mappings := make([]Mapping, len(builtinMappings))
	copy(mappings, builtinMappings)

	for term, syns := range extraSynonyms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || len(syns) == 0 {
			continue
		}
		lowered := make([]string, 0, len(syns))
		for _, s := range syns {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				lowered = append(lowered, s)
			}
		}
		merged := false
		for i := range mappings {
			if mappings[i].Term == term {
				mappings[i].Synonyms = appendMissing(mappings[i].Synonyms, lowered)
				merged = true
				break
			}
		}
		if !merged {
			mappings = append(mappings, Mapping{Term: term, Synonyms: lowered})
		}
	}

	regions := make(map[string]string, len(builtinRegions)+len(extraRegions))
	for abbr, name := range builtinRegions {
		regions[abbr] = name
	}
	for abbr, name := range extraRegions {
		abbr = strings.ToLower(strings.TrimSpace(abbr))
		name = strings.ToLower(strings.TrimSpace(name))
		if abbr == "" || name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		regions[abbr] = name
	}

	fullNames := make(map[string]string, len(regions))
	for abbr, name := range regions {
		fullNames[name] = abbr
	}

	return &Table{mappings: mappings, regions: regions, fullNames: fullNames}
}

func appendMissing(dst []string, add []string) []string {
	for _, s := range add {
		found := false
		for _, have := range dst {
			if have == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// Group returns every term equivalent to token: for each mapping whose
// canonical term equals the token or whose synonym list contains it, the
// canonical term and all its synonyms. The token itself is not included.
// Order follows the mapping table, so output is deterministic.
func (t *Table) Group(token string) []string {
	var group []string
	for _, m := range t.mappings {
		if !m.matches(token) {
			continue
		}
		if m.Term != token {
			group = append(group, m.Term)
		}
		for _, s := range m.Synonyms {
			if s != token {
				group = append(group, s)
			}
		}
	}
	return group
}

func (m Mapping) matches(token string) bool {
	if m.Term == token {
		return true
	}
	for _, s := range m.Synonyms {
		if s == token {
			return true
		}
	}
	return false
}

// RegionFullName resolves a state abbreviation to its full name.
func (t *Table) RegionFullName(abbr string) (string, bool) {
	name, ok := t.regions[abbr]
	return name, ok
}

// RegionAbbreviation resolves a full state name back to its abbreviation.
func (t *Table) RegionAbbreviation(name string) (string, bool) {
	abbr, ok := t.fullNames[name]
	return abbr, ok
}
