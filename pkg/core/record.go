// Package core defines the candidate record shared by the data source,
// filter engine and API layers.
package core

import "time"

// Institution categories understood by the catalog. Values outside this set
// are carried through untouched and simply never match a category filter.
const (
	CategoryPublic    = "public"
	CategoryPrivate   = "private"
	CategoryCommunity = "community"
)

// Record is one searchable institution/program entry as returned by the data
// source. Records are immutable once fetched.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Category string `json:"category"`

	Subjects  []string `json:"subjects"`
	Languages []string `json:"languages"`

	// TuitionPerYear is in whole currency units. Zero means unpublished.
	TuitionPerYear float64 `json:"tuition_per_year"`

	// Ranking is the world ranking position. Zero means unranked; filters
	// treat unranked as worst possible so range predicates stay total.
	Ranking int `json:"ranking"`

	// ApplicationDeadline is the next application cutoff. Zero time means
	// rolling admission / unknown.
	ApplicationDeadline time.Time `json:"application_deadline"`

	Description string `json:"description,omitempty"`
}
