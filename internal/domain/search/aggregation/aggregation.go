// Package aggregation turns raw engine bucket output into the client-facing
// aggregation tree.
package aggregation

import (
	"sort"

	"github.com/kailas-cloud/searchplane/internal/domain/search/query"
)

// Result is the aggregation tree returned with a query response.
type Result struct {
	TotalDocCount int                     `json:"total_doc_count"`
	Aggregations  map[string]*Aggregation `json:"aggregations"`
}

// Names returns aggregation names in sorted order.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Aggregations))
	for name := range r.Aggregations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns an aggregation by name.
func (r *Result) Get(name string) (*Aggregation, bool) {
	a, ok := r.Aggregations[name]
	return a, ok
}

// Aggregation holds the counters of one named aggregation.
type Aggregation struct {
	Name                string                `json:"name"`
	ApplicationType     query.ApplicationType `json:"application_type"`
	DocCount            int                   `json:"doc_count"`
	AppliedFilterValues []string              `json:"applied_filter_values,omitempty"`
	Counters            []Counter             `json:"counters"`
	HighestActiveLevel  int                   `json:"highest_active_level,omitempty"`
}

// Counter returns the counter with the given id.
func (a *Aggregation) Counter(id string) (Counter, bool) {
	for _, c := range a.Counters {
		if c.ID == id {
			return c, true
		}
	}
	return Counter{}, false
}

// PruneByLevel removes every counter shallower than the deepest used level.
// With no used counters nothing is removed.
func (a *Aggregation) PruneByLevel() {
	highest := 0
	for _, c := range a.Counters {
		if c.Used && c.Level > highest {
			highest = c.Level
		}
	}
	if highest == 0 {
		return
	}
	a.HighestActiveLevel = highest

	kept := a.Counters[:0]
	for _, c := range a.Counters {
		if c.Level >= highest {
			kept = append(kept, c)
		}
	}
	a.Counters = kept
}
