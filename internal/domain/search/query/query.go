package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Limits for a single query.
const (
	DefaultSize        = 10
	MaxSize            = 1000
	MaxFilters         = 32
	MaxAggregations    = 32
	DefaultBucketLimit = 20
)

// ApplicationType decides how a filter's values combine and how an
// aggregation's counters are shaped.
type ApplicationType string

// Application types.
const (
	MustAll           ApplicationType = "MUST_ALL"
	MustAllWithLevels ApplicationType = "MUST_ALL_WITH_LEVELS"
	AtLeastOne        ApplicationType = "AT_LEAST_ONE"
	Exclude           ApplicationType = "EXCLUDE"
)

// Valid reports whether t is a known application type.
func (t ApplicationType) Valid() bool {
	switch t {
	case MustAll, MustAllWithLevels, AtLeastOne, Exclude:
		return true
	}
	return false
}

// Filter restricts results to items whose indexed field matches Values.
type Filter struct {
	Field           string          `json:"field"`
	Values          []string        `json:"values"`
	ApplicationType ApplicationType `json:"application_type,omitempty"`
}

// Aggregation requests bucket counts over an indexed field.
// Subgroup, when non-empty, is an allow-list of bucket keys.
type Aggregation struct {
	Field           string          `json:"field"`
	ApplicationType ApplicationType `json:"application_type,omitempty"`
	Subgroup        []string        `json:"subgroup,omitempty"`
	Limit           int             `json:"limit,omitempty"`
}

// Query is the read request accepted by an index.
// Filters and Aggregations are keyed by name; a filter and an aggregation
// sharing a name link active values to counters.
type Query struct {
	Text         string                 `json:"q,omitempty"`
	Filters      map[string]Filter      `json:"filters,omitempty"`
	Aggregations map[string]Aggregation `json:"aggregations,omitempty"`
	From         int                    `json:"from,omitempty"`
	Size         int                    `json:"size,omitempty"`
}

// Normalize fills defaults for missing values.
func (q *Query) Normalize() {
	if q.Size <= 0 {
		q.Size = DefaultSize
	}
	for name, f := range q.Filters {
		if f.Field == "" {
			f.Field = name
		}
		if f.ApplicationType == "" {
			f.ApplicationType = AtLeastOne
		}
		q.Filters[name] = f
	}
	for name, a := range q.Aggregations {
		if a.Field == "" {
			a.Field = name
		}
		if a.ApplicationType == "" {
			a.ApplicationType = AtLeastOne
		}
		if a.Limit <= 0 {
			a.Limit = DefaultBucketLimit
		}
		q.Aggregations[name] = a
	}
}

// Validate checks bounds and application types.
func (q Query) Validate() error {
	if q.From < 0 {
		return fmt.Errorf("from must be >= 0, got %d", q.From)
	}
	if q.Size > MaxSize {
		return fmt.Errorf("size must be <= %d, got %d", MaxSize, q.Size)
	}
	if len(q.Filters) > MaxFilters {
		return fmt.Errorf("too many filters (max %d)", MaxFilters)
	}
	if len(q.Aggregations) > MaxAggregations {
		return fmt.Errorf("too many aggregations (max %d)", MaxAggregations)
	}
	for name, f := range q.Filters {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("filter name is required")
		}
		if f.ApplicationType != "" && !f.ApplicationType.Valid() {
			return fmt.Errorf("filter %q: unknown application type %q", name, f.ApplicationType)
		}
	}
	for name, a := range q.Aggregations {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("aggregation name is required")
		}
		if a.ApplicationType != "" && !a.ApplicationType.Valid() {
			return fmt.Errorf("aggregation %q: unknown application type %q", name, a.ApplicationType)
		}
	}
	return nil
}

// Page is one page of matching items plus the engine's raw bucket output.
//
// Raw has the shape consumed by the aggregation builder:
//
//	{"doc_count": N, "<name>": {"doc_count": n, "buckets": [{"key": k, "doc_count": c}]}}
type Page struct {
	Total int
	Items []domain.Item
	Raw   map[string]any
}
