package aggregation

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/kailas-cloud/searchplane/internal/domain/search/query"
)

const docCountKey = "doc_count"

// Build reshapes raw engine aggregations into a Result.
//
// raw has a top-level "doc_count" and one entry per aggregation name whose
// buckets live either at raw[name]["buckets"] or raw[name][name]["buckets"].
// Each bucket is {"key": ..., "doc_count": ...}.
func Build(q query.Query, raw map[string]any) *Result {
	res := &Result{
		TotalDocCount: toInt(raw[docCountKey]),
		Aggregations:  make(map[string]*Aggregation),
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		if name != docCountKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		body, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		res.Aggregations[name] = buildOne(name, q, body)
	}

	return res
}

func buildOne(name string, q query.Query, body map[string]any) *Aggregation {
	def, hasDef := q.Aggregations[name]
	appType := query.AtLeastOne
	if hasDef && def.ApplicationType != "" {
		appType = def.ApplicationType
	}

	var active []string
	if f, ok := q.Filters[name]; ok {
		active = f.Values
	}

	agg := &Aggregation{
		Name:                name,
		ApplicationType:     appType,
		DocCount:            toInt(body[docCountKey]),
		AppliedFilterValues: active,
	}

	for _, b := range bucketsOf(name, body) {
		bucket, ok := b.(map[string]any)
		if !ok {
			continue
		}
		key := keyString(bucket["key"])
		if len(def.Subgroup) > 0 && !slices.Contains(def.Subgroup, key) {
			continue
		}
		counter, ok := ParseCounter(key, toInt(bucket[docCountKey]), active)
		if !ok {
			continue
		}
		agg.Counters = append(agg.Counters, counter)
	}

	if appType == query.MustAllWithLevels {
		agg.PruneByLevel()
	}

	return agg
}

// bucketsOf reads buckets from body["buckets"] or, for nested output,
// body[name]["buckets"].
func bucketsOf(name string, body map[string]any) []any {
	if buckets, ok := body["buckets"].([]any); ok {
		return buckets
	}
	if nested, ok := body[name].(map[string]any); ok {
		if buckets, ok := nested["buckets"].([]any); ok {
			return buckets
		}
	}
	return nil
}

func keyString(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(k)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	default:
		return 0
	}
}
