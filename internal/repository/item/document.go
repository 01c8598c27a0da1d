package item

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/domain/search/aggregation"
)

// toDocument flattens an item into the bleve document layout:
//
//	text              searchable text (standard analyzer)
//	metadata          JSON source, stored only
//	indexed_metadata  JSON source, stored only
//	facet.<field>     full counter keys, used for aggregations
//	ids.<field>       counter ids, used for filters
func toDocument(it domain.Item) (map[string]any, error) {
	meta, err := encodeSource(it.Metadata)
	if err != nil {
		return nil, malformed(it, "metadata", err)
	}
	indexed, err := encodeSource(it.IndexedMetadata)
	if err != nil {
		return nil, malformed(it, "indexed_metadata", err)
	}

	facets := make(map[string]any, len(it.IndexedMetadata))
	ids := make(map[string]any, len(it.IndexedMetadata))
	for field, raw := range it.IndexedMetadata {
		keys, err := terms(raw)
		if err != nil {
			return nil, malformed(it, "indexed_metadata."+field, err)
		}
		if len(keys) == 0 {
			continue
		}
		facets[field] = keys
		ids[field] = counterIDs(keys)
	}

	return map[string]any{
		fieldText:     it.SearchableText,
		fieldMetadata: meta,
		fieldIndexed:  indexed,
		fieldFacets:   facets,
		fieldIDs:      ids,
	}, nil
}

func encodeSource(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSource(v any) map[string]any {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// terms converts an indexed value (scalar or list of scalars) into keyword terms.
func terms(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, err := scalar(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

func scalar(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case json.Number:
		return s.String(), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}

// counterIDs extracts the counter id of each key, deduplicated and sorted.
func counterIDs(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		c, ok := aggregation.ParseCounter(k, 0, nil)
		if !ok {
			continue
		}
		seen[c.ID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func malformed(it domain.Item, field string, err error) error {
	return &domain.MalformedInputError{
		ItemID:   it.UUID.ID,
		ItemType: it.UUID.Type,
		Field:    field,
		Reason:   err.Error(),
	}
}
