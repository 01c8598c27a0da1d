package item

import (
	"context"
	"sort"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/domain/search/query"
)

// Search runs q against ref. q is expected to be normalized.
func (r *Repo) Search(ctx context.Context, ref domain.RepositoryReference, q query.Query) (*query.Page, error) {
	idx, err := r.index(ref)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), q.Size, q.From, false)
	req.Fields = []string{fieldMetadata, fieldIndexed}

	names := make([]string, 0, len(q.Aggregations))
	for name := range q.Aggregations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := q.Aggregations[name]
		req.AddFacet(name, bleve.NewFacetRequest(fieldFacets+"."+a.Field, facetSize(a)))
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, unavailable("search", err)
	}

	out := &query.Page{
		Total: int(res.Total),
		Items: make([]domain.Item, 0, len(res.Hits)),
		Raw:   map[string]any{"doc_count": int(res.Total)},
	}

	for _, hit := range res.Hits {
		uuid, err := domain.ParseItemUUID(hit.ID)
		if err != nil {
			r.logger.Warn("skipping hit with malformed id")
			continue
		}
		out.Items = append(out.Items, domain.Item{
			UUID:            uuid,
			Metadata:        decodeSource(hit.Fields[fieldMetadata]),
			IndexedMetadata: decodeSource(hit.Fields[fieldIndexed]),
			Score:           hit.Score,
		})
	}

	for name, facet := range res.Facets {
		buckets := []any{}
		if facet.Terms != nil {
			for _, t := range facet.Terms.Terms() {
				buckets = append(buckets, map[string]any{"key": t.Term, "doc_count": t.Count})
			}
		}
		out.Raw[name] = map[string]any{
			"doc_count": int(res.Total) - facet.Missing,
			"buckets":   buckets,
		}
	}

	return out, nil
}

// facetSize widens the bucket limit so every allow-listed key can be returned.
func facetSize(a query.Aggregation) int {
	size := a.Limit
	if size <= 0 {
		size = query.DefaultBucketLimit
	}
	if len(a.Subgroup) > size {
		size = len(a.Subgroup)
	}
	return size
}

func buildQuery(q query.Query) blevequery.Query {
	var base blevequery.Query
	if q.Text == "" {
		base = bleve.NewMatchAllQuery()
	} else {
		m := bleve.NewMatchQuery(q.Text)
		m.SetField(fieldText)
		base = m
	}
	if len(q.Filters) == 0 {
		return base
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(base)

	names := make([]string, 0, len(q.Filters))
	for name := range q.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := q.Filters[name]
		if len(f.Values) == 0 {
			continue
		}
		field := fieldIDs + "." + f.Field
		termQueries := make([]blevequery.Query, 0, len(f.Values))
		for _, v := range f.Values {
			t := bleve.NewTermQuery(v)
			t.SetField(field)
			termQueries = append(termQueries, t)
		}

		switch f.ApplicationType {
		case query.MustAll, query.MustAllWithLevels:
			bq.AddMust(termQueries...)
		case query.Exclude:
			bq.AddMustNot(termQueries...)
		default:
			bq.AddMust(bleve.NewDisjunctionQuery(termQueries...))
		}
	}
	return bq
}
