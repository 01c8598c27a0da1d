// Package query handles read queries: it runs the search, reshapes the raw
// buckets into the aggregation tree and raises query_was_made.
package query

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/domain/search/aggregation"
	domquery "github.com/kailas-cloud/searchplane/internal/domain/search/query"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
)

// QueryName is the message name of Query.
const QueryName = "query"

// Query is a read request against one index.
type Query struct {
	pipeline.Envelope
	Query domquery.Query
}

// MessageName implements pipeline.Message.
func (*Query) MessageName() string { return QueryName }

// Response is the client-facing query result.
type Response struct {
	Total        int                 `json:"total"`
	Items        []domain.Item       `json:"items"`
	Aggregations *aggregation.Result `json:"aggregations,omitempty"`
}

// Service handles queries.
type Service struct {
	searcher Searcher
}

// New creates a query service.
func New(searcher Searcher) *Service {
	return &Service{searcher: searcher}
}

// Register binds the query handler to router.
func (s *Service) Register(router *pipeline.Router) {
	router.Register(QueryName, pipeline.Handle(s.Handle))
}

// Handle runs the query.
func (s *Service) Handle(ctx context.Context, msg *Query) (Response, error) {
	ref := msg.Reference()
	if err := ref.Validate(true); err != nil {
		return Response{}, err
	}

	q := msg.Query
	q.Normalize()
	if err := q.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %w", domain.ErrMalformedInput, err)
	}

	page, err := s.searcher.Search(ctx, ref, q)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}

	resp := Response{Total: page.Total, Items: page.Items}
	if resp.Items == nil {
		resp.Items = []domain.Item{}
	}
	if len(q.Aggregations) > 0 {
		resp.Aggregations = aggregation.Build(q, page.Raw)
	}

	pipeline.Raise(ctx, domain.NewDomainEvent(domain.EventQueryWasMade, map[string]any{
		"q":       q.Text,
		"filters": len(q.Filters),
		"total":   page.Total,
	}))
	return resp, nil
}
