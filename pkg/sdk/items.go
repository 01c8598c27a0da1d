package searchplane

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	itemuc "github.com/kailas-cloud/searchplane/internal/usecase/item"
	queryuc "github.com/kailas-cloud/searchplane/internal/usecase/query"
)

// Endpoints the SDK presents to endpoint-scoped tokens. They match the
// server routes so one token behaves the same over HTTP and in process.
const (
	itemsPath = "/v1/items"
	queryPath = "/v1/query"
)

// IndexService writes and queries the items of one index.
type IndexService struct {
	ref      domain.RepositoryReference
	token    string
	referrer string
	pipeline pipeline.Executor
	events   journalReader[domain.DomainEvent]
	logs     journalReader[domain.LogEntry]
	obs      *observer
}

// WithReferrer returns a copy of s that presents referrer to
// referrer-restricted tokens.
func (s *IndexService) WithReferrer(referrer string) *IndexService {
	cp := *s
	cp.referrer = referrer
	return &cp
}

func (s *IndexService) envelope(method, path string) pipeline.Envelope {
	return pipeline.NewEnvelope(s.ref, domain.Credentials{
		Token:    s.token,
		Referrer: s.referrer,
		Method:   method,
		Path:     path,
	})
}

// Index adds or replaces items. Returns the number of items written.
func (s *IndexService) Index(ctx context.Context, items []Item) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("items.index", s.ref.Key(), start, err) }()

	res, err := pipeline.Dispatch[itemuc.Result](ctx, s.pipeline, &itemuc.IndexItems{
		Envelope: s.envelope(http.MethodPut, itemsPath),
		Items:    items,
	})
	if err != nil {
		return 0, fmt.Errorf("index items: %w", err)
	}
	return res.Count, nil
}

// Delete removes items by UUID. Returns the number of items removed.
func (s *IndexService) Delete(ctx context.Context, uuids []ItemUUID) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("items.delete", s.ref.Key(), start, err) }()

	res, err := pipeline.Dispatch[itemuc.Result](ctx, s.pipeline, &itemuc.DeleteItems{
		Envelope: s.envelope(http.MethodDelete, itemsPath),
		UUIDs:    uuids,
	})
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return res.Count, nil
}

// Query runs a search with optional filters and aggregations.
func (s *IndexService) Query(ctx context.Context, q Query) (_ QueryResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("query", s.ref.Key(), start, err) }()

	res, err := pipeline.Dispatch[queryuc.Response](ctx, s.pipeline, &queryuc.Query{
		Envelope: s.envelope(http.MethodPost, queryPath),
		Query:    q,
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	return res, nil
}

// RecentEvents returns up to limit journaled events, newest first.
// Only inline policies journal; other policies leave it empty.
func (s *IndexService) RecentEvents(ctx context.Context, limit int64) (_ []Event, err error) {
	start := time.Now()
	defer func() { s.obs.observe("events.recent", s.ref.Key(), start, err) }()

	events, err := s.events.Recent(ctx, s.ref, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

// RecentLogs returns up to limit journaled log entries, newest first.
func (s *IndexService) RecentLogs(ctx context.Context, limit int64) (_ []LogEntry, err error) {
	start := time.Now()
	defer func() { s.obs.observe("logs.recent", s.ref.Key(), start, err) }()

	entries, err := s.logs.Recent(ctx, s.ref, limit)
	if err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}
	return entries, nil
}
