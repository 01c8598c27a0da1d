package searchplane

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
)

// --- pipeline.Executor mock ---

type mockExecutor struct {
	executeFn func(ctx context.Context, msg pipeline.Message) (any, error)
	msgs      []pipeline.Message
}

func (m *mockExecutor) Execute(ctx context.Context, msg pipeline.Message) (any, error) {
	m.msgs = append(m.msgs, msg)
	return m.executeFn(ctx, msg)
}

func returning(res any, err error) *mockExecutor {
	return &mockExecutor{
		executeFn: func(context.Context, pipeline.Message) (any, error) { return res, err },
	}
}

// --- journalReader mock ---

type mockJournal[T any] struct {
	records []T
	err     error
	limit   int64
}

func (m *mockJournal[T]) Recent(_ context.Context, _ domain.RepositoryReference, limit int64) ([]T, error) {
	m.limit = limit
	return m.records, m.err
}

// --- helpers ---

func testIndexService(exec pipeline.Executor) *IndexService {
	return &IndexService{
		ref:      domain.NewReference("app1", "idx1"),
		token:    "tok1",
		pipeline: exec,
		events:   &mockJournal[domain.DomainEvent]{},
		logs:     &mockJournal[domain.LogEntry]{},
	}
}

func testTokenService(exec pipeline.Executor) *TokenService {
	return &TokenService{
		ref:      domain.NewReference("app1", ""),
		token:    "root",
		pipeline: exec,
	}
}
