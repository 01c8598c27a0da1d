// Package journal appends domain events and log entries to capped Redis lists.
package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// DefaultMaxLen caps each list when no limit is configured.
const DefaultMaxLen = 1000

// store is the consumer interface for journal persistence (ISP).
type store interface {
	PushCapped(ctx context.Context, key string, maxLen int64, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo persists records of type T under "{prefix}{kind}:{appId}:{indexId}".
type Repo[T any] struct {
	store  store
	prefix string
	kind   string
	maxLen int64
}

// NewEvents creates a journal for domain events.
func NewEvents(s store, keyPrefix string, maxLen int64) *Repo[domain.DomainEvent] {
	return newRepo[domain.DomainEvent](s, keyPrefix, "events", maxLen)
}

// NewLogs creates a journal for log entries.
func NewLogs(s store, keyPrefix string, maxLen int64) *Repo[domain.LogEntry] {
	return newRepo[domain.LogEntry](s, keyPrefix, "logs", maxLen)
}

func newRepo[T any](s store, prefix, kind string, maxLen int64) *Repo[T] {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Repo[T]{store: s, prefix: prefix, kind: kind, maxLen: maxLen}
}

func (r *Repo[T]) key(ref domain.RepositoryReference) string {
	return r.prefix + r.kind + ":" + ref.AppID() + ":" + ref.IndexID()
}

// Save appends records newest-first.
func (r *Repo[T]) Save(ctx context.Context, ref domain.RepositoryReference, records []T) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, len(records))
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", r.kind, err)
		}
		values[i] = string(data)
	}
	if err := r.store.PushCapped(ctx, r.key(ref), r.maxLen, values...); err != nil {
		return fmt.Errorf("save %s: %w: %w", r.kind, domain.ErrResourceNotAvailable, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *Repo[T]) Recent(ctx context.Context, ref domain.RepositoryReference, limit int64) ([]T, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.store.LRange(ctx, r.key(ref), 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", r.kind, domain.ErrResourceNotAvailable, err)
	}
	out := make([]T, 0, len(raw))
	for _, s := range raw {
		var rec T
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
