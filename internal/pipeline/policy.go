package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// PolicyMode selects how events or logs are handled.
type PolicyMode string

// Policy modes.
const (
	PolicyIgnore PolicyMode = "ignore"
	PolicyInline PolicyMode = "inline"
	PolicyQueued PolicyMode = "queued"
)

// Policy handles the records (events or log entries) produced by one dispatch.
type Policy[T any] interface {
	Apply(ctx context.Context, ref domain.RepositoryReference, records []T) error
}

// Sink persists records synchronously.
type Sink[T any] interface {
	Save(ctx context.Context, ref domain.RepositoryReference, records []T) error
}

// Publisher publishes on a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// Ignore drops records.
type Ignore[T any] struct{}

// Apply implements Policy.
func (Ignore[T]) Apply(context.Context, domain.RepositoryReference, []T) error { return nil }

// Inline persists records to a sink in the caller's goroutine.
type Inline[T any] struct {
	sink   Sink[T]
	logger *zap.Logger
}

// NewInline creates an inline policy.
func NewInline[T any](sink Sink[T], logger *zap.Logger) *Inline[T] {
	return &Inline[T]{sink: sink, logger: logger}
}

// Apply implements Policy.
func (p *Inline[T]) Apply(ctx context.Context, ref domain.RepositoryReference, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if err := p.sink.Save(ctx, ref, records); err != nil {
		return fmt.Errorf("inline save: %w", err)
	}
	p.logger.Debug("records persisted",
		zap.String("app_id", ref.AppID()),
		zap.String("index_id", ref.IndexID()),
		zap.Int("count", len(records)),
	)
	return nil
}

// Queued publishes each record as {"app_id", "index_id", payloadKey: record}
// on a channel for asynchronous consumers.
type Queued[T any] struct {
	pub        Publisher
	channel    string
	payloadKey string
}

// NewQueued creates a queued policy.
func NewQueued[T any](pub Publisher, channel, payloadKey string) *Queued[T] {
	return &Queued[T]{pub: pub, channel: channel, payloadKey: payloadKey}
}

// Apply implements Policy.
func (p *Queued[T]) Apply(ctx context.Context, ref domain.RepositoryReference, records []T) error {
	for _, rec := range records {
		msg, err := json.Marshal(map[string]any{
			"app_id":     ref.AppID(),
			"index_id":   ref.IndexID(),
			p.payloadKey: rec,
		})
		if err != nil {
			return fmt.Errorf("encode queued record: %w", err)
		}
		if err := p.pub.Publish(ctx, p.channel, msg); err != nil {
			return fmt.Errorf("publish to %s: %w", p.channel, err)
		}
	}
	return nil
}

// PolicyOptions carries the collaborators a mode may need.
type PolicyOptions[T any] struct {
	Sink       Sink[T]
	Publisher  Publisher
	Channel    string
	PayloadKey string
	Logger     *zap.Logger
}

// NewPolicy builds the policy for mode. An empty mode means ignore.
func NewPolicy[T any](mode PolicyMode, opts PolicyOptions[T]) (Policy[T], error) {
	switch mode {
	case "", PolicyIgnore:
		return Ignore[T]{}, nil
	case PolicyInline:
		if opts.Sink == nil {
			return nil, fmt.Errorf("inline policy requires a sink")
		}
		logger := opts.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		return NewInline(opts.Sink, logger), nil
	case PolicyQueued:
		if opts.Publisher == nil || opts.Channel == "" || opts.PayloadKey == "" {
			return nil, fmt.Errorf("queued policy requires a publisher, channel and payload key")
		}
		return NewQueued[T](opts.Publisher, opts.Channel, opts.PayloadKey), nil
	default:
		return nil, fmt.Errorf("unknown policy mode %q", mode)
	}
}
