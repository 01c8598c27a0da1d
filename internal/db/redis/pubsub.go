package redis

import (
	"context"
	"errors"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/searchplane/internal/db"
)

// Publish sends a message on a channel.
func (s *Store) Publish(ctx context.Context, channel string, message []byte) error {
	cmd := s.b().Publish().Channel(channel).Message(string(message)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	return nil
}

// Subscribe blocks on a dedicated connection delivering messages to handler in order.
// It returns nil when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	cmd := s.b().Subscribe().Channel(channel).Build()
	err := s.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
		handler([]byte(msg.Message))
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return &db.Error{Op: db.OpSubscribe, Err: err}
	}
	return nil
}
