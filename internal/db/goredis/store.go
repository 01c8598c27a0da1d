// Package goredis implements db.Store on top of go-redis, as an alternative
// to the rueidis driver.
package goredis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kailas-cloud/searchplane/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store implements db.Store via go-redis.
type Store struct {
	rdb goredis.UniversalClient
}

// NewStore creates a go-redis store. A single address yields a plain client,
// several addresses a cluster client.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{rdb: rdb}, nil
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	_ = s.rdb.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGet returns one hash field. A missing key or field yields db.ErrKeyNotFound.
func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.rdb.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", db.ErrKeyNotFound
		}
		return "", &db.Error{Op: db.OpHGet, Err: err}
	}
	return val, nil
}

// HGetAll returns all fields of a hash.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HDel removes specific fields from a hash.
func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.rdb.HDel(ctx, key, fields...).Err(); err != nil {
		return &db.Error{Op: db.OpHDel, Err: err}
	}
	return nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// PushCapped runs LPUSH and LTRIM in one MULTI/EXEC transaction.
func (s *Store) PushCapped(ctx context.Context, key string, maxLen int64, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	if maxLen <= 0 {
		return fmt.Errorf("maxLen must be positive, got %d", maxLen)
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.LPush(ctx, key, args...)
		p.LTrim(ctx, key, 0, maxLen-1)
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpLPush, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return nil
}

// LRange returns list entries between start and stop inclusive.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := s.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return vals, nil
}

// Publish sends a message on a channel.
func (s *Store) Publish(ctx context.Context, channel string, message []byte) error {
	if err := s.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	return nil
}

// Subscribe blocks delivering messages to handler in order until ctx is
// cancelled (nil) or the subscription channel closes (error).
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	ps := s.rdb.Subscribe(ctx, channel)
	defer func() { _ = ps.Close() }()

	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &db.Error{Op: db.OpSubscribe, Err: err}
	}

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return &db.Error{Op: db.OpSubscribe, Err: errors.New("subscription closed")}
			}
			handler([]byte(msg.Payload))
		}
	}
}
