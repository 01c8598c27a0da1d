// Package memory implements db.Store in process. It backs single-node local
// runs and tests; data is lost on exit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/searchplane/internal/db"
)

var errClosed = errors.New("store closed")

// subscriberBuffer bounds the messages queued for a slow subscriber.
const subscriberBuffer = 256

// Store implements db.Store with maps and channels.
type Store struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	lists  map[string][]string
	subs   map[string]map[chan []byte]struct{}
	closed bool
}

var _ db.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		subs:   make(map[string]map[chan []byte]struct{}),
	}
}

// Ping fails once the store is closed.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: errClosed}
	}
	return nil
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close marks the store closed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// HSet sets fields in a hash.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HGet returns db.ErrKeyNotFound for a missing field.
func (s *Store) HGet(_ context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.hashes[key][field]
	if !ok {
		return "", db.ErrKeyNotFound
	}
	return v, nil
}

// HGetAll returns a copy of a hash.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// HDel removes fields from a hash.
func (s *Store) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashes[key]
	for _, f := range fields {
		delete(h, f)
	}
	if len(h) == 0 {
		delete(s.hashes, key)
	}
	return nil
}

// Del removes a key of any type.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.lists, key)
	return nil
}

// PushCapped prepends values like LPUSH and keeps the newest maxLen entries.
func (s *Store) PushCapped(_ context.Context, key string, maxLen int64, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	if maxLen <= 0 {
		return fmt.Errorf("maxLen must be positive, got %d", maxLen)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.lists[key]
	list := make([]string, 0, len(old)+len(values))
	for i := len(values) - 1; i >= 0; i-- {
		list = append(list, values[i])
	}
	list = append(list, old...)
	if int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	s.lists[key] = list
	return nil
}

// LRange follows LRANGE semantics, including negative indexes.
func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if start > stop {
		return []string{}, nil
	}
	return append([]string(nil), list[start:stop+1]...), nil
}

// Publish delivers message to the current subscribers of channel. A
// subscriber whose buffer is full misses the message, as a slow Redis
// subscriber would be disconnected.
func (s *Store) Publish(_ context.Context, channel string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[channel] {
		select {
		case ch <- message:
		default:
		}
	}
	return nil
}

// Subscribe blocks delivering messages to handler in order. It returns nil
// when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	ch := make(chan []byte, subscriberBuffer)
	s.mu.Lock()
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[chan []byte]struct{})
	}
	s.subs[channel][ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs[channel], ch)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			handler(msg)
		}
	}
}

// Subscribers returns the number of active subscriptions on channel.
func (s *Store) Subscribers(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[channel])
}
