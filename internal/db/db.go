package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	ListStore
	Publisher
	Subscriber
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
}

// ListStore provides capped append-only lists.
type ListStore interface {
	// PushCapped prepends values and trims the list to the newest maxLen entries.
	PushCapped(ctx context.Context, key string, maxLen int64, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Publisher publishes messages on pub/sub channels.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// Subscriber consumes a pub/sub channel. Subscribe blocks, calling handler for
// every message in arrival order, until ctx is cancelled or the connection drops.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error
}
