package goredis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kailas-cloud/searchplane/internal/db"
)

// unreachable returns a store pointed at a closed port with tight timeouts.
func unreachable() *Store {
	return New(goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestNewStore_Success(t *testing.T) {
	s, err := NewStore(Config{Addrs: []string{"127.0.0.1:6379"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()
}

func TestHGet_ConnectionErrorIsDBError(t *testing.T) {
	s := unreachable()
	defer s.Close()

	_, err := s.HGet(context.Background(), "tokens:app", "t")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpHGet {
		t.Errorf("expected HGET db.Error, got %v", err)
	}
}

func TestPushCapped_Validation(t *testing.T) {
	s := unreachable()
	defer s.Close()

	if err := s.PushCapped(context.Background(), "k", 10); err != nil {
		t.Errorf("empty push must be a noop, got %v", err)
	}
	if err := s.PushCapped(context.Background(), "k", 0, "a"); err == nil {
		t.Error("expected error for zero maxLen")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s := unreachable()
	defer s.Close()

	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSubscribe_CancelledContext(t *testing.T) {
	s := unreachable()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Subscribe(ctx, "ch", func([]byte) {}); err != nil {
		t.Errorf("expected nil on cancelled context, got %v", err)
	}
}
