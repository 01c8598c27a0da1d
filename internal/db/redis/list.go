package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/searchplane/internal/db"
)

// PushCapped runs LPUSH then LTRIM in a single DoMulti round-trip.
func (s *Store) PushCapped(ctx context.Context, key string, maxLen int64, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	if maxLen <= 0 {
		return fmt.Errorf("maxLen must be positive, got %d", maxLen)
	}

	results := s.client.DoMulti(ctx,
		s.b().Lpush().Key(key).Element(values...).Build(),
		s.b().Ltrim().Key(key).Start(0).Stop(maxLen-1).Build(),
	)
	ops := [...]string{db.OpLPush, db.OpLTrim}
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: ops[i], Err: fmt.Errorf("key %s: %w", key, err)}
		}
	}
	return nil
}

// LRange returns list entries between start and stop inclusive.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	vals, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return vals, nil
}
