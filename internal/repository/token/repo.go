// Package token persists tokens as one Redis hash per app.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/searchplane/internal/db"
	"github.com/kailas-cloud/searchplane/internal/domain"
)

// store is the consumer interface for token persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
}

// Repo stores tokens under "{prefix}tokens:{appId}", field = token uuid.
type Repo struct {
	store  store
	prefix string
}

// New creates a token repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) key(appID string) string {
	return r.prefix + "tokens:" + appID
}

// Put inserts or replaces a token.
func (r *Repo) Put(ctx context.Context, t domain.Token) error {
	if t.AppID == "" || t.UUID == "" {
		return fmt.Errorf("token app_id and uuid are required")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := r.store.HSet(ctx, r.key(t.AppID), map[string]string{t.UUID: string(data)}); err != nil {
		return unavailable("put token", err)
	}
	return nil
}

// Get returns a token or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, appID, tokenUUID string) (domain.Token, error) {
	raw, err := r.store.HGet(ctx, r.key(appID), tokenUUID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Token{}, domain.ErrNotFound
		}
		return domain.Token{}, unavailable("get token", err)
	}
	var t domain.Token
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return domain.Token{}, fmt.Errorf("decode token %s: %w", tokenUUID, err)
	}
	return t, nil
}

// Delete removes a single token.
func (r *Repo) Delete(ctx context.Context, appID, tokenUUID string) error {
	if err := r.store.HDel(ctx, r.key(appID), tokenUUID); err != nil {
		return unavailable("delete token", err)
	}
	return nil
}

// DeleteAll removes every token of an app.
func (r *Repo) DeleteAll(ctx context.Context, appID string) error {
	if err := r.store.Del(ctx, r.key(appID)); err != nil {
		return unavailable("delete tokens", err)
	}
	return nil
}

// List returns an app's tokens ordered by uuid. Undecodable entries are skipped.
func (r *Repo) List(ctx context.Context, appID string) ([]domain.Token, error) {
	m, err := r.store.HGetAll(ctx, r.key(appID))
	if err != nil {
		return nil, unavailable("list tokens", err)
	}
	out := make([]domain.Token, 0, len(m))
	for _, raw := range m {
		var t domain.Token
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrResourceNotAvailable, err)
}
