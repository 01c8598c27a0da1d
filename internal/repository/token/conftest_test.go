package token

import (
	"context"
	"sync"

	"github.com/kailas-cloud/searchplane/internal/db"
)

// mockHashStore is an in-memory implementation of the consumer interface.
type mockHashStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	err    error
	hgets  int
	// afterHGet runs once, after the next HGet has read its value.
	afterHGet func()
}

func newMockHashStore() *mockHashStore {
	return &mockHashStore{hashes: make(map[string]map[string]string)}
}

func (m *mockHashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockHashStore) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.Lock()
	m.hgets++
	err := m.err
	v, ok := m.hashes[key][field]
	hook := m.afterHGet
	m.afterHGet = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockHashStore) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *mockHashStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.hashes, key)
	return nil
}
